package cgan

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// NormalizePixel Maps a [0, 255] channel value to [-1, 1]
func NormalizePixel(v uint8) float64 {
	return float64(v)/127.5 - 1.0
}

// DenormalizePixel Maps a [-1, 1] value back to a displayable [0, 255] channel value.
// Values outside [-1, 1] are clamped.
func DenormalizePixel(v float64) uint8 {
	scaled := math.Round((v + 1.0) * 127.5)
	if scaled < 0 {
		scaled = 0
	}
	if scaled > 255 {
		scaled = 255
	}
	return uint8(scaled)
}

// ImageToCHW Resizes an image to size*size with bilinear interpolation and
// converts it to a CHW float64 slice with channel values normalized to [-1, 1]
func ImageToCHW(img image.Image, channels, size int) []float64 {
	data := make([]float64, channels*size*size)
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	for y := 0; y < size; y++ {
		// Map target pixel centers onto the source grid
		srcY := (float64(y) + 0.5) * float64(srcH) / float64(size)
		y0 := int(math.Floor(srcY - 0.5))
		fy := srcY - 0.5 - float64(y0)
		for x := 0; x < size; x++ {
			srcX := (float64(x) + 0.5) * float64(srcW) / float64(size)
			x0 := int(math.Floor(srcX - 0.5))
			fx := srcX - 0.5 - float64(x0)
			r, g, b := bilinearRGB(img, x0, y0, fx, fy)
			rgb := [3]float64{r, g, b}
			for c := 0; c < channels; c++ {
				data[(c*size+y)*size+x] = rgb[c%3]/127.5 - 1.0
			}
		}
	}
	return data
}

func bilinearRGB(img image.Image, x0, y0 int, fx, fy float64) (float64, float64, float64) {
	r00, g00, b00 := rgbAt(img, x0, y0)
	r10, g10, b10 := rgbAt(img, x0+1, y0)
	r01, g01, b01 := rgbAt(img, x0, y0+1)
	r11, g11, b11 := rgbAt(img, x0+1, y0+1)
	lerp := func(v00, v10, v01, v11 float64) float64 {
		top := v00*(1.0-fx) + v10*fx
		bottom := v01*(1.0-fx) + v11*fx
		return top*(1.0-fy) + bottom*fy
	}
	return lerp(r00, r10, r01, r11), lerp(g00, g10, g01, g11), lerp(b00, b10, b01, b11)
}

func rgbAt(img image.Image, x, y int) (float64, float64, float64) {
	bounds := img.Bounds()
	if x < bounds.Min.X {
		x = bounds.Min.X
	}
	if x > bounds.Max.X-1 {
		x = bounds.Max.X - 1
	}
	if y < bounds.Min.Y {
		y = bounds.Min.Y
	}
	if y > bounds.Max.Y-1 {
		y = bounds.Max.Y - 1
	}
	r, g, b, _ := img.At(x, y).RGBA()
	return float64(r >> 8), float64(g >> 8), float64(b >> 8)
}

// SampleToImage Extracts a single sample from a (batch, channels, height, width)
// tensor and converts it to an image, rescaling values from [-1, 1]
func SampleToImage(t *tensor.Dense, idx int) (*image.RGBA, error) {
	if t.Dims() != 4 {
		return nil, fmt.Errorf("Samples tensor must have 4 dimensions, but got %d", t.Dims())
	}
	shape := t.Shape()
	batch, channels, height, width := shape[0], shape[1], shape[2], shape[3]
	if idx < 0 || idx >= batch {
		return nil, fmt.Errorf("Sample index %d is out of range [0;%d)", idx, batch)
	}
	data, ok := t.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("Samples tensor must be backed by []float64, but got %T", t.Data())
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	sampleOffset := idx * channels * height * width
	plane := height * width
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pos := y*width + x
			r := DenormalizePixel(data[sampleOffset+pos])
			g, b := r, r
			if channels >= 3 {
				g = DenormalizePixel(data[sampleOffset+plane+pos])
				b = DenormalizePixel(data[sampleOffset+2*plane+pos])
			}
			img.Set(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img, nil
}

// SaveImageGrid Lays out every sample of a (batch, channels, height, width)
// tensor into a grid with perRow samples per row (the last row may be short)
// and writes it as a single PNG file
func SaveImageGrid(t *tensor.Dense, perRow int, fname string) error {
	if perRow < 1 {
		return fmt.Errorf("Grid must have one sample per row atleast, but got %d", perRow)
	}
	if t.Dims() != 4 {
		return fmt.Errorf("Samples tensor must have 4 dimensions, but got %d", t.Dims())
	}
	shape := t.Shape()
	batch, height, width := shape[0], shape[2], shape[3]
	if batch < 1 {
		return fmt.Errorf("Samples tensor must have one sample atleast")
	}
	cols := perRow
	if batch < perRow {
		cols = batch
	}
	rows := (batch + perRow - 1) / perRow
	grid := image.NewRGBA(image.Rect(0, 0, cols*width, rows*height))
	for i := 0; i < batch; i++ {
		sample, err := SampleToImage(t, i)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't convert sample #%d to image", i))
		}
		offsetX := (i % perRow) * width
		offsetY := (i / perRow) * height
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				grid.Set(offsetX+x, offsetY+y, sample.At(x, y))
			}
		}
	}
	f, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("Can't create grid file '%s'", fname))
	}
	defer f.Close()
	if err := png.Encode(f, grid); err != nil {
		return errors.Wrap(err, fmt.Sprintf("Can't encode grid file '%s'", fname))
	}
	return nil
}
