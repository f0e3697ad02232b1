package cgan

import (
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func makeTestFolder(t *testing.T, colors []color.RGBA, size int) *ImageFolder {
	t.Helper()
	root := t.TempDir()
	for i, c := range colors {
		class := "a"
		if i%2 == 1 {
			class = "b"
		}
		writeTestImage(t, filepath.Join(root, class, "img_"+string(rune('0'+i))+".png"), 16, 16, c)
	}
	ds, err := NewImageFolder(root, 3, size)
	require.NoError(t, err)
	return ds
}

func TestImageFolderMissingDir(t *testing.T) {
	_, err := NewImageFolder(filepath.Join(t.TempDir(), "nope"), 3, 8)
	require.Error(t, err)
}

func TestImageFolderEmptyDir(t *testing.T) {
	_, err := NewImageFolder(t.TempDir(), 3, 8)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no decodable images")
}

func TestImageFolderLoadsAndNormalizes(t *testing.T) {
	ds := makeTestFolder(t, []color.RGBA{
		{R: 255, G: 255, B: 255, A: 255},
		{R: 0, G: 0, B: 0, A: 255},
		{R: 255, G: 0, B: 0, A: 255},
	}, 8)
	require.Equal(t, 3, ds.Len())
	for _, sample := range ds.samples {
		require.Len(t, sample, 3*8*8)
		for _, v := range sample {
			require.GreaterOrEqual(t, v, -1.0)
			require.LessOrEqual(t, v, 1.0)
		}
	}
	// Samples follow the sorted file paths: class "a" holds the white and the
	// red image, class "b" the black one
	for _, v := range ds.samples[0] {
		require.InDelta(t, 1.0, v, 1e-9)
	}
	// Red image: CHW layout means the first plane is R=1, then G=-1 and B=-1
	plane := 8 * 8
	for i, v := range ds.samples[1] {
		expected := -1.0
		if i < plane {
			expected = 1.0
		}
		require.InDelta(t, expected, v, 1e-9)
	}
	for _, v := range ds.samples[2] {
		require.InDelta(t, -1.0, v, 1e-9)
	}
}

func TestImageFolderBatchShape(t *testing.T) {
	ds := makeTestFolder(t, []color.RGBA{
		{R: 10, G: 20, B: 30, A: 255},
		{R: 40, G: 50, B: 60, A: 255},
	}, 8)
	batch, err := ds.Batch([]int{0, 1})
	require.NoError(t, err)
	require.Equal(t, []int{2, 3, 8, 8}, []int(batch.Shape()))

	_, err = ds.Batch([]int{5})
	require.Error(t, err)
}

func TestBatcherDeterministicOrder(t *testing.T) {
	colors := []color.RGBA{
		{R: 10, A: 255}, {R: 60, A: 255}, {R: 110, A: 255},
		{R: 160, A: 255}, {R: 210, A: 255}, {R: 250, A: 255},
	}
	ds := makeTestFolder(t, colors, 8)

	first, err := NewBatcher(ds, 2, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	second, err := NewBatcher(ds, 2, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	// Same seed must reproduce the same batch sequence across epoch wraps
	for i := 0; i < 2*first.StepsPerEpoch(); i++ {
		a, err := first.Next()
		require.NoError(t, err)
		b, err := second.Next()
		require.NoError(t, err)
		require.Equal(t, a.Data().([]float64), b.Data().([]float64), "batch #%d differs", i)
	}
}

func TestBatcherStepsPerEpochDropsTail(t *testing.T) {
	colors := []color.RGBA{
		{R: 10, A: 255}, {R: 60, A: 255}, {R: 110, A: 255},
		{R: 160, A: 255}, {R: 210, A: 255},
	}
	ds := makeTestFolder(t, colors, 8)
	b, err := NewBatcher(ds, 2, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, 2, b.StepsPerEpoch())
}

func TestBatcherRejectsOversizedBatch(t *testing.T) {
	ds := makeTestFolder(t, []color.RGBA{{R: 10, A: 255}}, 8)
	_, err := NewBatcher(ds, 2, rand.New(rand.NewSource(1)))
	require.Error(t, err)
}
