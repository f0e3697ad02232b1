package cgan

import (
	"fmt"
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SlicerOneStep Just iterator with step size = 1
type SlicerOneStep struct {
	StartIdx, EndIdx int
}

func (s SlicerOneStep) Start() int { return s.StartIdx }
func (s SlicerOneStep) End() int   { return s.EndIdx }
func (s SlicerOneStep) Step() int  { return 1 }

// PlotLosses Plot chart for generator and discriminator losses over training steps
func PlotLosses(genLosses, disLosses []float64, fname string) error {
	if len(genLosses) != len(disLosses) {
		return fmt.Errorf("Loss histories must have same number of elements, but got %d and %d", len(genLosses), len(disLosses))
	}
	if len(genLosses) == 0 {
		return fmt.Errorf("Loss histories must have one element atleast")
	}
	genData := make(plotter.XYs, len(genLosses))
	disData := make(plotter.XYs, len(disLosses))
	for i := range genLosses {
		genData[i].X = float64(i)
		genData[i].Y = genLosses[i]
		disData[i].X = float64(i)
		disData[i].Y = disLosses[i]
	}
	genLine, err := plotter.NewLine(genData)
	if err != nil {
		return errors.Wrap(err, "Can't init line for generator losses")
	}
	genLine.Color = color.RGBA{R: 255, B: 128, A: 255}
	disLine, err := plotter.NewLine(disData)
	if err != nil {
		return errors.Wrap(err, "Can't init line for discriminator losses")
	}
	disLine.Color = color.RGBA{B: 255, G: 128, A: 255}
	p := plot.New()
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Loss"
	p.Add(plotter.NewGrid())
	p.Add(genLine)
	p.Add(disLine)
	p.Legend.Add("generator", genLine)
	p.Legend.Add("discriminator", disLine)
	// Save the plot to a PNG file.
	if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}
