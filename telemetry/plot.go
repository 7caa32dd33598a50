package telemetry

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	bestColor = color.RGBA{R: 214, G: 69, B: 65, A: 255}
	meanColor = color.RGBA{R: 52, G: 101, B: 164, A: 255}
)

// WriteFitnessPlot renders best and mean fitness per generation to a PNG at path.
func WriteFitnessPlot(history []EpochStats, path string) error {
	if len(history) == 0 {
		return fmt.Errorf("no epochs to plot")
	}

	p := plot.New()
	p.Title.Text = "Fitness by generation"
	p.X.Label.Text = "generation"
	p.Y.Label.Text = "fitness"

	best := make(plotter.XYs, len(history))
	mean := make(plotter.XYs, len(history))
	for i, h := range history {
		best[i].X, best[i].Y = float64(h.Generation), h.BestFitness
		mean[i].X, mean[i].Y = float64(h.Generation), h.MeanFitness
	}

	bestLine, err := plotter.NewLine(best)
	if err != nil {
		return err
	}
	bestLine.LineStyle.Color = bestColor
	bestLine.LineStyle.Width = vg.Points(1.5)

	meanLine, err := plotter.NewLine(mean)
	if err != nil {
		return err
	}
	meanLine.LineStyle.Color = meanColor
	meanLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(plotter.NewGrid(), bestLine, meanLine)
	p.Legend.Add("best", bestLine)
	p.Legend.Add("mean", meanLine)
	p.Legend.Top = true
	p.Legend.Left = true

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
