package xval

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// writeROCPlot overlays the averaged ROC curve of every method and
// saves the figure as a PNG.
func writeROCPlot(path string, results []Result) error {
	p := plot.New()
	p.Title.Text = "ROC"
	p.X.Label.Text = "background efficiency"
	p.Y.Label.Text = "signal efficiency"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	diag := plotter.NewFunction(func(x float64) float64 { return x })
	diag.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(diag)

	for i := range results {
		r := &results[i]
		xys := make(plotter.XYs, len(r.AvgCurve.FPR))
		for j := range xys {
			xys[j].X = r.AvgCurve.FPR[j]
			xys[j].Y = r.AvgCurve.TPR[j]
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("xval: plotting %s: %w", r.Method, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s (%.3f)", r.Method, r.ROCAverage()), line)
	}
	p.Legend.Top = false
	p.Legend.Left = false

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("xval: saving roc plot: %w", err)
	}
	return nil
}
