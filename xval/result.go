package xval

import (
	"fmt"
	"io"
	"math"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/y-v-p/root/hist"
)

// FoldResult holds the held-out metrics of one fold.
type FoldResult struct {
	// Fold is the fold index.
	Fold int
	// ROC is the integral of the held-out ROC curve.
	ROC float64
	// Separation is the score-distribution separation <S²>.
	Separation float64
	// EffB10 and EffB30 are the signal efficiencies at background
	// efficiencies 0.10 and 0.30.
	EffB10 float64
	EffB30 float64
	// NTest is the number of held-out events.
	NTest int
	// Curve is the held-out ROC curve.
	Curve Curve
	// TestIndices are the training-pool rows this fold held out.
	TestIndices []int
	// Scores are the model scores of the held-out rows, aligned with
	// TestIndices.
	Scores []float64
}

// Result holds the cross-validated outcome of one booked method.
type Result struct {
	// Method is the booking name, Kind the registry kind.
	Method string
	Kind   string
	// Folds are the per-fold results in fold order.
	Folds []FoldResult
	// AvgCurve is the fold-averaged ROC curve on a fixed grid.
	AvgCurve Curve
}

// ROCValues returns the per-fold ROC integrals in fold order.
func (r *Result) ROCValues() []float64 {
	out := make([]float64, len(r.Folds))
	for i, f := range r.Folds {
		out[i] = f.ROC
	}
	return out
}

// ROCAverage returns the mean per-fold ROC integral.
func (r *Result) ROCAverage() float64 {
	if len(r.Folds) == 0 {
		return 0
	}
	return stat.Mean(r.ROCValues(), nil)
}

// ROCStdDev returns the sample standard deviation of the per-fold ROC
// integrals, 0 with fewer than two folds.
func (r *Result) ROCStdDev() float64 {
	if len(r.Folds) < 2 {
		return 0
	}
	return stat.StdDev(r.ROCValues(), nil)
}

// Print renders the per-fold table and the summary line.
func (r *Result) Print(w io.Writer) {
	fmt.Fprintf(w, "Cross-validation results for method %s (%s)\n", r.Method, r.Kind)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Fold", "ROC", "Separation", "Eff B=0.10", "Eff B=0.30", "N Test"})
	for _, f := range r.Folds {
		table.Append([]string{
			fmt.Sprintf("%d", f.Fold),
			fmt.Sprintf("%.4f", f.ROC),
			fmt.Sprintf("%.4f", f.Separation),
			fmt.Sprintf("%.4f", f.EffB10),
			fmt.Sprintf("%.4f", f.EffB30),
			fmt.Sprintf("%d", f.NTest),
		})
	}
	table.Render()
	fmt.Fprintf(w, "==> %s ROC: %.4f (%.4f)\n", r.Method, r.ROCAverage(), r.ROCStdDev())
}

// separationBins is the binning of the score distributions the
// separation integral runs over.
const separationBins = 40

// separation computes <S²> = ½ Σ (s−b)²/(s+b) over the normalized
// score distributions of the two classes.
func separation(scores []float64, classes []bool, weights []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	lo := floats.Min(scores)
	hi := floats.Max(scores)
	if lo == hi {
		return 0
	}
	ax := hist.Regular(separationBins, lo, hi)
	hS := hist.NewH1D(ax)
	hB := hist.NewH1D(ax)
	top := math.Nextafter(hi, lo)
	for i, x := range scores {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		// the maximum score belongs in the top bin, not the overflow
		if x >= hi {
			x = top
		}
		if classes[i] {
			hS.Fill(x, w)
		} else {
			hB.Fill(x, w)
		}
	}
	sInt, bInt := hS.Integral(), hB.Integral()
	if sInt == 0 || bInt == 0 {
		return 0
	}
	var sep float64
	for i := 0; i < separationBins; i++ {
		s := hS.BinContent(i) / sInt
		b := hB.BinContent(i) / bInt
		if s+b > 0 {
			sep += (s - b) * (s - b) / (s + b)
		}
	}
	return 0.5 * sep
}
