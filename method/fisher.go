package method

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/y-v-p/root/optstr"
)

func init() {
	Register("Fisher", func(name string, opts *optstr.Set) (Method, error) {
		if err := commonOptions(opts); err != nil {
			return nil, err
		}
		// The bare Fisher flag selects the classic discriminant; it is
		// the only variant implemented.
		if !opts.Bool("Fisher", true) {
			return nil, errors.New("method: fisher: only the Fisher discriminant variant is supported")
		}
		return &Fisher{name: name}, nil
	})
}

// Fisher is the Fisher linear discriminant: the projection w solving
// S_w·w = μ_S − μ_B, where S_w is the pooled within-class scatter of the
// training events.
type Fisher struct {
	name string
}

func (f *Fisher) Name() string { return f.name }

func (f *Fisher) Kind() string { return "Fisher" }

func (f *Fisher) Train(x mat.Matrix, classes []bool, weights []float64, inds []int) (Model, error) {
	_, dim := x.Dims()
	sig, bkg := classSplit(classes, inds)
	if len(sig) < 2 || len(bkg) < 2 {
		return nil, fmt.Errorf("method: fisher: need at least 2 events per class, got %d signal and %d background", len(sig), len(bkg))
	}

	muS := weightedMean(x, weights, sig)
	muB := weightedMean(x, weights, bkg)

	scatter := mat.NewSymDense(dim, nil)
	row := make([]float64, dim)
	accumulate := func(inds []int, mu []float64) {
		for _, idx := range inds {
			mat.Row(row, idx, x)
			w := 1.0
			if weights != nil {
				w = weights[idx]
			}
			for i := 0; i < dim; i++ {
				di := row[i] - mu[i]
				for j := i; j < dim; j++ {
					scatter.SetSym(i, j, scatter.At(i, j)+w*di*(row[j]-mu[j]))
				}
			}
		}
	}
	accumulate(sig, muS)
	accumulate(bkg, muB)

	diff := mat.NewVecDense(dim, nil)
	for j := 0; j < dim; j++ {
		diff.SetVec(j, muS[j]-muB[j])
	}
	w, err := solveSym(scatter, diff)
	if err != nil {
		return nil, fmt.Errorf("method: fisher: within-class scatter: %w", err)
	}

	// Center the score between the projected class means so that signal
	// events come out positive.
	b := -0.5 * (floats.Dot(w, muS) + floats.Dot(w, muB))
	return &FisherModel{W: w, B: b}, nil
}

// FisherModel is the trained discriminant.
type FisherModel struct {
	W []float64
	B float64
}

func (m *FisherModel) Score(x []float64) float64 {
	return floats.Dot(m.W, x) + m.B
}
