package method

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/y-v-p/root/lsq"
	"github.com/y-v-p/root/optstr"
)

func init() {
	Register("LD", func(name string, opts *optstr.Set) (Method, error) {
		if err := commonOptions(opts); err != nil {
			return nil, err
		}
		order := opts.Int("Order", 1)
		if order < 1 {
			return nil, fmt.Errorf("method: ld: Order must be at least 1, got %d", order)
		}
		return &LD{name: name, order: order}, nil
	})
}

// LD is a linear (or, with Order > 1, polynomial) discriminant fit by
// weighted least squares against ±1 class targets.
type LD struct {
	name  string
	order int
}

func (l *LD) Name() string { return l.name }

func (l *LD) Kind() string { return "LD" }

func (l *LD) Train(x mat.Matrix, classes []bool, weights []float64, inds []int) (Model, error) {
	sig, bkg := classSplit(classes, inds)
	if len(sig) == 0 || len(bkg) == 0 {
		return nil, fmt.Errorf("method: ld: single-class training set")
	}
	n, _ := x.Dims()
	targets := make([]float64, n)
	for _, idx := range inds {
		if classes[idx] {
			targets[idx] = 1
		} else {
			targets[idx] = -1
		}
	}
	beta, err := lsq.Coeffs(x, targets, weights, inds, lsq.Poly{Order: l.order})
	if err != nil {
		return nil, fmt.Errorf("method: ld: %w", err)
	}
	return &LDModel{Order: l.order, Beta: beta}, nil
}

// LDModel is the trained discriminant.
type LDModel struct {
	Order int
	Beta  []float64
}

func (m *LDModel) Score(x []float64) float64 {
	p := lsq.Poly{Order: m.Order}
	terms := make([]float64, p.NumTerms(len(x)))
	p.Terms(terms, x)
	return floats.Dot(terms, m.Beta)
}
