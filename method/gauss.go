package method

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/y-v-p/root/optstr"
)

func init() {
	Register("Gauss", func(name string, opts *optstr.Set) (Method, error) {
		if err := commonOptions(opts); err != nil {
			return nil, err
		}
		return &Gauss{name: name}, nil
	})
}

// Gauss models each class with a multivariate Gaussian estimated from
// the weighted training events and scores an event with the log
// likelihood ratio of the two densities.
type Gauss struct {
	name string
}

func (g *Gauss) Name() string { return g.name }

func (g *Gauss) Kind() string { return "Gauss" }

func (g *Gauss) Train(x mat.Matrix, classes []bool, weights []float64, inds []int) (Model, error) {
	sig, bkg := classSplit(classes, inds)
	if len(sig) < 2 || len(bkg) < 2 {
		return nil, fmt.Errorf("method: gauss: needs two events per class, got %d signal and %d background", len(sig), len(bkg))
	}
	_, dim := x.Dims()
	m := &GaussModel{Dim: dim}
	var err error
	if m.MuS, m.CovS, err = classGauss(x, weights, sig); err != nil {
		return nil, err
	}
	if m.MuB, m.CovB, err = classGauss(x, weights, bkg); err != nil {
		return nil, err
	}
	return m, nil
}

// classGauss estimates the weighted mean and covariance of the selected
// rows. The covariance comes back flattened row-major and already
// ridged if the raw estimate was not factorizable.
func classGauss(x mat.Matrix, weights []float64, inds []int) ([]float64, []float64, error) {
	_, dim := x.Dims()
	sub := mat.NewDense(len(inds), dim, nil)
	row := make([]float64, dim)
	var w []float64
	if weights != nil {
		w = make([]float64, len(inds))
	}
	for i, idx := range inds {
		mat.Row(row, idx, x)
		sub.SetRow(i, row)
		if w != nil {
			w[i] = weights[idx]
		}
	}
	mu := weightedMean(x, weights, inds)
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, sub, w)
	if _, ok := distmv.NewNormal(mu, &cov, nil); !ok {
		addRidge(&cov)
		if _, ok := distmv.NewNormal(mu, &cov, nil); !ok {
			return nil, nil, errors.New("method: gauss: degenerate covariance")
		}
	}
	flat := make([]float64, dim*dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			flat[i*dim+j] = cov.At(i, j)
		}
	}
	return mu, flat, nil
}

// GaussModel carries the per-class moments and rebuilds the densities
// on first use; gob moves only the exported fields.
type GaussModel struct {
	Dim        int
	MuS, MuB   []float64
	CovS, CovB []float64

	once     sync.Once
	sig, bkg *distmv.Normal
}

func (m *GaussModel) build() {
	m.sig, _ = distmv.NewNormal(m.MuS, mat.NewSymDense(m.Dim, m.CovS), nil)
	m.bkg, _ = distmv.NewNormal(m.MuB, mat.NewSymDense(m.Dim, m.CovB), nil)
}

// Score is the log likelihood ratio of the signal and background
// densities at x. Train stores factorizable covariances, so the lazy
// rebuild cannot fail on a trained model; NaN flags a hand-built one
// that skipped Train.
func (m *GaussModel) Score(x []float64) float64 {
	m.once.Do(m.build)
	if m.sig == nil || m.bkg == nil {
		return math.NaN()
	}
	return m.sig.LogProb(x) - m.bkg.LogProb(x)
}
