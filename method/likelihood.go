package method

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/y-v-p/root/optstr"
)

func init() {
	Register("Likelihood", func(name string, opts *optstr.Set) (Method, error) {
		if err := commonOptions(opts); err != nil {
			return nil, err
		}
		return &Likelihood{name: name}, nil
	})
}

// Likelihood models every variable with an independent Gaussian per
// class and scores an event by the summed per-variable log-likelihood
// ratio. Correlations between variables are ignored; Gauss is the
// variant that models them.
type Likelihood struct {
	name string
}

func (l *Likelihood) Name() string { return l.name }

func (l *Likelihood) Kind() string { return "Likelihood" }

func (l *Likelihood) Train(x mat.Matrix, classes []bool, weights []float64, inds []int) (Model, error) {
	sig, bkg := classSplit(classes, inds)
	if len(sig) < 2 || len(bkg) < 2 {
		return nil, fmt.Errorf("method: likelihood: need at least 2 events per class, got %d signal and %d background", len(sig), len(bkg))
	}
	m := &LikelihoodModel{}
	m.MuS, m.SigmaS = classMoments(x, weights, sig)
	m.MuB, m.SigmaB = classMoments(x, weights, bkg)
	return m, nil
}

// widthFloor replaces the width of a variable that is constant within a
// class, keeping its density finite.
const widthFloor = 1e-9

// classMoments estimates the per-variable weighted mean and sample
// standard deviation of the selected rows.
func classMoments(x mat.Matrix, weights []float64, inds []int) (mu, sigma []float64) {
	_, dim := x.Dims()
	mu = make([]float64, dim)
	sigma = make([]float64, dim)
	col := make([]float64, len(inds))
	var wts []float64
	if weights != nil {
		wts = make([]float64, len(inds))
		for i, idx := range inds {
			wts[i] = weights[idx]
		}
	}
	for j := 0; j < dim; j++ {
		for i, idx := range inds {
			col[i] = x.At(idx, j)
		}
		m, sd := stat.MeanStdDev(col, wts)
		if !(sd > 0) {
			sd = widthFloor * (1 + math.Abs(m))
		}
		mu[j], sigma[j] = m, sd
	}
	return mu, sigma
}

// LikelihoodModel holds the per-class, per-variable Gaussian moments.
type LikelihoodModel struct {
	MuS, SigmaS []float64
	MuB, SigmaB []float64
}

// Score sums the per-variable log likelihood ratios at x.
func (m *LikelihoodModel) Score(x []float64) float64 {
	var s float64
	for j := range m.MuS {
		ns := distuv.Normal{Mu: m.MuS[j], Sigma: m.SigmaS[j]}
		nb := distuv.Normal{Mu: m.MuB[j], Sigma: m.SigmaB[j]}
		s += ns.LogProb(x[j]) - nb.LogProb(x[j])
	}
	return s
}
