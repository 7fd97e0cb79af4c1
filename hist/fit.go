package hist

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/y-v-p/root/lsq"
)

// Func1D is a parametric model over one coordinate.
type Func1D func(x float64, params []float64) float64

// Func2D is a parametric model over two coordinates.
type Func2D func(x, y float64, params []float64) float64

// FitResult holds the outcome of a histogram fit.
type FitResult struct {
	// Params are the best-fit parameter values.
	Params []float64
	// Errors are the parameter uncertainties from the Δχ²=1 rule using
	// the diagonal curvature only. NaN marks a parameter whose
	// curvature was not positive. Nil for linear fits.
	Errors []float64
	// Chi2 is the chi-square at the minimum.
	Chi2 float64
	// NDF is the number of used bins minus the number of parameters,
	// floored at zero.
	NDF int
	// Converged reports whether the minimizer met its convergence
	// criterion rather than an iteration or evaluation limit.
	Converged bool
	// Evaluations counts model evaluations spent by the minimizer.
	Evaluations int
}

// FitH1 fits the model f to the filled bins of h, starting from p0.
// The chi-square compares f at bin centers against bin contents with
// sum-of-squared-weight errors; empty bins are skipped.
func FitH1(h *H1D, f Func1D, p0 []float64) (FitResult, error) {
	if f == nil {
		return FitResult{}, errors.New("hist: nil fit function")
	}
	if len(p0) == 0 {
		return FitResult{}, errors.New("hist: fit needs at least one parameter")
	}
	var xs, ys, sigma2 []float64
	for i := 0; i < h.ax.Bins(); i++ {
		if h.sumw2[i] <= 0 {
			continue
		}
		xs = append(xs, h.ax.BinCenter(i))
		ys = append(ys, h.sumw[i])
		sigma2 = append(sigma2, h.sumw2[i])
	}
	if len(xs) == 0 {
		return FitResult{}, errors.New("hist: no filled bins to fit")
	}
	chi2 := func(p []float64) float64 {
		var s float64
		for i, x := range xs {
			r := ys[i] - f(x, p)
			s += r * r / sigma2[i]
		}
		return s
	}
	return minimizeChi2(chi2, p0, len(xs))
}

// FitH2 fits the model f to the filled bins of h, starting from p0.
func FitH2(h *H2D, f Func2D, p0 []float64) (FitResult, error) {
	if f == nil {
		return FitResult{}, errors.New("hist: nil fit function")
	}
	if len(p0) == 0 {
		return FitResult{}, errors.New("hist: fit needs at least one parameter")
	}
	var xs, ys, ws, sigma2 []float64
	ny := h.ay.Bins()
	for ix := 0; ix < h.ax.Bins(); ix++ {
		for iy := 0; iy < ny; iy++ {
			i := ix*ny + iy
			if h.sumw2[i] <= 0 {
				continue
			}
			xs = append(xs, h.ax.BinCenter(ix))
			ys = append(ys, h.ay.BinCenter(iy))
			ws = append(ws, h.sumw[i])
			sigma2 = append(sigma2, h.sumw2[i])
		}
	}
	if len(xs) == 0 {
		return FitResult{}, errors.New("hist: no filled bins to fit")
	}
	chi2 := func(p []float64) float64 {
		var s float64
		for i := range xs {
			r := ws[i] - f(xs[i], ys[i], p)
			s += r * r / sigma2[i]
		}
		return s
	}
	return minimizeChi2(chi2, p0, len(xs))
}

func minimizeChi2(chi2 func([]float64) float64, p0 []float64, nUsed int) (FitResult, error) {
	problem := optimize.Problem{Func: chi2}
	init := append([]float64(nil), p0...)
	res, err := optimize.Minimize(problem, init, nil, &optimize.NelderMead{})
	if err != nil {
		return FitResult{}, fmt.Errorf("hist: minimizing chi-square: %w", err)
	}
	ndf := nUsed - len(p0)
	if ndf < 0 {
		ndf = 0
	}
	return FitResult{
		Params:      append([]float64(nil), res.X...),
		Errors:      paramErrors(chi2, res.X, res.F),
		Chi2:        res.F,
		NDF:         ndf,
		Converged:   converged(res.Status),
		Evaluations: res.Stats.FuncEvaluations,
	}, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.StepConvergence,
		optimize.GradientThreshold, optimize.MethodConverge:
		return true
	}
	return false
}

// paramErrors estimates one-parameter uncertainties from the second
// difference of the chi-square along each axis: Δχ²=1 gives
// σ_i = sqrt(2 / ∂²χ²/∂p_i²).
func paramErrors(chi2 func([]float64) float64, p []float64, c0 float64) []float64 {
	errs := make([]float64, len(p))
	pp := append([]float64(nil), p...)
	for i := range p {
		h := 1e-4 * (1 + math.Abs(p[i]))
		pp[i] = p[i] + h
		cPlus := chi2(pp)
		pp[i] = p[i] - h
		cMinus := chi2(pp)
		pp[i] = p[i]
		curv := (cPlus - 2*c0 + cMinus) / (h * h)
		if curv > 0 && !math.IsInf(curv, 0) {
			errs[i] = math.Sqrt(2 / curv)
		} else {
			errs[i] = math.NaN()
		}
	}
	return errs
}

// FitH1Poly fits a polynomial of the given order to the filled bins of
// h by weighted linear least squares. The result carries no parameter
// errors and always converges when the system is solvable.
func FitH1Poly(h *H1D, order int) (FitResult, error) {
	if order < 0 {
		return FitResult{}, errors.New("hist: negative polynomial order")
	}
	var xs, ys, invs2 []float64
	for i := 0; i < h.ax.Bins(); i++ {
		if h.sumw2[i] <= 0 {
			continue
		}
		xs = append(xs, h.ax.BinCenter(i))
		ys = append(ys, h.sumw[i])
		invs2 = append(invs2, 1/h.sumw2[i])
	}
	if len(xs) == 0 {
		return FitResult{}, errors.New("hist: no filled bins to fit")
	}
	inds := make([]int, len(xs))
	for i := range inds {
		inds[i] = i
	}
	xm := mat.NewDense(len(xs), 1, xs)
	term := lsq.Poly{Order: order}
	beta, err := lsq.Coeffs(xm, ys, invs2, inds, term)
	if err != nil {
		return FitResult{}, err
	}
	var chi2 float64
	terms := make([]float64, term.NumTerms(1))
	for i, x := range xs {
		term.Terms(terms, []float64{x})
		var fv float64
		for j, b := range beta {
			fv += b * terms[j]
		}
		r := ys[i] - fv
		chi2 += r * r * invs2[i]
	}
	ndf := len(xs) - len(beta)
	if ndf < 0 {
		ndf = 0
	}
	return FitResult{Params: beta, Chi2: chi2, NDF: ndf, Converged: true}, nil
}
