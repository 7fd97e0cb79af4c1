// package lsq is a simple package for making least-squares fits.
// This package assumes that the functional approximation is
//
//	f(x) = β_0 * t_0(x) + β_1 * t_1(x) + ... + β_n * t_n(x)
//
// where the t_i are functions of the input as set by the Termer, and the β_i
// are free parameters that are set by minimizing the least-squares error over
// a set of training samples.
package lsq

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/combin"
)

// Termer is a type that can set the nonlinear functions from a particular input.
// See the package documentation for more information.
type Termer interface {
	// NumTerms returns the number of terms in the least squares fit as a function
	// of the input dimension of x.
	NumTerms(dim int) int
	// Terms computes the terms given the input, and stores them in-place into
	// terms.
	Terms(terms, x []float64)
}

// Poly is a Termer for a polynomial fit of the given order: a constant
// term followed by x_i, x_i², ... up to Order for every input dimension.
// Cross terms are not included.
type Poly struct {
	Order int
}

func (p Poly) NumTerms(dim int) int {
	return 1 + p.Order*dim
}

func (p Poly) Terms(terms, x []float64) {
	if len(terms) != p.NumTerms(len(x)) {
		panic("lsq: bad number of terms")
	}
	terms[0] = 1
	idx := 1
	for pow := 1; pow <= p.Order; pow++ {
		for _, v := range x {
			terms[idx] = math.Pow(v, float64(pow))
			idx++
		}
	}
}

// Cross is a Termer for multilinear interaction fits: a constant term
// followed by every product of up to Order distinct inputs, in
// lexicographic order of the index sets. There are no powers of a
// single input, only cross terms. Orders above the input dimension add
// no terms and are capped.
type Cross struct {
	Order int
}

func (c Cross) maxOrder(dim int) int {
	if c.Order > dim {
		return dim
	}
	return c.Order
}

func (c Cross) NumTerms(dim int) int {
	var n int
	for i := 0; i <= c.maxOrder(dim); i++ {
		n += combin.Binomial(dim, i)
	}
	return n
}

func (c Cross) Terms(terms, x []float64) {
	dim := len(x)
	if len(terms) != c.NumTerms(dim) {
		panic("lsq: bad number of terms")
	}
	terms[0] = 1
	count := 1
	for order := 1; order <= c.maxOrder(dim); order++ {
		idx := make([]int, order)
		cg := combin.NewCombinationGenerator(dim, order)
		for cg.Next() {
			cg.Combination(idx)
			t := x[idx[0]]
			for i := 1; i < order; i++ {
				t *= x[idx[i]]
			}
			terms[count] = t
			count++
		}
	}
}

// Coeffs finds the optimal coefficients given the input data and the Termer.
// If weights is non-nil it holds one weight per row of xs and a weighted
// least-squares problem is solved instead.
func Coeffs(xs mat.Matrix, fs, weights []float64, inds []int, t Termer) (beta []float64, err error) {
	_, nDim := xs.Dims()

	nTerms := t.NumTerms(nDim)
	A := mat.NewDense(len(inds), nTerms, nil)
	terms := make([]float64, nTerms)
	row := make([]float64, nDim)
	for i, idx := range inds {
		mat.Row(row, idx, xs)
		t.Terms(terms, row)
		A.SetRow(i, terms)
	}

	b := mat.NewVecDense(len(inds), nil)
	for i, idx := range inds {
		b.SetVec(i, fs[idx])
	}

	if weights != nil {
		// Weighted least squares: multiply both sides by sqrt(weight).
		for i, idx := range inds {
			sw := math.Sqrt(weights[idx])
			row := A.RawRowView(i)
			for j := range row {
				row[j] *= sw
			}
			v := b.At(i, 0)
			b.SetVec(i, v*sw)
		}
	}

	beta = make([]float64, nTerms)
	betaVec := mat.NewVecDense(len(beta), beta)
	if err := betaVec.SolveVec(A, b); err != nil {
		return nil, fmt.Errorf("lsq: solving least-squares system: %w", err)
	}
	return beta, nil
}
