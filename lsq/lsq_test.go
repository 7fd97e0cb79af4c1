package lsq

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestPolyTerms(t *testing.T) {
	p := Poly{Order: 2}
	if got := p.NumTerms(3); got != 7 {
		t.Fatalf("NumTerms(3) = %d, want 7", got)
	}
	terms := make([]float64, p.NumTerms(2))
	p.Terms(terms, []float64{2, 3})
	want := []float64{1, 2, 3, 4, 9}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("terms[%d] = %v, want %v", i, terms[i], want[i])
		}
	}
}

func TestCrossTerms(t *testing.T) {
	c := Cross{Order: 2}
	if got := c.NumTerms(2); got != 4 {
		t.Fatalf("NumTerms(2) = %d, want 4", got)
	}
	if got := c.NumTerms(3); got != 7 {
		t.Fatalf("NumTerms(3) = %d, want 7", got)
	}
	// Orders past the dimension cannot form new index sets.
	if got := (Cross{Order: 5}).NumTerms(2); got != 4 {
		t.Fatalf("capped NumTerms(2) = %d, want 4", got)
	}
	terms := make([]float64, c.NumTerms(2))
	c.Terms(terms, []float64{2, 3})
	want := []float64{1, 2, 3, 6}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("terms[%d] = %v, want %v", i, terms[i], want[i])
		}
	}
}

func TestCoeffsRecoversInteraction(t *testing.T) {
	// f(x1,x2) = 3 + 2x1 - x2 + 5x1x2 sampled exactly on a grid.
	f := func(x1, x2 float64) float64 { return 3 + 2*x1 - x2 + 5*x1*x2 }
	var (
		rows []float64
		fs   []float64
	)
	for _, x1 := range []float64{-1, 0, 1, 2} {
		for _, x2 := range []float64{-1, 0, 1} {
			rows = append(rows, x1, x2)
			fs = append(fs, f(x1, x2))
		}
	}
	n := len(fs)
	xs := mat.NewDense(n, 2, rows)
	inds := make([]int, n)
	for i := range inds {
		inds[i] = i
	}
	beta, err := Coeffs(xs, fs, nil, inds, Cross{Order: 2})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{3, 2, -1, 5}
	for i := range want {
		if math.Abs(beta[i]-want[i]) > 1e-8 {
			t.Errorf("beta[%d] = %v, want %v", i, beta[i], want[i])
		}
	}
}

func TestCoeffsRecoversPolynomial(t *testing.T) {
	// f(x) = 2 + 3x - x² sampled exactly.
	f := func(x float64) float64 { return 2 + 3*x - x*x }
	xs := mat.NewDense(9, 1, nil)
	fs := make([]float64, 9)
	inds := make([]int, 9)
	for i := 0; i < 9; i++ {
		x := float64(i) - 4
		xs.Set(i, 0, x)
		fs[i] = f(x)
		inds[i] = i
	}
	beta, err := Coeffs(xs, fs, nil, inds, Poly{Order: 2})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{2, 3, -1}
	for i := range want {
		if math.Abs(beta[i]-want[i]) > 1e-8 {
			t.Errorf("beta[%d] = %v, want %v", i, beta[i], want[i])
		}
	}
}

func TestCoeffsWeighted(t *testing.T) {
	// Two inconsistent observations at x = 0 and one exact line
	// elsewhere. With a crushing weight on the first observation the fit
	// must pass through it.
	xs := mat.NewDense(4, 1, []float64{0, 0, 1, 2})
	fs := []float64{0, 10, 1, 2}
	weights := []float64{1e8, 1, 1, 1}
	inds := []int{0, 1, 2, 3}
	beta, err := Coeffs(xs, fs, weights, inds, Poly{Order: 1})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(beta[0]) > 1e-3 {
		t.Errorf("intercept = %v, want about 0", beta[0])
	}
}

func TestCoeffsSubsetIndices(t *testing.T) {
	// Only the even rows are consistent with f(x) = 5x; the odd rows are
	// garbage and must be ignored via inds.
	xs := mat.NewDense(6, 1, []float64{0, 100, 1, -100, 2, 50})
	fs := []float64{0, 1, 5, 2, 10, 3}
	inds := []int{0, 2, 4}
	beta, err := Coeffs(xs, fs, nil, inds, Poly{Order: 1})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(beta[0]) > 1e-10 || math.Abs(beta[1]-5) > 1e-10 {
		t.Errorf("beta = %v, want [0 5]", beta)
	}
}

func TestTermsPanicsOnBadLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched terms length")
		}
	}()
	Poly{Order: 1}.Terms(make([]float64, 5), []float64{1, 2})
}
