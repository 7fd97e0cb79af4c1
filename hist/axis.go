// package hist provides binned one- and two-dimensional histograms
// with weighted fills, chi-square fitting of parametric models, and
// persistence of the bin tables through the ntuple package.
package hist

import (
	"fmt"
	"math"
	"sort"
)

// Axis is a binned coordinate axis. The zero value is not usable;
// construct with Regular or Irregular.
type Axis struct {
	edges   []float64
	regular bool
	width   float64
}

// Regular returns an axis with n equal-width bins on [lo, hi). It
// panics if n < 1, if the bounds are not increasing, or if any bound
// is not finite.
func Regular(n int, lo, hi float64) Axis {
	if n < 1 {
		panic("hist: regular axis needs at least one bin")
	}
	if math.IsNaN(lo) || math.IsInf(lo, 0) || math.IsNaN(hi) || math.IsInf(hi, 0) {
		panic("hist: regular axis bounds must be finite")
	}
	if hi <= lo {
		panic("hist: regular axis bounds not increasing")
	}
	width := (hi - lo) / float64(n)
	edges := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		edges[i] = lo + float64(i)*width
	}
	edges[n] = hi
	return Axis{edges: edges, regular: true, width: width}
}

// Irregular returns an axis with the given bin edges. It panics if
// fewer than two edges are given or if the edges are not strictly
// increasing and finite.
func Irregular(edges ...float64) Axis {
	if len(edges) < 2 {
		panic("hist: irregular axis needs at least two edges")
	}
	for i, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			panic("hist: irregular axis edges must be finite")
		}
		if i > 0 && e <= edges[i-1] {
			panic("hist: irregular axis edges not strictly increasing")
		}
	}
	return Axis{edges: append([]float64(nil), edges...)}
}

// Bins reports the number of bins.
func (a Axis) Bins() int { return len(a.edges) - 1 }

// Low returns the lower bound of the axis.
func (a Axis) Low() float64 { return a.edges[0] }

// High returns the upper bound of the axis.
func (a Axis) High() float64 { return a.edges[len(a.edges)-1] }

// FindBin locates x. It returns -1 below the axis and Bins() at or
// above the upper bound; NaN counts as overflow.
func (a Axis) FindBin(x float64) int {
	if math.IsNaN(x) {
		return a.Bins()
	}
	if x < a.edges[0] {
		return -1
	}
	if x >= a.High() {
		return a.Bins()
	}
	if a.regular {
		i := int((x - a.edges[0]) / a.width)
		// rounding can push x just under the top edge into bin n
		if i >= a.Bins() {
			i = a.Bins() - 1
		}
		return i
	}
	i := sort.SearchFloat64s(a.edges, x)
	if i < len(a.edges) && a.edges[i] == x {
		return i
	}
	return i - 1
}

func (a Axis) checkBin(i int) {
	if i < 0 || i >= a.Bins() {
		panic(fmt.Sprintf("hist: bin %d out of range [0, %d)", i, a.Bins()))
	}
}

// BinLow returns the lower edge of bin i.
func (a Axis) BinLow(i int) float64 { a.checkBin(i); return a.edges[i] }

// BinHigh returns the upper edge of bin i.
func (a Axis) BinHigh(i int) float64 { a.checkBin(i); return a.edges[i+1] }

// BinCenter returns the midpoint of bin i.
func (a Axis) BinCenter(i int) float64 {
	a.checkBin(i)
	return 0.5 * (a.edges[i] + a.edges[i+1])
}

// BinWidth returns the width of bin i.
func (a Axis) BinWidth(i int) float64 { a.checkBin(i); return a.edges[i+1] - a.edges[i] }

// Edges returns a copy of the bin edges.
func (a Axis) Edges() []float64 { return append([]float64(nil), a.edges...) }

// Centers returns the midpoints of all bins.
func (a Axis) Centers() []float64 {
	c := make([]float64, a.Bins())
	for i := range c {
		c[i] = 0.5 * (a.edges[i] + a.edges[i+1])
	}
	return c
}

// Widths returns the widths of all bins.
func (a Axis) Widths() []float64 {
	w := make([]float64, a.Bins())
	for i := range w {
		w[i] = a.edges[i+1] - a.edges[i]
	}
	return w
}
