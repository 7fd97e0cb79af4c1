package hist

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// H1D is a one-dimensional weighted histogram.
type H1D struct {
	ax      Axis
	sumw    []float64
	sumw2   []float64
	entries int64
	under   float64
	over    float64
}

// NewH1D returns an empty histogram over ax.
func NewH1D(ax Axis) *H1D {
	return &H1D{
		ax:    ax,
		sumw:  make([]float64, ax.Bins()),
		sumw2: make([]float64, ax.Bins()),
	}
}

// Axis returns the histogram axis.
func (h *H1D) Axis() Axis { return h.ax }

// Fill adds an entry at x with the given weight (default 1). Values
// outside the axis accumulate in the under/overflow sums.
func (h *H1D) Fill(x float64, weight ...float64) {
	w := 1.0
	switch len(weight) {
	case 0:
	case 1:
		w = weight[0]
	default:
		panic("hist: Fill takes at most one weight")
	}
	h.entries++
	switch i := h.ax.FindBin(x); {
	case i < 0:
		h.under += w
	case i >= h.ax.Bins():
		h.over += w
	default:
		h.sumw[i] += w
		h.sumw2[i] += w * w
	}
}

// Entries reports the number of Fill calls, including out-of-range ones.
func (h *H1D) Entries() int64 { return h.entries }

// BinContent returns the weight sum of bin i.
func (h *H1D) BinContent(i int) float64 { h.ax.checkBin(i); return h.sumw[i] }

// BinError returns the Poisson-style error of bin i, sqrt of the sum
// of squared weights.
func (h *H1D) BinError(i int) float64 { h.ax.checkBin(i); return math.Sqrt(h.sumw2[i]) }

// Integral returns the in-range weight sum.
func (h *H1D) Integral() float64 {
	var s float64
	for _, w := range h.sumw {
		s += w
	}
	return s
}

// Underflow returns the weight sum below the axis.
func (h *H1D) Underflow() float64 { return h.under }

// Overflow returns the weight sum at or above the upper bound.
func (h *H1D) Overflow() float64 { return h.over }

// Mean returns the weight-averaged bin center of the in-range entries.
func (h *H1D) Mean() float64 {
	return stat.Mean(h.ax.Centers(), h.sumw)
}

// StdDev returns the weighted population standard deviation of the
// in-range bin centers.
func (h *H1D) StdDev() float64 {
	return stat.PopStdDev(h.ax.Centers(), h.sumw)
}

// Scale multiplies every bin content by f. Errors scale linearly with f.
func (h *H1D) Scale(f float64) {
	for i := range h.sumw {
		h.sumw[i] *= f
		h.sumw2[i] *= f * f
	}
	h.under *= f
	h.over *= f
}

// H2D is a two-dimensional weighted histogram.
type H2D struct {
	ax, ay  Axis
	sumw    []float64
	sumw2   []float64
	entries int64
	out     float64
}

// NewH2D returns an empty histogram over the two axes.
func NewH2D(ax, ay Axis) *H2D {
	n := ax.Bins() * ay.Bins()
	return &H2D{
		ax:    ax,
		ay:    ay,
		sumw:  make([]float64, n),
		sumw2: make([]float64, n),
	}
}

// XAxis returns the first axis.
func (h *H2D) XAxis() Axis { return h.ax }

// YAxis returns the second axis.
func (h *H2D) YAxis() Axis { return h.ay }

func (h *H2D) idx(ix, iy int) int {
	h.ax.checkBin(ix)
	h.ay.checkBin(iy)
	return ix*h.ay.Bins() + iy
}

// Fill adds an entry at (x, y) with the given weight (default 1).
// Entries outside the grid on either axis accumulate in a single
// outflow sum.
func (h *H2D) Fill(x, y float64, weight ...float64) {
	w := 1.0
	switch len(weight) {
	case 0:
	case 1:
		w = weight[0]
	default:
		panic("hist: Fill takes at most one weight")
	}
	h.entries++
	ix := h.ax.FindBin(x)
	iy := h.ay.FindBin(y)
	if ix < 0 || ix >= h.ax.Bins() || iy < 0 || iy >= h.ay.Bins() {
		h.out += w
		return
	}
	i := ix*h.ay.Bins() + iy
	h.sumw[i] += w
	h.sumw2[i] += w * w
}

// Entries reports the number of Fill calls, including out-of-range ones.
func (h *H2D) Entries() int64 { return h.entries }

// BinContent returns the weight sum of bin (ix, iy).
func (h *H2D) BinContent(ix, iy int) float64 { return h.sumw[h.idx(ix, iy)] }

// BinError returns the error of bin (ix, iy), sqrt of the sum of
// squared weights.
func (h *H2D) BinError(ix, iy int) float64 { return math.Sqrt(h.sumw2[h.idx(ix, iy)]) }

// Integral returns the in-range weight sum.
func (h *H2D) Integral() float64 {
	var s float64
	for _, w := range h.sumw {
		s += w
	}
	return s
}

// Outflow returns the weight sum of entries outside the grid.
func (h *H2D) Outflow() float64 { return h.out }

// projX sums the grid over y for every x bin.
func (h *H2D) projX() []float64 {
	p := make([]float64, h.ax.Bins())
	ny := h.ay.Bins()
	for ix := range p {
		for iy := 0; iy < ny; iy++ {
			p[ix] += h.sumw[ix*ny+iy]
		}
	}
	return p
}

func (h *H2D) projY() []float64 {
	p := make([]float64, h.ay.Bins())
	ny := h.ay.Bins()
	for ix := 0; ix < h.ax.Bins(); ix++ {
		for iy := 0; iy < ny; iy++ {
			p[iy] += h.sumw[ix*ny+iy]
		}
	}
	return p
}

// MeanX returns the weight-averaged x bin center.
func (h *H2D) MeanX() float64 { return stat.Mean(h.ax.Centers(), h.projX()) }

// MeanY returns the weight-averaged y bin center.
func (h *H2D) MeanY() float64 { return stat.Mean(h.ay.Centers(), h.projY()) }

// StdDevX returns the weighted population standard deviation along x.
func (h *H2D) StdDevX() float64 { return stat.PopStdDev(h.ax.Centers(), h.projX()) }

// StdDevY returns the weighted population standard deviation along y.
func (h *H2D) StdDevY() float64 { return stat.PopStdDev(h.ay.Centers(), h.projY()) }
