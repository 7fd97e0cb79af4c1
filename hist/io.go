package hist

import (
	"errors"
	"fmt"
	"math"

	"github.com/y-v-p/root/dataset"
	"github.com/y-v-p/root/ntuple"
)

// Histogram files are flat bin tables: one row per bin with its edges,
// content and error, plus outflow rows at bin indexes -1 and n. The
// fill count rides along as a constant column.

func h1Columns() []ntuple.Column {
	return []ntuple.Column{
		{Name: "bin", Kind: ntuple.Int64},
		{Name: "xlow", Kind: ntuple.Float64},
		{Name: "xhigh", Kind: ntuple.Float64},
		{Name: "content", Kind: ntuple.Float64},
		{Name: "error", Kind: ntuple.Float64},
		{Name: "entries", Kind: ntuple.Int64},
	}
}

func h2Columns() []ntuple.Column {
	return []ntuple.Column{
		{Name: "ix", Kind: ntuple.Int64},
		{Name: "iy", Kind: ntuple.Int64},
		{Name: "xlow", Kind: ntuple.Float64},
		{Name: "xhigh", Kind: ntuple.Float64},
		{Name: "ylow", Kind: ntuple.Float64},
		{Name: "yhigh", Kind: ntuple.Float64},
		{Name: "content", Kind: ntuple.Float64},
		{Name: "error", Kind: ntuple.Float64},
		{Name: "entries", Kind: ntuple.Int64},
	}
}

// WriteH1 persists the bin table of h to a parquet file at path.
func WriteH1(path string, h *H1D) error {
	w, err := ntuple.Create(path, h1Columns())
	if err != nil {
		return err
	}
	ent := float64(h.entries)
	n := h.ax.Bins()
	rows := make([][]float64, 0, n+2)
	rows = append(rows, []float64{-1, math.Inf(-1), h.ax.Low(), h.under, 0, ent})
	for i := 0; i < n; i++ {
		rows = append(rows, []float64{
			float64(i), h.ax.BinLow(i), h.ax.BinHigh(i),
			h.sumw[i], math.Sqrt(h.sumw2[i]), ent,
		})
	}
	rows = append(rows, []float64{float64(n), h.ax.High(), math.Inf(1), h.over, 0, ent})
	for _, r := range rows {
		if err := w.WriteRow(r...); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// ReadH1 restores a histogram written by WriteH1. The restored axis is
// irregular regardless of how the original was constructed.
func ReadH1(path string) (*H1D, error) {
	f, err := ntuple.ReadFrameFile(path, h1Columns())
	if err != nil {
		return nil, err
	}
	return h1FromFrame(f)
}

func h1FromFrame(f *dataset.Frame) (*H1D, error) {
	n := f.NumRows() - 2
	if n < 1 {
		return nil, errors.New("hist: bin table too short")
	}
	bin, _ := f.Col("bin")
	xlow, _ := f.Col("xlow")
	xhigh, _ := f.Col("xhigh")
	content, _ := f.Col("content")
	binErr, _ := f.Col("error")
	entries, _ := f.Col("entries")

	edges := make([]float64, n+1)
	sumw := make([]float64, n)
	sumw2 := make([]float64, n)
	seen := make([]bool, n)
	var under, over float64
	for r := 0; r < f.NumRows(); r++ {
		i := int(bin[r])
		switch {
		case i == -1:
			under = content[r]
		case i == n:
			over = content[r]
		case i >= 0 && i < n:
			if seen[i] {
				return nil, fmt.Errorf("hist: duplicate bin %d in table", i)
			}
			seen[i] = true
			edges[i] = xlow[r]
			edges[i+1] = xhigh[r]
			sumw[i] = content[r]
			sumw2[i] = binErr[r] * binErr[r]
		default:
			return nil, fmt.Errorf("hist: bin index %d outside table of %d bins", i, n)
		}
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("hist: bin %d missing from table", i)
		}
	}
	if err := checkEdges(edges); err != nil {
		return nil, err
	}
	return &H1D{
		ax:      Irregular(edges...),
		sumw:    sumw,
		sumw2:   sumw2,
		entries: int64(entries[0]),
		under:   under,
		over:    over,
	}, nil
}

// WriteH2 persists the bin table of h to a parquet file at path. The
// outflow sum is stored in a single row at index (-1, -1).
func WriteH2(path string, h *H2D) error {
	w, err := ntuple.Create(path, h2Columns())
	if err != nil {
		return err
	}
	ent := float64(h.entries)
	nx, ny := h.ax.Bins(), h.ay.Bins()
	inf := math.Inf(1)
	if err := w.WriteRow(-1, -1, -inf, inf, -inf, inf, h.out, 0, ent); err != nil {
		w.Close()
		return err
	}
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			i := ix*ny + iy
			err := w.WriteRow(
				float64(ix), float64(iy),
				h.ax.BinLow(ix), h.ax.BinHigh(ix),
				h.ay.BinLow(iy), h.ay.BinHigh(iy),
				h.sumw[i], math.Sqrt(h.sumw2[i]), ent,
			)
			if err != nil {
				w.Close()
				return err
			}
		}
	}
	return w.Close()
}

// ReadH2 restores a histogram written by WriteH2.
func ReadH2(path string) (*H2D, error) {
	f, err := ntuple.ReadFrameFile(path, h2Columns())
	if err != nil {
		return nil, err
	}
	return h2FromFrame(f)
}

func h2FromFrame(f *dataset.Frame) (*H2D, error) {
	ixCol, _ := f.Col("ix")
	iyCol, _ := f.Col("iy")
	xlow, _ := f.Col("xlow")
	xhigh, _ := f.Col("xhigh")
	ylow, _ := f.Col("ylow")
	yhigh, _ := f.Col("yhigh")
	content, _ := f.Col("content")
	binErr, _ := f.Col("error")
	entries, _ := f.Col("entries")

	nx, ny := 0, 0
	for r := 0; r < f.NumRows(); r++ {
		if i := int(ixCol[r]); i+1 > nx {
			nx = i + 1
		}
		if i := int(iyCol[r]); i+1 > ny {
			ny = i + 1
		}
	}
	if nx < 1 || ny < 1 {
		return nil, errors.New("hist: bin table too short")
	}
	if f.NumRows() != nx*ny+1 {
		return nil, fmt.Errorf("hist: bin table has %d rows, want %d", f.NumRows(), nx*ny+1)
	}

	xedges := make([]float64, nx+1)
	yedges := make([]float64, ny+1)
	sumw := make([]float64, nx*ny)
	sumw2 := make([]float64, nx*ny)
	seen := make([]bool, nx*ny)
	var out float64
	for r := 0; r < f.NumRows(); r++ {
		ix, iy := int(ixCol[r]), int(iyCol[r])
		if ix == -1 && iy == -1 {
			out = content[r]
			continue
		}
		if ix < 0 || ix >= nx || iy < 0 || iy >= ny {
			return nil, fmt.Errorf("hist: bin index (%d, %d) outside table", ix, iy)
		}
		i := ix*ny + iy
		if seen[i] {
			return nil, fmt.Errorf("hist: duplicate bin (%d, %d) in table", ix, iy)
		}
		seen[i] = true
		xedges[ix] = xlow[r]
		xedges[ix+1] = xhigh[r]
		yedges[iy] = ylow[r]
		yedges[iy+1] = yhigh[r]
		sumw[i] = content[r]
		sumw2[i] = binErr[r] * binErr[r]
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("hist: bin (%d, %d) missing from table", i/ny, i%ny)
		}
	}
	if err := checkEdges(xedges); err != nil {
		return nil, err
	}
	if err := checkEdges(yedges); err != nil {
		return nil, err
	}
	return &H2D{
		ax:      Irregular(xedges...),
		ay:      Irregular(yedges...),
		sumw:    sumw,
		sumw2:   sumw2,
		entries: int64(entries[0]),
		out:     out,
	}, nil
}

func checkEdges(edges []float64) error {
	for i, e := range edges {
		if math.IsInf(e, 0) {
			return errors.New("hist: bin table edges must be finite")
		}
		if i > 0 && !(e > edges[i-1]) {
			return errors.New("hist: bin table edges not increasing")
		}
	}
	return nil
}
