package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// GenGauss builds a toy frame of n events. Every variable column is an
// independent draw from N(offset, scale²) and idName is an integral
// identifier column counting from 1, usable as the spectator of a
// deterministic split expression. The draw is seeded and row-ordered, so
// a given seed always produces the same frame.
func GenGauss(vars []string, idName string, n int, offset, scale float64, seed uint64) (*Frame, error) {
	if len(vars) == 0 {
		return nil, errors.New("dataset: GenGauss needs at least one variable")
	}
	if idName == "" {
		return nil, errors.New("dataset: GenGauss needs an identifier column name")
	}
	if n <= 0 {
		return nil, fmt.Errorf("dataset: GenGauss with %d events", n)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("dataset: GenGauss with non-positive scale %v", scale)
	}
	norm := distuv.Normal{
		Mu:    offset,
		Sigma: scale,
		Src:   rand.NewPCG(seed, seed),
	}
	cols := make([][]float64, len(vars)+1)
	for i := range cols {
		cols[i] = make([]float64, n)
	}
	for r := 0; r < n; r++ {
		for c := range vars {
			cols[c][r] = norm.Rand()
		}
		cols[len(vars)][r] = float64(r + 1)
	}
	names := make([]string, 0, len(vars)+1)
	names = append(names, vars...)
	names = append(names, idName)
	return NewFrame(names, cols)
}
