// package fold implements fold construction for k-fold cross-validation.
// A Fold pairs the indices a method trains on with the held-out indices
// it is evaluated on. Folds are built either from a seeded random
// partition or deterministically, by evaluating a split expression over
// each event's own fields so that the assignment never depends on the
// rest of the sample.
package fold

import (
	"fmt"
	"math/rand/v2"

	"github.com/y-v-p/root/formula"
)

// Fold is one train/test split. Train and Test index into the same row
// set and are disjoint.
type Fold struct {
	Train []int
	Test  []int
}

// RowSource is the event view splitters consume. Row fills dst with the
// field values of row i.
type RowSource interface {
	NumRows() int
	Row(i int, dst map[string]float64)
}

// Splitter builds k folds over a row source.
type Splitter interface {
	Split(rows RowSource, k int) ([]Fold, error)
}

// Partition splits nData indices into nFolds train/test pairs using a
// seeded random permutation. Every index lands in exactly one testing
// set and fold sizes differ by at most one. If nFolds exceeds nData it
// is reduced to nData.
func Partition(nData, nFolds int, seed uint64) (training, testing [][]int) {
	if nFolds < 0 {
		panic("fold: negative number of folds")
	}
	if nData < 0 {
		panic("fold: negative amount of data")
	}
	if nFolds > nData {
		nFolds = nData
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(nData)

	training = make([][]int, nFolds)
	testing = make([][]int, nFolds)

	nSampPerFold := nData / nFolds
	remainder := nData % nFolds

	idx := 0
	for i := 0; i < nFolds; i++ {
		nTestElems := nSampPerFold
		if i < remainder {
			nTestElems++
		}
		testing[i] = make([]int, nTestElems)
		copy(testing[i], perm[idx:idx+nTestElems])

		training[i] = make([]int, nData-nTestElems)
		copy(training[i], perm[:idx])
		copy(training[i][idx:], perm[idx+nTestElems:])

		idx += nTestElems
	}
	if idx != nData {
		panic("fold: bad logic")
	}
	return training, testing
}

// Random builds folds from a seeded random partition of the rows.
type Random struct {
	Seed uint64
}

func (r Random) Split(rows RowSource, k int) ([]Fold, error) {
	n := rows.NumRows()
	if k < 2 {
		return nil, fmt.Errorf("fold: need at least 2 folds, got %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("fold: %d folds over %d rows", k, n)
	}
	training, testing := Partition(n, k, r.Seed)
	folds := make([]Fold, len(training))
	for i := range folds {
		folds[i].Train = training[i]
		folds[i].Test = testing[i]
	}
	return folds, nil
}

// Deterministic builds folds by evaluating a compiled split expression
// on every row. The test set of fold i is exactly the rows whose
// expression value is i; each row trains every other fold.
type Deterministic struct {
	F *formula.Formula
}

func (d Deterministic) Split(rows RowSource, k int) ([]Fold, error) {
	if d.F == nil {
		return nil, fmt.Errorf("fold: deterministic splitter without a formula")
	}
	if k < 2 {
		return nil, fmt.Errorf("fold: need at least 2 folds, got %d", k)
	}
	n := rows.NumRows()
	assign := make([]int, n)
	vals := make(map[string]float64)
	for i := 0; i < n; i++ {
		rows.Row(i, vals)
		idx, err := d.F.EvalFold(vals, k)
		if err != nil {
			return nil, fmt.Errorf("fold: row %d: %w", i, err)
		}
		assign[i] = idx
	}
	return FromAssignments(assign, k)
}

// FromAssignments builds k folds from per-row fold indices. Every fold
// must receive at least one test row.
func FromAssignments(assign []int, k int) ([]Fold, error) {
	if k < 1 {
		return nil, fmt.Errorf("fold: need at least 1 fold, got %d", k)
	}
	folds := make([]Fold, k)
	for i, a := range assign {
		if a < 0 || a >= k {
			return nil, fmt.Errorf("fold: row %d assigned to fold %d, want [0, %d)", i, a, k)
		}
		folds[a].Test = append(folds[a].Test, i)
	}
	for fi := range folds {
		if len(folds[fi].Test) == 0 {
			return nil, fmt.Errorf("fold: fold %d has no test rows", fi)
		}
		folds[fi].Train = make([]int, 0, len(assign)-len(folds[fi].Test))
		for i, a := range assign {
			if a != fi {
				folds[fi].Train = append(folds[fi].Train, i)
			}
		}
	}
	return folds, nil
}

// Check verifies the k-fold property over n rows: every row appears in
// exactly one test set and in all the other folds' training sets.
func Check(folds []Fold, n int) error {
	testCount := make([]int, n)
	trainCount := make([]int, n)
	for fi, f := range folds {
		for _, i := range f.Test {
			if i < 0 || i >= n {
				return fmt.Errorf("fold: fold %d tests out-of-range row %d", fi, i)
			}
			testCount[i]++
		}
		for _, i := range f.Train {
			if i < 0 || i >= n {
				return fmt.Errorf("fold: fold %d trains out-of-range row %d", fi, i)
			}
			trainCount[i]++
		}
	}
	for i := 0; i < n; i++ {
		if testCount[i] != 1 {
			return fmt.Errorf("fold: row %d in %d test sets, want 1", i, testCount[i])
		}
		if trainCount[i] != len(folds)-1 {
			return fmt.Errorf("fold: row %d in %d training sets, want %d", i, trainCount[i], len(folds)-1)
		}
	}
	return nil
}
