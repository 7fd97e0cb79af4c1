// package dataset implements the columnar event store the cross-validation
// machinery trains on. A Dataset declares variables (the features methods
// train on) and spectators (per-event fields such as an event identifier
// that are excluded from training but available to split expressions),
// then loads signal and background events from Frames. Prepare carves the
// events into a training pool and a held-back test pool and renormalizes
// the event weights; everything downstream operates on the training pool.
package dataset

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Frame is a set of named float64 columns of equal length, the exchange
// type between generators, files and Datasets.
type Frame struct {
	Names []string
	Cols  [][]float64
}

// NewFrame validates the column set and returns a Frame. Names must be
// unique and non-empty and all columns must have the same length.
func NewFrame(names []string, cols [][]float64) (*Frame, error) {
	if len(names) == 0 {
		return nil, errors.New("dataset: frame has no columns")
	}
	if len(names) != len(cols) {
		return nil, fmt.Errorf("dataset: frame has %d names but %d columns", len(names), len(cols))
	}
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		if n == "" {
			return nil, errors.New("dataset: frame column with empty name")
		}
		if seen[n] {
			return nil, fmt.Errorf("dataset: duplicate frame column %q", n)
		}
		seen[n] = true
		if len(cols[i]) != len(cols[0]) {
			return nil, fmt.Errorf("dataset: frame column %q has %d rows, want %d", n, len(cols[i]), len(cols[0]))
		}
	}
	return &Frame{Names: names, Cols: cols}, nil
}

// NumRows returns the number of events in the frame.
func (f *Frame) NumRows() int {
	if len(f.Cols) == 0 {
		return 0
	}
	return len(f.Cols[0])
}

// Col returns the named column.
func (f *Frame) Col(name string) ([]float64, bool) {
	for i, n := range f.Names {
		if n == name {
			return f.Cols[i], true
		}
	}
	return nil, false
}

// Dataset holds declared fields and loaded events.
type Dataset struct {
	name  string
	vars  []string
	spcts []string

	varRows  [][]float64
	spctRows [][]float64
	class    []bool
	weight   []float64

	// Set by Prepare. nil trainIdx means every event is in the
	// training pool.
	trainIdx []int
	testIdx  []int
}

// New returns an empty dataset.
func New(name string) *Dataset {
	if name == "" {
		name = "dataset"
	}
	return &Dataset{name: name}
}

// Name returns the dataset name.
func (ds *Dataset) Name() string { return ds.name }

// AddVariable declares a training variable. All declarations must happen
// before the first event is loaded.
func (ds *Dataset) AddVariable(name string) error {
	return ds.declare(name, &ds.vars)
}

// AddSpectator declares a spectator field.
func (ds *Dataset) AddSpectator(name string) error {
	return ds.declare(name, &ds.spcts)
}

func (ds *Dataset) declare(name string, into *[]string) error {
	if len(ds.class) > 0 {
		return errors.New("dataset: cannot declare fields after events were added")
	}
	if name == "" {
		return errors.New("dataset: empty field name")
	}
	for _, v := range ds.vars {
		if v == name {
			return fmt.Errorf("dataset: field %q already declared", name)
		}
	}
	for _, s := range ds.spcts {
		if s == name {
			return fmt.Errorf("dataset: field %q already declared", name)
		}
	}
	*into = append(*into, name)
	return nil
}

// AddSignal appends the frame's events as signal with the given per-tree
// weight multiplied into each event weight.
func (ds *Dataset) AddSignal(f *Frame, weight float64) error {
	return ds.add(f, weight, true)
}

// AddBackground appends the frame's events as background.
func (ds *Dataset) AddBackground(f *Frame, weight float64) error {
	return ds.add(f, weight, false)
}

func (ds *Dataset) add(f *Frame, weight float64, signal bool) error {
	if len(ds.vars) == 0 {
		return errors.New("dataset: no variables declared")
	}
	if weight <= 0 {
		return fmt.Errorf("dataset: non-positive tree weight %v", weight)
	}
	if ds.trainIdx != nil {
		return errors.New("dataset: cannot add events after Prepare")
	}
	n := f.NumRows()
	if n == 0 {
		return errors.New("dataset: frame has no events")
	}
	varCols := make([][]float64, len(ds.vars))
	for i, name := range ds.vars {
		col, ok := f.Col(name)
		if !ok {
			return fmt.Errorf("dataset: frame is missing column %q", name)
		}
		varCols[i] = col
	}
	spctCols := make([][]float64, len(ds.spcts))
	for i, name := range ds.spcts {
		col, ok := f.Col(name)
		if !ok {
			return fmt.Errorf("dataset: frame is missing column %q", name)
		}
		spctCols[i] = col
	}
	for r := 0; r < n; r++ {
		vrow := make([]float64, len(ds.vars))
		for i, col := range varCols {
			vrow[i] = col[r]
		}
		srow := make([]float64, len(ds.spcts))
		for i, col := range spctCols {
			srow[i] = col[r]
		}
		ds.varRows = append(ds.varRows, vrow)
		ds.spctRows = append(ds.spctRows, srow)
		ds.class = append(ds.class, signal)
		ds.weight = append(ds.weight, weight)
	}
	return nil
}

// Variables returns the declared training variables.
func (ds *Dataset) Variables() []string {
	out := make([]string, len(ds.vars))
	copy(out, ds.vars)
	return out
}

// Spectators returns the declared spectator fields.
func (ds *Dataset) Spectators() []string {
	out := make([]string, len(ds.spcts))
	copy(out, ds.spcts)
	return out
}

// Fields returns variables followed by spectators.
func (ds *Dataset) Fields() []string {
	return append(ds.Variables(), ds.Spectators()...)
}

// NEvents returns the total number of loaded events.
func (ds *Dataset) NEvents() int { return len(ds.class) }

// NSignal returns the number of loaded signal events.
func (ds *Dataset) NSignal() int {
	var n int
	for _, s := range ds.class {
		if s {
			n++
		}
	}
	return n
}

// NBackground returns the number of loaded background events.
func (ds *Dataset) NBackground() int { return ds.NEvents() - ds.NSignal() }

// NTrain returns the size of the training pool.
func (ds *Dataset) NTrain() int {
	if ds.trainIdx == nil {
		return ds.NEvents()
	}
	return len(ds.trainIdx)
}

// trainEvent maps a training-pool row to its event index.
func (ds *Dataset) trainEvent(i int) int {
	if ds.trainIdx == nil {
		return i
	}
	return ds.trainIdx[i]
}

// TrainIndices returns the event indices of the training pool.
func (ds *Dataset) TrainIndices() []int {
	out := make([]int, ds.NTrain())
	for i := range out {
		out[i] = ds.trainEvent(i)
	}
	return out
}

// TestIndices returns the event indices held back by Prepare.
func (ds *Dataset) TestIndices() []int {
	out := make([]int, len(ds.testIdx))
	copy(out, ds.testIdx)
	return out
}

// Features returns the training-pool variable matrix, one row per event.
func (ds *Dataset) Features() *mat.Dense {
	n := ds.NTrain()
	d := len(ds.vars)
	x := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		x.SetRow(i, ds.varRows[ds.trainEvent(i)])
	}
	return x
}

// Classes returns the training-pool class flags, true for signal.
func (ds *Dataset) Classes() []bool {
	out := make([]bool, ds.NTrain())
	for i := range out {
		out[i] = ds.class[ds.trainEvent(i)]
	}
	return out
}

// Weights returns the training-pool event weights.
func (ds *Dataset) Weights() []float64 {
	out := make([]float64, ds.NTrain())
	for i := range out {
		out[i] = ds.weight[ds.trainEvent(i)]
	}
	return out
}

// Row fills dst with the field values of training-pool row i, variables
// and spectators alike. It implements the row source the fold splitters
// consume.
func (ds *Dataset) Row(i int, dst map[string]float64) {
	ev := ds.trainEvent(i)
	for j, name := range ds.vars {
		dst[name] = ds.varRows[ev][j]
	}
	for j, name := range ds.spcts {
		dst[name] = ds.spctRows[ev][j]
	}
}

// NumRows returns the training-pool size. Together with Row it satisfies
// the fold splitter row source.
func (ds *Dataset) NumRows() int { return ds.NTrain() }

// FieldValues returns the training-pool values of one declared field.
func (ds *Dataset) FieldValues(name string) ([]float64, error) {
	for j, v := range ds.vars {
		if v == name {
			out := make([]float64, ds.NTrain())
			for i := range out {
				out[i] = ds.varRows[ds.trainEvent(i)][j]
			}
			return out, nil
		}
	}
	for j, s := range ds.spcts {
		if s == name {
			out := make([]float64, ds.NTrain())
			for i := range out {
				out[i] = ds.spctRows[ds.trainEvent(i)][j]
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("dataset: no field %q", name)
}

// Validate checks the preconditions cross-validation needs: at least one
// variable, at least two training events, both classes present.
func (ds *Dataset) Validate() error {
	if len(ds.vars) == 0 {
		return errors.New("dataset: no variables declared")
	}
	n := ds.NTrain()
	if n < 2 {
		return fmt.Errorf("dataset: training pool has %d events, want at least 2", n)
	}
	var sig, bkg bool
	for i := 0; i < n; i++ {
		if ds.class[ds.trainEvent(i)] {
			sig = true
		} else {
			bkg = true
		}
		if sig && bkg {
			return nil
		}
	}
	return errors.New("dataset: training pool holds a single class")
}
