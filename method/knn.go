package method

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/y-v-p/root/optstr"
)

func init() {
	Register("KNN", func(name string, opts *optstr.Set) (Method, error) {
		if err := commonOptions(opts); err != nil {
			return nil, err
		}
		k := opts.Int("K", 20)
		if k < 1 {
			return nil, fmt.Errorf("method: knn: K must be at least 1, got %d", k)
		}
		return &KNN{name: name, k: k, useWeight: opts.Bool("UseWeight", true)}, nil
	})
}

// KNN scores an event as the weighted signal fraction among its K
// nearest training events in Euclidean distance. Training is a copy of
// the training rows; the work happens at scoring time.
type KNN struct {
	name      string
	k         int
	useWeight bool
}

func (k *KNN) Name() string { return k.name }

func (k *KNN) Kind() string { return "KNN" }

func (k *KNN) Train(x mat.Matrix, classes []bool, weights []float64, inds []int) (Model, error) {
	sig, bkg := classSplit(classes, inds)
	if len(sig) == 0 || len(bkg) == 0 {
		return nil, fmt.Errorf("method: knn: single-class training set")
	}
	_, dim := x.Dims()
	m := &KNNModel{
		K:         k.k,
		UseWeight: k.useWeight,
		X:         make([][]float64, len(inds)),
		Sig:       make([]bool, len(inds)),
		W:         make([]float64, len(inds)),
	}
	if m.K > len(inds) {
		m.K = len(inds)
	}
	for i, idx := range inds {
		row := make([]float64, dim)
		mat.Row(row, idx, x)
		m.X[i] = row
		m.Sig[i] = classes[idx]
		if weights != nil {
			m.W[i] = weights[idx]
		} else {
			m.W[i] = 1
		}
	}
	return m, nil
}

// KNNModel holds the training events the neighbor search runs over.
type KNNModel struct {
	K         int
	UseWeight bool
	X         [][]float64
	Sig       []bool
	W         []float64
}

func (m *KNNModel) Score(x []float64) float64 {
	type neighbor struct {
		d float64
		i int
	}
	ns := make([]neighbor, len(m.X))
	for i, xi := range m.X {
		ns[i] = neighbor{d: floats.Distance(x, xi, 2), i: i}
	}
	sort.Slice(ns, func(a, b int) bool { return ns[a].d < ns[b].d })
	k := m.K
	if k > len(ns) {
		k = len(ns)
	}
	var sigW, totW float64
	for _, n := range ns[:k] {
		w := 1.0
		if m.UseWeight {
			w = m.W[n.i]
		}
		totW += w
		if m.Sig[n.i] {
			sigW += w
		}
	}
	if totW == 0 {
		return 0.5
	}
	return sigW / totW
}
