// package method implements the two-class classifiers a cross-validation
// can book, and the registry they are created through. A Method trains on
// a subset of the feature rows and returns a Model whose Score grows with
// the likelihood of the signal hypothesis. External trainers plug in via
// Register; the shipped methods are Fisher, LD, KNN, Likelihood and
// Gauss.
package method

import (
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/y-v-p/root/optstr"
)

// Model is a trained classifier. Score must be callable concurrently and
// must not retain x. Models gob-encode for persistence.
type Model interface {
	Score(x []float64) float64
}

// Method builds models from training rows. Train receives the full
// feature matrix with aligned classes and weights and fits on the rows
// selected by inds; it must not mutate its inputs. A nil weights slice
// means unit weights.
type Method interface {
	Name() string
	Kind() string
	Train(x mat.Matrix, classes []bool, weights []float64, inds []int) (Model, error)
}

// Factory builds a method from its booking name and parsed options. The
// factory reads the options it understands; New rejects leftovers.
type Factory func(name string, opts *optstr.Set) (Method, error)

var (
	regMu     sync.RWMutex
	factories = make(map[string]Factory)
	kindNames []string
)

// Register makes a method kind available to New. Kind matching is
// case-insensitive. Registering the same kind twice panics.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	lk := strings.ToLower(kind)
	if _, dup := factories[lk]; dup {
		panic("method: Register called twice for " + kind)
	}
	factories[lk] = f
	kindNames = append(kindNames, kind)
	sort.Strings(kindNames)
}

// Kinds returns the registered method kinds.
func Kinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, len(kindNames))
	copy(out, kindNames)
	return out
}

// New builds a named method of the given kind from an option string.
// Options the method does not understand are an error.
func New(kind, name, options string) (Method, error) {
	regMu.RLock()
	f, ok := factories[strings.ToLower(kind)]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("method: unknown kind %q, have %s", kind, strings.Join(Kinds(), ", "))
	}
	if name == "" {
		name = kind
	}
	s, err := optstr.Parse(options)
	if err != nil {
		return nil, err
	}
	m, err := f(name, s)
	if err != nil {
		return nil, err
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("method: %s: %w", name, err)
	}
	return m, nil
}

func init() {
	// Concrete model types cross gob boundaries inside interface values.
	gob.Register(&FisherModel{})
	gob.Register(&LDModel{})
	gob.Register(&KNNModel{})
	gob.Register(&LikelihoodModel{})
	gob.Register(&GaussModel{})
}

// commonOptions consumes the flags every booking string may carry.
func commonOptions(s *optstr.Set) error {
	s.Bool("H", false)
	s.Bool("V", false)
	if vt := s.String("VarTransform", "None"); !strings.EqualFold(vt, "None") {
		return fmt.Errorf("method: unsupported VarTransform %q", vt)
	}
	return nil
}

// classSplit splits the selected rows by class.
func classSplit(classes []bool, inds []int) (sig, bkg []int) {
	for _, idx := range inds {
		if classes[idx] {
			sig = append(sig, idx)
		} else {
			bkg = append(bkg, idx)
		}
	}
	return sig, bkg
}

// weightedMean returns the weighted per-column mean of the selected rows.
func weightedMean(x mat.Matrix, weights []float64, inds []int) []float64 {
	_, dim := x.Dims()
	mu := make([]float64, dim)
	row := make([]float64, dim)
	var wsum float64
	for _, idx := range inds {
		mat.Row(row, idx, x)
		w := 1.0
		if weights != nil {
			w = weights[idx]
		}
		wsum += w
		for j, v := range row {
			mu[j] += w * v
		}
	}
	for j := range mu {
		mu[j] /= wsum
	}
	return mu
}

// solveSym solves a·x = b for symmetric positive definite a, retrying
// once with a small diagonal ridge when the factorization fails.
func solveSym(a *mat.SymDense, b *mat.VecDense) ([]float64, error) {
	var chol mat.Cholesky
	if !chol.Factorize(a) {
		addRidge(a)
		if !chol.Factorize(a) {
			return nil, errors.New("method: singular matrix")
		}
	}
	x := mat.NewVecDense(b.Len(), nil)
	if err := chol.SolveVecTo(x, b); err != nil {
		return nil, err
	}
	return x.RawVector().Data, nil
}

func addRidge(a *mat.SymDense) {
	n := a.SymmetricDim()
	var tr float64
	for i := 0; i < n; i++ {
		tr += a.At(i, i)
	}
	eps := 1e-9 * (tr/float64(n) + 1)
	for i := 0; i < n; i++ {
		a.SetSym(i, i, a.At(i, i)+eps)
	}
}
