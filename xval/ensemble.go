package xval

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/y-v-p/root/formula"
	"github.com/y-v-p/root/method"
)

// Ensemble is the persisted outcome of a cross-validated method: one
// model per fold plus the split expression that routed events. Scoring
// an event re-evaluates the expression, so the event is handled by the
// model whose training never saw it.
type Ensemble struct {
	Name       string
	MethodName string
	Kind       string
	NumFolds   int
	SplitExpr  string
	Variables  []string
	Spectators []string
	Models     []method.Model

	once    sync.Once
	f       *formula.Formula
	initErr error
}

func (e *Ensemble) init() error {
	e.once.Do(func() {
		if e.SplitExpr == "" {
			e.initErr = errors.New("xval: ensemble built from random folds cannot route events; use ScoreFold")
			return
		}
		fields := append(append([]string(nil), e.Variables...), e.Spectators...)
		e.f, e.initErr = formula.Compile(e.SplitExpr, fields)
	})
	return e.initErr
}

// Fold returns the fold the split expression assigns to the event.
func (e *Ensemble) Fold(fields map[string]float64) (int, error) {
	if err := e.init(); err != nil {
		return 0, err
	}
	return e.f.EvalFold(fields, e.NumFolds)
}

// Score routes the event to the model of its fold and scores it.
// fields must hold every variable and every field the split expression
// references.
func (e *Ensemble) Score(fields map[string]float64) (float64, error) {
	idx, err := e.Fold(fields)
	if err != nil {
		return 0, err
	}
	x := make([]float64, len(e.Variables))
	for i, name := range e.Variables {
		v, ok := fields[name]
		if !ok {
			return 0, fmt.Errorf("xval: ensemble input is missing variable %q", name)
		}
		x[i] = v
	}
	return e.Models[idx].Score(x), nil
}

// ScoreFold scores the feature vector with the model of one fold,
// bypassing the split expression.
func (e *Ensemble) ScoreFold(fold int, x []float64) (float64, error) {
	if fold < 0 || fold >= len(e.Models) {
		return 0, fmt.Errorf("xval: fold %d out of range [0, %d)", fold, len(e.Models))
	}
	if len(x) != len(e.Variables) {
		return 0, fmt.Errorf("xval: feature vector has %d values, want %d", len(x), len(e.Variables))
	}
	return e.Models[fold].Score(x), nil
}

func (e *Ensemble) validate() error {
	if len(e.Models) == 0 {
		return errors.New("xval: ensemble holds no models")
	}
	if e.NumFolds != len(e.Models) {
		return fmt.Errorf("xval: ensemble has %d models for %d folds", len(e.Models), e.NumFolds)
	}
	if len(e.Variables) == 0 {
		return errors.New("xval: ensemble declares no variables")
	}
	return nil
}

// Save writes the ensemble to path with gob.
func (e *Ensemble) Save(path string) error {
	if err := e.validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("xval: saving ensemble: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(e); err != nil {
		f.Close()
		return fmt.Errorf("xval: encoding ensemble: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("xval: saving ensemble: %w", err)
	}
	return nil
}

// LoadEnsemble reads an ensemble written by Save.
func LoadEnsemble(path string) (*Ensemble, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xval: loading ensemble: %w", err)
	}
	defer f.Close()
	var e Ensemble
	if err := gob.NewDecoder(f).Decode(&e); err != nil {
		return nil, fmt.Errorf("xval: decoding ensemble: %w", err)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
