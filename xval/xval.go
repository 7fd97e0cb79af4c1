// package xval implements k-fold cross-validation of two-class
// classifiers. A CrossValidation owns a prepared dataset and a set of
// booked methods; Evaluate carves the training pool into folds, trains
// every method on the k−1 in-folds and scores the held-out fold, and
// reports per-fold and averaged ROC metrics. With a split expression
// the fold of an event is a pure function of the event itself, so a
// persisted Ensemble can route unseen events to the one model that
// never trained on them.
package xval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/y-v-p/root/dataset"
	"github.com/y-v-p/root/fold"
	"github.com/y-v-p/root/formula"
	"github.com/y-v-p/root/logger"
	"github.com/y-v-p/root/method"
)

// CrossValidation drives one cross-validated evaluation.
type CrossValidation struct {
	name   string
	ds     *dataset.Dataset
	opts   Options
	log    logger.Logger
	outDir string

	methods   []method.Method
	results   []Result
	ensembles map[string]*Ensemble
	folds     []fold.Fold
	done      bool
}

// New builds a named cross-validation over a prepared dataset from an
// option string, see [Options].
func New(name string, ds *dataset.Dataset, options string) (*CrossValidation, error) {
	if ds == nil {
		return nil, errors.New("xval: nil dataset")
	}
	opts, err := parseOptions(options)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "crossval"
	}
	lg, err := logger.New(opts.logLevel())
	if err != nil {
		return nil, err
	}
	return &CrossValidation{name: name, ds: ds, opts: opts, log: lg}, nil
}

// Name returns the run name.
func (cv *CrossValidation) Name() string { return cv.name }

// Options returns the parsed run options.
func (cv *CrossValidation) Options() Options { return cv.opts }

// SetLogger replaces the logger built from the option flags.
func (cv *CrossValidation) SetLogger(l logger.Logger) {
	if l != nil {
		cv.log = l
	}
}

// SetOutputDir makes Evaluate write its run artifacts below dir.
func (cv *CrossValidation) SetOutputDir(dir string) { cv.outDir = dir }

// BookMethod registers a method for evaluation. Booking names must be
// unique within the run.
func (cv *CrossValidation) BookMethod(kind, name, options string) error {
	if cv.done {
		return errors.New("xval: cannot book methods after Evaluate")
	}
	m, err := method.New(kind, name, options)
	if err != nil {
		return err
	}
	for _, b := range cv.methods {
		if b.Name() == m.Name() {
			return fmt.Errorf("xval: method %q booked twice", m.Name())
		}
	}
	cv.methods = append(cv.methods, m)
	return nil
}

// Evaluate runs the cross-validation. Per (method, fold) tasks run
// concurrently on a bounded worker pool; cancellation stops feeding
// new tasks and returns the context error once in-flight tasks finish.
func (cv *CrossValidation) Evaluate(ctx context.Context) error {
	if cv.done {
		return errors.New("xval: Evaluate already ran")
	}
	if len(cv.methods) == 0 {
		return errors.New("xval: no methods booked")
	}
	if err := cv.ds.Validate(); err != nil {
		return err
	}

	started := time.Now()
	k := cv.opts.NumFolds

	var splitter fold.Splitter
	if cv.opts.SplitExpr != "" {
		f, err := formula.Compile(cv.opts.SplitExpr, cv.ds.Fields())
		if err != nil {
			return err
		}
		splitter = fold.Deterministic{F: f}
		cv.log.Infof("%s: splitting %d events into %d folds with %s", cv.name, cv.ds.NTrain(), k, f)
	} else {
		splitter = fold.Random{Seed: cv.opts.SplitSeed}
		cv.log.Infof("%s: splitting %d events into %d random folds (seed %d)", cv.name, cv.ds.NTrain(), k, cv.opts.SplitSeed)
	}
	folds, err := splitter.Split(cv.ds, k)
	if err != nil {
		return err
	}
	if err := fold.Check(folds, cv.ds.NumRows()); err != nil {
		return err
	}
	cv.folds = folds

	x := cv.ds.Features()
	classes := cv.ds.Classes()
	weights := cv.ds.Weights()

	type task struct{ mi, fi int }
	type outcome struct {
		model method.Model
		fr    FoldResult
	}
	outs := make([][]outcome, len(cv.methods))
	for i := range outs {
		outs[i] = make([]outcome, len(folds))
	}

	tasks := make(chan task)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for w := 0; w < cv.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				mu.Lock()
				failed := firstErr != nil
				mu.Unlock()
				if failed {
					continue
				}
				m := cv.methods[t.mi]
				model, fr, err := cv.runFold(m, x, classes, weights, folds[t.fi], t.fi)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				outs[t.mi][t.fi] = outcome{model: model, fr: fr}
				cv.log.Debugf("%s fold %d: roc %.4f over %d held-out events", m.Name(), t.fi, fr.ROC, fr.NTest)
			}
		}()
	}

feed:
	for mi := range cv.methods {
		for fi := range folds {
			select {
			case <-ctx.Done():
				break feed
			case tasks <- task{mi, fi}:
			}
		}
	}
	close(tasks)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if firstErr != nil {
		return firstErr
	}

	cv.results = make([]Result, len(cv.methods))
	if cv.opts.ModelPersistence {
		cv.ensembles = make(map[string]*Ensemble, len(cv.methods))
	}
	for mi, m := range cv.methods {
		res := Result{Method: m.Name(), Kind: m.Kind(), Folds: make([]FoldResult, len(folds))}
		curves := make([]Curve, len(folds))
		models := make([]method.Model, len(folds))
		for fi := range folds {
			res.Folds[fi] = outs[mi][fi].fr
			curves[fi] = outs[mi][fi].fr.Curve
			models[fi] = outs[mi][fi].model
		}
		res.AvgCurve = avgCurve(curves)
		cv.results[mi] = res
		if cv.opts.ModelPersistence {
			cv.ensembles[m.Name()] = &Ensemble{
				Name:       cv.name + "_" + m.Name(),
				MethodName: m.Name(),
				Kind:       m.Kind(),
				NumFolds:   k,
				SplitExpr:  cv.opts.SplitExpr,
				Variables:  cv.ds.Variables(),
				Spectators: cv.ds.Spectators(),
				Models:     models,
			}
		}
		cv.log.Infof("%s ROC %.4f (%.4f) over %d folds", m.Name(), res.ROCAverage(), res.ROCStdDev(), len(folds))
	}
	cv.done = true

	if cv.outDir != "" {
		if err := cv.writeArtifacts(started); err != nil {
			return err
		}
		cv.log.Infof("%s: run artifacts written to %s", cv.name, cv.outDir)
	}
	return nil
}

// runFold trains one method on the fold's training rows and evaluates
// it on the held-out rows.
func (cv *CrossValidation) runFold(m method.Method, x mat.Matrix, classes []bool, weights []float64, f fold.Fold, fi int) (method.Model, FoldResult, error) {
	model, err := m.Train(x, classes, weights, f.Train)
	if err != nil {
		return nil, FoldResult{}, fmt.Errorf("xval: training %s on fold %d: %w", m.Name(), fi, err)
	}
	_, dim := x.Dims()
	scores := make([]float64, len(f.Test))
	cls := make([]bool, len(f.Test))
	ws := make([]float64, len(f.Test))
	row := make([]float64, dim)
	for j, idx := range f.Test {
		mat.Row(row, idx, x)
		scores[j] = model.Score(row)
		cls[j] = classes[idx]
		ws[j] = weights[idx]
	}
	curve, auc, err := rocCurve(scores, cls, ws)
	if err != nil {
		return nil, FoldResult{}, fmt.Errorf("xval: %s fold %d: %w", m.Name(), fi, err)
	}
	fr := FoldResult{
		Fold:        fi,
		ROC:         auc,
		Separation:  separation(scores, cls, ws),
		EffB10:      curve.TPRAt(0.10),
		EffB30:      curve.TPRAt(0.30),
		NTest:       len(f.Test),
		Curve:       curve,
		TestIndices: append([]int(nil), f.Test...),
		Scores:      scores,
	}
	return model, fr, nil
}

// Results returns the per-method results in booking order.
func (cv *CrossValidation) Results() []Result {
	out := make([]Result, len(cv.results))
	copy(out, cv.results)
	return out
}

// Folds returns the folds Evaluate ran over.
func (cv *CrossValidation) Folds() []fold.Fold {
	out := make([]fold.Fold, len(cv.folds))
	copy(out, cv.folds)
	return out
}

// EnsembleFor returns the persisted ensemble of a booked method.
func (cv *CrossValidation) EnsembleFor(methodName string) (*Ensemble, error) {
	if !cv.done {
		return nil, errors.New("xval: Evaluate has not run")
	}
	if !cv.opts.ModelPersistence {
		return nil, errors.New("xval: run without ModelPersistence keeps no models")
	}
	e, ok := cv.ensembles[methodName]
	if !ok {
		return nil, fmt.Errorf("xval: no ensemble for method %q", methodName)
	}
	return e, nil
}

// PrintResults renders every method's per-fold table and summary line.
func (cv *CrossValidation) PrintResults(w io.Writer) {
	for i := range cv.results {
		cv.results[i].Print(w)
	}
}
