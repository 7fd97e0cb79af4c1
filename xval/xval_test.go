package xval

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/y-v-p/root/dataset"
	"github.com/y-v-p/root/logger"
	"github.com/y-v-p/root/ntuple"
)

const testSplitExpr = "int(fabs([eventID]))%int([NumFolds])"

func toyDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	ds := dataset.New("toy")
	for _, v := range []string{"x", "y"} {
		if err := ds.AddVariable(v); err != nil {
			t.Fatal(err)
		}
	}
	if err := ds.AddSpectator("eventID"); err != nil {
		t.Fatal(err)
	}
	sig, err := dataset.GenGauss([]string{"x", "y"}, "eventID", n, 1, 1, 100)
	if err != nil {
		t.Fatal(err)
	}
	bkg, err := dataset.GenGauss([]string{"x", "y"}, "eventID", n, -1, 1, 101)
	if err != nil {
		t.Fatal(err)
	}
	if err := ds.AddSignal(sig, 1); err != nil {
		t.Fatal(err)
	}
	if err := ds.AddBackground(bkg, 1); err != nil {
		t.Fatal(err)
	}
	return ds
}

func newCV(t *testing.T, ds *dataset.Dataset, options string) *CrossValidation {
	t.Helper()
	cv, err := New("cvtest", ds, options)
	if err != nil {
		t.Fatal(err)
	}
	cv.SetLogger(logger.Test(t))
	return cv
}

func TestEvaluateDeterministicSplit(t *testing.T) {
	ds := toyDataset(t, 200)
	cv := newCV(t, ds, "NumFolds=2:SplitExpr="+testSplitExpr)
	if err := cv.BookMethod("Fisher", "Fisher", "!H:!V:Fisher"); err != nil {
		t.Fatal(err)
	}
	if err := cv.BookMethod("LD", "LD", "Order=1"); err != nil {
		t.Fatal(err)
	}
	if err := cv.Evaluate(context.Background()); err != nil {
		t.Fatal(err)
	}

	results := cv.Results()
	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	for _, r := range results {
		if len(r.Folds) != 2 {
			t.Fatalf("%s: got %d folds, want 2", r.Method, len(r.Folds))
		}
		if avg := r.ROCAverage(); avg < 0.85 || avg > 1 {
			t.Errorf("%s: roc average %v outside (0.85, 1]", r.Method, avg)
		}
		var nTest int
		for _, f := range r.Folds {
			nTest += f.NTest
			if f.ROC <= 0.5 || f.ROC > 1 {
				t.Errorf("%s fold %d: roc %v", r.Method, f.Fold, f.ROC)
			}
			if f.Separation <= 0 {
				t.Errorf("%s fold %d: separation %v", r.Method, f.Fold, f.Separation)
			}
			if f.EffB30 < f.EffB10 {
				t.Errorf("%s fold %d: eff@0.30 %v below eff@0.10 %v",
					r.Method, f.Fold, f.EffB30, f.EffB10)
			}
			if len(f.Scores) != f.NTest || len(f.TestIndices) != f.NTest {
				t.Errorf("%s fold %d: misaligned scores", r.Method, f.Fold)
			}
		}
		if nTest != 400 {
			t.Errorf("%s: held-out events %d, want 400", r.Method, nTest)
		}
		if len(r.AvgCurve.FPR) != avgGridPoints {
			t.Errorf("%s: avg curve has %d points", r.Method, len(r.AvgCurve.FPR))
		}
	}

	// The split expression routes by event id parity: fold 0 holds out
	// even ids, fold 1 odd ids.
	ids, err := ds.FieldValues("eventID")
	if err != nil {
		t.Fatal(err)
	}
	for fi, f := range cv.Folds() {
		for _, row := range f.Test {
			if int(ids[row])%2 != fi {
				t.Fatalf("fold %d holds out id %v", fi, ids[row])
			}
		}
	}

	var buf bytes.Buffer
	cv.PrintResults(&buf)
	if !strings.Contains(buf.String(), "==> Fisher ROC:") {
		t.Errorf("print output missing summary line:\n%s", buf.String())
	}
}

func TestEvaluateDeterministicRepeatable(t *testing.T) {
	run := func() []float64 {
		ds := toyDataset(t, 100)
		cv := newCV(t, ds, "NumFolds=2:SplitExpr="+testSplitExpr)
		if err := cv.BookMethod("Fisher", "Fisher", "!H:!V:Fisher"); err != nil {
			t.Fatal(err)
		}
		if err := cv.Evaluate(context.Background()); err != nil {
			t.Fatal(err)
		}
		return cv.Results()[0].ROCValues()
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("run 1 fold %d roc %v, run 2 %v", i, a[i], b[i])
		}
	}
}

func TestEvaluateRandomSplit(t *testing.T) {
	ds := toyDataset(t, 100)
	cv := newCV(t, ds, "NumFolds=5")
	if err := cv.BookMethod("LD", "LD", ""); err != nil {
		t.Fatal(err)
	}
	if err := cv.Evaluate(context.Background()); err != nil {
		t.Fatal(err)
	}
	r := cv.Results()[0]
	if len(r.Folds) != 5 {
		t.Fatalf("folds: got %d, want 5", len(r.Folds))
	}
	if avg := r.ROCAverage(); avg < 0.8 {
		t.Errorf("roc average: got %v, want > 0.8", avg)
	}

	// Models are kept by default, but without a split expression the
	// ensemble cannot route whole events.
	e, err := cv.EnsembleFor("LD")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Score(map[string]float64{"x": 0, "y": 0, "eventID": 1}); err == nil {
		t.Error("random-fold ensemble Score: expected error")
	}
	if _, err := e.ScoreFold(0, []float64{0.5, 0.5}); err != nil {
		t.Errorf("ScoreFold: %v", err)
	}
}

func TestEvaluateWritesArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	ds := toyDataset(t, 100)
	cv := newCV(t, ds, "NumFolds=2:SplitExpr="+testSplitExpr)
	cv.SetOutputDir(dir)
	if err := cv.BookMethod("Fisher", "Fisher", "!H:!V:Fisher"); err != nil {
		t.Fatal(err)
	}
	if err := cv.Evaluate(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"meta.json", "summary.json", "roc.png",
		"scores_Fisher.parquet", "roc_Fisher.parquet", "ensemble_Fisher.gob",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	scores, err := ntuple.ReadFrameFile(filepath.Join(dir, "scores_Fisher.parquet"), []ntuple.Column{
		{Name: "fold", Kind: ntuple.Int64},
		{Name: "event", Kind: ntuple.Int64},
		{Name: "signal", Kind: ntuple.Int64},
		{Name: "weight", Kind: ntuple.Float64},
		{Name: "score", Kind: ntuple.Float64},
	})
	if err != nil {
		t.Fatal(err)
	}
	if scores.NumRows() != 200 {
		t.Errorf("score rows: got %d, want 200", scores.NumRows())
	}

	e, err := LoadEnsemble(filepath.Join(dir, "ensemble_Fisher.gob"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Score(map[string]float64{"x": 1, "y": 1, "eventID": 3}); err != nil {
		t.Errorf("loaded ensemble score: %v", err)
	}

	// A second run must refuse to overwrite the directory.
	cv2 := newCV(t, toyDataset(t, 100), "NumFolds=2:SplitExpr="+testSplitExpr)
	cv2.SetOutputDir(dir)
	if err := cv2.BookMethod("Fisher", "Fisher", "!H:!V:Fisher"); err != nil {
		t.Fatal(err)
	}
	if err := cv2.Evaluate(context.Background()); err == nil {
		t.Error("expected output collision error")
	} else if !strings.Contains(err.Error(), "already holds") {
		t.Errorf("collision error: %v", err)
	}
}

func TestEvaluateErrors(t *testing.T) {
	ds := toyDataset(t, 20)

	if _, err := New("cv", nil, ""); err == nil {
		t.Error("nil dataset: expected error")
	}
	if _, err := New("cv", ds, "AnalysisType=Regression"); err == nil {
		t.Error("regression: expected error")
	}
	if _, err := New("cv", ds, "NumFolds=1"); err == nil {
		t.Error("single fold: expected error")
	}
	if _, err := New("cv", ds, "NoSuchOption=1"); err == nil {
		t.Error("unknown option: expected error")
	}

	cv := newCV(t, ds, "NumFolds=2")
	if err := cv.Evaluate(context.Background()); err == nil {
		t.Error("no methods: expected error")
	}
	if err := cv.BookMethod("Fisher", "f", ""); err != nil {
		t.Fatal(err)
	}
	if err := cv.BookMethod("LD", "f", ""); err == nil {
		t.Error("duplicate booking name: expected error")
	}
	if err := cv.BookMethod("NoSuchKind", "g", ""); err == nil {
		t.Error("unknown kind: expected error")
	}
	if _, err := cv.EnsembleFor("f"); err == nil {
		t.Error("ensemble before Evaluate: expected error")
	}
}

func TestEvaluateSingleClassFold(t *testing.T) {
	// All signal ids even, all background ids odd: fold 0 holds out
	// only signal.
	ds := dataset.New("skewed")
	if err := ds.AddVariable("x"); err != nil {
		t.Fatal(err)
	}
	if err := ds.AddSpectator("eventID"); err != nil {
		t.Fatal(err)
	}
	sig, err := dataset.NewFrame(
		[]string{"x", "eventID"},
		[][]float64{{1.1, 0.9, 1.2, 0.8}, {2, 4, 6, 8}},
	)
	if err != nil {
		t.Fatal(err)
	}
	bkg, err := dataset.NewFrame(
		[]string{"x", "eventID"},
		[][]float64{{-1.1, -0.9, -1.2, -0.8}, {1, 3, 5, 7}},
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := ds.AddSignal(sig, 1); err != nil {
		t.Fatal(err)
	}
	if err := ds.AddBackground(bkg, 1); err != nil {
		t.Fatal(err)
	}

	cv := newCV(t, ds, "NumFolds=2:SplitExpr=int([eventID])%int([NumFolds])")
	if err := cv.BookMethod("Fisher", "Fisher", ""); err != nil {
		t.Fatal(err)
	}
	err = cv.Evaluate(context.Background())
	if err == nil {
		t.Fatal("expected single-class fold error")
	}
	if !strings.Contains(err.Error(), "fold") {
		t.Errorf("error should name the fold: %v", err)
	}
}

func TestEvaluateCancelled(t *testing.T) {
	ds := toyDataset(t, 100)
	cv := newCV(t, ds, "NumFolds=2:SplitExpr="+testSplitExpr)
	if err := cv.BookMethod("Fisher", "Fisher", ""); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := cv.Evaluate(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
