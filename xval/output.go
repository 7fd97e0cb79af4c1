package xval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/y-v-p/root/ntuple"
)

// Run artifacts: meta.json identifies the run, summary.json carries the
// headline numbers, and per method there is a held-out score table, the
// ROC curves as parquet, and (with ModelPersistence) the gob ensemble.
// roc.png overlays the averaged curves.

type runMeta struct {
	RunID      string       `json:"run_id"`
	Name       string       `json:"name"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Dataset    dsMeta       `json:"dataset"`
	Options    Options      `json:"options"`
	Methods    []methodMeta `json:"methods"`
}

type dsMeta struct {
	Name       string   `json:"name"`
	Events     int      `json:"events"`
	Signal     int      `json:"signal"`
	Background int      `json:"background"`
	Train      int      `json:"train"`
	Variables  []string `json:"variables"`
	Spectators []string `json:"spectators"`
}

type methodMeta struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type summaryEntry struct {
	Method  string    `json:"method"`
	Kind    string    `json:"kind"`
	ROCAvg  float64   `json:"roc_avg"`
	ROCStd  float64   `json:"roc_std"`
	PerFold []float64 `json:"roc_per_fold"`
}

func (cv *CrossValidation) writeArtifacts(started time.Time) error {
	dir := cv.outDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("xval: creating output directory: %w", err)
	}
	metaPath := filepath.Join(dir, "meta.json")
	if _, err := os.Stat(metaPath); err == nil {
		return fmt.Errorf("xval: output directory %s already holds a run", dir)
	}

	events := cv.ds.TrainIndices()
	classes := cv.ds.Classes()
	weights := cv.ds.Weights()

	for i := range cv.results {
		res := &cv.results[i]
		base := fileSafe(res.Method)
		if err := writeScores(filepath.Join(dir, "scores_"+base+".parquet"), res, events, classes, weights); err != nil {
			return err
		}
		if err := writeCurves(filepath.Join(dir, "roc_"+base+".parquet"), res); err != nil {
			return err
		}
		if cv.opts.ModelPersistence {
			if err := cv.ensembles[res.Method].Save(filepath.Join(dir, "ensemble_"+base+".gob")); err != nil {
				return err
			}
		}
	}

	if err := writeROCPlot(filepath.Join(dir, "roc.png"), cv.results); err != nil {
		return err
	}

	summary := make([]summaryEntry, len(cv.results))
	for i := range cv.results {
		r := &cv.results[i]
		summary[i] = summaryEntry{
			Method:  r.Method,
			Kind:    r.Kind,
			ROCAvg:  r.ROCAverage(),
			ROCStd:  r.ROCStdDev(),
			PerFold: r.ROCValues(),
		}
	}
	if err := writeJSON(filepath.Join(dir, "summary.json"), summary); err != nil {
		return err
	}

	meta := runMeta{
		RunID:      uuid.NewString(),
		Name:       cv.name,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Dataset: dsMeta{
			Name:       cv.ds.Name(),
			Events:     cv.ds.NEvents(),
			Signal:     cv.ds.NSignal(),
			Background: cv.ds.NBackground(),
			Train:      cv.ds.NTrain(),
			Variables:  cv.ds.Variables(),
			Spectators: cv.ds.Spectators(),
		},
		Options: cv.opts,
	}
	for _, m := range cv.methods {
		meta.Methods = append(meta.Methods, methodMeta{Name: m.Name(), Kind: m.Kind()})
	}
	return writeJSON(metaPath, meta)
}

// writeScores persists the held-out score of every event: its fold, its
// event index in the dataset, its class and weight, and the score.
func writeScores(path string, res *Result, events []int, classes []bool, weights []float64) error {
	w, err := ntuple.Create(path, []ntuple.Column{
		{Name: "fold", Kind: ntuple.Int64},
		{Name: "event", Kind: ntuple.Int64},
		{Name: "signal", Kind: ntuple.Int64},
		{Name: "weight", Kind: ntuple.Float64},
		{Name: "score", Kind: ntuple.Float64},
	})
	if err != nil {
		return err
	}
	for _, fr := range res.Folds {
		for j, row := range fr.TestIndices {
			sig := 0.0
			if classes[row] {
				sig = 1
			}
			if err := w.WriteRow(float64(fr.Fold), float64(events[row]), sig, weights[row], fr.Scores[j]); err != nil {
				w.Close()
				return err
			}
		}
	}
	return w.Close()
}

// writeCurves persists the per-fold ROC curves plus the averaged curve
// under fold index -1.
func writeCurves(path string, res *Result) error {
	w, err := ntuple.Create(path, []ntuple.Column{
		{Name: "fold", Kind: ntuple.Int64},
		{Name: "fpr", Kind: ntuple.Float64},
		{Name: "tpr", Kind: ntuple.Float64},
	})
	if err != nil {
		return err
	}
	writeCurve := func(fi int, c Curve) error {
		for i := range c.FPR {
			if err := w.WriteRow(float64(fi), c.FPR[i], c.TPR[i]); err != nil {
				return err
			}
		}
		return nil
	}
	for _, fr := range res.Folds {
		if err := writeCurve(fr.Fold, fr.Curve); err != nil {
			w.Close()
			return err
		}
	}
	if err := writeCurve(-1, res.AvgCurve); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("xval: encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("xval: writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// fileSafe maps a booking name to a filename fragment.
func fileSafe(name string) string {
	out := []rune(name)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
