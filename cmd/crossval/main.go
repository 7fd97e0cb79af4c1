// Command crossval runs a four-fold cross-validation described by a
// YAML config file when one is given on the command line. Without a
// config it falls back to a built-in toy setup: three Gaussian
// variables plus an integral var4 spectator driving the split
// expression, persisted to parquet next to the binary so later runs
// reread the same events instead of regenerating them.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/y-v-p/root/config"
	"github.com/y-v-p/root/dataset"
	"github.com/y-v-p/root/ntuple"
	"github.com/y-v-p/root/xval"
)

const (
	sigFile = "crossval_signal.parquet"
	bkgFile = "crossval_background.parquet"
	nEvents = 1000
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("crossval: ")
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	var cfg *config.Config
	if len(args) > 0 {
		c, err := config.Load(args[0])
		if err != nil {
			return err
		}
		cfg = c
	} else {
		if err := ensureInputs(); err != nil {
			return err
		}
		cfg = defaultConfig()
	}

	ds, err := buildDataset(&cfg.Dataset)
	if err != nil {
		return err
	}
	name := cfg.CrossValidation.Name
	if name == "" {
		name = ds.Name()
	}
	cv, err := xval.New(name, ds, cfg.CrossValidation.Options)
	if err != nil {
		return err
	}
	if cfg.Output.Dir != "" {
		cv.SetOutputDir(cfg.Output.Dir)
	}
	for _, m := range cfg.Methods {
		if err := cv.BookMethod(m.Kind, m.Name, m.Options); err != nil {
			return err
		}
	}
	if err := cv.Evaluate(context.Background()); err != nil {
		return err
	}
	cv.PrintResults(os.Stdout)
	return nil
}

func defaultConfig() *config.Config {
	return &config.Config{
		Dataset: config.Dataset{
			Name:       "toy",
			Variables:  []string{"var1", "var2", "var3"},
			Spectators: []string{"var4"},
			Signal:     config.Source{Path: sigFile, Weight: 1},
			Background: config.Source{Path: bkgFile, Weight: 1},
		},
		CrossValidation: config.CrossValidation{
			Name: "crossval",
			Options: "!V:!Silent:!ModelPersistence:AnalysisType=Classification:" +
				"NumFolds=4:SplitExpr=int([var4])%int([NumFolds])",
		},
		Methods: []config.Method{
			{Kind: "Fisher", Name: "Fisher", Options: "!H:!V:Fisher"},
		},
	}
}

// ensureInputs generates and persists the toy samples unless both
// parquet files are already on disk.
func ensureInputs() error {
	if fileExists(sigFile) && fileExists(bkgFile) {
		return nil
	}
	cols := append(ntuple.Float64Columns("var1", "var2", "var3"),
		ntuple.Column{Name: "var4", Kind: ntuple.Int64})
	sig, err := dataset.GenGauss([]string{"var1", "var2", "var3"}, "var4", nEvents, 1, 1, 100)
	if err != nil {
		return err
	}
	bkg, err := dataset.GenGauss([]string{"var1", "var2", "var3"}, "var4", nEvents, -1, 1, 101)
	if err != nil {
		return err
	}
	if err := ntuple.WriteFrameFile(sigFile, sig, cols); err != nil {
		return err
	}
	if err := ntuple.WriteFrameFile(bkgFile, bkg, cols); err != nil {
		return err
	}
	log.Printf("generated %s and %s (%d events each)", sigFile, bkgFile, nEvents)
	return nil
}

// buildDataset assembles a dataset from its config section, reading
// parquet sources and generating toy ones.
func buildDataset(dc *config.Dataset) (*dataset.Dataset, error) {
	ds := dataset.New(dc.Name)
	for _, v := range dc.Variables {
		if err := ds.AddVariable(v); err != nil {
			return nil, err
		}
	}
	for _, s := range dc.Spectators {
		if err := ds.AddSpectator(s); err != nil {
			return nil, err
		}
	}
	cols := ntuple.Float64Columns(ds.Fields()...)
	load := func(src *config.Source, add func(*dataset.Frame, float64) error) error {
		var (
			f   *dataset.Frame
			err error
		)
		switch {
		case src.Path != "":
			f, err = ntuple.ReadFrameFile(src.Path, cols)
		default:
			if len(dc.Spectators) != 1 {
				return errors.New("gen sources need exactly one spectator, the identifier")
			}
			f, err = dataset.GenGauss(dc.Variables, dc.Spectators[0],
				src.Gen.N, src.Gen.Offset, src.Gen.Scale, src.Gen.Seed)
		}
		if err != nil {
			return err
		}
		return add(f, src.Weight)
	}
	if err := load(&dc.Signal, ds.AddSignal); err != nil {
		return nil, fmt.Errorf("signal: %w", err)
	}
	if err := load(&dc.Background, ds.AddBackground); err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	if dc.Prepare != "" {
		if err := ds.Prepare(dc.Prepare); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
