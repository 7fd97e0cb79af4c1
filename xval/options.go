package xval

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/y-v-p/root/optstr"
)

// Options configures a cross-validation run. The zero value is not
// usable; parse an option string instead.
type Options struct {
	// Verbose raises the log level to debug.
	Verbose bool
	// Silent lowers the log level to errors only and wins over Verbose.
	Silent bool
	// ModelPersistence keeps the per-fold models and builds an Ensemble
	// for every booked method.
	ModelPersistence bool
	// AnalysisType must parse to Classification.
	AnalysisType string
	// NumFolds is the number of folds k, at least 2.
	NumFolds int
	// SplitExpr deterministically assigns events to folds. Empty means
	// a seeded random partition.
	SplitExpr string
	// SplitSeed seeds the random partition when SplitExpr is empty.
	SplitSeed uint64
	// Workers bounds the number of concurrent train/score tasks.
	Workers int
}

// parseOptions parses an option string such as
//
//	!V:!Silent:ModelPersistence:AnalysisType=Classification:NumFolds=2:SplitExpr=int(fabs([eventID]))%int([NumFolds])
//
// applying defaults for everything absent.
func parseOptions(options string) (Options, error) {
	s, err := optstr.Parse(options)
	if err != nil {
		return Options{}, err
	}
	o := Options{
		Verbose:          s.Bool("V", false),
		Silent:           s.Bool("Silent", false),
		ModelPersistence: s.Bool("ModelPersistence", true),
		AnalysisType:     s.String("AnalysisType", "Classification"),
		NumFolds:         s.Int("NumFolds", 5),
		SplitExpr:        s.String("SplitExpr", ""),
		SplitSeed:        s.Uint("SplitSeed", 100),
		Workers:          s.Int("Workers", runtime.GOMAXPROCS(0)),
	}
	if err := s.Err(); err != nil {
		return Options{}, fmt.Errorf("xval: %w", err)
	}
	if !strings.EqualFold(o.AnalysisType, "Classification") {
		return Options{}, fmt.Errorf("xval: unsupported AnalysisType %q", o.AnalysisType)
	}
	if o.NumFolds < 2 {
		return Options{}, fmt.Errorf("xval: NumFolds must be at least 2, got %d", o.NumFolds)
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o, nil
}

// logLevel maps the verbosity flags to a logger level.
func (o Options) logLevel() string {
	switch {
	case o.Silent:
		return "error"
	case o.Verbose:
		return "debug"
	default:
		return "info"
	}
}
