// package study measures the stability of cross-validated metrics by
// re-running the whole pipeline over independently generated toy
// datasets and aggregating the per-trial ROC averages.
package study

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/y-v-p/root/dataset"
	"github.com/y-v-p/root/logger"
	"github.com/y-v-p/root/xval"
)

// Booking names one method evaluated in every trial.
type Booking struct {
	Kind    string
	Name    string
	Options string
}

// Study describes the repeated experiment.
type Study struct {
	// Trials is the number of independently generated datasets.
	Trials int
	// NSignal and NBackground are the per-trial sample sizes.
	NSignal     int
	NBackground int
	// Offset and Scale shape the toys: signal is drawn from
	// N(+Offset, Scale²), background from N(−Offset, Scale²).
	Offset float64
	Scale  float64
	// Seed seeds trial t with Seed+2t for signal and Seed+2t+1 for
	// background.
	Seed uint64
	// Variables and IDName name the generated columns.
	Variables []string
	IDName    string
	// Options is the engine option string shared by every trial.
	Options string
	// Methods are booked in every trial.
	Methods []Booking
	// Log receives per-trial progress; nil means silent.
	Log logger.Logger
}

// TrialStats aggregates one method over all trials.
type TrialStats struct {
	Method string
	Kind   string
	// ROCMean is the mean of the per-trial ROC averages; ROCStdDev its
	// sample spread and ROCStdErr the standard error of the mean, both
	// zero with fewer than two trials.
	ROCMean   float64
	ROCStdDev float64
	ROCStdErr float64
	// PerTrial holds the per-trial ROC averages in trial order.
	PerTrial []float64
}

func (s *Study) validate() error {
	if s.Trials < 1 {
		return fmt.Errorf("study: %d trials", s.Trials)
	}
	if s.NSignal < 2 || s.NBackground < 2 {
		return fmt.Errorf("study: sample sizes %d/%d too small", s.NSignal, s.NBackground)
	}
	if len(s.Variables) == 0 {
		return errors.New("study: no variables")
	}
	if s.IDName == "" {
		return errors.New("study: no identifier column name")
	}
	if len(s.Methods) == 0 {
		return errors.New("study: no methods")
	}
	return nil
}

// Run evaluates every trial, spreading trials over a worker pool, and
// returns the per-method aggregates in booking order.
func (s *Study) Run(ctx context.Context) ([]TrialStats, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	log := s.Log
	if log == nil {
		log = logger.Nop()
	}
	scale := s.Scale
	if scale == 0 {
		scale = 1
	}

	rocs := make([][]float64, s.Trials)
	for i := range rocs {
		rocs[i] = make([]float64, len(s.Methods))
	}

	nWorkers := runtime.GOMAXPROCS(0)
	if nWorkers > s.Trials {
		nWorkers = s.Trials
	}
	id := make(chan int)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	for w := 0; w < nWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range id {
				mu.Lock()
				failed := firstErr != nil
				mu.Unlock()
				if failed {
					continue
				}
				vals, err := s.trial(ctx, t, scale)
				if err != nil {
					setErr(fmt.Errorf("study: trial %d: %w", t, err))
					continue
				}
				rocs[t] = vals
				log.Debugf("trial %d done", t)
			}
		}()
	}
feed:
	for t := 0; t < s.Trials; t++ {
		select {
		case <-ctx.Done():
			break feed
		case id <- t:
		}
	}
	close(id)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	out := make([]TrialStats, len(s.Methods))
	perTrial := make([]float64, s.Trials)
	for mi, b := range s.Methods {
		for t := 0; t < s.Trials; t++ {
			perTrial[t] = rocs[t][mi]
		}
		ts := TrialStats{
			Method:   bookingName(b),
			Kind:     b.Kind,
			PerTrial: append([]float64(nil), perTrial...),
		}
		if s.Trials < 2 {
			ts.ROCMean = perTrial[0]
		} else {
			mean, std := stat.MeanStdDev(perTrial, nil)
			ts.ROCMean = mean
			ts.ROCStdDev = std
			ts.ROCStdErr = stat.StdErr(std, float64(s.Trials))
		}
		out[mi] = ts
		log.Infof("%s: roc %.4f (%.4f) over %d trials", ts.Method, ts.ROCMean, ts.ROCStdDev, s.Trials)
	}
	return out, nil
}

// trial generates one dataset pair and cross-validates every booked
// method on it.
func (s *Study) trial(ctx context.Context, t int, scale float64) ([]float64, error) {
	sig, err := dataset.GenGauss(s.Variables, s.IDName, s.NSignal, s.Offset, scale, s.Seed+2*uint64(t))
	if err != nil {
		return nil, err
	}
	bkg, err := dataset.GenGauss(s.Variables, s.IDName, s.NBackground, -s.Offset, scale, s.Seed+2*uint64(t)+1)
	if err != nil {
		return nil, err
	}
	ds := dataset.New(fmt.Sprintf("trial%d", t))
	for _, v := range s.Variables {
		if err := ds.AddVariable(v); err != nil {
			return nil, err
		}
	}
	if err := ds.AddSpectator(s.IDName); err != nil {
		return nil, err
	}
	if err := ds.AddSignal(sig, 1); err != nil {
		return nil, err
	}
	if err := ds.AddBackground(bkg, 1); err != nil {
		return nil, err
	}

	cv, err := xval.New(ds.Name(), ds, s.Options)
	if err != nil {
		return nil, err
	}
	cv.SetLogger(logger.Nop())
	for _, b := range s.Methods {
		if err := cv.BookMethod(b.Kind, bookingName(b), b.Options); err != nil {
			return nil, err
		}
	}
	if err := cv.Evaluate(ctx); err != nil {
		return nil, err
	}
	results := cv.Results()
	vals := make([]float64, len(results))
	for i := range results {
		vals[i] = results[i].ROCAverage()
	}
	return vals, nil
}

func bookingName(b Booking) string {
	if b.Name != "" {
		return b.Name
	}
	return b.Kind
}
