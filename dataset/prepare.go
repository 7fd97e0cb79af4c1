package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/y-v-p/root/optstr"
)

// Split modes understood by Prepare.
const (
	SplitRandom    = "Random"
	SplitAlternate = "Alternate"
	SplitBlock     = "Block"
)

// Weight normalization modes understood by Prepare.
const (
	NormNone           = "None"
	NormNumEvents      = "NumEvents"
	NormEqualNumEvents = "EqualNumEvents"
)

// Prepare partitions the loaded events into a training pool and a test
// pool per class and renormalizes the event weights. Recognized options:
//
//	SplitMode=Random|Alternate|Block   how test events are chosen (Random)
//	SplitSeed=<uint>                   seed for SplitMode=Random (100)
//	NormMode=None|NumEvents|EqualNumEvents  weight normalization (NumEvents)
//	nTest_Signal=<n>                   signal events held back, 0 = half (0)
//	nTest_Background=<n>               background events held back, 0 = half (0)
//	V / !V                             verbosity flag, accepted and ignored
//
// Events not selected for the test pool form the training pool the
// cross-validation machinery runs on.
func (ds *Dataset) Prepare(options string) error {
	if ds.NEvents() == 0 {
		return errors.New("dataset: Prepare before any events were added")
	}
	if ds.trainIdx != nil {
		return errors.New("dataset: Prepare called twice")
	}
	s, err := optstr.Parse(options)
	if err != nil {
		return err
	}
	mode := s.String("SplitMode", SplitRandom)
	seed := s.Uint("SplitSeed", 100)
	norm := s.String("NormMode", NormNumEvents)
	nTestSig := s.Int("nTest_Signal", 0)
	nTestBkg := s.Int("nTest_Background", 0)
	s.Bool("V", false)
	if err := s.Err(); err != nil {
		return err
	}

	sigIdx, bkgIdx := ds.classIndices()
	trainSig, testSig, err := splitClass(sigIdx, nTestSig, mode, seed)
	if err != nil {
		return fmt.Errorf("dataset: signal: %w", err)
	}
	trainBkg, testBkg, err := splitClass(bkgIdx, nTestBkg, mode, seed+1)
	if err != nil {
		return fmt.Errorf("dataset: background: %w", err)
	}

	// Mutate the dataset only once every option has been validated, so a
	// failed Prepare can be corrected and retried.
	if err := ds.normalize(norm); err != nil {
		return err
	}
	train := append(trainSig, trainBkg...)
	test := append(testSig, testBkg...)
	sort.Ints(train)
	sort.Ints(test)
	ds.trainIdx = train
	ds.testIdx = test
	return nil
}

func (ds *Dataset) classIndices() (sig, bkg []int) {
	for i, s := range ds.class {
		if s {
			sig = append(sig, i)
		} else {
			bkg = append(bkg, i)
		}
	}
	return sig, bkg
}

// splitClass picks nTest test events out of idx according to the split
// mode. nTest of zero means half the class.
func splitClass(idx []int, nTest int, mode string, seed uint64) (train, test []int, err error) {
	n := len(idx)
	if n == 0 {
		return nil, nil, errors.New("no events")
	}
	if nTest < 0 {
		return nil, nil, fmt.Errorf("negative nTest %d", nTest)
	}
	if nTest == 0 {
		nTest = n / 2
	}
	if nTest >= n {
		return nil, nil, fmt.Errorf("nTest %d leaves no training events out of %d", nTest, n)
	}
	inTest := make([]bool, n)
	switch {
	case strings.EqualFold(mode, SplitRandom):
		rng := rand.New(rand.NewPCG(seed, seed))
		perm := rng.Perm(n)
		for _, p := range perm[:nTest] {
			inTest[p] = true
		}
	case strings.EqualFold(mode, SplitAlternate):
		// Walk the class alternating train, test, train, ... until the
		// test quota is filled.
		taken := 0
		for i := 1; i < n && taken < nTest; i += 2 {
			inTest[i] = true
			taken++
		}
		// Odd positions exhausted before the quota; fill from the back.
		for i := n - 1; taken < nTest; i-- {
			if !inTest[i] {
				inTest[i] = true
				taken++
			}
		}
	case strings.EqualFold(mode, SplitBlock):
		for i := n - nTest; i < n; i++ {
			inTest[i] = true
		}
	default:
		return nil, nil, fmt.Errorf("unknown SplitMode %q", mode)
	}
	for i, t := range inTest {
		if t {
			test = append(test, idx[i])
		} else {
			train = append(train, idx[i])
		}
	}
	return train, test, nil
}

// normalize rescales the event weights over all events of a class,
// training and test pool alike.
func (ds *Dataset) normalize(norm string) error {
	switch {
	case strings.EqualFold(norm, NormNone):
		return nil
	case strings.EqualFold(norm, NormNumEvents):
		ds.scaleClass(true, float64(ds.NSignal()))
		ds.scaleClass(false, float64(ds.NBackground()))
		return nil
	case strings.EqualFold(norm, NormEqualNumEvents):
		target := float64(ds.NSignal())
		ds.scaleClass(true, target)
		ds.scaleClass(false, target)
		return nil
	default:
		return fmt.Errorf("dataset: unknown NormMode %q", norm)
	}
}

// scaleClass rescales the weights of one class so they sum to target.
func (ds *Dataset) scaleClass(signal bool, target float64) {
	var sum float64
	for i, s := range ds.class {
		if s == signal {
			sum += ds.weight[i]
		}
	}
	if sum == 0 {
		return
	}
	f := target / sum
	for i, s := range ds.class {
		if s == signal {
			ds.weight[i] *= f
		}
	}
}
