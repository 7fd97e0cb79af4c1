package study

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

const testOptions = "!V:NumFolds=2:!ModelPersistence:SplitExpr=int(fabs([eventID]))%int([NumFolds])"

func toyStudy(trials int) *Study {
	return &Study{
		Trials:      trials,
		NSignal:     80,
		NBackground: 80,
		Offset:      1,
		Seed:        200,
		Variables:   []string{"x", "y"},
		IDName:      "eventID",
		Options:     testOptions,
		Methods: []Booking{
			{Kind: "Fisher"},
			{Kind: "LD", Name: "ld"},
		},
	}
}

func TestStudyRun(t *testing.T) {
	s := toyStudy(3)
	stats, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d method stats, want 2", len(stats))
	}
	if stats[0].Method != "Fisher" || stats[1].Method != "ld" {
		t.Fatalf("method names %q, %q", stats[0].Method, stats[1].Method)
	}
	if stats[0].Kind != "Fisher" || stats[1].Kind != "LD" {
		t.Fatalf("method kinds %q, %q", stats[0].Kind, stats[1].Kind)
	}
	for _, ts := range stats {
		if len(ts.PerTrial) != 3 {
			t.Fatalf("%s: %d trial values, want 3", ts.Method, len(ts.PerTrial))
		}
		for i, v := range ts.PerTrial {
			if v <= 0.7 || v > 1 {
				t.Errorf("%s trial %d: roc %v out of range", ts.Method, i, v)
			}
		}
		if ts.ROCMean <= 0.8 || ts.ROCMean > 1 {
			t.Errorf("%s: mean roc %v out of range", ts.Method, ts.ROCMean)
		}
		if ts.ROCStdDev < 0 || math.IsNaN(ts.ROCStdDev) {
			t.Errorf("%s: std %v", ts.Method, ts.ROCStdDev)
		}
		wantErr := ts.ROCStdDev / math.Sqrt(3)
		if math.Abs(ts.ROCStdErr-wantErr) > 1e-12 {
			t.Errorf("%s: stderr %v, want %v", ts.Method, ts.ROCStdErr, wantErr)
		}
		if ts.PerTrial[0] == ts.PerTrial[1] && ts.PerTrial[1] == ts.PerTrial[2] {
			t.Errorf("%s: all trials returned %v; seeds did not vary", ts.Method, ts.PerTrial[0])
		}
	}
}

func TestStudyRepeatable(t *testing.T) {
	a, err := toyStudy(2).Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := toyStudy(2).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for mi := range a {
		for ti := range a[mi].PerTrial {
			if a[mi].PerTrial[ti] != b[mi].PerTrial[ti] {
				t.Errorf("%s trial %d: %v vs %v", a[mi].Method, ti, a[mi].PerTrial[ti], b[mi].PerTrial[ti])
			}
		}
	}
}

func TestStudySingleTrial(t *testing.T) {
	s := toyStudy(1)
	stats, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, ts := range stats {
		if ts.ROCMean != ts.PerTrial[0] {
			t.Errorf("%s: mean %v, want trial value %v", ts.Method, ts.ROCMean, ts.PerTrial[0])
		}
		if ts.ROCStdDev != 0 || ts.ROCStdErr != 0 {
			t.Errorf("%s: spread %v/%v with one trial", ts.Method, ts.ROCStdDev, ts.ROCStdErr)
		}
	}
}

func TestStudyErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Study)
		want   string
	}{
		{"NoTrials", func(s *Study) { s.Trials = 0 }, "trials"},
		{"TinySamples", func(s *Study) { s.NSignal = 1 }, "too small"},
		{"NoVariables", func(s *Study) { s.Variables = nil }, "no variables"},
		{"NoIDName", func(s *Study) { s.IDName = "" }, "identifier"},
		{"NoMethods", func(s *Study) { s.Methods = nil }, "no methods"},
		{"BadOptions", func(s *Study) { s.Options = "Bogus" }, "trial"},
		{"UnknownKind", func(s *Study) { s.Methods = []Booking{{Kind: "BDT"}} }, "trial"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := toyStudy(1)
			tc.mutate(s)
			_, err := s.Run(context.Background())
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestStudyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := toyStudy(4).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
