package dataset

import (
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestGenGaussShape(t *testing.T) {
	f, err := GenGauss([]string{"x", "y"}, "eventID", 1000, 1.0, 1.0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.NumRows(); got != 1000 {
		t.Fatalf("NumRows = %d, want 1000", got)
	}
	ids, ok := f.Col("eventID")
	if !ok {
		t.Fatal("missing eventID column")
	}
	for i, id := range ids {
		if id != float64(i+1) {
			t.Fatalf("eventID[%d] = %v, want %d", i, id, i+1)
		}
	}
	for _, name := range []string{"x", "y"} {
		col, ok := f.Col(name)
		if !ok {
			t.Fatalf("missing %s column", name)
		}
		mean := stat.Mean(col, nil)
		if !almostEqual(mean, 1.0, 0.15) {
			t.Errorf("%s mean = %v, want about 1.0", name, mean)
		}
		std := stat.StdDev(col, nil)
		if !almostEqual(std, 1.0, 0.15) {
			t.Errorf("%s stddev = %v, want about 1.0", name, std)
		}
	}
}

func TestGenGaussDeterministic(t *testing.T) {
	a, err := GenGauss([]string{"x"}, "id", 50, -1.0, 1.0, 101)
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenGauss([]string{"x"}, "id", 50, -1.0, 1.0, 101)
	if err != nil {
		t.Fatal(err)
	}
	ax, _ := a.Col("x")
	bx, _ := b.Col("x")
	for i := range ax {
		if ax[i] != bx[i] {
			t.Fatalf("draw %d differs across identical seeds: %v vs %v", i, ax[i], bx[i])
		}
	}
	c, err := GenGauss([]string{"x"}, "id", 50, -1.0, 1.0, 102)
	if err != nil {
		t.Fatal(err)
	}
	cx, _ := c.Col("x")
	same := true
	for i := range ax {
		if ax[i] != cx[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical draws")
	}
}

func TestGenGaussErrors(t *testing.T) {
	if _, err := GenGauss(nil, "id", 10, 0, 1, 1); err == nil {
		t.Error("expected error for no variables")
	}
	if _, err := GenGauss([]string{"x"}, "", 10, 0, 1, 1); err == nil {
		t.Error("expected error for empty identifier name")
	}
	if _, err := GenGauss([]string{"x"}, "id", 0, 0, 1, 1); err == nil {
		t.Error("expected error for zero events")
	}
	if _, err := GenGauss([]string{"x"}, "id", 10, 0, 0, 1); err == nil {
		t.Error("expected error for zero scale")
	}
	if _, err := GenGauss([]string{"x"}, "x", 10, 0, 1, 1); err == nil {
		t.Error("expected error for identifier clashing with a variable")
	}
}
