package formula

import (
	"math"
	"strings"
	"testing"
)

func TestCompileErrors(t *testing.T) {
	fields := []string{"eventID", "var4"}
	for _, test := range []struct {
		src  string
		want string
	}{
		{"", "empty expression"},
		{"int([eventID)", "unbalanced"},
		{"int(eventID])%2", "unbalanced"},
		{"[unknown]%2", "unknown field"},
		{"[]%2", "empty field reference"},
		{"int([eventID]%", "compiling"},
	} {
		_, err := Compile(test.src, fields)
		if err == nil {
			t.Errorf("Compile(%q): expected error", test.src)
			continue
		}
		if !strings.Contains(err.Error(), test.want) {
			t.Errorf("Compile(%q) error = %q, want it to mention %q", test.src, err, test.want)
		}
	}
}

func TestCompileRejectsBadFieldNames(t *testing.T) {
	if _, err := Compile("[a-b]", []string{"a-b"}); err == nil {
		t.Error("expected error for field name with '-'")
	}
	if _, err := Compile("[fabs]", []string{"fabs"}); err == nil {
		t.Error("expected error for field name clashing with a function")
	}
}

func TestEvalFoldParity(t *testing.T) {
	f, err := Compile("int(fabs([eventID]))%int([NumFolds])", []string{"eventID"})
	if err != nil {
		t.Fatal(err)
	}
	const k = 2
	for id := 0; id < 10; id++ {
		got, err := f.EvalFold(map[string]float64{"eventID": float64(id)}, k)
		if err != nil {
			t.Fatalf("EvalFold(eventID=%d): %v", id, err)
		}
		if want := id % k; got != want {
			t.Errorf("EvalFold(eventID=%d) = %d, want %d", id, got, want)
		}
	}
}

func TestEvalFoldNegativeViaFabs(t *testing.T) {
	f, err := Compile("int(fabs([eventID]))%int([NumFolds])", []string{"eventID"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.EvalFold(map[string]float64{"eventID": -7}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("EvalFold(eventID=-7, k=4) = %d, want 3", got)
	}
}

func TestEvalFoldRangeChecks(t *testing.T) {
	f, err := Compile("[eventID]", []string{"eventID"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.EvalFold(map[string]float64{"eventID": 2.5}, 4); err == nil {
		t.Error("expected error for non-integral fold")
	}
	if _, err := f.EvalFold(map[string]float64{"eventID": -1}, 4); err == nil {
		t.Error("expected error for negative fold")
	}
	if _, err := f.EvalFold(map[string]float64{"eventID": 4}, 4); err == nil {
		t.Error("expected error for fold >= NumFolds")
	}
	if _, err := f.EvalFold(map[string]float64{}, 4); err == nil {
		t.Error("expected error for missing field value")
	}
}

func TestEvalDeterminism(t *testing.T) {
	f, err := Compile("int(fmod(fabs([var4]), float([NumFolds])))", []string{"var4"})
	if err != nil {
		t.Fatal(err)
	}
	vals := map[string]float64{"var4": 11}
	a, err := f.EvalFold(vals, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		b, err := f.EvalFold(vals, 4)
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Fatalf("EvalFold not deterministic: %d then %d", a, b)
		}
	}
	if a != 3 {
		t.Errorf("EvalFold(var4=11, k=4) = %d, want 3", a)
	}
}

func TestEvalMathFuncs(t *testing.T) {
	f, err := Compile("sqrt(pow([x], 2.0))", []string{"x"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.Eval(map[string]float64{"x": -3}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-3) > 1e-12 {
		t.Errorf("Eval = %v, want 3", got)
	}
}

func TestFields(t *testing.T) {
	f, err := Compile("int([a])%int([NumFolds])+int([b])*0", []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	fields := f.Fields()
	if len(fields) != 2 || fields[0] != "a" || fields[1] != "b" {
		t.Errorf("Fields() = %v, want [a b]", fields)
	}
}
