// package formula compiles the arithmetic expressions that assign events
// to folds. Dataset fields are referenced in square brackets and the fold
// count is exposed as [NumFolds], so the canonical deterministic split
//
//	int(fabs([eventID]))%int([NumFolds])
//
// maps every event to a fold index that depends only on the event itself.
// Expression evaluation is delegated to expr-lang; this package owns the
// bracket syntax, field validation and result checking.
package formula

import (
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// The pseudo-fields every formula may reference in addition to the
// dataset fields handed to Compile.
const (
	numFoldsField    = "NumFolds"
	numFoldsFieldAlt = "numFolds"
)

// mathEnv holds the functions available inside expressions. All of them
// operate on float64.
var mathEnv = map[string]any{
	"fabs":  math.Abs,
	"sqrt":  math.Sqrt,
	"pow":   math.Pow,
	"exp":   math.Exp,
	"log":   math.Log,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"fmod":  math.Mod,
}

// Formula is a compiled expression. It is safe for concurrent use; each
// Eval runs with its own environment.
type Formula struct {
	src     string
	fields  []string
	program *vm.Program
}

// Compile parses src and resolves its bracketed references against the
// given field names. Unknown fields, malformed brackets and expressions
// that do not compile are reported as errors.
func Compile(src string, fields []string) (*Formula, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("formula: empty expression")
	}
	known := make(map[string]bool, len(fields)+2)
	for _, f := range fields {
		if !validIdent(f) {
			return nil, fmt.Errorf("formula: field name %q is not usable in expressions", f)
		}
		if _, clash := mathEnv[f]; clash {
			return nil, fmt.Errorf("formula: field name %q clashes with a function", f)
		}
		known[f] = true
	}
	known[numFoldsField] = true
	known[numFoldsFieldAlt] = true

	rewritten, refs, err := rewrite(src, known)
	if err != nil {
		return nil, err
	}

	env := newEnv(refs, 1)
	program, err := expr.Compile(rewritten, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("formula: compiling %q: %w", src, err)
	}
	return &Formula{src: src, fields: refs, program: program}, nil
}

// rewrite strips the brackets from field references, validating each one
// against the known set. It returns the rewritten source and the fields
// referenced, excluding the fold-count pseudo-fields.
func rewrite(src string, known map[string]bool) (string, []string, error) {
	var (
		out  strings.Builder
		refs []string
		seen = make(map[string]bool)
	)
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '[':
			j := strings.IndexByte(src[i+1:], ']')
			if j < 0 {
				return "", nil, fmt.Errorf("formula: unbalanced '[' in %q", src)
			}
			name := strings.TrimSpace(src[i+1 : i+1+j])
			if name == "" {
				return "", nil, fmt.Errorf("formula: empty field reference in %q", src)
			}
			if !known[name] {
				return "", nil, fmt.Errorf("formula: unknown field %q in %q", name, src)
			}
			if !seen[name] && name != numFoldsField && name != numFoldsFieldAlt {
				seen[name] = true
				refs = append(refs, name)
			}
			out.WriteString(name)
			i += j + 1
		case ']':
			return "", nil, fmt.Errorf("formula: unbalanced ']' in %q", src)
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), refs, nil
}

func newEnv(fields []string, numFolds int) map[string]any {
	env := make(map[string]any, len(mathEnv)+len(fields)+2)
	for k, v := range mathEnv {
		env[k] = v
	}
	for _, f := range fields {
		env[f] = float64(0)
	}
	env[numFoldsField] = numFolds
	env[numFoldsFieldAlt] = numFolds
	return env
}

// String returns the source the formula was compiled from.
func (f *Formula) String() string { return f.src }

// Fields returns the dataset fields the formula references.
func (f *Formula) Fields() []string {
	out := make([]string, len(f.fields))
	copy(out, f.fields)
	return out
}

// Eval evaluates the formula with the given field values.
func (f *Formula) Eval(vals map[string]float64, numFolds int) (float64, error) {
	env := newEnv(nil, numFolds)
	for _, name := range f.fields {
		v, ok := vals[name]
		if !ok {
			return 0, fmt.Errorf("formula: no value for field %q", name)
		}
		env[name] = v
	}
	out, err := expr.Run(f.program, env)
	if err != nil {
		return 0, fmt.Errorf("formula: evaluating %q: %w", f.src, err)
	}
	switch v := out.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("formula: %q evaluated to %T, want a number", f.src, out)
	}
}

// EvalFold evaluates the formula and checks that the result is an
// integral fold index in [0, numFolds).
func (f *Formula) EvalFold(vals map[string]float64, numFolds int) (int, error) {
	v, err := f.Eval(vals, numFolds)
	if err != nil {
		return 0, err
	}
	if math.Trunc(v) != v || math.IsNaN(v) {
		return 0, fmt.Errorf("formula: %q evaluated to non-integral fold %v", f.src, v)
	}
	idx := int(v)
	if idx < 0 || idx >= numFolds {
		return 0, fmt.Errorf("formula: %q evaluated to fold %d, want [0, %d)", f.src, idx, numFolds)
	}
	return idx, nil
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
