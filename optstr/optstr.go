// package optstr parses the colon-separated option strings used to
// configure datasets, methods and cross-validation runs, for example
//
//	!V:!Silent:ModelPersistence:NumFolds=2:SplitExpr=int(fabs([eventID]))%int([NumFolds])
//
// A token is either a boolean flag ("Silent", negated as "!Silent") or a
// Key=Value pair. Values may not contain colons. Keys are matched without
// regard to case and the last occurrence of a key wins. Numeric values may
// carry a trailing '%', which Float reads as a fraction (2.5% -> 0.025).
//
// Lookups record which keys were consumed. Err reports keys that were
// never looked up together with any conversion failures, so each consumer
// can reject options it does not understand.
package optstr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type entry struct {
	key  string // as written
	val  string
	flag bool // bare or negated token
	neg  bool
}

// Set holds the parsed options of one option string.
type Set struct {
	entries map[string]entry // lowercased key
	used    map[string]bool
	errs    []error
}

// Parse splits s into options. An empty string yields an empty Set.
func Parse(s string) (*Set, error) {
	set := &Set{
		entries: make(map[string]entry),
		used:    make(map[string]bool),
	}
	if strings.TrimSpace(s) == "" {
		return set, nil
	}
	for _, tok := range strings.Split(s, ":") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return nil, errors.New("optstr: empty option token")
		}
		var e entry
		if i := strings.IndexByte(tok, '='); i >= 0 {
			e.key = strings.TrimSpace(tok[:i])
			e.val = strings.TrimSpace(tok[i+1:])
			if strings.HasPrefix(e.key, "!") {
				return nil, fmt.Errorf("optstr: negated option %q cannot carry a value", e.key)
			}
		} else {
			e.flag = true
			e.key = tok
			if strings.HasPrefix(tok, "!") {
				e.neg = true
				e.key = strings.TrimSpace(tok[1:])
			}
		}
		if e.key == "" {
			return nil, fmt.Errorf("optstr: malformed option token %q", tok)
		}
		set.entries[strings.ToLower(e.key)] = e
	}
	return set, nil
}

// Has reports whether the option was given. It does not mark the key used.
func (s *Set) Has(key string) bool {
	_, ok := s.entries[strings.ToLower(key)]
	return ok
}

// Bool returns the option as a boolean: true for a bare flag, false for a
// negated one. Key=Value forms accept true/false spellings.
func (s *Set) Bool(key string, def bool) bool {
	e, ok := s.take(key)
	if !ok {
		return def
	}
	if e.flag {
		return !e.neg
	}
	b, err := strconv.ParseBool(strings.ToLower(e.val))
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("optstr: option %s: %q is not a boolean", e.key, e.val))
		return def
	}
	return b
}

// Int returns the option as an integer.
func (s *Set) Int(key string, def int) int {
	e, ok := s.take(key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(e.val)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("optstr: option %s: %q is not an integer", e.key, e.val))
		return def
	}
	return v
}

// Uint returns the option as an unsigned integer.
func (s *Set) Uint(key string, def uint64) uint64 {
	e, ok := s.take(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseUint(e.val, 10, 64)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("optstr: option %s: %q is not an unsigned integer", e.key, e.val))
		return def
	}
	return v
}

// Float returns the option as a float64. A trailing '%' divides the value
// by 100, so MinNodeSize=2.5% reads as 0.025.
func (s *Set) Float(key string, def float64) float64 {
	e, ok := s.take(key)
	if !ok {
		return def
	}
	val := e.val
	pct := strings.HasSuffix(val, "%")
	if pct {
		val = strings.TrimSpace(strings.TrimSuffix(val, "%"))
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("optstr: option %s: %q is not a number", e.key, e.val))
		return def
	}
	if pct {
		v /= 100
	}
	return v
}

// String returns the option value. A bare flag has no value and is a
// conversion error.
func (s *Set) String(key, def string) string {
	e, ok := s.take(key)
	if !ok {
		return def
	}
	if e.flag {
		s.errs = append(s.errs, fmt.Errorf("optstr: option %s: flag used where a value is required", e.key))
		return def
	}
	return e.val
}

func (s *Set) take(key string) (entry, bool) {
	lk := strings.ToLower(key)
	e, ok := s.entries[lk]
	if ok {
		s.used[lk] = true
	}
	return e, ok
}

// Unused returns the keys that were parsed but never looked up, in sorted
// order using their original spelling.
func (s *Set) Unused() []string {
	var keys []string
	for lk, e := range s.entries {
		if !s.used[lk] {
			keys = append(keys, e.key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Err returns an error describing unused options and any conversion
// failures recorded by the typed lookups, or nil if the Set was consumed
// cleanly.
func (s *Set) Err() error {
	errs := s.errs
	if u := s.Unused(); len(u) > 0 {
		errs = append(errs, fmt.Errorf("optstr: unknown option(s): %s", strings.Join(u, ", ")))
	}
	return errors.Join(errs...)
}
