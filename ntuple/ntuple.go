// package ntuple persists event tables as parquet files. A file is a
// flat set of named numeric columns; dataset.Frame is the in-memory
// exchange type on both the write and the read side.
package ntuple

import (
	"errors"
	"fmt"
)

// Kind is the physical column type.
type Kind int

const (
	Float64 Kind = iota
	Int64
)

func (k Kind) String() string {
	switch k {
	case Float64:
		return "DOUBLE"
	case Int64:
		return "INT64"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Column declares one file column.
type Column struct {
	Name string
	Kind Kind
}

// Float64Columns is a convenience constructor for an all-double schema.
func Float64Columns(names ...string) []Column {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Kind: Float64}
	}
	return cols
}

func validateColumns(cols []Column) error {
	if len(cols) == 0 {
		return errors.New("ntuple: no columns")
	}
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if c.Name == "" {
			return errors.New("ntuple: column with empty name")
		}
		if seen[c.Name] {
			return fmt.Errorf("ntuple: duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if c.Kind != Float64 && c.Kind != Int64 {
			return fmt.Errorf("ntuple: column %q has unknown kind %v", c.Name, c.Kind)
		}
	}
	return nil
}

// metadata renders the schema tags the parquet writer consumes. All
// columns are REQUIRED: every row carries every field.
func metadata(cols []Column) []string {
	md := make([]string, len(cols))
	for i, c := range cols {
		md[i] = fmt.Sprintf("name=%s, type=%s, repetitiontype=REQUIRED", c.Name, c.Kind)
	}
	return md
}
