package table

import (
	"fmt"
)

// SchemaError reports a required column missing from a stage input. It aborts
// the run before any heavy computation happens.
type SchemaError struct {
	Artifact string
	Column   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("artifact %q is missing required column %q", e.Artifact, e.Column)
}

// Contract declares the columns a stage needs on an input artifact and the
// columns it appends to the corresponding output.
type Contract struct {
	Artifact string
	Requires []string
	Produces []string
}

// Validate checks that every required column is present.
func (c Contract) Validate(t *Table) error {
	for _, col := range c.Requires {
		if !t.HasColumn(col) {
			return &SchemaError{Artifact: c.Artifact, Column: col}
		}
	}
	return nil
}

// CheckEvolution verifies append-only column evolution between a stage input
// and output: every input column survives, every declared produced column
// appears, and no produced column shadowed an existing one.
func CheckEvolution(in, out *Table, produces []string, artifact string) error {
	for _, col := range in.Columns {
		if !out.HasColumn(col) {
			return fmt.Errorf("artifact %q dropped column %q", artifact, col)
		}
	}
	for _, col := range produces {
		if in.HasColumn(col) {
			return fmt.Errorf("artifact %q overwrites existing column %q", artifact, col)
		}
		if !out.HasColumn(col) {
			return fmt.Errorf("artifact %q did not produce declared column %q", artifact, col)
		}
	}
	return nil
}
