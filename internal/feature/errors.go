package feature

import (
	"fmt"
)

// ErrOutputExists indicates an output file is already present. Outputs are
// never overwritten silently: downstream files may carry manual edits.
type ErrOutputExists struct {
	Path string
}

func (e *ErrOutputExists) Error() string {
	return fmt.Sprintf("output already exists: %s (move or delete it before re-running)", e.Path)
}

// ErrMissingColumn indicates a required attribute column is absent from an
// input dataset.
type ErrMissingColumn struct {
	Column string
	Path   string
}

func (e *ErrMissingColumn) Error() string {
	return fmt.Sprintf("required attribute %q not found in %s", e.Column, e.Path)
}

// ErrCRSMismatch indicates two datasets carry different coordinate reference
// systems and no reprojector is available.
type ErrCRSMismatch struct {
	Want, Got string
}

func (e *ErrCRSMismatch) Error() string {
	return fmt.Sprintf("CRS mismatch: want %s, got %s", e.Want, e.Got)
}

// ErrSchemaMismatch indicates a feature whose attribute keys differ from the
// rest of its set.
type ErrSchemaMismatch struct {
	DebugID string
	Missing string
}

func (e *ErrSchemaMismatch) Error() string {
	return fmt.Sprintf("feature %s: attribute %q missing from schema", e.DebugID, e.Missing)
}
