// Package crosswalk implements the classification lookup tables that
// translate a source survey's type attribute into the curated schema.
//
// A table must be injective on its source class: registering the same class
// twice is an error and aborts the stage. Looking up an unmapped class is
// recoverable: the Unknown sentinel set is substituted and the miss is
// counted for the run summary.
package crosswalk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/reefworks/reefmap/internal/feature"
)

// ErrDuplicateClass indicates a source class registered twice in one table.
type ErrDuplicateClass struct {
	Table string
	Class string
}

func (e *ErrDuplicateClass) Error() string {
	return fmt.Sprintf("crosswalk table %s: source class %q mapped twice", e.Table, e.Class)
}

// Unknown is the sentinel attribute set substituted when a source class has
// no mapping.
func Unknown() feature.Attributes {
	return feature.Attributes{
		"Feat_L3":   "Unknown",
		"GeoAttach": "Unknown",
		"Relief":    "Unknown",
		"FlowInflu": "Unknown",
		"SO_L2":     "Unknown",
		"Paleo":     "N",
	}
}

// Table maps source classification values to target attribute sets.
type Table struct {
	name    string
	entries map[string]feature.Attributes
	misses  map[string]int
}

// New returns an empty table with the given name (used in error messages).
func New(name string) *Table {
	return &Table{
		name:    name,
		entries: make(map[string]feature.Attributes),
		misses:  make(map[string]int),
	}
}

// Register adds a mapping from a source class to its target attributes.
func (t *Table) Register(class string, attrs feature.Attributes) error {
	if _, dup := t.entries[class]; dup {
		return &ErrDuplicateClass{Table: t.name, Class: class}
	}
	t.entries[class] = attrs
	return nil
}

// Lookup returns a copy of the attribute set for a source class. A miss
// returns the Unknown sentinel with ok=false and is counted towards
// Misses().
func (t *Table) Lookup(class string) (attrs feature.Attributes, ok bool) {
	if e, found := t.entries[class]; found {
		return e.Clone(), true
	}
	t.misses[class]++
	return Unknown(), false
}

// Misses returns the unmapped classes seen so far with their occurrence
// counts.
func (t *Table) Misses() map[string]int {
	return t.misses
}

// Len returns the number of registered classes.
func (t *Table) Len() int {
	return len(t.entries)
}

// Apply populates each feature's target attributes from its source class.
// Returns the number of features that fell back to the Unknown sentinel.
func (t *Table) Apply(set *feature.Set, sourceField string) int {
	unknown := 0
	for _, f := range set.Features {
		attrs, ok := t.Lookup(f.Attrs.String(sourceField))
		if !ok {
			unknown++
		}
		for k, v := range attrs {
			f.Attrs[k] = v
		}
	}
	return unknown
}

// RenameColumns renames attribute keys across the whole set. Keys absent
// from a feature are skipped.
func RenameColumns(set *feature.Set, renames map[string]string) {
	for _, f := range set.Features {
		for from, to := range renames {
			if v, ok := f.Attrs[from]; ok {
				delete(f.Attrs, from)
				f.Attrs[to] = v
			}
		}
	}
}

// CoerceNullableInt converts a raw attribute value to an int64 or nil.
// Null, empty, and the literal "NA" coerce to nil. Unparseable values
// return an error so the caller can log and null the cell.
func CoerceNullableInt(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" || strings.EqualFold(s, "NA") {
			return nil, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("not an integer: %v", raw)
	}
}
