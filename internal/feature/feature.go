// Package feature defines the polygon feature model shared by every pipeline
// stage: a Feature is one Polygon or MultiPolygon geometry plus an attribute
// map, and a Set is an ordered collection of Features sharing one CRS and one
// attribute schema.
package feature

import (
	"sort"

	"github.com/twpayne/go-geos"
)

// Attributes maps attribute names to values. Values are strings, numbers, or
// nil (null); nil is a legitimate value for nullable columns such as
// EdgeAcc_m.
type Attributes map[string]any

// Clone returns a shallow copy of the attribute map. Values are immutable
// scalars, so a key-level copy is sufficient.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// String returns the attribute as a string, or "" when absent or null.
func (a Attributes) String(key string) string {
	if v, ok := a[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Feature is one polygon or multipolygon with its attributes.
//
// DebugID is a stable tracking identifier assigned at ingestion and never
// changed afterwards. A dissolve produces a new Feature that inherits the
// DebugID of its designated primary input.
type Feature struct {
	DebugID string
	Geom    *geos.Geom
	Attrs   Attributes
}

// Clone returns a copy of the feature with its own geometry and attribute
// map.
func (f *Feature) Clone() *Feature {
	var g *geos.Geom
	if f.Geom != nil {
		g = f.Geom.Clone()
	}
	return &Feature{
		DebugID: f.DebugID,
		Geom:    g,
		Attrs:   f.Attrs.Clone(),
	}
}

// Type returns the feature's classification, the value of the given
// categorical attribute.
func (f *Feature) Type(field string) string {
	return f.Attrs.String(field)
}

// Set is an ordered collection of features sharing one coordinate reference
// system and one attribute schema.
type Set struct {
	CRS      string
	Features []*Feature
}

// NewSet returns an empty set in the given CRS.
func NewSet(crs string) *Set {
	return &Set{CRS: crs}
}

// Append adds f to the set, preserving insertion order.
func (s *Set) Append(f *Feature) {
	s.Features = append(s.Features, f)
}

// Len returns the number of features.
func (s *Set) Len() int {
	return len(s.Features)
}

// Geoms returns the geometries of all features, in set order.
func (s *Set) Geoms() []*geos.Geom {
	out := make([]*geos.Geom, len(s.Features))
	for i, f := range s.Features {
		out[i] = f.Geom
	}
	return out
}

// IndicesWhere returns the indices of features whose field equals value, in
// set order.
func (s *Set) IndicesWhere(field, value string) []int {
	var out []int
	for i, f := range s.Features {
		if f.Type(field) == value {
			out = append(out, i)
		}
	}
	return out
}

// Columns returns the sorted attribute keys of the first feature. The schema
// consistency invariant makes this the schema of the whole set.
func (s *Set) Columns() []string {
	if len(s.Features) == 0 {
		return nil
	}
	cols := make([]string, 0, len(s.Features[0].Attrs))
	for k := range s.Features[0].Attrs {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// RequireColumns verifies the named attributes exist in the set's schema.
// Missing required columns are input errors and abort the stage.
func (s *Set) RequireColumns(path string, columns ...string) error {
	if len(s.Features) == 0 {
		return nil
	}
	schema := s.Features[0].Attrs
	for _, col := range columns {
		if _, ok := schema[col]; !ok {
			return &ErrMissingColumn{Column: col, Path: path}
		}
	}
	return nil
}

// CheckSchema verifies every feature carries the same attribute keys as the
// first. Values may be null; keys must match.
func (s *Set) CheckSchema() error {
	if len(s.Features) < 2 {
		return nil
	}
	schema := s.Features[0].Attrs
	for _, f := range s.Features[1:] {
		for k := range schema {
			if _, ok := f.Attrs[k]; !ok {
				return &ErrSchemaMismatch{DebugID: f.DebugID, Missing: k}
			}
		}
		for k := range f.Attrs {
			if _, ok := schema[k]; !ok {
				return &ErrSchemaMismatch{DebugID: f.DebugID, Missing: k}
			}
		}
	}
	return nil
}

// Conform fills any schema columns absent from f with nulls so auxiliary
// features can join a set with a wider schema.
func (s *Set) Conform(f *Feature) {
	if len(s.Features) == 0 {
		return
	}
	for k := range s.Features[0].Attrs {
		if _, ok := f.Attrs[k]; !ok {
			f.Attrs[k] = nil
		}
	}
}

// Reprojector transforms a set into a target CRS. Reprojection math is
// delegated to an external collaborator; the pipeline itself only checks CRS
// uniformity.
type Reprojector interface {
	Reproject(s *Set, toCRS string) (*Set, error)
}
