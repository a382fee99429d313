package geom

import (
	"github.com/twpayne/go-geos"
)

// DefaultOverlapThreshold is the overlap area below which an intersection is
// treated as digitization noise rather than a real overlap, in squared units
// of the working CRS (degrees² for EPSG:4326 inputs).
const DefaultOverlapThreshold = 0.0005

// Engine provides the pairwise overlay primitives with the numeric
// tolerance policy of the pipeline.
//
// An intersection whose area is at or below Threshold never triggers a cut
// and is never reported. Once a cut is triggered the full overlapping area
// is removed, however small the remainder. Touch-only adjacency (shared
// boundary, zero intersection area) is never an overlap.
type Engine struct {
	// Threshold is the minimum intersection area for an overlap to count.
	Threshold float64
}

// NewEngine returns an Engine with the given overlap-area threshold. A zero
// or negative threshold selects DefaultOverlapThreshold.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultOverlapThreshold
	}
	return &Engine{Threshold: threshold}
}

// Intersects reports whether a and b share any space, including boundary.
func (e *Engine) Intersects(a, b *geos.Geom) bool {
	return a.Intersects(b)
}

// Touches reports whether a and b share boundary only.
func (e *Engine) Touches(a, b *geos.Geom) bool {
	return a.Touches(b)
}

// IntersectionArea returns the area of the intersection of a and b, or 0
// when they are disjoint or touch only.
func (e *Engine) IntersectionArea(a, b *geos.Geom) float64 {
	if !a.Intersects(b) || a.Touches(b) {
		return 0
	}
	inter := a.Intersection(b)
	defer inter.Destroy()
	return inter.Area()
}

// Overlap returns the intersection of a and b when its area exceeds the
// engine threshold, or nil for disjoint, touch-only, or sub-threshold
// intersections. The returned geometry is owned by the caller.
func (e *Engine) Overlap(a, b *geos.Geom) *geos.Geom {
	if !a.Intersects(b) || a.Touches(b) {
		return nil
	}
	inter := a.Intersection(b)
	if inter.Area() <= e.Threshold {
		inter.Destroy()
		return nil
	}
	return inter
}

// Difference returns the polygonal part of a minus b, or nil when nothing
// polygonal remains.
func (e *Engine) Difference(a, b *geos.Geom) *geos.Geom {
	return Polygonal(a.Difference(b))
}

// UnionAll dissolves geoms into a single geometry. Returns nil for an empty
// input.
func (e *Engine) UnionAll(geoms []*geos.Geom) *geos.Geom {
	if len(geoms) == 0 {
		return nil
	}
	if len(geoms) == 1 {
		return geoms[0].Clone()
	}
	members := make([]*geos.Geom, len(geoms))
	for i, g := range geoms {
		members[i] = g.Clone()
	}
	return geos.NewCollection(geos.TypeIDGeometryCollection, members).UnaryUnion()
}
