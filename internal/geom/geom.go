// Package geom provides the GEOS-backed geometry primitives used by the
// reconciliation pipeline: validity repair, polygonal extraction, and the
// pairwise overlay operations with the overlap-area threshold policy.
//
// Only Polygon and MultiPolygon content is meaningful to the pipeline.
// Difference and intersection can produce GeometryCollections containing
// stray lines or points from shared boundaries; Polygonal strips those back
// down to the polygonal part.
package geom

import (
	"github.com/twpayne/go-geos"
)

// IsPolygonal reports whether g is a Polygon or MultiPolygon.
func IsPolygonal(g *geos.Geom) bool {
	if g == nil {
		return false
	}
	t := g.TypeID()
	return t == geos.TypeIDPolygon || t == geos.TypeIDMultiPolygon
}

// Polygonal extracts the polygonal content of g.
//
// Polygon and MultiPolygon pass through unchanged. For a GeometryCollection
// the polygon members are collected into a single Polygon or MultiPolygon.
// Returns nil when g is nil, empty, or contains no polygonal content; the
// caller treats nil as "feature removed".
func Polygonal(g *geos.Geom) *geos.Geom {
	if g == nil || g.IsEmpty() {
		return nil
	}

	switch g.TypeID() {
	case geos.TypeIDPolygon, geos.TypeIDMultiPolygon:
		return g
	case geos.TypeIDGeometryCollection:
		polys := make([]*geos.Geom, 0, g.NumGeometries())
		for i := 0; i < g.NumGeometries(); i++ {
			part := g.Geometry(i)
			if IsPolygonal(part) && !part.IsEmpty() {
				polys = append(polys, part.Clone())
			}
		}
		if len(polys) == 0 {
			return nil
		}
		if len(polys) == 1 {
			return polys[0]
		}
		return geos.NewCollection(geos.TypeIDMultiPolygon, polys)
	default:
		return nil
	}
}

// PartCount returns the number of polygon parts in g: 1 for a Polygon, the
// member count for a MultiPolygon, 0 for nil or empty.
func PartCount(g *geos.Geom) int {
	if g == nil || g.IsEmpty() {
		return 0
	}
	if g.TypeID() == geos.TypeIDMultiPolygon {
		return g.NumGeometries()
	}
	return 1
}
