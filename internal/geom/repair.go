package geom

import (
	"github.com/twpayne/go-geos"
)

// Repair returns a valid Polygon or MultiPolygon covering materially the
// same area as g.
//
// Valid polygonal input is returned unchanged. Invalid input is repaired
// with GEOS MakeValid; if the repaired result carries non-polygonal debris
// (an invalid ring can collapse to a line) the polygonal part is extracted,
// and a zero-distance buffer is tried as a fallback. Returns nil when no
// polygonal region can be recovered; the caller must treat nil as "feature
// removed".
//
// Repair is pure: g is never modified.
func Repair(g *geos.Geom) *geos.Geom {
	if g == nil || g.IsEmpty() {
		return nil
	}

	if IsPolygonal(g) && g.IsValid() {
		return g
	}

	repaired := Polygonal(g.MakeValid())
	if repaired != nil && repaired.IsValid() && !repaired.IsEmpty() {
		return repaired
	}

	// MakeValid collapsed the geometry; buffer(0) reconstructs the covered
	// region by noding and rebuilding the rings.
	buffered := Polygonal(g.Buffer(0, 8))
	if buffered != nil && buffered.IsValid() && !buffered.IsEmpty() {
		return buffered
	}

	return nil
}
