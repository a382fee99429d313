package reconcile

import (
	"github.com/twpayne/go-geos"

	"github.com/reefworks/reefmap/internal/feature"
	"github.com/reefworks/reefmap/internal/geom"
)

// ClipStats summarises a clipping pass.
type ClipStats struct {
	// Clipped counts features whose geometry was reduced by the mask.
	Clipped int
	// Dropped lists features removed because nothing (or only slivers)
	// remained after clipping.
	Dropped []Removal
}

// Footprint dissolves all geometries of a set into a single mask geometry.
// Returns nil for an empty set.
func Footprint(set *feature.Set) *geos.Geom {
	engine := geom.NewEngine(0)
	return engine.UnionAll(set.Geoms())
}

// Clip subtracts the mask from every feature and drops features whose
// remainder is empty or falls below the sliver threshold.
//
// Clip never grows a geometry: a feature either passes through unchanged,
// shrinks, or is removed. It serves both land exclusion (mask = dissolved
// coastline) and sediment gap-filling (set = candidate fill polygons, mask =
// the already-claimed reef and rock footprint).
func Clip(set *feature.Set, mask *geos.Geom, sliverThreshold float64, typeField string) (*feature.Set, ClipStats) {
	var stats ClipStats
	out := feature.NewSet(set.CRS)

	for _, f := range set.Features {
		// Boundary-only contact removes no area, so the feature passes
		// through like a disjoint one.
		if mask == nil || !f.Geom.Intersects(mask) || f.Geom.Touches(mask) {
			out.Append(f.Clone())
			continue
		}

		remainder := geom.Polygonal(f.Geom.Difference(mask))
		if remainder == nil || remainder.Area() <= sliverThreshold {
			stats.Dropped = append(stats.Dropped, Removal{
				DebugID: f.DebugID,
				Type:    f.Type(typeField),
			})
			continue
		}

		clipped := f.Clone()
		clipped.Geom = remainder
		out.Append(clipped)
		stats.Clipped++
	}

	return out, stats
}
