package reconcile

import (
	"github.com/twpayne/go-geos"

	"github.com/reefworks/reefmap/internal/feature"
	"github.com/reefworks/reefmap/internal/geom"
	"github.com/reefworks/reefmap/internal/index"
)

// OverlapReport marks a residual overlap left after reconciliation, for
// human QA review. Location is the centroid of the overlapping area.
type OverlapReport struct {
	ID       int
	FeatureA string
	FeatureB string
	TypeA    string
	TypeB    string
	Location *geos.Geom
}

// Verify runs an independent full pairwise scan over the set and reports
// every overlap whose area exceeds the given threshold. It is a
// verification pass, not a correction pass: the set is never modified.
//
// The verification threshold is typically stricter than the cut threshold
// used during resolution.
func Verify(set *feature.Set, typeField string, threshold float64) []OverlapReport {
	engine := geom.NewEngine(threshold)
	idx := index.New(set.Geoms())

	var reports []OverlapReport
	for i, a := range set.Features {
		for _, j := range idx.QueryGeom(a.Geom) {
			if j <= i {
				continue // each pair once, skip self
			}
			b := set.Features[j]
			overlap := engine.Overlap(a.Geom, b.Geom)
			if overlap == nil {
				continue
			}
			reports = append(reports, OverlapReport{
				ID:       len(reports),
				FeatureA: a.DebugID,
				FeatureB: b.DebugID,
				TypeA:    a.Type(typeField),
				TypeB:    b.Type(typeField),
				Location: overlap.Centroid(),
			})
			overlap.Destroy()
		}
	}
	return reports
}
