package reconcile

import (
	"github.com/reefworks/reefmap/internal/feature"
	"github.com/reefworks/reefmap/internal/geom"
	"github.com/reefworks/reefmap/internal/index"
)

// ResolveOptions configures a priority overlay pass.
type ResolveOptions struct {
	// TypeField is the categorical attribute holding the feature type.
	TypeField string
	// CutThreshold is the minimum intersection area that triggers a cut.
	// Zero selects geom.DefaultOverlapThreshold.
	CutThreshold float64
}

// Removal records a feature whose geometry was completely consumed by
// higher-priority overlays.
type Removal struct {
	DebugID string
	Type    string
}

// MultiPart records a feature whose geometry split into several parts during
// cutting. Informational only, not an error.
type MultiPart struct {
	DebugID string
	Parts   int
}

// ResolveStats summarises a resolution pass for the run summary.
type ResolveStats struct {
	Cuts      int
	Removed   []Removal
	MultiPart []MultiPart
}

// Resolve applies the declared type-priority order to the set: wherever a
// feature overlaps a strictly higher-priority feature by more than the cut
// threshold, the overlapping area is removed from the lower-priority
// geometry.
//
// Resolve is pure: it returns a new set and never mutates its input. Cuts
// are cumulative per target; overlays apply in no guaranteed order, which is
// sound because difference is order-independent for all-or-nothing removal.
// Features whose geometry ends up empty are dropped and reported in
// ResolveStats.Removed. Equal-priority and exempt features are copied
// through untouched; any residual overlap between them is surfaced by
// Verify, never resolved automatically.
//
// Running Resolve on an already-resolved set is a no-op: every surviving
// intersection is at or below the threshold.
func Resolve(set *feature.Set, pr *TypePriority, opts ResolveOptions) (*feature.Set, ResolveStats) {
	engine := geom.NewEngine(opts.CutThreshold)
	idx := index.New(set.Geoms())

	var stats ResolveStats
	out := feature.NewSet(set.CRS)

	for i, target := range set.Features {
		targetType := target.Type(opts.TypeField)
		if _, ranked := pr.Rank(targetType); !ranked {
			out.Append(target.Clone())
			continue
		}

		cur := target.Geom
		for _, j := range idx.QueryGeom(target.Geom) {
			if j == i {
				continue
			}
			overlay := set.Features[j]
			if !pr.Cuts(overlay.Type(opts.TypeField), targetType) {
				continue
			}
			if engine.IntersectionArea(cur, overlay.Geom) <= engine.Threshold {
				continue
			}
			stats.Cuts++
			cur = engine.Difference(cur, overlay.Geom)
			if cur == nil {
				break
			}
		}

		if cur == nil {
			stats.Removed = append(stats.Removed, Removal{
				DebugID: target.DebugID,
				Type:    targetType,
			})
			continue
		}

		resolved := target.Clone()
		if cur != target.Geom {
			resolved.Geom = cur
			if parts := geom.PartCount(cur); parts > 1 {
				stats.MultiPart = append(stats.MultiPart, MultiPart{
					DebugID: target.DebugID,
					Parts:   parts,
				})
			}
		}
		out.Append(resolved)
	}

	return out, stats
}
