package reconcile

import (
	"fmt"
	"sort"

	"github.com/twpayne/go-geos"

	"github.com/reefworks/reefmap/internal/feature"
	"github.com/reefworks/reefmap/internal/geom"
	"github.com/reefworks/reefmap/internal/index"
)

// MergeRecord traces a primary feature that was dissolved into another, so
// every input identifier stays accounted for.
type MergeRecord struct {
	MergedID   string
	SurvivorID string
}

// MergeStats summarises a merge pass.
type MergeStats struct {
	// DissolvedAux counts auxiliary polygons absorbed into primaries.
	DissolvedAux int
	// NewFeatures counts auxiliary polygons added as standalone features.
	NewFeatures int
	// Components counts connected groups that were dissolved.
	Components int
}

// Merge absorbs an auxiliary layer of same-tier polygons into the master
// set's features of the given tier type.
//
// Auxiliary polygons that intersect one or more tier primaries are dissolved
// with them. An auxiliary polygon spanning several primaries connects those
// primaries into one component, and the whole component dissolves into a
// single feature carrying the attributes and DebugID of its first primary
// (first by original set order); the other primaries are removed and traced
// in MergeRecords. Auxiliary polygons touching no primary join the output as
// standalone features with the given default attributes. Features of other
// types are copied through unchanged.
//
// Every tier primary ID from the master set is accounted for in the output:
// it either persists (unchanged or as a dissolve survivor) or appears in a
// MergeRecord. Merge returns an error if that invariant would be violated.
func Merge(master *feature.Set, typeField, tierType string, aux *feature.Set, defaults feature.Attributes) (*feature.Set, []MergeRecord, MergeStats, error) {
	var stats MergeStats
	engine := geom.NewEngine(0)

	// Tier primaries, local index -> master position. Local order follows
	// master order, so "first primary" is well defined.
	primaries := master.IndicesWhere(typeField, tierType)
	primGeoms := make([]*geos.Geom, len(primaries))
	for li, pos := range primaries {
		primGeoms[li] = master.Features[pos].Geom
	}
	idx := index.New(primGeoms)

	// Tag auxiliaries: attach each to every primary it touches, and connect
	// primaries bridged by the same auxiliary polygon.
	attached := make(map[int][]*geos.Geom)
	adjacency := make(map[int]map[int]struct{})
	var standalone []*feature.Feature

	connect := func(a, b int) {
		if adjacency[a] == nil {
			adjacency[a] = make(map[int]struct{})
		}
		if adjacency[b] == nil {
			adjacency[b] = make(map[int]struct{})
		}
		adjacency[a][b] = struct{}{}
		adjacency[b][a] = struct{}{}
	}

	for _, a := range aux.Features {
		var touched []int
		for _, li := range idx.QueryGeom(a.Geom) {
			// Intersects covers shared-boundary touching as well.
			if a.Geom.Intersects(primGeoms[li]) {
				touched = append(touched, li)
			}
		}
		if len(touched) == 0 {
			standalone = append(standalone, a)
			continue
		}
		stats.DissolvedAux++
		for _, li := range touched {
			attached[li] = append(attached[li], a.Geom)
		}
		for x := 1; x < len(touched); x++ {
			connect(touched[0], touched[x])
		}
	}

	// Connected components over the primaries that gained auxiliaries or
	// bridges. Explicit work-stack traversal; connectivity graphs over
	// large reef systems get deep enough to make recursion a liability.
	nodes := make([]int, 0, len(attached)+len(adjacency))
	seen := make(map[int]bool)
	for li := range attached {
		nodes = append(nodes, li)
	}
	for li := range adjacency {
		if _, has := attached[li]; !has {
			nodes = append(nodes, li)
		}
	}
	sort.Ints(nodes)

	var components [][]int
	for _, start := range nodes {
		if seen[start] {
			continue
		}
		var component []int
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, n)
			for next := range adjacency[n] {
				if !seen[next] {
					seen[next] = true
					stack = append(stack, next)
				}
			}
		}
		sort.Ints(component)
		components = append(components, component)
	}
	stats.Components = len(components)

	// Dissolve each component into its first primary.
	replacements := make(map[int]*feature.Feature) // master pos -> dissolved feature
	removed := make(map[int]string)                // master pos -> survivor DebugID
	var records []MergeRecord

	for _, component := range components {
		survivorLocal := component[0]
		survivorPos := primaries[survivorLocal]
		survivor := master.Features[survivorPos]

		var geoms []*geos.Geom
		for _, li := range component {
			geoms = append(geoms, primGeoms[li])
			geoms = append(geoms, attached[li]...)
			if li != survivorLocal {
				pos := primaries[li]
				removed[pos] = survivor.DebugID
				records = append(records, MergeRecord{
					MergedID:   master.Features[pos].DebugID,
					SurvivorID: survivor.DebugID,
				})
			}
		}

		dissolved := survivor.Clone()
		dissolved.Geom = engine.UnionAll(geoms)
		replacements[survivorPos] = dissolved
	}

	// Rebuild the set in master order, then append new standalone features.
	out := feature.NewSet(master.CRS)
	for pos, f := range master.Features {
		if _, gone := removed[pos]; gone {
			continue
		}
		if repl, ok := replacements[pos]; ok {
			out.Append(repl)
			continue
		}
		out.Append(f.Clone())
	}

	for _, a := range standalone {
		nf := a.Clone()
		for k, v := range defaults {
			if cur, ok := nf.Attrs[k]; !ok || cur == nil {
				nf.Attrs[k] = v
			}
		}
		out.Append(nf)
		stats.NewFeatures++
	}
	for _, f := range out.Features {
		out.Conform(f)
	}

	if err := checkAccounting(master, primaries, out, records); err != nil {
		return nil, nil, stats, err
	}
	return out, records, stats, nil
}

// checkAccounting verifies every tier primary ID survives in the output or
// is traced in a merge record.
func checkAccounting(master *feature.Set, primaries []int, out *feature.Set, records []MergeRecord) error {
	outIDs := make(map[string]bool, out.Len())
	for _, f := range out.Features {
		outIDs[f.DebugID] = true
	}
	merged := make(map[string]bool, len(records))
	for _, r := range records {
		merged[r.MergedID] = true
	}
	for _, pos := range primaries {
		id := master.Features[pos].DebugID
		if !outIDs[id] && !merged[id] {
			return fmt.Errorf("primary feature %s missing from merge output and merge records", id)
		}
	}
	return nil
}
