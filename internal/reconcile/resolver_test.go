package reconcile

import (
	"fmt"
	"math"
	"testing"

	"github.com/twpayne/go-geos"

	"github.com/reefworks/reefmap/internal/feature"
)

const typeField = "Feat_L3"

func mustWKT(t *testing.T, wkt string) *geos.Geom {
	t.Helper()
	g, err := geos.NewGeomFromWKT(wkt)
	if err != nil {
		t.Fatalf("parse WKT %q: %v", wkt, err)
	}
	return g
}

func box(t *testing.T, minX, minY, maxX, maxY float64) *geos.Geom {
	t.Helper()
	return mustWKT(t, fmt.Sprintf("POLYGON ((%[1]g %[2]g, %[3]g %[2]g, %[3]g %[4]g, %[1]g %[4]g, %[1]g %[2]g))",
		minX, minY, maxX, maxY))
}

func feat(id, typ string, g *geos.Geom) *feature.Feature {
	return &feature.Feature{
		DebugID: id,
		Geom:    g,
		Attrs:   feature.Attributes{typeField: typ},
	}
}

func mustPriority(t *testing.T, tiers [][]string) *TypePriority {
	t.Helper()
	pr, err := NewTypePriority(tiers)
	if err != nil {
		t.Fatalf("NewTypePriority: %v", err)
	}
	return pr
}

func findByID(set *feature.Set, id string) *feature.Feature {
	for _, f := range set.Features {
		if f.DebugID == id {
			return f
		}
	}
	return nil
}

func TestTypePriority(t *testing.T) {
	pr := mustPriority(t, [][]string{
		{"High Intertidal Coral Reef"},
		{"Platform Coral Reef", "Fringing Coral Reef"},
	})

	if !pr.Cuts("High Intertidal Coral Reef", "Platform Coral Reef") {
		t.Error("higher tier should cut lower tier")
	}
	if pr.Cuts("Platform Coral Reef", "Fringing Coral Reef") {
		t.Error("equal tiers must never cut each other")
	}
	if pr.Cuts("High Intertidal Coral Reef", "Island") {
		t.Error("unlisted type without wildcard must be exempt")
	}

	wild := mustPriority(t, [][]string{{"Rocky Reef"}, {Wildcard}})
	if !wild.Cuts("Rocky Reef", "Island") {
		t.Error("wildcard tier should rank unlisted types")
	}
	if wild.Cuts("Island", "Coral Reef Shallow") {
		t.Error("two wildcard-ranked types are equal priority")
	}

	if _, err := NewTypePriority([][]string{{"Rocky Reef"}, {"Rocky Reef"}}); err == nil {
		t.Error("duplicate type in priority order must be rejected")
	}
}

func TestResolveCutsLowerPriority(t *testing.T) {
	// A = [0,0]-[2,2] high priority, B = [1,1]-[3,3] low priority.
	// Resolved B is B minus the [1,1]-[2,2] unit square: an L of area 3.
	set := feature.NewSet(feature.DefaultCRS)
	set.Append(feat("A", "High Intertidal Coral Reef", box(t, 0, 0, 2, 2)))
	set.Append(feat("B", "Platform Coral Reef", box(t, 1, 1, 3, 3)))

	pr := mustPriority(t, [][]string{
		{"High Intertidal Coral Reef"},
		{"Platform Coral Reef"},
	})

	resolved, stats := Resolve(set, pr, ResolveOptions{TypeField: typeField, CutThreshold: 0.0005})

	if resolved.Len() != 2 {
		t.Fatalf("resolved count = %d, want 2", resolved.Len())
	}
	if stats.Cuts != 1 {
		t.Errorf("cuts = %d, want 1", stats.Cuts)
	}

	a := findByID(resolved, "A")
	if math.Abs(a.Geom.Area()-4.0) > 1e-9 {
		t.Errorf("high-priority geometry modified: area = %f, want 4.0", a.Geom.Area())
	}

	b := findByID(resolved, "B")
	if math.Abs(b.Geom.Area()-3.0) > 1e-9 {
		t.Errorf("resolved B area = %f, want 3.0", b.Geom.Area())
	}

	// The resolved overlap is gone.
	inter := b.Geom.Intersection(a.Geom)
	if inter.Area() > 1e-9 {
		t.Errorf("residual intersection area = %g, want ~0", inter.Area())
	}
}

func TestResolveIdempotent(t *testing.T) {
	set := feature.NewSet(feature.DefaultCRS)
	set.Append(feat("A", "High Intertidal Coral Reef", box(t, 0, 0, 2, 2)))
	set.Append(feat("B", "Platform Coral Reef", box(t, 1, 1, 3, 3)))

	pr := mustPriority(t, [][]string{
		{"High Intertidal Coral Reef"},
		{"Platform Coral Reef"},
	})
	opts := ResolveOptions{TypeField: typeField, CutThreshold: 0.0005}

	once, _ := Resolve(set, pr, opts)
	twice, stats := Resolve(once, pr, opts)

	if stats.Cuts != 0 {
		t.Errorf("second pass made %d cuts, want 0", stats.Cuts)
	}
	if twice.Len() != once.Len() {
		t.Errorf("second pass changed feature count: %d -> %d", once.Len(), twice.Len())
	}
	for i := range once.Features {
		before := once.Features[i].Geom.Area()
		after := twice.Features[i].Geom.Area()
		if math.Abs(before-after) > 1e-12 {
			t.Errorf("feature %s area changed on second pass: %f -> %f",
				once.Features[i].DebugID, before, after)
		}
	}
}

func TestResolveRemovesConsumedFeature(t *testing.T) {
	set := feature.NewSet(feature.DefaultCRS)
	set.Append(feat("big", "High Intertidal Coral Reef", box(t, 0, 0, 4, 4)))
	set.Append(feat("inner", "Platform Coral Reef", box(t, 1, 1, 2, 2)))

	pr := mustPriority(t, [][]string{
		{"High Intertidal Coral Reef"},
		{"Platform Coral Reef"},
	})

	resolved, stats := Resolve(set, pr, ResolveOptions{TypeField: typeField, CutThreshold: 0.0005})

	if resolved.Len() != 1 {
		t.Fatalf("resolved count = %d, want 1", resolved.Len())
	}
	if len(stats.Removed) != 1 || stats.Removed[0].DebugID != "inner" {
		t.Errorf("removed = %+v, want [inner]", stats.Removed)
	}
}

func TestResolveEqualPriorityUntouched(t *testing.T) {
	set := feature.NewSet(feature.DefaultCRS)
	set.Append(feat("p1", "Platform Coral Reef", box(t, 0, 0, 2, 2)))
	set.Append(feat("p2", "Fringing Coral Reef", box(t, 1, 1, 3, 3)))

	pr := mustPriority(t, [][]string{
		{"High Intertidal Coral Reef"},
		{"Platform Coral Reef", "Fringing Coral Reef"},
	})

	resolved, stats := Resolve(set, pr, ResolveOptions{TypeField: typeField, CutThreshold: 0.0005})

	if stats.Cuts != 0 {
		t.Errorf("cuts = %d, want 0 between equal-priority features", stats.Cuts)
	}
	for _, id := range []string{"p1", "p2"} {
		f := findByID(resolved, id)
		if math.Abs(f.Geom.Area()-4.0) > 1e-9 {
			t.Errorf("feature %s area = %f, want 4.0", id, f.Geom.Area())
		}
	}

	// The residual overlap surfaces in the verification pass instead.
	reports := Verify(resolved, typeField, 0.0001)
	if len(reports) != 1 {
		t.Fatalf("verification reports = %d, want 1", len(reports))
	}
	r := reports[0]
	if r.FeatureA != "p1" || r.FeatureB != "p2" {
		t.Errorf("report pair = %s/%s, want p1/p2", r.FeatureA, r.FeatureB)
	}
	// Centroid of the [1,1]-[2,2] overlap square.
	x, y := r.Location.X(), r.Location.Y()
	if math.Abs(x-1.5) > 1e-9 || math.Abs(y-1.5) > 1e-9 {
		t.Errorf("report location = (%f, %f), want (1.5, 1.5)", x, y)
	}
}

func TestResolveMultiPartResultKept(t *testing.T) {
	// A vertical high-priority bar splits the low-priority square in two.
	set := feature.NewSet(feature.DefaultCRS)
	set.Append(feat("bar", "High Intertidal Coral Reef", box(t, 1, -1, 2, 4)))
	set.Append(feat("wide", "Platform Coral Reef", box(t, 0, 0, 3, 3)))

	pr := mustPriority(t, [][]string{
		{"High Intertidal Coral Reef"},
		{"Platform Coral Reef"},
	})

	resolved, stats := Resolve(set, pr, ResolveOptions{TypeField: typeField, CutThreshold: 0.0005})

	wide := findByID(resolved, "wide")
	if wide == nil {
		t.Fatal("split feature missing from output")
	}
	if math.Abs(wide.Geom.Area()-6.0) > 1e-9 {
		t.Errorf("split feature area = %f, want 6.0", wide.Geom.Area())
	}
	if len(stats.MultiPart) != 1 || stats.MultiPart[0].Parts != 2 {
		t.Errorf("multipart log = %+v, want one entry with 2 parts", stats.MultiPart)
	}
}

func TestVerifyIgnoresTouchAndNoise(t *testing.T) {
	set := feature.NewSet(feature.DefaultCRS)
	set.Append(feat("a", "Rocky Reef", box(t, 0, 0, 1, 1)))
	set.Append(feat("b", "Rocky Reef", box(t, 1, 0, 2, 1)))       // touch only
	set.Append(feat("c", "Rocky Reef", box(t, 1.995, 0, 3, 1)))   // 0.005 x 1 = 5e-3 overlap with b
	set.Append(feat("d", "Rocky Reef", box(t, 2.99995, 0, 4, 1))) // 5e-5 overlap with c, below threshold

	reports := Verify(set, typeField, 0.0001)
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1 (only the b/c overlap)", len(reports))
	}
	if reports[0].FeatureA != "b" || reports[0].FeatureB != "c" {
		t.Errorf("report pair = %s/%s, want b/c", reports[0].FeatureA, reports[0].FeatureB)
	}
}
