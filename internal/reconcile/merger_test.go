package reconcile

import (
	"math"
	"testing"

	"github.com/reefworks/reefmap/internal/feature"
)

var rockyDefaults = feature.Attributes{
	typeField:  "Rocky Reef",
	"EdgeSrc":  "Semi-auto rocky reef",
	"FeatConf": "Medium",
}

func TestMergeDissolvesConnectedComponent(t *testing.T) {
	// Three unit squares at (0,0), (1,0), (1,1), all Rocky Reef, connected
	// via auxiliary slivers contained in the squares' union. They dissolve
	// into one feature of area 3 carrying the first square's attributes.
	master := feature.NewSet(feature.DefaultCRS)
	first := feat("NW_0", "Rocky Reef", box(t, 0, 0, 1, 1))
	first.Attrs["Relief"] = "High"
	master.Append(first)
	master.Append(feat("NW_1", "Rocky Reef", box(t, 1, 0, 2, 1)))
	master.Append(feat("NW_2", "Rocky Reef", box(t, 1, 1, 2, 2)))

	aux := feature.NewSet(feature.DefaultCRS)
	aux.Append(feat("AIMS_0", "Rocky Reef", box(t, 0.5, 0.25, 1.5, 0.75))) // bridges NW_0 and NW_1
	aux.Append(feat("AIMS_1", "Rocky Reef", box(t, 1.25, 0.5, 1.75, 1.5))) // bridges NW_1 and NW_2

	out, records, stats, err := Merge(master, typeField, "Rocky Reef", aux, rockyDefaults)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if out.Len() != 1 {
		t.Fatalf("output count = %d, want 1 dissolved feature", out.Len())
	}
	dissolved := out.Features[0]
	if dissolved.DebugID != "NW_0" {
		t.Errorf("survivor = %s, want NW_0 (first by original order)", dissolved.DebugID)
	}
	if dissolved.Attrs["Relief"] != "High" {
		t.Errorf("survivor lost first primary's attributes: %v", dissolved.Attrs["Relief"])
	}
	// Slivers are contained in the squares, so the dissolve covers area 3.
	if math.Abs(dissolved.Geom.Area()-3.0) > 1e-9 {
		t.Errorf("dissolved area = %f, want 3.0", dissolved.Geom.Area())
	}

	if stats.Components != 1 {
		t.Errorf("components = %d, want 1", stats.Components)
	}
	if stats.DissolvedAux != 2 {
		t.Errorf("dissolved aux = %d, want 2", stats.DissolvedAux)
	}

	// ID accounting: NW_1 and NW_2 merged into NW_0.
	if len(records) != 2 {
		t.Fatalf("merge records = %d, want 2", len(records))
	}
	mergedIDs := map[string]string{}
	for _, r := range records {
		mergedIDs[r.MergedID] = r.SurvivorID
	}
	for _, id := range []string{"NW_1", "NW_2"} {
		if mergedIDs[id] != "NW_0" {
			t.Errorf("record for %s = %q, want survivor NW_0", id, mergedIDs[id])
		}
	}
}

func TestMergeAreaConservation(t *testing.T) {
	master := feature.NewSet(feature.DefaultCRS)
	master.Append(feat("NW_0", "Rocky Reef", box(t, 0, 0, 2, 2)))

	aux := feature.NewSet(feature.DefaultCRS)
	aux.Append(feat("AIMS_0", "Rocky Reef", box(t, 1, 0, 3, 2))) // overlaps NW_0 by 1x2

	out, _, _, err := Merge(master, typeField, "Rocky Reef", aux, rockyDefaults)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	dissolved := findByID(out, "NW_0")
	if dissolved == nil {
		t.Fatal("survivor missing")
	}
	// Union of the two boxes is 3x2 = 6: overlap counted once, and never
	// less than the larger input.
	if math.Abs(dissolved.Geom.Area()-6.0) > 1e-9 {
		t.Errorf("dissolved area = %f, want 6.0", dissolved.Geom.Area())
	}
}

func TestMergeIsolatedPrimary(t *testing.T) {
	// One auxiliary touching a single primary: the primary grows in place,
	// no records, other features copied through.
	master := feature.NewSet(feature.DefaultCRS)
	master.Append(feat("NW_0", "Rocky Reef", box(t, 0, 0, 1, 1)))
	master.Append(feat("NW_1", "Coral Reef Shallow", box(t, 5, 5, 6, 6)))

	aux := feature.NewSet(feature.DefaultCRS)
	aux.Append(feat("AIMS_0", "Rocky Reef", box(t, 1, 0, 2, 1))) // shares the x=1 edge

	out, records, _, err := Merge(master, typeField, "Rocky Reef", aux, rockyDefaults)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if len(records) != 0 {
		t.Errorf("records = %v, want none", records)
	}
	if out.Len() != 2 {
		t.Fatalf("output count = %d, want 2", out.Len())
	}

	grown := findByID(out, "NW_0")
	if math.Abs(grown.Geom.Area()-2.0) > 1e-9 {
		t.Errorf("grown primary area = %f, want 2.0", grown.Geom.Area())
	}

	coral := findByID(out, "NW_1")
	if coral == nil || math.Abs(coral.Geom.Area()-1.0) > 1e-9 {
		t.Error("non-tier feature was not copied through unchanged")
	}
}

func TestMergeStandaloneAuxGetsDefaults(t *testing.T) {
	master := feature.NewSet(feature.DefaultCRS)
	master.Append(feat("NW_0", "Rocky Reef", box(t, 0, 0, 1, 1)))

	aux := feature.NewSet(feature.DefaultCRS)
	aux.Append(feat("AIMS_0", "", box(t, 10, 10, 11, 11))) // touches nothing

	out, _, stats, err := Merge(master, typeField, "Rocky Reef", aux, rockyDefaults)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if stats.NewFeatures != 1 {
		t.Fatalf("new features = %d, want 1", stats.NewFeatures)
	}

	added := findByID(out, "AIMS_0")
	if added == nil {
		t.Fatal("standalone auxiliary missing from output")
	}
	if added.Attrs["EdgeSrc"] != "Semi-auto rocky reef" {
		t.Errorf("EdgeSrc = %v, want default applied", added.Attrs["EdgeSrc"])
	}
	if added.Attrs["FeatConf"] != "Medium" {
		t.Errorf("FeatConf = %v, want default applied", added.Attrs["FeatConf"])
	}
	// The new feature conforms to the output schema.
	for _, col := range out.Columns() {
		if _, has := added.Attrs[col]; !has {
			t.Errorf("standalone auxiliary missing schema column %q", col)
		}
	}
}
