package reconcile

import (
	"math"
	"testing"

	"github.com/reefworks/reefmap/internal/feature"
)

func TestClipSubtractsMask(t *testing.T) {
	set := feature.NewSet(feature.DefaultCRS)
	set.Append(feat("f0", "Coral Reef Shallow", box(t, 0, 0, 2, 2)))
	set.Append(feat("f1", "Coral Reef Shallow", box(t, 5, 5, 6, 6)))

	land := box(t, 1, 0, 4, 4)

	out, stats := Clip(set, land, 0, typeField)

	if out.Len() != 2 {
		t.Fatalf("output count = %d, want 2", out.Len())
	}

	clipped := findByID(out, "f0")
	if math.Abs(clipped.Geom.Area()-2.0) > 1e-9 {
		t.Errorf("clipped area = %f, want 2.0", clipped.Geom.Area())
	}
	untouched := findByID(out, "f1")
	if math.Abs(untouched.Geom.Area()-1.0) > 1e-9 {
		t.Errorf("disjoint feature changed: area = %f, want 1.0", untouched.Geom.Area())
	}
	if stats.Clipped != 1 {
		t.Errorf("clipped count = %d, want 1", stats.Clipped)
	}

	// Clipping never increases area.
	for i, f := range out.Features {
		if f.Geom.Area() > set.Features[i].Geom.Area()+1e-12 {
			t.Errorf("feature %s grew during clipping", f.DebugID)
		}
	}
}

func TestClipRemovesContainedFeature(t *testing.T) {
	set := feature.NewSet(feature.DefaultCRS)
	set.Append(feat("onland", "Mainland", box(t, 1, 1, 2, 2)))
	set.Append(feat("atsea", "Coral Reef Shallow", box(t, 10, 10, 11, 11)))

	land := box(t, 0, 0, 5, 5)

	out, stats := Clip(set, land, 0, typeField)

	if out.Len() != 1 {
		t.Fatalf("output count = %d, want 1 (contained feature removed)", out.Len())
	}
	if findByID(out, "onland") != nil {
		t.Error("feature inside the mask survived clipping")
	}
	if len(stats.Dropped) != 1 || stats.Dropped[0].DebugID != "onland" {
		t.Errorf("dropped = %+v, want [onland]", stats.Dropped)
	}
}

func TestClipIgnoresBoundaryContact(t *testing.T) {
	set := feature.NewSet(feature.DefaultCRS)
	set.Append(feat("edge", "Coral Reef Shallow", box(t, 0, 0, 1, 1)))

	// Mask shares the x=1 edge but claims no interior area.
	mask := box(t, 1, 0, 2, 1)

	out, stats := Clip(set, mask, 0, typeField)

	if out.Len() != 1 {
		t.Fatalf("output count = %d, want 1", out.Len())
	}
	f := findByID(out, "edge")
	if math.Abs(f.Geom.Area()-1.0) > 1e-9 {
		t.Errorf("touching feature changed: area = %f, want 1.0", f.Geom.Area())
	}
	if stats.Clipped != 0 {
		t.Errorf("clipped count = %d, want 0 for boundary-only contact", stats.Clipped)
	}
}

func TestClipDropsSlivers(t *testing.T) {
	set := feature.NewSet(feature.DefaultCRS)
	set.Append(feat("sliver", "Shallow Sediment", box(t, 0, 0, 1, 1)))

	// Mask leaves a 0.0001 x 1 strip, below the sliver threshold.
	mask := box(t, 0.0001, -1, 2, 2)

	out, stats := Clip(set, mask, 0.0005, typeField)

	if out.Len() != 0 {
		t.Fatalf("output count = %d, want 0", out.Len())
	}
	if len(stats.Dropped) != 1 {
		t.Errorf("dropped = %+v, want one sliver", stats.Dropped)
	}
}

func TestFootprint(t *testing.T) {
	set := feature.NewSet(feature.DefaultCRS)
	set.Append(feat("a", "Rocky Reef", box(t, 0, 0, 1, 1)))
	set.Append(feat("b", "Rocky Reef", box(t, 0.5, 0, 1.5, 1)))

	fp := Footprint(set)
	if fp == nil {
		t.Fatal("Footprint returned nil for a non-empty set")
	}
	if math.Abs(fp.Area()-1.5) > 1e-9 {
		t.Errorf("footprint area = %f, want 1.5", fp.Area())
	}

	if fp := Footprint(feature.NewSet(feature.DefaultCRS)); fp != nil {
		t.Errorf("Footprint(empty) = %v, want nil", fp)
	}
}
