package feature

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/twpayne/go-geos"

	"github.com/reefworks/reefmap/internal/geom"
)

// DefaultCRS is assumed when a feature collection carries no crs member.
const DefaultCRS = "EPSG:4326"

// debugIDKey is the property carrying the stable tracking identifier.
const debugIDKey = "DebugID"

type crsJSON struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

type featureJSON struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type collectionJSON struct {
	Type     string        `json:"type"`
	CRS      *crsJSON      `json:"crs,omitempty"`
	Features []featureJSON `json:"features"`
}

// ReadStats reports the recoverable geometry problems encountered while
// loading a collection.
type ReadStats struct {
	// Repaired counts invalid geometries fixed at load.
	Repaired int
	// Dropped counts features removed because their geometry was missing,
	// non-polygonal, or unrepairable.
	Dropped int
}

// Read loads a GeoJSON feature collection as a Set.
//
// A missing or unreadable file is an input error and aborts the stage.
// Invalid geometries are repaired; features whose geometry cannot be
// recovered into a Polygon or MultiPolygon are dropped and counted in
// ReadStats, never fatal. Features without a DebugID property get one
// assigned as "<idPrefix>_<index>".
func Read(path, idPrefix string) (*Set, ReadStats, error) {
	var stats ReadStats

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stats, fmt.Errorf("read features: %w", err)
	}

	var coll collectionJSON
	if err := json.Unmarshal(data, &coll); err != nil {
		return nil, stats, fmt.Errorf("parse %s: %w", path, err)
	}

	crs := DefaultCRS
	if coll.CRS != nil {
		if name, ok := coll.CRS.Properties["name"]; ok && name != "" {
			crs = name
		}
	}

	set := NewSet(crs)
	for i, fj := range coll.Features {
		var g *geos.Geom
		if len(fj.Geometry) > 0 {
			g, err = geos.NewGeomFromGeoJSON(string(fj.Geometry))
			if err != nil {
				g = nil
			}
		}
		invalid := g != nil && !g.IsValid()
		g = geom.Repair(g)
		if g == nil {
			stats.Dropped++
			continue
		}
		if invalid {
			stats.Repaired++
		}

		attrs := Attributes(fj.Properties)
		if attrs == nil {
			attrs = Attributes{}
		}
		id, _ := attrs[debugIDKey].(string)
		if id == "" {
			id = fmt.Sprintf("%s_%d", idPrefix, i)
		}
		delete(attrs, debugIDKey)

		set.Append(&Feature{DebugID: id, Geom: g, Attrs: attrs})
	}

	return set, stats, nil
}

// Write saves the set as a GeoJSON feature collection at path.
//
// Refuses to overwrite an existing file. The collection is written to a
// temporary file in the target directory and renamed into place only once
// the write succeeds, so a failed run never leaves a half-written output for
// a downstream stage to consume.
func Write(set *Set, path string) error {
	raws := make([]RawFeature, 0, len(set.Features))
	for _, f := range set.Features {
		props := make(map[string]any, len(f.Attrs)+1)
		for k, v := range f.Attrs {
			props[k] = v
		}
		props[debugIDKey] = f.DebugID
		raws = append(raws, RawFeature{
			Geometry:   json.RawMessage(f.Geom.ToGeoJSON(-1)),
			Properties: props,
		})
	}
	return WriteRaw(path, set.CRS, raws)
}

// RawFeature is a pre-encoded feature used for diagnostic outputs whose
// geometries are not polygons (overlap report points).
type RawFeature struct {
	Geometry   json.RawMessage
	Properties map[string]any
}

// WriteRaw writes a feature collection of pre-encoded features with the same
// overwrite protection and atomic-rename behavior as Write.
func WriteRaw(path, crs string, features []RawFeature) error {
	if _, err := os.Stat(path); err == nil {
		return &ErrOutputExists{Path: path}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	coll := collectionJSON{
		Type:     "FeatureCollection",
		Features: make([]featureJSON, 0, len(features)),
	}
	if crs != "" && crs != DefaultCRS {
		coll.CRS = &crsJSON{Type: "name", Properties: map[string]string{"name": crs}}
	}
	for _, rf := range features {
		coll.Features = append(coll.Features, featureJSON{
			Type:       "Feature",
			Geometry:   rf.Geometry,
			Properties: rf.Properties,
		})
	}

	data, err := json.Marshal(&coll)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize output: %w", err)
	}
	return nil
}
