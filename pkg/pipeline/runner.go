// Package pipeline sequences the curation stages that turn the raw reef
// boundary review dataset into the final non-overlapping feature collection.
//
// Each stage is a whole-dataset transform reading the previous stage's
// output from the working directory and writing its own. Stages never
// overwrite an existing output: a file left from an earlier run must be
// moved or deleted first, which protects manual edits made between runs.
package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/reefworks/reefmap/internal/feature"
)

// Stage output filenames, keyed by the numbered working subdirectory each
// stage owns.
const (
	cleanOverlapsDir = "02"
	crosswalkDir     = "03"
	mergeRocksDir    = "04"
	clipRocksDir     = "05"
	correctMaskDir   = "06"
	fillSedimentDir  = "07"
	clipLandDir      = "08"
	reclassifyDir    = "09"
	reclipLandDir    = "10"

	cleanOverlapsOut = "reef-boundaries-clean.geojson"
	overlapPointsOut = "overlap-points.geojson"
	crosswalkOut     = "features-crosswalk.geojson"
	mergeRocksOut    = "features-rocks.geojson"
	clipRocksOut     = "features-clean-rocks.geojson"
	correctMaskOut   = "shallow-mask-corrected.geojson"
	fillSedimentOut  = "features-sediment.geojson"
	clipLandOut      = "features-land-clip.geojson"
	reclassifyOut    = "reef-boundaries-v04.geojson"
	reclipLandOut    = "features-v04-land-clip.geojson"
)

// Runner executes pipeline stages against a configuration.
type Runner struct {
	cfg     Config
	log     zerolog.Logger
	summary *Summary

	// Reproject handles sets that arrive in a foreign CRS. When nil, a
	// CRS mismatch is a fatal input error.
	Reproject feature.Reprojector
}

// NewRunner returns a Runner for the given configuration.
func NewRunner(cfg Config, log zerolog.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		log:     log,
		summary: NewSummary(),
	}
}

// Summary returns the accumulated incident counts of the run so far.
func (r *Runner) Summary() *Summary {
	return r.summary
}

func (r *Runner) stagePath(dir, name string) string {
	return filepath.Join(r.cfg.WorkingDir, dir, name)
}

// readInput loads a feature collection, normalises its CRS, and checks the
// columns the stage depends on. Any failure here is fatal for the stage.
func (r *Runner) readInput(log zerolog.Logger, path, idPrefix string, requiredColumns ...string) (*feature.Set, error) {
	set, stats, err := feature.Read(path, idPrefix)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("features", set.Len()).Msg("loaded input")

	if stats.Repaired > 0 {
		log.Warn().Int("count", stats.Repaired).Msg("repaired invalid geometries at load")
		r.summary.Add("geometries repaired at load", stats.Repaired)
	}
	if stats.Dropped > 0 {
		log.Warn().Int("count", stats.Dropped).Msg("dropped unrecoverable geometries at load")
		r.summary.Add("geometries dropped at load", stats.Dropped)
	}

	if set.CRS != feature.DefaultCRS {
		if r.Reproject == nil {
			return nil, &feature.ErrCRSMismatch{Want: feature.DefaultCRS, Got: set.CRS}
		}
		log.Info().Str("from", set.CRS).Str("to", feature.DefaultCRS).Msg("reprojecting input")
		set, err = r.Reproject.Reproject(set, feature.DefaultCRS)
		if err != nil {
			return nil, fmt.Errorf("reproject %s: %w", path, err)
		}
	}

	if len(requiredColumns) > 0 {
		if err := set.RequireColumns(path, requiredColumns...); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (r *Runner) writeOutput(log zerolog.Logger, set *feature.Set, path string) error {
	if err := feature.Write(set, path); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("features", set.Len()).Msg("wrote output")
	return nil
}

// RunAll executes the curation stages in order and logs the run summary.
// The reclassification stages are not part of the sequence: a manual
// review of the curated output happens before the migration runs.
func (r *Runner) RunAll() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"clean-overlaps", r.CleanOverlaps},
		{"crosswalk", r.Crosswalk},
		{"merge-rocks", r.MergeRocks},
		{"clip-rocks", r.ClipRocks},
		{"correct-mask", r.CorrectMask},
		{"fill-sediment", r.FillSediment},
		{"clip-land", r.ClipLand},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("stage %s: %w", s.name, err)
		}
	}
	r.summary.Log(r.log)
	return nil
}
