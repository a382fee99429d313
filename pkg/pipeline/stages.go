package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geos"

	"github.com/reefworks/reefmap/internal/crosswalk"
	"github.com/reefworks/reefmap/internal/feature"
	"github.com/reefworks/reefmap/internal/geom"
	"github.com/reefworks/reefmap/internal/reconcile"
)

// CleanOverlaps removes overlaps between source reef types according to the
// configured priority tiers, then runs an independent verification scan and
// writes any residual overlap locations to a diagnostic point file.
func (r *Runner) CleanOverlaps() error {
	log := r.log.With().Str("stage", "clean-overlaps").Logger()

	set, err := r.readInput(log, r.cfg.InputPath, "NW", r.cfg.SourceTypeField)
	if err != nil {
		return err
	}

	pr, err := reconcile.NewTypePriority(r.cfg.CleanPriority)
	if err != nil {
		return err
	}

	resolved, stats := reconcile.Resolve(set, pr, reconcile.ResolveOptions{
		TypeField:    r.cfg.SourceTypeField,
		CutThreshold: r.cfg.Thresholds.Cut,
	})
	log.Info().Int("cuts", stats.Cuts).Msg("overlay cuts applied")
	for _, rm := range stats.Removed {
		log.Warn().Str("feature", rm.DebugID).Str("type", rm.Type).
			Msg("feature completely removed by overlay")
	}
	for _, mp := range stats.MultiPart {
		log.Info().Str("feature", mp.DebugID).Int("parts", mp.Parts).
			Msg("feature split into multiple parts")
	}
	r.summary.Add("features removed by overlay", len(stats.Removed))
	r.summary.Add("multipart overlay results", len(stats.MultiPart))

	reports := reconcile.Verify(resolved, r.cfg.SourceTypeField, r.cfg.Thresholds.Verify)
	if len(reports) > 0 {
		log.Warn().Int("count", len(reports)).Msg("residual overlaps found after cleaning")
		if err := r.writeOverlapPoints(reports); err != nil {
			return err
		}
		r.summary.Add("residual overlaps", len(reports))
	} else {
		log.Info().Msg("no residual overlaps")
	}

	return r.writeOutput(log, resolved, r.stagePath(cleanOverlapsDir, cleanOverlapsOut))
}

// writeOverlapPoints saves verification results as a point collection for
// review in a GIS tool.
func (r *Runner) writeOverlapPoints(reports []reconcile.OverlapReport) error {
	raws := make([]feature.RawFeature, 0, len(reports))
	for _, rep := range reports {
		raws = append(raws, feature.RawFeature{
			Geometry: json.RawMessage(rep.Location.ToGeoJSON(-1)),
			Properties: map[string]any{
				"ID":        rep.ID,
				"Feature_1": rep.FeatureA,
				"Type_1":    rep.TypeA,
				"Feature_2": rep.FeatureB,
				"Type_2":    rep.TypeB,
			},
		})
	}
	return feature.WriteRaw(r.stagePath(cleanOverlapsDir, overlapPointsOut), feature.DefaultCRS, raws)
}

// Crosswalk reclassifies the source typing attribute into the curated
// schema: columns are renamed, the edge accuracy field is coerced to a
// nullable integer, the classification table populates the new attributes,
// and the attribute set is trimmed to the curated columns.
func (r *Runner) Crosswalk() error {
	log := r.log.With().Str("stage", "crosswalk").Logger()

	set, err := r.readInput(log, r.stagePath(cleanOverlapsDir, cleanOverlapsOut), "NW", r.cfg.SourceTypeField)
	if err != nil {
		return err
	}

	crosswalk.RenameColumns(set, crosswalk.V03Renames)

	for _, f := range set.Features {
		v, err := crosswalk.CoerceNullableInt(f.Attrs["EdgeAcc_m"])
		if err != nil {
			log.Warn().Str("feature", f.DebugID).
				Str("type", f.Type(r.cfg.SourceTypeField)).
				Err(err).Msg("could not coerce EdgeAcc_m, setting null")
			r.summary.Add("edge accuracy coercion failures", 1)
			v = nil
		}
		f.Attrs["EdgeAcc_m"] = v
	}

	table, err := crosswalk.V03()
	if err != nil {
		return err
	}
	unknown := table.Apply(set, r.cfg.SourceTypeField)
	if unknown > 0 {
		for class, n := range table.Misses() {
			log.Warn().Str("class", class).Int("count", n).Msg("source class not mapped")
		}
		r.summary.Add("features with unmapped class", unknown)
	}

	// trim to the curated schema
	for _, f := range set.Features {
		trimmed := make(feature.Attributes, len(crosswalk.V03Columns))
		for _, col := range crosswalk.V03Columns {
			if v, ok := f.Attrs[col]; ok {
				trimmed[col] = v
			} else {
				trimmed[col] = nil
			}
		}
		f.Attrs = trimmed
	}

	return r.writeOutput(log, set, r.stagePath(crosswalkDir, crosswalkOut))
}

// MergeRocks dissolves the curated rocky reefs with the semi-automated
// rocky reef layer. Connected groups collapse into single features;
// semi-automated polygons touching nothing enter the dataset as new
// features carrying the rocky reef default attributes.
func (r *Runner) MergeRocks() error {
	log := r.log.With().Str("stage", "merge-rocks").Logger()

	master, err := r.readInput(log, r.stagePath(crosswalkDir, crosswalkOut), "NW", r.cfg.TypeField)
	if err != nil {
		return err
	}
	aux, err := r.readInput(log, r.cfg.RockyReefsPath, "RR")
	if err != nil {
		return err
	}

	merged, records, stats, err := reconcile.Merge(master, r.cfg.TypeField, "Rocky Reef", aux, r.cfg.RockyDefaults)
	if err != nil {
		return err
	}
	for _, rec := range records {
		log.Info().Str("merged", rec.MergedID).Str("into", rec.SurvivorID).Msg("rocky reef dissolved")
	}
	log.Info().Int("components", stats.Components).
		Int("aux_dissolved", stats.DissolvedAux).
		Int("new_features", stats.NewFeatures).
		Msg("rocky reef merge complete")
	r.summary.Add("rocky reefs merged away", len(records))

	return r.writeOutput(log, merged, r.stagePath(mergeRocksDir, mergeRocksOut))
}

// ClipRocks cuts rocky reef areas out of every other feature type so rock
// boundaries take precedence over the loosely digitised neighbours.
func (r *Runner) ClipRocks() error {
	log := r.log.With().Str("stage", "clip-rocks").Logger()

	set, err := r.readInput(log, r.stagePath(mergeRocksDir, mergeRocksOut), "NW", r.cfg.TypeField)
	if err != nil {
		return err
	}

	pr, err := reconcile.NewTypePriority(r.cfg.RockPriority)
	if err != nil {
		return err
	}

	resolved, stats := reconcile.Resolve(set, pr, reconcile.ResolveOptions{
		TypeField:    r.cfg.TypeField,
		CutThreshold: r.cfg.Thresholds.Cut,
	})
	log.Info().Int("cuts", stats.Cuts).Msg("rock overlay cuts applied")
	for _, rm := range stats.Removed {
		log.Warn().Str("feature", rm.DebugID).Str("type", rm.Type).
			Msg("feature completely removed by rock clipping")
	}
	r.summary.Add("features removed by rock clipping", len(stats.Removed))
	r.summary.Add("multipart overlay results", len(stats.MultiPart))

	return r.writeOutput(log, resolved, r.stagePath(clipRocksDir, clipRocksOut))
}

// CorrectMask applies the manual Add/Remove corrections to the shallow
// marine mask. Adds are unioned in, removes are differenced out, and the
// corrected mask is exploded into single-part polygons carrying the
// original mask attributes.
func (r *Runner) CorrectMask() error {
	log := r.log.With().Str("stage", "correct-mask").Logger()

	mask, err := r.readInput(log, r.cfg.ShallowMaskPath, "SM")
	if err != nil {
		return err
	}
	if mask.Len() == 0 {
		return fmt.Errorf("shallow mask %s has no usable polygons", r.cfg.ShallowMaskPath)
	}
	corrections, err := r.readInput(log, r.cfg.MaskCorrectionPath, "MC", "Operation")
	if err != nil {
		return err
	}

	adds := corrections.IndicesWhere("Operation", "Add")
	removes := corrections.IndicesWhere("Operation", "Remove")
	if other := corrections.Len() - len(adds) - len(removes); other > 0 {
		log.Warn().Int("count", other).Msg("corrections with unknown Operation ignored")
		r.summary.Add("unknown mask corrections", other)
	}
	log.Info().Int("add", len(adds)).Int("remove", len(removes)).Msg("applying mask corrections")

	engine := geom.NewEngine(r.cfg.Thresholds.Cut)
	combined := mask.Geoms()
	for _, i := range adds {
		combined = append(combined, corrections.Features[i].Geom)
	}
	dissolved := engine.UnionAll(combined)

	if len(removes) > 0 {
		removeGeoms := make([]*geos.Geom, 0, len(removes))
		for _, i := range removes {
			removeGeoms = append(removeGeoms, corrections.Features[i].Geom)
		}
		removal := engine.UnionAll(removeGeoms)
		dissolved = dissolved.Difference(removal)
	}

	corrected := geom.Polygonal(dissolved)
	if corrected == nil {
		return fmt.Errorf("mask correction produced no polygonal area")
	}

	template := mask.Features[0].Attrs
	out := feature.NewSet(mask.CRS)
	for i := 0; i < geom.PartCount(corrected); i++ {
		part := corrected.Geometry(i)
		out.Append(&feature.Feature{
			DebugID: fmt.Sprintf("SM_%d", i),
			Geom:    part.Clone(),
			Attrs:   template.Clone(),
		})
	}
	log.Info().Int("features", out.Len()).Msg("corrected mask exploded to single parts")

	return r.writeOutput(log, out, r.stagePath(correctMaskDir, correctMaskOut))
}

// FillSediment subtracts the existing feature footprint from the corrected
// shallow mask and promotes the remaining areas to shallow sediment
// features, one per polygon part, appended to the dataset.
func (r *Runner) FillSediment() error {
	log := r.log.With().Str("stage", "fill-sediment").Logger()

	features, err := r.readInput(log, r.stagePath(clipRocksDir, clipRocksOut), "NW", r.cfg.TypeField)
	if err != nil {
		return err
	}
	mask, err := r.readInput(log, r.stagePath(correctMaskDir, correctMaskOut), "SM")
	if err != nil {
		return err
	}

	footprint := reconcile.Footprint(features)
	gaps, stats := reconcile.Clip(mask, footprint, r.cfg.Thresholds.Sliver, r.cfg.TypeField)
	log.Info().Int("clipped", stats.Clipped).Int("dropped", len(stats.Dropped)).
		Msg("shallow mask clipped against feature footprint")

	out := feature.NewSet(features.CRS)
	for _, f := range features.Features {
		out.Append(f.Clone())
	}

	added := 0
	for _, gap := range gaps.Features {
		for i := 0; i < geom.PartCount(gap.Geom); i++ {
			part := gap.Geom.Geometry(i)
			nf := &feature.Feature{
				DebugID: fmt.Sprintf("SED_%d", added),
				Geom:    part.Clone(),
				Attrs:   r.cfg.SedimentDefaults.Clone(),
			}
			features.Conform(nf)
			out.Append(nf)
			added++
		}
	}
	log.Info().Int("count", added).Msg("shallow sediment features added")
	r.summary.Add("sediment features added", added)

	return r.writeOutput(log, out, r.stagePath(fillSedimentDir, fillSedimentOut))
}

// ClipLand removes land areas from every feature using the dissolved
// coastline. Features entirely on land are dropped.
func (r *Runner) ClipLand() error {
	log := r.log.With().Str("stage", "clip-land").Logger()

	features, err := r.readInput(log, r.stagePath(fillSedimentDir, fillSedimentOut), "NW", r.cfg.TypeField)
	if err != nil {
		return err
	}
	coastline, err := r.readInput(log, r.cfg.CoastlinePath, "CL")
	if err != nil {
		return err
	}

	log.Info().Int("features", coastline.Len()).Msg("dissolving coastline for clipping")
	landMask := reconcile.Footprint(coastline)

	clipped, stats := reconcile.Clip(features, landMask, r.cfg.Thresholds.Sliver, r.cfg.TypeField)
	log.Info().Int("clipped", stats.Clipped).Msg("features clipped against coastline")
	for _, rm := range stats.Dropped {
		log.Warn().Str("feature", rm.DebugID).Str("type", rm.Type).Msg("feature entirely on land, removed")
	}
	r.summary.Add("features removed on land", len(stats.Dropped))

	return r.writeOutput(log, clipped, r.stagePath(clipLandDir, clipLandOut))
}

// Reclassify migrates the land-clipped dataset to the revised
// classification. The lookup table rewrites the class name, populates the
// Attachment attribute, and the attribute set shrinks to the revised
// schema. Classes missing from the table are warned about and keep their
// old name with a null Attachment.
func (r *Runner) Reclassify() error {
	log := r.log.With().Str("stage", "reclassify").Logger()

	set, err := r.readInput(log, r.stagePath(clipLandDir, clipLandOut), "NW", r.cfg.SourceTypeField)
	if err != nil {
		return err
	}

	table, err := crosswalk.LoadLUT(r.cfg.LookupTablePath)
	if err != nil {
		return err
	}
	log.Info().Str("path", r.cfg.LookupTablePath).Int("classes", table.Len()).Msg("loaded lookup table")

	unknown := table.Apply(set, r.cfg.SourceTypeField)
	if unknown > 0 {
		for class, n := range table.Misses() {
			log.Warn().Str("class", class).Int("count", n).Msg("class not in lookup table")
		}
		r.summary.Add("features with unmapped class", unknown)
	}

	for _, f := range set.Features {
		trimmed := make(feature.Attributes, len(crosswalk.V04Columns))
		for _, col := range crosswalk.V04Columns {
			if v, ok := f.Attrs[col]; ok {
				trimmed[col] = v
			} else {
				trimmed[col] = nil
			}
		}
		f.Attrs = trimmed
	}

	return r.writeOutput(log, set, r.stagePath(reclassifyDir, reclassifyOut))
}

// ReclipLand repeats the coastline clip against the reclassified dataset.
// It reads whatever sits in the reclassify output slot, so a manually
// reviewed file can be swapped in before running it.
func (r *Runner) ReclipLand() error {
	log := r.log.With().Str("stage", "reclip-land").Logger()

	features, err := r.readInput(log, r.stagePath(reclassifyDir, reclassifyOut), "NW", r.cfg.SourceTypeField)
	if err != nil {
		return err
	}
	coastline, err := r.readInput(log, r.cfg.CoastlinePath, "CL")
	if err != nil {
		return err
	}

	log.Info().Int("features", coastline.Len()).Msg("dissolving coastline for clipping")
	landMask := reconcile.Footprint(coastline)

	clipped, stats := reconcile.Clip(features, landMask, r.cfg.Thresholds.Sliver, r.cfg.SourceTypeField)
	log.Info().Int("clipped", stats.Clipped).Msg("reclassified features clipped against coastline")
	for _, rm := range stats.Dropped {
		log.Warn().Str("feature", rm.DebugID).Str("type", rm.Type).Msg("feature entirely on land, removed")
	}
	r.summary.Add("features removed on land", len(stats.Dropped))

	return r.writeOutput(log, clipped, r.stagePath(reclipLandDir, reclipLandOut))
}
