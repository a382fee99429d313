package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/reefworks/reefmap/internal/feature"
	"github.com/reefworks/reefmap/internal/reconcile"
)

// Default thresholds in squared CRS units (degrees for EPSG:4326).
const (
	// DefaultCutThreshold separates real overlaps from digitisation noise
	// when deciding whether a cut happens.
	DefaultCutThreshold = 0.0005

	// DefaultVerifyThreshold is the stricter threshold used by the
	// post-resolution verification scan.
	DefaultVerifyThreshold = 0.0001
)

// Thresholds holds the geometric tolerances of a run.
type Thresholds struct {
	// Cut triggers overlay cuts above this intersection area.
	Cut float64
	// Verify reports residual overlaps above this intersection area.
	Verify float64
	// Sliver drops clip remainders at or below this area.
	Sliver float64
	// Simplify and Fuzz are reserved for validation-location sampling.
	// They are part of the config surface but no stage consumes them yet.
	Simplify float64
	Fuzz     float64
}

// Config holds every tunable of a pipeline run.
type Config struct {
	// DownloadPath is the cache directory for third-party datasets.
	DownloadPath string
	// WorkingDir holds per-stage outputs (WorkingDir/02, WorkingDir/03, ...).
	WorkingDir string

	// InputPath is the manually reviewed reef boundary collection.
	InputPath string
	// MaskCorrectionPath holds manual Add/Remove corrections for the
	// shallow mask.
	MaskCorrectionPath string
	// ShallowMaskPath is the semi-automated shallow marine mask.
	ShallowMaskPath string
	// RockyReefsPath is the semi-automated rocky reef layer.
	RockyReefsPath string
	// CoastlinePath is the high-resolution coastline used for land
	// clipping.
	CoastlinePath string
	// LookupTablePath is the CSV mapping v0-3 classes to the revised
	// classification and its Attachment attribute.
	LookupTablePath string

	// SourceTypeField is the classification attribute of the source data.
	SourceTypeField string
	// TypeField is the classification attribute after the crosswalk.
	TypeField string

	// CleanPriority orders source types for the initial overlap clean.
	// Types in earlier tiers cut types in later tiers; unlisted types are
	// exempt.
	CleanPriority [][]string
	// RockPriority orders curated types for the rock clipping pass.
	RockPriority [][]string

	Thresholds Thresholds

	// RockyDefaults is the attribute template for rocky reef features
	// promoted from the semi-automated layer.
	RockyDefaults feature.Attributes
	// SedimentDefaults is the attribute template for gap-fill shallow
	// sediment features.
	SedimentDefaults feature.Attributes
}

// DefaultConfig returns the standard northern Australia run configuration.
func DefaultConfig() Config {
	cfg := Config{
		DownloadPath: "data-cache",
		WorkingDir:   "working",

		InputPath:          filepath.Join("data", "in", "reef-boundaries-review.geojson"),
		MaskCorrectionPath: filepath.Join("data", "in", "shallow-mask-correction.geojson"),
		LookupTablePath:    filepath.Join("data", "v0-4", "in", "RB_Type_L3_v0-3_to_v0-4_crosswalk.csv"),

		SourceTypeField: "RB_Type_L3",
		TypeField:       "Feat_L3",

		CleanPriority: [][]string{
			{"High Intertidal Coral Reef"},
			{"Platform Coral Reef", "Fringing Coral Reef"},
		},
		RockPriority: [][]string{
			{"Rocky Reef"},
			{reconcile.Wildcard},
		},

		Thresholds: Thresholds{
			Cut:      DefaultCutThreshold,
			Verify:   DefaultVerifyThreshold,
			Sliver:   0,
			Simplify: 0.0001,
			Fuzz:     0.001,
		},

		RockyDefaults: feature.Attributes{
			"EdgeSrc":    "Semi-auto rocky reef",
			"Notes":      nil,
			"FeatConf":   "Medium",
			"TypeConf":   "Medium",
			"EdgeAcc_m":  int64(40),
			"RB_Type_L3": "Fringing Rocky Reef",
			"DepthCat":   "Very Shallow",
			"DepthCatSr": "S2 Infrared",
			"Feat_L3":    "Rocky Reef",
			"GeoAttach":  "Fringing",
			"Relief":     "Low",
			"FlowInflu":  "None",
			"SO_L2":      "Terrigenous",
			"Paleo":      "No",
		},
		SedimentDefaults: feature.Attributes{
			"EdgeSrc":    "Semi-auto shallow mask",
			"Notes":      nil,
			"FeatConf":   "Medium",
			"TypeConf":   "Medium",
			"EdgeAcc_m":  int64(250),
			"RB_Type_L3": "Shallow sediment",
			"DepthCat":   nil,
			"DepthCatSr": nil,
			"Feat_L3":    "Shallow Sediment",
			"GeoAttach":  "Fringing",
			"Relief":     "Low",
			"FlowInflu":  "Unknown",
			"SO_L2":      "Terrigenous",
			"Paleo":      "No",
		},
	}
	cfg.applyDataPaths()
	return cfg
}

// applyDataPaths derives the third-party dataset locations from the
// download cache layout.
func (c *Config) applyDataPaths() {
	c.ShallowMaskPath = filepath.Join(c.DownloadPath, "AU_AIMS_Shallow-mask",
		"AU_NESP-MaC-3-17_AIMS_Shallow-mask_Low-VLow_V1-1.geojson")
	c.RockyReefsPath = filepath.Join(c.DownloadPath, "AU_AIMS_Rocky-reefs",
		"AU_NESP-MaC-3-17_AIMS_Rocky-reefs_V1.geojson")
	c.CoastlinePath = filepath.Join(c.DownloadPath, "AU_AIMS_Coastline_50k_2024", "Split",
		"AU_NESP-MaC-3-17_AIMS_Aus-Coastline-50k_2024_V1-1_split.geojson")
}

// fileConfig maps config.toml keys onto run settings.
type fileConfig struct {
	DownloadPath       string                    `toml:"download_path"`
	WorkingDir         string                    `toml:"working_dir"`
	InputPath          string                    `toml:"input_path"`
	MaskCorrectionPath string                    `toml:"mask_correction_path"`
	ShallowMaskPath    string                    `toml:"shallow_mask_path"`
	RockyReefsPath     string                    `toml:"rocky_reefs_path"`
	CoastlinePath      string                    `toml:"coastline_path"`
	LookupTablePath    string                    `toml:"lookup_table_path"`
	SourceTypeField    string                    `toml:"source_type_field"`
	TypeField          string                    `toml:"type_field"`
	CleanPriority      [][]string                `toml:"clean_priority"`
	RockPriority       [][]string                `toml:"rock_priority"`
	CutThreshold       float64                   `toml:"cut_threshold"`
	VerifyThreshold    float64                   `toml:"verify_threshold"`
	SliverThreshold    float64                   `toml:"sliver_threshold"`
	SimplifyTolerance  float64                   `toml:"simplify_tolerance"`
	FuzzDistance       float64                   `toml:"fuzz_distance"`
	Defaults           map[string]map[string]any `toml:"defaults"`
}

// LoadConfig reads a TOML config file and overlays it onto the defaults.
// Only keys present in the file override; everything else keeps its default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load pipeline config: %w", err)
	}

	if meta.IsDefined("download_path") {
		cfg.DownloadPath = strings.TrimSpace(raw.DownloadPath)
		// dataset paths follow the cache unless individually overridden
		cfg.applyDataPaths()
	}
	if meta.IsDefined("working_dir") {
		cfg.WorkingDir = strings.TrimSpace(raw.WorkingDir)
	}
	if meta.IsDefined("input_path") {
		cfg.InputPath = strings.TrimSpace(raw.InputPath)
	}
	if meta.IsDefined("mask_correction_path") {
		cfg.MaskCorrectionPath = strings.TrimSpace(raw.MaskCorrectionPath)
	}
	if meta.IsDefined("shallow_mask_path") {
		cfg.ShallowMaskPath = strings.TrimSpace(raw.ShallowMaskPath)
	}
	if meta.IsDefined("rocky_reefs_path") {
		cfg.RockyReefsPath = strings.TrimSpace(raw.RockyReefsPath)
	}
	if meta.IsDefined("coastline_path") {
		cfg.CoastlinePath = strings.TrimSpace(raw.CoastlinePath)
	}
	if meta.IsDefined("lookup_table_path") {
		cfg.LookupTablePath = strings.TrimSpace(raw.LookupTablePath)
	}
	if meta.IsDefined("source_type_field") {
		cfg.SourceTypeField = strings.TrimSpace(raw.SourceTypeField)
	}
	if meta.IsDefined("type_field") {
		cfg.TypeField = strings.TrimSpace(raw.TypeField)
	}
	if meta.IsDefined("clean_priority") {
		cfg.CleanPriority = raw.CleanPriority
	}
	if meta.IsDefined("rock_priority") {
		cfg.RockPriority = raw.RockPriority
	}
	if meta.IsDefined("cut_threshold") {
		cfg.Thresholds.Cut = raw.CutThreshold
	}
	if meta.IsDefined("verify_threshold") {
		cfg.Thresholds.Verify = raw.VerifyThreshold
	}
	if meta.IsDefined("sliver_threshold") {
		cfg.Thresholds.Sliver = raw.SliverThreshold
	}
	if meta.IsDefined("simplify_tolerance") {
		cfg.Thresholds.Simplify = raw.SimplifyTolerance
	}
	if meta.IsDefined("fuzz_distance") {
		cfg.Thresholds.Fuzz = raw.FuzzDistance
	}
	if meta.IsDefined("defaults", "rocky_reef") {
		cfg.RockyDefaults = overlayDefaults(cfg.RockyDefaults, raw.Defaults["rocky_reef"])
	}
	if meta.IsDefined("defaults", "shallow_sediment") {
		cfg.SedimentDefaults = overlayDefaults(cfg.SedimentDefaults, raw.Defaults["shallow_sediment"])
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlayDefaults(base feature.Attributes, over map[string]any) feature.Attributes {
	out := base.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

func (c *Config) validate() error {
	if c.Thresholds.Cut <= 0 {
		return fmt.Errorf("pipeline config: cut_threshold must be positive, got %v", c.Thresholds.Cut)
	}
	if c.Thresholds.Verify <= 0 {
		return fmt.Errorf("pipeline config: verify_threshold must be positive, got %v", c.Thresholds.Verify)
	}
	if c.Thresholds.Sliver < 0 {
		return fmt.Errorf("pipeline config: sliver_threshold must not be negative, got %v", c.Thresholds.Sliver)
	}
	if len(c.CleanPriority) == 0 || len(c.RockPriority) == 0 {
		return fmt.Errorf("pipeline config: priority tiers must not be empty")
	}
	return nil
}
