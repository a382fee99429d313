package crosswalk

import "github.com/reefworks/reefmap/internal/feature"

// V03Renames maps legacy source column names to the curated schema.
var V03Renames = map[string]string{
	"ImgSrc":  "EdgeSrc",
	"Edg_acc": "EdgeAcc_m",
}

// V03Columns is the curated attribute order written by the crosswalk stage.
var V03Columns = []string{
	"EdgeSrc", "Notes", "FeatConf", "TypeConf", "EdgeAcc_m",
	"RB_Type_L3", "DepthCat", "DepthCatSr",
	"Feat_L3", "GeoAttach", "Relief", "FlowInflu", "SO_L2", "Paleo",
}

// V03 builds the v0-3 classification table translating RB_Type_L3 values
// into the curated attribute schema.
func V03() (*Table, error) {
	t := New("v0-3")
	type row struct {
		class     string
		featL3    string
		geoAttach string
		relief    any
		flowInflu string
		soL2      string
		paleo     string
	}
	rows := []row{
		// Coral reefs
		{"Platform Coral Reef", "Coral Reef Shallow", "Isolated", "High", "No", "Carbonate", "No"},
		{"Deep Platform Coral Reef", "Coral Reef Deep", "Isolated", nil, "No", "Carbonate", "No"},
		{"Fringing Coral Reef", "Coral Reef Shallow", "Fringing", "High", "No", "Carbonate", "No"},
		{"High Intertidal Coral Reef", "High Intertidal Coral Reef", "Fringing", "High", "No", "Carbonate", "No"},
		{"Fringing Shallow Reef Flat", "Reef Flat Shallow", "Fringing", "Low", "No", "Carbonate", "No"},
		{"Platform Shallow Reef Flat", "Reef Flat Shallow", "Isolated", "Low", "No", "Carbonate", "No"},

		// Stromatolite
		{"Stromatolite Reef", "Stromatolite Reef", "Fringing", "Low", "No", "Carbonate", "No"},

		// Rocky reefs
		{"Platform Rocky Reef", "Rocky Reef", "Isolated", "High", "No", "Terrigenous", "No"},
		{"Fringing Rocky Reef", "Rocky Reef", "Fringing", "High", "No", "Terrigenous", "No"},
		{"Low Relief Rocky Reef", "Rocky Reef", "Isolated", "Low", "No", "Terrigenous", "No"},
		{"Fringing Paleo Coast Rocky Reef", "Rocky Reef", "Isolated", "High", "No", "Terrigenous", "Yes"},
		{"Paleo Coast Rocky Reef", "Rocky Reef", "Isolated", "High", "No", "Terrigenous", "Yes"},

		// Soft sediment
		{"Shallow Sediment", "Shallow Sediment", "Fringing", "NA", "No", "Terrigenous", "No"},
		{"Sand Bank", "Sand Bank", "Isolated", "Medium", "No", "Terrigenous", "No"},

		// Atoll coral reefs
		{"Atoll Shallow Patch Coral Reef", "Coral Reef Shallow", "Atoll Lagoon", "High", "No", "Carbonate", "No"},
		{"Atoll Deep Patch Coral Reef", "Coral Reef Deep", "Atoll Lagoon", "Medium", "No", "Carbonate", "No"},
		{"Atoll Shallow Rim Coral Reef", "Coral Reef Shallow", "Atoll Rim", "High", "No", "Carbonate", "No"},
		{"Atoll Shallow Flow Coral Reef", "Coral Reef Shallow", "Atoll Rim", "Medium", "Yes", "Carbonate", "No"},
		{"Atoll Deep Flow Coral Reef", "Coral Reef Deep", "Atoll Rim", "Medium", "Yes", "Carbonate", "No"},
		{"Atoll Shallow Platform Coral Reef", "Coral Reef Shallow", "Atoll Platform", "High", "No", "Carbonate", "No"},
		{"Atoll Deep Platform Coral Reef", "Coral Reef Deep", "Atoll Platform", "Medium", "No", "Carbonate", "No"},
		{"Atoll Platform", "Atoll Platform", "Atoll Platform", "High", "No", "Carbonate", "No"},

		// Islands and cays
		{"Vegetated Cay", "Cay Vegetated", "Land", "Medium", "No", "Carbonate", "No"},
		{"Unvegetated Cay", "Cay Unvegetated", "Land", "Medium", "No", "Carbonate", "No"},
		{"Island", "Island", "Land", "High", "No", "Terrigenous", "No"},
		{"Mainland", "Mainland", "Land", "High", "No", "Terrigenous", "No"},
		{"Man Made", "Artificial Structure", "Isolated", "High", "No", "NA", "No"},
	}
	for _, r := range rows {
		attrs := feature.Attributes{
			"Feat_L3":   r.featL3,
			"GeoAttach": r.geoAttach,
			"Relief":    r.relief,
			"FlowInflu": r.flowInflu,
			"SO_L2":     r.soL2,
			"Paleo":     r.paleo,
		}
		if err := t.Register(r.class, attrs); err != nil {
			return nil, err
		}
	}
	return t, nil
}
