package crosswalk

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/reefworks/reefmap/internal/feature"
)

// V04Columns is the attribute schema written by the reclassification
// stage. The revised classification folds the descriptive v0-3 attributes
// into the class name, leaving Attachment as the only standalone quality.
var V04Columns = []string{
	"EdgeSrc", "FeatConf", "TypeConf", "EdgeAcc_m",
	"DepthCat", "DepthCatSr", "RB_Type_L3", "Attachment",
}

// LUT header columns for a reclassification lookup table.
const (
	lutSourceColumn     = "RB_Type_L3_v0-3"
	lutTargetColumn     = "RB_Type_L3_v0-4"
	lutAttachmentColumn = "Attachment"
)

// LoadLUT reads a reclassification lookup table from a CSV file.
//
// The table must carry the source class, target class, and attachment
// columns. A source cell may list several classes separated by semicolons;
// each maps to the same target. Rows with an empty source are target-only
// classes and are skipped. Duplicate source classes across rows are fatal.
func LoadLUT(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lookup table: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse lookup table %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("lookup table %s is empty", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{lutSourceColumn, lutTargetColumn, lutAttachmentColumn} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("lookup table %s missing column %q", path, required)
		}
	}

	t := New(path)
	for _, row := range rows[1:] {
		source := strings.TrimSpace(row[col[lutSourceColumn]])
		if source == "" {
			continue
		}
		attrs := feature.Attributes{
			"RB_Type_L3": strings.TrimSpace(row[col[lutTargetColumn]]),
			"Attachment": strings.TrimSpace(row[col[lutAttachmentColumn]]),
		}
		for _, class := range strings.Split(source, ";") {
			class = strings.TrimSpace(class)
			if class == "" {
				continue
			}
			if err := t.Register(class, attrs.Clone()); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}
