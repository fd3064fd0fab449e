// internal/pipeline/types.go - Pipeline artifact types
package pipeline

import (
	"parceldash/internal/layer"
	"parceldash/pkg/overlay"
)

// Artifacts holds everything a pipeline run produces, in memory, before any
// of it is written out.
type Artifacts struct {
	Resolved     []overlay.Resolved
	Dissolved    []overlay.DissolvedCategory
	Rollups      []overlay.RollupRecord
	Lookup       []layer.LookupRow
	RepairReport *overlay.RepairReport
}

// Output file names, relative to the configured output directory.
const (
	ResolvedFile        = "parcels_with_zoning_1to1.geojson"
	DissolvedFile       = "zoning_dissolved.geojson"
	RollupsFile         = "zoning_rollups.csv"
	LookupFile          = "zoning_lookup.csv"
	QualityJSONFile     = "data_quality_report_parcels.json"
	QualityMarkdownFile = "data_quality_report_parcels.md"
)
