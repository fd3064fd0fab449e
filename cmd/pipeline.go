// cmd/pipeline.go - Full pipeline command
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"parceldash/internal/config"
	"parceldash/internal/pipeline"
)

// pipelineCmd represents the pipeline command
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the full parcel/zoning pipeline",
	Long: `Run every stage in order: repair the zoning layer, spatially join parcels
to zoning districts, resolve overlaps to a one-to-one mapping, dissolve the
districts by zoning code, and compute per-code rollups.

Outputs are written to the output directory, each file only after its stage
completed in full:
  parcels_with_zoning_1to1.geojson  one row per parcel, zoning_code attached
  zoning_dissolved.geojson          one polygon per zoning code
  zoning_rollups.csv                per-code counts and area statistics
  zoning_lookup.csv                 zoning id to display name

Examples:
  parceldash pipeline --parcels parcels.geojson --zoning zoning.geojson
  parceldash pipeline --parcels parcels.geojson --zoning zoning.geojson --jurisdiction 5`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(pipelineCmd)

	pipelineCmd.Flags().String("parcels", "", "parcel layer GeoJSON file")
	pipelineCmd.Flags().String("zoning", "", "zoning layer GeoJSON file")
	pipelineCmd.Flags().IntSlice("jurisdiction", nil, "restrict dissolve and rollups to these jurisdiction keys (repeatable)")

	pipelineCmd.MarkFlagRequired("parcels")
	pipelineCmd.MarkFlagRequired("zoning")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(cfg.Logging.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	parcelsPath, _ := cmd.Flags().GetString("parcels")
	zoningPath, _ := cmd.Flags().GetString("zoning")
	jurisdictions, _ := cmd.Flags().GetIntSlice("jurisdiction")

	runner := pipeline.NewRunner(cfg, logger)
	if err := runner.Run(parcelsPath, zoningPath, jurisdictions); err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	return nil
}
