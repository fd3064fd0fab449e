// cmd/rollup.go - Standalone rollup command
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"parceldash/internal/config"
	"parceldash/internal/layer"
	"parceldash/internal/output"
	"parceldash/internal/pipeline"
	"parceldash/pkg/overlay"
)

// rollupCmd represents the rollup command
var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Recompute per-code rollups from previously written outputs",
	Long: `Recompute the per-zoning-code summary table from an existing one-to-one
mapping and dissolved category layer. Rollups are always recomputed from
scratch, never updated in place.

Examples:
  parceldash rollup --resolved data/processed/parcels_with_zoning_1to1.geojson \
    --dissolved data/processed/zoning_dissolved.geojson`,
	RunE: runRollup,
}

func init() {
	rootCmd.AddCommand(rollupCmd)

	rollupCmd.Flags().String("resolved", "", "resolved one-to-one mapping GeoJSON file")
	rollupCmd.Flags().String("dissolved", "", "dissolved zoning GeoJSON file")

	rollupCmd.MarkFlagRequired("resolved")
	rollupCmd.MarkFlagRequired("dissolved")
}

func runRollup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(cfg.Logging.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	resolvedPath, _ := cmd.Flags().GetString("resolved")
	dissolvedPath, _ := cmd.Flags().GetString("dissolved")

	resolved, err := layer.ReadResolved(resolvedPath)
	if err != nil {
		return err
	}
	dissolved, err := layer.ReadDissolved(dissolvedPath)
	if err != nil {
		return err
	}

	rollups, err := overlay.Rollup(resolved, dissolved, overlay.RollupOptions{
		Source:              cfg.GeographicCRS(),
		Projected:           cfg.ProjectedCRS(),
		SquareMetersPerUnit: cfg.Area.SquareMetersPerUnit,
		Logger:              logger,
	})
	if err != nil {
		return fmt.Errorf("rollup failed: %w", err)
	}

	data, err := output.FormatCSV(pipeline.RollupTable(rollups, cfg.Area.Unit))
	if err != nil {
		return err
	}
	return output.WriteFile(filepath.Join(cfg.Output.Directory, pipeline.RollupsFile), data)
}
