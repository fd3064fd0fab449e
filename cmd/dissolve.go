// cmd/dissolve.go - Standalone dissolve command
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

// dissolveCmd represents the dissolve command
var dissolveCmd = &cobra.Command{
	Use:   "dissolve",
	Short: "Dissolve zoning polygons into one polygon per zoning code",
	Long: `Union all zoning polygons sharing a zoning code into a single (possibly
multi-part) polygon per code. Geometry is repaired and reprojected into the
projected reference before the union, and the result comes back in the
canonical geographic reference.

Examples:
  parceldash dissolve --zoning zoning.geojson
  parceldash dissolve --zoning zoning.geojson --jurisdiction 5 --jurisdiction 12`,
	RunE: runDissolve,
}

func init() {
	rootCmd.AddCommand(dissolveCmd)

	dissolveCmd.Flags().String("zoning", "", "zoning layer GeoJSON file")
	dissolveCmd.Flags().IntSlice("jurisdiction", nil, "restrict to these jurisdiction keys (repeatable)")

	dissolveCmd.MarkFlagRequired("zoning")
}

func runDissolve(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(cfg.Logging.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	zoningPath, _ := cmd.Flags().GetString("zoning")
	jurisdictions, _ := cmd.Flags().GetIntSlice("jurisdiction")

	fc, err := layer.ReadFeatureCollection(zoningPath)
	if err != nil {
		return err
	}
	zoning, err := layer.NewBuilder(cfg, logger).BuildZoning(fc)
	if err != nil {
		return err
	}
	zoning, err = overlay.EnsureCRS(zoning, cfg.GeographicCRS())
	if err != nil {
		return err
	}

	keep := make(map[int]bool, len(jurisdictions))
	for _, j := range jurisdictions {
		keep[j] = true
	}
	dissolved, err := overlay.Dissolve(zoning.FilterJurisdiction(keep), overlay.DissolveOptions{
		Geographic: cfg.GeographicCRS(),
		Projected:  cfg.ProjectedCRS(),
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("dissolve failed: %w", err)
	}

	dissolvedFC, err := output.DissolvedFeatureCollection(dissolved)
	if err != nil {
		return err
	}
	data, err := output.FormatGeoJSON(dissolvedFC, cfg.Output.Pretty)
	if err != nil {
		return err
	}
	return output.WriteFile(filepath.Join(cfg.Output.Directory, pipeline.DissolvedFile), data)
}
