// cmd/check.go - Data-quality check command
package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"parceldash/internal/config"
	"parceldash/internal/layer"
	"parceldash/internal/output"
	"parceldash/internal/pipeline"
	"parceldash/pkg/overlay"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run data-quality checks on a parcel layer",
	Long: `Build the parcel layer from a GeoJSON source and report on its health:
row count, coordinate reference, bounding box, missing and duplicate parcel
ids, and geometry validity. The report is written both as JSON (for
machines) and Markdown (for humans).

The check never fails on bad data; problems the pipeline would reject
fatally are counted and reported instead.

Examples:
  parceldash check --parcels parcels.geojson
  parceldash check --parcels parcels.geojson.gz -o data/processed`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().String("parcels", "", "parcel layer GeoJSON file")
	checkCmd.MarkFlagRequired("parcels")
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	fc, err := layer.ReadFeatureCollection(parcelsPath)
	if err != nil {
		return err
	}
	parcels, err := layer.NewBuilder(cfg, logger).BuildParcels(fc)
	if err != nil {
		return err
	}
	parcels, err = overlay.EnsureCRS(parcels, cfg.GeographicCRS())
	if err != nil {
		return err
	}

	report := overlay.BuildQualityReport(datasetName(parcelsPath), parcels, logger)

	data, err := output.FormatQualityJSON(report)
	if err != nil {
		return err
	}
	if err := output.WriteFile(filepath.Join(cfg.Output.Directory, pipeline.QualityJSONFile), data); err != nil {
		return err
	}
	return output.WriteFile(filepath.Join(cfg.Output.Directory, pipeline.QualityMarkdownFile),
		output.FormatQualityMarkdown(report))
}

// datasetName derives a report label from the source file name
func datasetName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".gz")
	return strings.TrimSuffix(name, filepath.Ext(name))
}
