// cmd/root.go - Root command implementation
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "parceldash",
	Short: "Resolve parcel/zoning overlaps and build zoning rollups",
	Long: `Parceldash processes a county's parcel and zoning polygon layers into a
clean one-to-one parcel-to-zoning mapping plus per-category summaries.

It repairs invalid polygons, spatially joins parcels to zoning districts,
resolves boundary overlaps by largest intersection area (with a deterministic
tie-break), dissolves districts into one polygon per zoning code, and rolls
the result up into per-code counts and area statistics.

Examples:
  # Run the full pipeline
  parceldash pipeline --parcels parcels.geojson --zoning zoning.geojson --out-dir data/processed

  # Dissolve zoning polygons only, scoped to two jurisdictions
  parceldash dissolve --zoning zoning.geojson --jurisdiction 5 --jurisdiction 12

  # Recompute rollups from previously written outputs
  parceldash rollup --resolved data/processed/parcels_with_zoning_1to1.geojson \
    --dissolved data/processed/zoning_dissolved.geojson

  # Use configuration file
  parceldash pipeline --config parceldash.yaml --parcels parcels.geojson --zoning zoning.geojson`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.parceldash.yaml)")

	// Coordinate reference flags
	rootCmd.PersistentFlags().Int("geographic-epsg", 4326, "canonical geographic reference (EPSG code)")
	rootCmd.PersistentFlags().Int("projected-epsg", 26914, "locally accurate projected reference (EPSG code)")
	rootCmd.PersistentFlags().String("projected-def", "", "proj definition of the projected reference")

	// Output flags
	rootCmd.PersistentFlags().StringP("out-dir", "o", "data/processed", "output directory")
	rootCmd.PersistentFlags().Bool("pretty", false, "pretty print GeoJSON output")

	// Processing flags
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")
	rootCmd.PersistentFlags().Int("workers", 4, "resolver worker count")

	// Bind flags to viper
	viper.BindPFlag("crs.geographic_epsg", rootCmd.PersistentFlags().Lookup("geographic-epsg"))
	viper.BindPFlag("crs.projected_epsg", rootCmd.PersistentFlags().Lookup("projected-epsg"))
	viper.BindPFlag("crs.projected_def", rootCmd.PersistentFlags().Lookup("projected-def"))
	viper.BindPFlag("output.directory", rootCmd.PersistentFlags().Lookup("out-dir"))
	viper.BindPFlag("output.pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.BindPFlag("logging.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("resolver.workers", rootCmd.PersistentFlags().Lookup("workers"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".parceldash" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".parceldash")
	}

	// Environment variables
	viper.SetEnvPrefix("PARCELDASH")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("logging.verbose") {
			rootCmd.PrintErrln("Using config file:", viper.ConfigFileUsed())
		}
	}
}

// newLogger builds the run logger from the logging configuration
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
