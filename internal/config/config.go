// internal/config/config.go - Configuration management
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"parceldash/pkg/overlay"
)

// Config represents the complete application configuration
type Config struct {
	CRS      CRSConfig      `mapstructure:"crs"`
	Area     AreaConfig     `mapstructure:"area"`
	Columns  ColumnsConfig  `mapstructure:"columns"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CRSConfig names the coordinate references the pipeline runs in. These are
// deployment-region-specific: the projected reference must be locally
// accurate for the study area (the default is UTM zone 14N, suitable for
// the Midwestern-US counties the pipeline was built for).
type CRSConfig struct {
	GeographicEPSG int    `mapstructure:"geographic_epsg"`
	GeographicDef  string `mapstructure:"geographic_def"`
	ProjectedEPSG  int    `mapstructure:"projected_epsg"`
	ProjectedDef   string `mapstructure:"projected_def"`
}

// AreaConfig selects the display unit for area statistics. The conversion
// is a fixed exact constant, supplied here rather than derived in the core.
type AreaConfig struct {
	Unit                string  `mapstructure:"unit"`
	SquareMetersPerUnit float64 `mapstructure:"square_meters_per_unit"`
}

// ColumnsConfig lists candidate source-column names, checked in priority
// order, for locating identifiers in heterogeneous upstream schemas.
type ColumnsConfig struct {
	ParcelIDCandidates []string `mapstructure:"parcel_id_candidates"`
	ParcelIDFallback   string   `mapstructure:"parcel_id_fallback"`
	ZoningCodeColumn   string   `mapstructure:"zoning_code_column"`
	ZoningDescColumn   string   `mapstructure:"zoning_desc_column"`
	JurisdictionColumn string   `mapstructure:"jurisdiction_column"`
	LabelCandidates    []string `mapstructure:"label_candidates"`
}

// ResolverConfig contains overlap-resolver tuning
type ResolverConfig struct {
	Workers int `mapstructure:"workers"`
}

// OutputConfig contains output destination configuration
type OutputConfig struct {
	Directory string `mapstructure:"directory"`
	Pretty    bool   `mapstructure:"pretty"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Verbose bool `mapstructure:"verbose"`
}

// LoadConfig loads the configuration from viper (config file, environment,
// and bound flags), applying defaults for anything unset.
func LoadConfig() (*Config, error) {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults applies default configuration values
func setDefaults() {
	viper.SetDefault("crs.geographic_epsg", 4326)
	viper.SetDefault("crs.geographic_def", "+proj=longlat +datum=WGS84 +no_defs")
	viper.SetDefault("crs.projected_epsg", 26914)
	viper.SetDefault("crs.projected_def", "+proj=utm +zone=14 +datum=NAD83 +units=m +no_defs")

	// 1 acre = 43560 ft^2 at exactly 0.3048 m per foot = 4046.8564224 m^2.
	viper.SetDefault("area.unit", "acres")
	viper.SetDefault("area.square_meters_per_unit", 4046.8564224)

	viper.SetDefault("columns.parcel_id_candidates",
		[]string{"parcel_id", "parid", "par_id", "pin", "parcelno", "parcel_no"})
	viper.SetDefault("columns.parcel_id_fallback", "objectid")
	viper.SetDefault("columns.zoning_code_column", "zoneclass")
	viper.SetDefault("columns.zoning_desc_column", "zonedesc")
	viper.SetDefault("columns.jurisdiction_column", "jurisdiction")
	viper.SetDefault("columns.label_candidates",
		[]string{"zoning_code", "zone", "zoning", "district", "name", "dist", "descr", "description"})

	viper.SetDefault("resolver.workers", 4)

	viper.SetDefault("output.directory", "data/processed")
	viper.SetDefault("output.pretty", false)

	viper.SetDefault("logging.verbose", false)
}

// GeographicCRS returns the canonical geographic reference as the overlay
// package consumes it.
func (c *Config) GeographicCRS() overlay.CRS {
	return overlay.CRS{EPSG: c.CRS.GeographicEPSG, Def: c.CRS.GeographicDef}
}

// ProjectedCRS returns the locally accurate projected reference.
func (c *Config) ProjectedCRS() overlay.CRS {
	return overlay.CRS{EPSG: c.CRS.ProjectedEPSG, Def: c.CRS.ProjectedDef}
}
