// internal/config/validation_test.go - Configuration validation tests
package config

import (
	"testing"
)

func validConfig() *Config {
	return &Config{
		CRS: CRSConfig{
			GeographicEPSG: 4326,
			GeographicDef:  "+proj=longlat +datum=WGS84 +no_defs",
			ProjectedEPSG:  26914,
			ProjectedDef:   "+proj=utm +zone=14 +datum=NAD83 +units=m +no_defs",
		},
		Area: AreaConfig{Unit: "acres", SquareMetersPerUnit: 4046.8564224},
		Columns: ColumnsConfig{
			ParcelIDCandidates: []string{"parcel_id"},
			ZoningCodeColumn:   "zoneclass",
		},
		Resolver: ResolverConfig{Workers: 4},
		Output:   OutputConfig{Directory: "data/processed"},
	}
}

func TestValidateValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("valid configuration rejected: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero geographic epsg", mutate: func(c *Config) { c.CRS.GeographicEPSG = 0 }},
		{name: "zero projected epsg", mutate: func(c *Config) { c.CRS.ProjectedEPSG = 0 }},
		{name: "blank geographic def", mutate: func(c *Config) { c.CRS.GeographicDef = "  " }},
		{name: "blank projected def", mutate: func(c *Config) { c.CRS.ProjectedDef = "" }},
		{name: "same reference twice", mutate: func(c *Config) { c.CRS.ProjectedEPSG = c.CRS.GeographicEPSG }},
		{name: "missing unit", mutate: func(c *Config) { c.Area.Unit = "" }},
		{name: "negative conversion", mutate: func(c *Config) { c.Area.SquareMetersPerUnit = -1 }},
		{name: "no parcel id source", mutate: func(c *Config) {
			c.Columns.ParcelIDCandidates = nil
			c.Columns.ParcelIDFallback = ""
		}},
		{name: "missing zoning code column", mutate: func(c *Config) { c.Columns.ZoningCodeColumn = "" }},
		{name: "zero workers", mutate: func(c *Config) { c.Resolver.Workers = 0 }},
		{name: "missing output directory", mutate: func(c *Config) { c.Output.Directory = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidateFallbackOnlyColumns(t *testing.T) {
	cfg := validConfig()
	cfg.Columns.ParcelIDCandidates = nil
	cfg.Columns.ParcelIDFallback = "objectid"
	if err := Validate(cfg); err != nil {
		t.Errorf("fallback-only parcel id source rejected: %v", err)
	}
}
