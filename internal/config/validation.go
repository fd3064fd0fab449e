// internal/config/validation.go - Configuration validation
package config

import (
	"fmt"
	"strings"
)

// Validate validates the configuration structure and values
func Validate(config *Config) error {
	if err := validateCRS(&config.CRS); err != nil {
		return fmt.Errorf("crs configuration invalid: %w", err)
	}

	if err := validateArea(&config.Area); err != nil {
		return fmt.Errorf("area configuration invalid: %w", err)
	}

	if err := validateColumns(&config.Columns); err != nil {
		return fmt.Errorf("columns configuration invalid: %w", err)
	}

	if err := validateResolver(&config.Resolver); err != nil {
		return fmt.Errorf("resolver configuration invalid: %w", err)
	}

	if err := validateOutput(&config.Output); err != nil {
		return fmt.Errorf("output configuration invalid: %w", err)
	}

	return nil
}

// validateCRS validates the coordinate-reference parameters
func validateCRS(config *CRSConfig) error {
	if config.GeographicEPSG <= 0 {
		return fmt.Errorf("geographic_epsg must be positive")
	}
	if config.ProjectedEPSG <= 0 {
		return fmt.Errorf("projected_epsg must be positive")
	}
	if strings.TrimSpace(config.GeographicDef) == "" {
		return fmt.Errorf("geographic_def is required")
	}
	if strings.TrimSpace(config.ProjectedDef) == "" {
		return fmt.Errorf("projected_def is required")
	}
	if config.GeographicEPSG == config.ProjectedEPSG {
		return fmt.Errorf("geographic and projected references must differ")
	}
	return nil
}

// validateArea validates the display-unit conversion
func validateArea(config *AreaConfig) error {
	if config.Unit == "" {
		return fmt.Errorf("unit is required")
	}
	if config.SquareMetersPerUnit <= 0 {
		return fmt.Errorf("square_meters_per_unit must be positive")
	}
	return nil
}

// validateColumns validates the column-candidate lists
func validateColumns(config *ColumnsConfig) error {
	if len(config.ParcelIDCandidates) == 0 && config.ParcelIDFallback == "" {
		return fmt.Errorf("at least one parcel id candidate or a fallback is required")
	}
	if config.ZoningCodeColumn == "" {
		return fmt.Errorf("zoning_code_column is required")
	}
	return nil
}

// validateResolver validates resolver tuning parameters
func validateResolver(config *ResolverConfig) error {
	if config.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}

// validateOutput validates output configuration parameters
func validateOutput(config *OutputConfig) error {
	if config.Directory == "" {
		return fmt.Errorf("directory is required")
	}
	return nil
}
