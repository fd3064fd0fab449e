// internal/layer/types.go - Source layer types
package layer

// LookupRow is one row of the zoning id to display-name lookup table.
type LookupRow struct {
	ZoningID string
	Name     string
}
