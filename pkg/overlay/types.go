// pkg/overlay/types.go - Core types for parcel/zoning overlay processing
package overlay

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-geos"
)

// CRS identifies a coordinate reference system by EPSG code together with
// its proj definition string. The definition is what gets parsed; the code
// is carried for tagging and equality checks.
type CRS struct {
	EPSG int
	Def  string
}

// IsZero reports whether the CRS is untagged.
func (c CRS) IsZero() bool {
	return c.EPSG == 0 && c.Def == ""
}

func (c CRS) String() string {
	return fmt.Sprintf("EPSG:%d", c.EPSG)
}

// Feature is one polygon record in a layer. Parcels carry ID; zoning
// districts carry ID plus CategoryCode (and optionally CategoryDesc and
// Jurisdiction). Geom may be a Polygon or MultiPolygon.
type Feature struct {
	ID           string
	CategoryCode string
	CategoryDesc string
	Jurisdiction *int
	Geom         *geos.Geom
}

// Layer is a row-oriented polygon table tagged with its CRS. Layers are
// value snapshots: no operation in this package mutates an input layer's
// features or geometries in place.
type Layer struct {
	CRS      CRS
	Features []Feature
}

// FilterJurisdiction returns a new layer containing only features whose
// jurisdiction key is in keep. Features without a jurisdiction are excluded.
// An empty keep set returns the layer unchanged.
func (l *Layer) FilterJurisdiction(keep map[int]bool) *Layer {
	if len(keep) == 0 {
		return l
	}
	out := &Layer{CRS: l.CRS}
	for _, f := range l.Features {
		if f.Jurisdiction != nil && keep[*f.Jurisdiction] {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

// Candidate is one parcel/zoning pair produced by the spatial join. The
// relation is many-to-many until resolved.
type Candidate struct {
	ParcelID     string
	ZoningID     string
	CategoryCode string
}

// Resolved is one row of the one-to-one parcel-to-category mapping.
// Matched is false when the parcel intersected zero zoning polygons, in
// which case CategoryCode and CategoryDesc are empty.
type Resolved struct {
	ParcelID     string
	CategoryCode string
	CategoryDesc string
	Matched      bool
	Geom         *geos.Geom
}

// DissolvedCategory is the union of all zoning polygons sharing a label,
// in the canonical geographic reference.
type DissolvedCategory struct {
	Label string
	Desc  string
	Geom  *geos.Geom
}

// RollupRecord holds the per-category aggregates. Areas are in the display
// unit selected by RollupOptions.SquareMetersPerUnit. Rate metrics are zero
// (not NaN or Inf) for categories with zero polygon area.
type RollupRecord struct {
	Label           string
	Desc            string
	ParcelCount     int
	TotalArea       float64
	MedianArea      float64
	CategoryArea    float64
	ShareOfArea     float64
	ParcelsPerArea  float64
	ParcelAreaRatio float64
}

// Sentinel errors for data-contract violations. These are fatal: numeric
// results downstream of a missing column or CRS would be meaningless.
var (
	ErrMissingParcelID = errors.New("parcel layer has a feature with an empty id")
	ErrDuplicateParcel = errors.New("parcel layer has duplicate ids")
	ErrMissingCategory = errors.New("zoning layer has no category codes")
	ErrMissingCRS      = errors.New("layer has no coordinate reference")
	ErrCRSMismatch     = errors.New("layers are in different coordinate references")
)

// validateParcels checks the parcel-side data contract: every feature has a
// unique, non-empty id.
func validateParcels(parcels *Layer) error {
	seen := make(map[string]bool, len(parcels.Features))
	for i, f := range parcels.Features {
		if f.ID == "" {
			return fmt.Errorf("row %d: %w", i, ErrMissingParcelID)
		}
		if seen[f.ID] {
			return fmt.Errorf("id %q: %w", f.ID, ErrDuplicateParcel)
		}
		seen[f.ID] = true
	}
	return nil
}

// validateZoning checks the zoning-side data contract: unless the layer is
// empty, at least one feature must carry a category code.
func validateZoning(zoning *Layer) error {
	if len(zoning.Features) == 0 {
		return nil
	}
	for _, f := range zoning.Features {
		if f.CategoryCode != "" {
			return nil
		}
	}
	return ErrMissingCategory
}
