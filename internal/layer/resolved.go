// internal/layer/resolved.go - Reading previously written pipeline outputs
package layer

import (
	"github.com/paulmach/orb/geojson"

	"parceldash/pkg/overlay"
)

// ReadResolved loads a resolved one-to-one mapping previously written by
// the pipeline. A feature without a zoning_code property is an unmatched
// parcel.
func ReadResolved(path string) ([]overlay.Resolved, error) {
	fc, err := ReadFeatureCollection(path)
	if err != nil {
		return nil, err
	}
	out := make([]overlay.Resolved, 0, len(fc.Features))
	for _, f := range fc.Features {
		row := overlay.Resolved{
			ParcelID: stringValue(f.Properties["parcel_id"]),
			Geom:     geosFromOrb(f.Geometry),
		}
		if code := stringValue(f.Properties["zoning_code"]); code != "" {
			row.CategoryCode = code
			row.CategoryDesc = stringValue(f.Properties["zoning_desc"])
			row.Matched = true
		}
		out = append(out, row)
	}
	return out, nil
}

// ReadDissolved loads dissolved category polygons previously written by the
// pipeline.
func ReadDissolved(path string) ([]overlay.DissolvedCategory, error) {
	fc, err := ReadFeatureCollection(path)
	if err != nil {
		return nil, err
	}
	return dissolvedFromCollection(fc), nil
}

func dissolvedFromCollection(fc *geojson.FeatureCollection) []overlay.DissolvedCategory {
	out := make([]overlay.DissolvedCategory, 0, len(fc.Features))
	for _, f := range fc.Features {
		out = append(out, overlay.DissolvedCategory{
			Label: stringValue(f.Properties["zoning_label"]),
			Desc:  stringValue(f.Properties["zoning_desc"]),
			Geom:  geosFromOrb(f.Geometry),
		})
	}
	return out
}
