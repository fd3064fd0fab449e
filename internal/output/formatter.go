// internal/output/formatter.go - Output formatting implementation
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-geos"

	"parceldash/pkg/overlay"
)

// FormatCSV renders a table as CSV with a header row
func FormatCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i, len(row), len(t.Columns))
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DissolvedFeatureCollection renders the dissolved category polygons as a
// GeoJSON FeatureCollection.
func DissolvedFeatureCollection(categories []overlay.DissolvedCategory) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, c := range categories {
		g, err := orbFromGeos(c.Geom)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Label, err)
		}
		f := geojson.NewFeature(g)
		f.Properties["zoning_label"] = c.Label
		if c.Desc != "" {
			f.Properties["zoning_desc"] = c.Desc
		}
		fc.Append(f)
	}
	return fc, nil
}

// ResolvedFeatureCollection renders the one-to-one parcel mapping as a
// GeoJSON FeatureCollection, geometry included so downstream aggregation
// can re-measure areas.
func ResolvedFeatureCollection(rows []overlay.Resolved) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, r := range rows {
		var g orb.Geometry
		if r.Geom != nil {
			converted, err := orbFromGeos(r.Geom)
			if err != nil {
				return nil, fmt.Errorf("parcel %q: %w", r.ParcelID, err)
			}
			g = converted
		}
		f := geojson.NewFeature(g)
		f.Properties["parcel_id"] = r.ParcelID
		if r.Matched {
			f.Properties["zoning_code"] = r.CategoryCode
			if r.CategoryDesc != "" {
				f.Properties["zoning_desc"] = r.CategoryDesc
			}
		}
		fc.Append(f)
	}
	return fc, nil
}

// FormatGeoJSON marshals a FeatureCollection, optionally indented
func FormatGeoJSON(fc *geojson.FeatureCollection, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(fc, "", "  ")
	}
	return json.Marshal(fc)
}

// orbFromGeos converts a GEOS polygonal geometry back to orb for encoding.
// Single-part results encode as Polygon, multi-part as MultiPolygon.
func orbFromGeos(g *geos.Geom) (orb.Geometry, error) {
	coords, err := overlay.MultiPolygonCoords(g)
	if err != nil {
		return nil, err
	}
	mp := make(orb.MultiPolygon, 0, len(coords))
	for _, polygon := range coords {
		p := make(orb.Polygon, len(polygon))
		for i, ring := range polygon {
			r := make(orb.Ring, len(ring))
			for j, c := range ring {
				r[j] = orb.Point{c[0], c[1]}
			}
			p[i] = r
		}
		mp = append(mp, p)
	}
	if len(mp) == 1 {
		return mp[0], nil
	}
	return mp, nil
}
