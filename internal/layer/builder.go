// internal/layer/builder.go - Typed layer building from raw feature collections
package layer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"parceldash/internal"
	"parceldash/internal/config"
	"parceldash/pkg/overlay"
)

// Builder turns raw GeoJSON feature collections into the typed layers the
// overlay package consumes, resolving identifier columns against the
// configured candidate lists.
type Builder struct {
	columns config.ColumnsConfig
	logger  *zap.Logger
}

// NewBuilder creates a layer builder using the configured column candidates
func NewBuilder(cfg *config.Config, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{columns: cfg.Columns, logger: logger}
}

// BuildParcels builds the parcel layer. The parcel id is coerced from the
// first configured candidate column present, then the fallback column, then
// a synthesized sequential id. The returned layer is untagged; the caller
// decides the canonical reference.
func (b *Builder) BuildParcels(fc *geojson.FeatureCollection) (*overlay.Layer, error) {
	columns, rows := normalizeRows(fc)

	idCol := ResolveIDColumn(columns, b.columns.ParcelIDCandidates, b.columns.ParcelIDFallback)
	if idCol == "" {
		b.logger.Info("no parcel id column found; synthesizing sequential ids")
	} else {
		b.logger.Info("parcel id source", zap.String("column", idCol))
	}

	out := &overlay.Layer{Features: make([]overlay.Feature, 0, len(fc.Features))}
	for i, f := range fc.Features {
		id := ""
		if idCol != "" {
			id = stringValue(rows[i][idCol])
		}
		if id == "" {
			id = strconv.Itoa(i)
		}
		out.Features = append(out.Features, overlay.Feature{
			ID:   id,
			Geom: geosFromOrb(f.Geometry),
		})
	}
	return out, nil
}

// BuildZoning builds the zoning layer. An objectid-like column and the
// configured category-code column are required; their absence is a fatal
// configuration error, never silently defaulted.
func (b *Builder) BuildZoning(fc *geojson.FeatureCollection) (*overlay.Layer, error) {
	columns, rows := normalizeRows(fc)

	oidCol := objectIDColumn(columns)
	if oidCol == "" {
		return nil, internal.NewError(internal.ErrorCodeValidation,
			"no objectid-like column found in zoning source", nil)
	}
	codeCol := b.columns.ZoningCodeColumn
	if !containsColumn(columns, codeCol) {
		return nil, internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("required zoning column %q not found (have: %s)", codeCol, strings.Join(columns, ", ")), nil)
	}
	descCol := b.columns.ZoningDescColumn
	jurisCol := b.columns.JurisdictionColumn

	out := &overlay.Layer{Features: make([]overlay.Feature, 0, len(fc.Features))}
	for i, f := range fc.Features {
		row := rows[i]
		feature := overlay.Feature{
			ID:           stringValue(row[oidCol]),
			CategoryCode: stringValue(row[codeCol]),
			Geom:         geosFromOrb(f.Geometry),
		}
		if descCol != "" {
			feature.CategoryDesc = stringValue(row[descCol])
		}
		if jurisCol != "" {
			if j, ok := intValue(row[jurisCol]); ok {
				feature.Jurisdiction = &j
			}
		}
		out.Features = append(out.Features, feature)
	}
	return out, nil
}

// normalizeRows computes the normalized, uniquified column list across the
// whole collection and re-keys every feature's properties by it. Raw keys
// are walked in sorted order so the derived schema is stable.
func normalizeRows(fc *geojson.FeatureCollection) ([]string, []map[string]interface{}) {
	rawSet := make(map[string]bool)
	for _, f := range fc.Features {
		for k := range f.Properties {
			rawSet[k] = true
		}
	}
	raw := make([]string, 0, len(rawSet))
	for k := range rawSet {
		raw = append(raw, k)
	}
	sort.Strings(raw)

	normalized := make([]string, len(raw))
	for i, k := range raw {
		normalized[i] = NormalizeFieldName(k)
	}
	normalized = UniquifyFieldNames(normalized)

	keyMap := make(map[string]string, len(raw))
	for i, k := range raw {
		keyMap[k] = normalized[i]
	}

	rows := make([]map[string]interface{}, len(fc.Features))
	for i, f := range fc.Features {
		row := make(map[string]interface{}, len(f.Properties))
		for k, v := range f.Properties {
			row[keyMap[k]] = v
		}
		rows[i] = row
	}
	return normalized, rows
}

// geosFromOrb converts a decoded GeoJSON geometry to GEOS. Non-polygonal
// geometries yield nil; the join and repair stages skip those rows.
func geosFromOrb(g orb.Geometry) *geos.Geom {
	switch t := g.(type) {
	case orb.Polygon:
		return geos.NewPolygon(ringCoords(t))
	case orb.MultiPolygon:
		polys := make([]*geos.Geom, len(t))
		for i, p := range t {
			polys[i] = geos.NewPolygon(ringCoords(p))
		}
		return geos.NewCollection(geos.TypeIDMultiPolygon, polys)
	default:
		return nil
	}
}

func ringCoords(p orb.Polygon) [][][]float64 {
	rings := make([][][]float64, len(p))
	for i, ring := range p {
		rings[i] = make([][]float64, len(ring))
		for j, pt := range ring {
			rings[i][j] = []float64{pt[0], pt[1]}
		}
	}
	return rings
}

// stringValue coerces a property value to its string form, rendering whole
// floats (how JSON numbers decode) without a trailing ".0".
func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}

// intValue coerces a property value to an integer grouping key.
func intValue(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
