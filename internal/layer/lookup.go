// internal/layer/lookup.go - Zoning id to display-name lookup table
package layer

import (
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"parceldash/internal"
)

// BuildLookup produces one row per zoning id with a display name taken from
// the first configured label column present in the source, falling back to
// the id itself. Later rows with an already-seen id are dropped.
func (b *Builder) BuildLookup(fc *geojson.FeatureCollection) ([]LookupRow, error) {
	columns, rows := normalizeRows(fc)

	oidCol := objectIDColumn(columns)
	if oidCol == "" {
		return nil, internal.NewError(internal.ErrorCodeValidation,
			"no objectid-like column found in zoning source", nil)
	}

	labelCol := ResolveIDColumn(columns, b.columns.LabelCandidates, "")
	if labelCol == "" {
		b.logger.Info("no label column found; using zoning id as display name")
	} else {
		b.logger.Info("lookup label source", zap.String("column", labelCol))
	}

	seen := make(map[string]bool, len(rows))
	out := make([]LookupRow, 0, len(rows))
	for _, row := range rows {
		id := stringValue(row[oidCol])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		name := ""
		if labelCol != "" {
			name = stringValue(row[labelCol])
		}
		if name == "" {
			name = id
		}
		out = append(out, LookupRow{ZoningID: id, Name: name})
	}
	return out, nil
}
