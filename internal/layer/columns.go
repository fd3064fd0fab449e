// internal/layer/columns.go - Source column normalization and resolution
package layer

import (
	"fmt"
	"strings"
)

// NormalizeFieldName rewrites an upstream field name into the pipeline's
// canonical form: the last dot-segment (feature services qualify fields
// with table prefixes), trimmed, lowercased, with separators collapsed to
// underscores.
func NormalizeFieldName(name string) string {
	parts := strings.Split(name, ".")
	last := strings.TrimSpace(parts[len(parts)-1])
	last = strings.ReplaceAll(last, " ", "_")
	last = strings.ReplaceAll(last, "-", "_")
	last = strings.ReplaceAll(last, "/", "_")
	return strings.ToLower(last)
}

// UniquifyFieldNames disambiguates repeated names by suffixing later
// occurrences with _2, _3, ... in first-seen order.
func UniquifyFieldNames(names []string) []string {
	seen := make(map[string]int, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		seen[n]++
		if seen[n] == 1 {
			out = append(out, n)
		} else {
			out = append(out, fmt.Sprintf("%s_%d", n, seen[n]))
		}
	}
	return out
}

// ResolveIDColumn returns the first candidate present among columns, then
// the fallback if present, then the empty string. Callers synthesize
// sequential ids when nothing resolves.
func ResolveIDColumn(columns []string, candidates []string, fallback string) string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	for _, c := range candidates {
		if present[c] {
			return c
		}
	}
	if fallback != "" && present[fallback] {
		return fallback
	}
	return ""
}

// objectIDColumn finds the first objectid-like column, accounting for the
// _2/_3 suffixes uniquification can add.
func objectIDColumn(columns []string) string {
	for _, c := range columns {
		if c == "objectid" || strings.HasPrefix(c, "objectid_") {
			return c
		}
	}
	return ""
}
