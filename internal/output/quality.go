// internal/output/quality.go - Quality report rendering
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"parceldash/pkg/overlay"
)

// FormatQualityJSON renders a quality report as indented JSON
func FormatQualityJSON(r *overlay.QualityReport) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FormatQualityMarkdown renders a quality report as a short Markdown
// document for humans; the JSON rendering is the machine-readable one.
func FormatQualityMarkdown(r *overlay.QualityReport) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Data Quality Report: %s\n\n", r.Dataset)
	fmt.Fprintf(&buf, "- Rows: **%d**\n", r.Rows)
	fmt.Fprintf(&buf, "- CRS: **%s**\n", r.CRS)
	fmt.Fprintf(&buf, "- BBox: **%s**\n", formatBBox(r.BBox))
	fmt.Fprintf(&buf, "- parcel_id missing: **%d**\n", r.MissingIDs)
	fmt.Fprintf(&buf, "- parcel_id duplicates: **%d**\n", r.DuplicateIDs)
	fmt.Fprintf(&buf, "- geometry missing: **%d**\n", r.GeomMissing)
	fmt.Fprintf(&buf, "- geometry valid: **%d**\n", r.GeomValid)
	fmt.Fprintf(&buf, "- geometry invalid: **%d**\n", r.GeomInvalid)
	if r.GeomValidRate != nil {
		fmt.Fprintf(&buf, "- geometry valid rate: **%.4f**\n", *r.GeomValidRate)
	}

	return buf.Bytes()
}

func formatBBox(bbox []float64) string {
	if bbox == nil {
		return "none"
	}
	out := "["
	for i, v := range bbox {
		if i > 0 {
			out += ", "
		}
		out += strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out + "]"
}
