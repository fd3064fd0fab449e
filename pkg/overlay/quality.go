// pkg/overlay/quality.go - Data-quality report over a parcel layer
package overlay

import (
	"go.uber.org/zap"
)

// QualityReport summarizes the health of a built parcel layer: row count,
// reference, extent, identifier problems, and geometry validity. It is
// purely diagnostic; nothing here mutates or gates the layer. The same id
// and geometry problems the downstream contracts reject fatally are counted
// here instead, so the report can describe a layer the pipeline would
// refuse to process.
type QualityReport struct {
	Dataset       string    `json:"dataset"`
	Rows          int       `json:"rows"`
	CRS           string    `json:"crs"`
	BBox          []float64 `json:"bbox"`
	MissingIDs    int       `json:"parcel_id_missing"`
	DuplicateIDs  int       `json:"parcel_id_duplicates"`
	GeomMissing   int       `json:"geometry_missing"`
	GeomValid     int       `json:"geometry_valid"`
	GeomInvalid   int       `json:"geometry_invalid"`
	GeomValidRate *float64  `json:"geometry_valid_rate"`
}

// BuildQualityReport scans a parcel layer and reports on it. BBox is
// [minx, miny, maxx, maxy] over all non-null geometries, nil when there are
// none; GeomValidRate is valid rows over total rows, nil for an empty layer.
// Duplicates count every repeat occurrence of an id, not distinct ids.
func BuildQualityReport(dataset string, l *Layer, logger *zap.Logger) *QualityReport {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &QualityReport{
		Dataset: dataset,
		Rows:    len(l.Features),
		CRS:     l.CRS.String(),
	}

	seen := make(map[string]bool, len(l.Features))
	for _, f := range l.Features {
		if f.ID == "" {
			r.MissingIDs++
		} else if seen[f.ID] {
			r.DuplicateIDs++
		} else {
			seen[f.ID] = true
		}

		if f.Geom == nil {
			r.GeomMissing++
			continue
		}
		if f.Geom.IsValid() {
			r.GeomValid++
		} else {
			r.GeomInvalid++
		}

		if f.Geom.IsEmpty() {
			continue
		}
		b, err := boundsOf(f.Geom)
		if err != nil {
			continue
		}
		if r.BBox == nil {
			r.BBox = []float64{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y}
			continue
		}
		if b.Min.X < r.BBox[0] {
			r.BBox[0] = b.Min.X
		}
		if b.Min.Y < r.BBox[1] {
			r.BBox[1] = b.Min.Y
		}
		if b.Max.X > r.BBox[2] {
			r.BBox[2] = b.Max.X
		}
		if b.Max.Y > r.BBox[3] {
			r.BBox[3] = b.Max.Y
		}
	}

	if r.Rows > 0 {
		rate := float64(r.GeomValid) / float64(r.Rows)
		r.GeomValidRate = &rate
	}

	logger.Info("quality report built",
		zap.String("dataset", dataset),
		zap.Int("rows", r.Rows),
		zap.Int("id_missing", r.MissingIDs),
		zap.Int("id_duplicates", r.DuplicateIDs),
		zap.Int("geometry_invalid", r.GeomInvalid))

	return r
}
