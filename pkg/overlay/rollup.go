// pkg/overlay/rollup.go - Per-category aggregates over the resolved mapping
package overlay

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// RollupOptions carries the references and the display-unit conversion for
// the aggregator. SquareMetersPerUnit divides projected square meters into
// the display unit; the conventional value for acres is 4046.8564224
// (43560 ft^2 at exactly 0.3048 m per foot).
type RollupOptions struct {
	Source              CRS
	Projected           CRS
	SquareMetersPerUnit float64
	Logger              *zap.Logger
}

// Rollup computes one record per category code present in the resolved
// mapping: distinct parcel count, total and median parcel area, the
// dissolved category polygon's area, its share of all dissolved area in
// scope, and the derived rate metrics. Unmatched parcels aggregate under an
// empty label so counts are conserved. Everything is recomputed from
// scratch on every call; nothing is mutated in place.
//
// An empty resolved mapping yields an empty (not nil-error) result.
func Rollup(resolved []Resolved, dissolved []DissolvedCategory, opts RollupOptions) ([]RollupRecord, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SquareMetersPerUnit <= 0 {
		return nil, fmt.Errorf("square meters per unit must be positive, got %g", opts.SquareMetersPerUnit)
	}
	if len(resolved) == 0 && len(dissolved) == 0 {
		return nil, nil
	}
	if opts.Source.IsZero() {
		return nil, ErrMissingCRS
	}

	toProjected, err := NewReprojector(opts.Source, opts.Projected)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		desc    string
		parcels map[string]bool
		areas   []float64
	}
	buckets := make(map[string]*bucket)
	var labels []string

	get := func(label string) *bucket {
		b, ok := buckets[label]
		if !ok {
			b = &bucket{parcels: make(map[string]bool)}
			buckets[label] = b
			labels = append(labels, label)
		}
		return b
	}

	for _, r := range resolved {
		label := ""
		if r.Matched {
			label = r.CategoryCode
		}
		b := get(label)
		if b.desc == "" && r.CategoryDesc != "" {
			b.desc = r.CategoryDesc
		}
		if b.parcels[r.ParcelID] {
			continue
		}
		b.parcels[r.ParcelID] = true

		area := 0.0
		if r.Geom != nil && !r.Geom.IsEmpty() {
			pg, err := toProjected.Reproject(r.Geom)
			if err != nil {
				return nil, fmt.Errorf("reprojecting parcel %q: %w", r.ParcelID, err)
			}
			area = pg.Area() / opts.SquareMetersPerUnit
			pg.Destroy()
		}
		b.areas = append(b.areas, area)
	}

	// Dissolved polygon areas, measured in the projected reference. The
	// dissolve hands geometries back in the geographic reference, so they
	// go through the same transform as the parcels.
	categoryArea := make(map[string]float64, len(dissolved))
	totalCategoryArea := 0.0
	for _, d := range dissolved {
		area := 0.0
		if d.Geom != nil && !d.Geom.IsEmpty() {
			pg, err := toProjected.Reproject(d.Geom)
			if err != nil {
				return nil, fmt.Errorf("reprojecting dissolved category %q: %w", d.Label, err)
			}
			area = pg.Area() / opts.SquareMetersPerUnit
			pg.Destroy()
		}
		categoryArea[d.Label] = area
		totalCategoryArea += area
		if b, ok := buckets[d.Label]; ok && b.desc == "" {
			b.desc = d.Desc
		}
	}

	sort.Strings(labels)
	out := make([]RollupRecord, 0, len(labels))
	for _, label := range labels {
		b := buckets[label]
		total := 0.0
		for _, a := range b.areas {
			total += a
		}
		catArea := categoryArea[label]

		rec := RollupRecord{
			Label:        label,
			Desc:         b.desc,
			ParcelCount:  len(b.parcels),
			TotalArea:    total,
			MedianArea:   median(b.areas),
			CategoryArea: catArea,
		}
		// Division by a zero-area category yields zero by convention, so
		// downstream display never sees NaN or Inf.
		if totalCategoryArea > 0 {
			rec.ShareOfArea = catArea / totalCategoryArea
		}
		if catArea > 0 {
			rec.ParcelsPerArea = float64(rec.ParcelCount) / catArea
			rec.ParcelAreaRatio = total / catArea
		}
		out = append(out, rec)
	}

	logger.Info("rollup complete",
		zap.Int("resolved_rows", len(resolved)),
		zap.Int("categories", len(out)))

	return out, nil
}

// median of a sample, averaging the two middle values for even counts. The
// input slice is not reordered.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
