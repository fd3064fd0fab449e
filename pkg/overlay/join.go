// pkg/overlay/join.go - Spatial join between parcel and zoning layers
package overlay

import (
	"fmt"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
	"go.uber.org/zap"
)

// indexEntry is what goes into the rtree: a zoning row index with its
// precomputed bounding box.
type indexEntry struct {
	bounds *geom.Bounds
	row    int
}

// Bounds implements the rtree's Spatial interface.
func (e *indexEntry) Bounds() *geom.Bounds {
	return e.bounds
}

// The rtree's Insert takes geom.Geom, but only ever calls Bounds() on what
// it stores; these stubs exist solely to satisfy the interface.
func (e *indexEntry) Len() int { return 0 }

func (e *indexEntry) Points() func() geom.Point {
	return func() geom.Point { return geom.Point{} }
}

func (e *indexEntry) Similar(geom.Geom, float64) bool { return false }

func (e *indexEntry) Transform(proj.Transformer) (geom.Geom, error) { return e, nil }

// SpatialJoin computes the candidate relation: every (parcel, zoning) pair
// whose geometries intersect, boundary touches included. The relation is
// many-to-many; ResolveOverlaps reduces it to one-to-one.
//
// Zoning bounds are bulk-loaded into an R-tree so each parcel probes the
// index instead of scanning every district; the exact intersects predicate
// then refines the bounding-box hits. Candidates come out ordered by parcel
// row, then zoning row.
func SpatialJoin(parcels, zoning *Layer, logger *zap.Logger) ([]Candidate, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parcels.CRS.IsZero() || zoning.CRS.IsZero() {
		return nil, ErrMissingCRS
	}
	if parcels.CRS.EPSG != zoning.CRS.EPSG {
		return nil, fmt.Errorf("%w: parcels %s, zoning %s", ErrCRSMismatch, parcels.CRS, zoning.CRS)
	}
	if err := validateParcels(parcels); err != nil {
		return nil, err
	}
	if err := validateZoning(zoning); err != nil {
		return nil, err
	}

	tree := rtree.NewTree(25, 50)
	for i, f := range zoning.Features {
		if f.Geom == nil || f.Geom.IsEmpty() {
			continue
		}
		b, err := boundsOf(f.Geom)
		if err != nil {
			return nil, fmt.Errorf("zoning row %d: %w", i, err)
		}
		tree.Insert(&indexEntry{bounds: b, row: i})
	}

	var out []Candidate
	matched := 0
	for i, p := range parcels.Features {
		if p.Geom == nil || p.Geom.IsEmpty() {
			continue
		}
		b, err := boundsOf(p.Geom)
		if err != nil {
			return nil, fmt.Errorf("parcel row %d: %w", i, err)
		}

		hits := tree.SearchIntersect(b)
		rows := make([]int, 0, len(hits))
		for _, h := range hits {
			rows = append(rows, h.(*indexEntry).row)
		}
		// The index returns hits in tree order; sort by zoning row so the
		// candidate relation is identical run to run.
		sort.Ints(rows)

		found := false
		for _, row := range rows {
			z := zoning.Features[row]
			if !p.Geom.Intersects(z.Geom) {
				continue
			}
			found = true
			out = append(out, Candidate{
				ParcelID:     p.ID,
				ZoningID:     z.ID,
				CategoryCode: z.CategoryCode,
			})
		}
		if found {
			matched++
		}
	}

	total := len(parcels.Features)
	pct := 0.0
	if total > 0 {
		pct = float64(matched) / float64(total) * 100
	}
	logger.Info("spatial join complete",
		zap.Int("parcels", total),
		zap.Int("matched", matched),
		zap.String("coverage", fmt.Sprintf("%.2f%%", pct)),
		zap.Int("candidates", len(out)))

	return out, nil
}
