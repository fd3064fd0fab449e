// pkg/overlay/resolve.go - Reduction of many-to-many matches to one category per parcel
package overlay

import (
	"fmt"
	"sort"
	"sync"

	"github.com/twpayne/go-geos"
	"go.uber.org/zap"
)

// ResolveOptions carries the deployment-owned settings the resolver needs.
// Projected is the locally accurate reference used for intersection-area
// measurement; Workers bounds the fan-out for multi-match parcels (values
// below 1 mean sequential).
type ResolveOptions struct {
	Projected CRS
	Workers   int
	Logger    *zap.Logger
}

// resolveJob is one multi-match parcel handed to a worker.
type resolveJob struct {
	row   int
	codes []string
}

// resolveResult is a worker's category pick for one parcel.
type resolveResult struct {
	row  int
	code string
}

// areaTieEpsilon is the relative difference below which two intersection
// areas count as equal. Projection scale varies slightly across a parcel,
// so two geometrically equal halves measure a few parts in 1e7 apart; the
// tie-break has to absorb that or equal splits would resolve by noise.
const areaTieEpsilon = 1e-6

// ResolveOverlaps reduces the candidate relation to exactly one row per
// parcel. Parcels matching at most one distinct category are copied through
// directly; true boundary overlaps are rare, so this fast path carries
// nearly all rows without touching geometry. Parcels matching two or more
// categories are resolved by reprojecting into opts.Projected and keeping
// the category with the largest intersection area.
//
// Ties, including the degenerate all-zero case of a parcel that only
// touches district boundaries, go to the lexicographically smallest
// category code so the result never depends on input row order.
func ResolveOverlaps(candidates []Candidate, parcels, zoning *Layer, opts ResolveOptions) ([]Resolved, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validateParcels(parcels); err != nil {
		return nil, err
	}
	if err := validateZoning(zoning); err != nil {
		return nil, err
	}
	if parcels.CRS.IsZero() {
		return nil, ErrMissingCRS
	}

	codesByParcel := make(map[string][]string)
	for _, c := range candidates {
		if c.CategoryCode == "" {
			continue
		}
		if !containsString(codesByParcel[c.ParcelID], c.CategoryCode) {
			codesByParcel[c.ParcelID] = append(codesByParcel[c.ParcelID], c.CategoryCode)
		}
	}

	// One representative geometry and description per code, first occurrence
	// in zoning row order. The description lookup is best-effort labeling,
	// not authoritative: string attributes cannot be meaningfully merged.
	geomByCode := make(map[string]*geos.Geom)
	descByCode := make(map[string]string)
	for _, z := range zoning.Features {
		if z.CategoryCode == "" {
			continue
		}
		if _, ok := geomByCode[z.CategoryCode]; !ok && z.Geom != nil {
			geomByCode[z.CategoryCode] = z.Geom
		}
		if _, ok := descByCode[z.CategoryCode]; !ok && z.CategoryDesc != "" {
			descByCode[z.CategoryCode] = z.CategoryDesc
		}
	}

	var jobs []resolveJob
	picked := make(map[int]string, len(parcels.Features))
	for i, p := range parcels.Features {
		codes := codesByParcel[p.ID]
		switch len(codes) {
		case 0:
			// Unmatched; stays unmatched.
		case 1:
			picked[i] = codes[0]
		default:
			sorted := append([]string(nil), codes...)
			sort.Strings(sorted)
			jobs = append(jobs, resolveJob{row: i, codes: sorted})
		}
	}

	if len(jobs) > 0 {
		toProjected, err := NewReprojector(parcels.CRS, opts.Projected)
		if err != nil {
			return nil, err
		}

		// Project each involved zoning geometry once, up front, so workers
		// share a read-only map.
		projectedZoning := make(map[string]*geos.Geom)
		for _, job := range jobs {
			for _, code := range job.codes {
				if _, done := projectedZoning[code]; done {
					continue
				}
				zg, ok := geomByCode[code]
				if !ok {
					logger.Warn("candidate category has no zoning geometry; treating overlap as zero",
						zap.String("category_code", code))
					continue
				}
				pg, err := toProjected.Reproject(zg)
				if err != nil {
					return nil, fmt.Errorf("reprojecting zoning geometry for %q: %w", code, err)
				}
				projectedZoning[code] = pg
			}
		}

		results, err := resolveMultiMatch(jobs, parcels, toProjected, projectedZoning, opts.Workers, logger)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			picked[r.row] = r.code
		}
	}

	out := make([]Resolved, 0, len(parcels.Features))
	matched := 0
	for i, p := range parcels.Features {
		row := Resolved{ParcelID: p.ID, Geom: p.Geom}
		if code, ok := picked[i]; ok {
			row.CategoryCode = code
			row.CategoryDesc = descByCode[code]
			row.Matched = true
			matched++
		}
		out = append(out, row)
	}

	// Workers finish in arbitrary order; re-key the merged table by parcel
	// id so output ordering is deterministic either way.
	sort.Slice(out, func(i, j int) bool { return out[i].ParcelID < out[j].ParcelID })

	total := len(out)
	pct := 0.0
	if total > 0 {
		pct = float64(matched) / float64(total) * 100
	}
	logger.Info("overlap resolution complete",
		zap.Int("parcels", total),
		zap.Int("multi_match", len(jobs)),
		zap.Int("matched", matched),
		zap.String("coverage", fmt.Sprintf("%.2f%%", pct)))

	return out, nil
}

// resolveMultiMatch fans the area computations out over a bounded worker
// pool. Each parcel's resolution is independent, so the only shared state
// is read-only.
func resolveMultiMatch(jobs []resolveJob, parcels *Layer, toProjected *Reprojector,
	projectedZoning map[string]*geos.Geom, workers int, logger *zap.Logger) ([]resolveResult, error) {

	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobCh := make(chan resolveJob, len(jobs))
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	resultCh := make(chan resolveResult, len(jobs))
	errCh := make(chan error, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				parcel := parcels.Features[job.row]
				pg, err := toProjected.Reproject(parcel.Geom)
				if err != nil {
					errCh <- fmt.Errorf("reprojecting parcel %q: %w", parcel.ID, err)
					return
				}

				// Codes arrive sorted ascending, and only a relative-epsilon
				// larger area displaces the current pick, so ties, including
				// all-zero boundary touches, fall to the smallest code.
				best := job.codes[0]
				bestArea := -1.0
				for _, code := range job.codes {
					area := 0.0
					if zg, ok := projectedZoning[code]; ok {
						area = intersectionArea(pg, zg)
					}
					if area > bestArea*(1+areaTieEpsilon) && area > bestArea {
						best = code
						bestArea = area
					}
				}
				pg.Destroy()
				resultCh <- resolveResult{row: job.row, code: best}
			}
		}()
	}

	wg.Wait()
	close(resultCh)
	close(errCh)

	if err := <-errCh; err != nil {
		return nil, err
	}

	results := make([]resolveResult, 0, len(jobs))
	for r := range resultCh {
		results = append(results, r)
	}
	return results, nil
}

// intersectionArea measures the overlap between two projected geometries,
// treating any topology failure as zero overlap rather than aborting the
// batch.
func intersectionArea(a, b *geos.Geom) (area float64) {
	defer func() {
		if recover() != nil {
			area = 0
		}
	}()
	isect := a.Intersection(b)
	if isect == nil || isect.IsEmpty() {
		if isect != nil {
			isect.Destroy()
		}
		return 0
	}
	area = isect.Area()
	isect.Destroy()
	return area
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
