// internal/pipeline/pipeline.go - Stage orchestration
package pipeline

import (
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"parceldash/internal"
	"parceldash/internal/config"
	"parceldash/internal/layer"
	"parceldash/internal/output"
	"parceldash/pkg/overlay"
)

// Runner wires the overlay stages together: repair, join, resolve,
// dissolve, rollup. All stages run synchronously; each stage's output is
// only persisted after the stage completes in full.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger
	stats  internal.PipelineStats
}

// NewRunner creates a pipeline runner
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Stats returns the metrics recorded so far
func (r *Runner) Stats() *internal.PipelineStats {
	return &r.stats
}

// Run executes the full pipeline from two source files and writes all four
// outputs to the configured directory.
func (r *Runner) Run(parcelsPath, zoningPath string, jurisdictions []int) error {
	r.stats.StartTime = time.Now()

	parcelsFC, err := layer.ReadFeatureCollection(parcelsPath)
	if err != nil {
		return err
	}
	zoningFC, err := layer.ReadFeatureCollection(zoningPath)
	if err != nil {
		return err
	}

	builder := layer.NewBuilder(r.cfg, r.logger)
	parcels, err := builder.BuildParcels(parcelsFC)
	if err != nil {
		return err
	}
	zoning, err := builder.BuildZoning(zoningFC)
	if err != nil {
		return err
	}
	lookup, err := builder.BuildLookup(zoningFC)
	if err != nil {
		return err
	}

	artifacts, err := r.RunCore(parcels, zoning, jurisdictions)
	if err != nil {
		return err
	}
	artifacts.Lookup = lookup

	if err := r.writeArtifacts(artifacts); err != nil {
		return err
	}

	r.stats.EndTime = time.Now()
	r.logger.Info("pipeline complete",
		zap.Duration("elapsed", r.stats.EndTime.Sub(r.stats.StartTime)),
		zap.Int("stages", len(r.stats.Stages)))
	return nil
}

// RunCore executes the geometric stages on in-memory layers. Both layers
// are brought to the canonical geographic reference first; untagged layers
// are assumed to already be in it.
func (r *Runner) RunCore(parcels, zoning *overlay.Layer, jurisdictions []int) (*Artifacts, error) {
	geographic := r.cfg.GeographicCRS()
	projected := r.cfg.ProjectedCRS()

	parcels, err := overlay.EnsureCRS(parcels, geographic)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeGeometry, "failed to normalize parcel reference", err)
	}
	zoning, err = overlay.EnsureCRS(zoning, geographic)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeGeometry, "failed to normalize zoning reference", err)
	}

	artifacts := &Artifacts{}

	var repaired *overlay.Layer
	err = r.stage("repair", len(zoning.Features), func() (int, error) {
		repaired, artifacts.RepairReport = overlay.RepairLayer(zoning, r.logger)
		return len(repaired.Features), nil
	})
	if err != nil {
		return nil, err
	}

	var candidates []overlay.Candidate
	err = r.stage("join", len(parcels.Features), func() (int, error) {
		candidates, err = overlay.SpatialJoin(parcels, repaired, r.logger)
		return len(candidates), err
	})
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "spatial join failed", err)
	}

	err = r.stage("resolve", len(candidates), func() (int, error) {
		artifacts.Resolved, err = overlay.ResolveOverlaps(candidates, parcels, repaired, overlay.ResolveOptions{
			Projected: projected,
			Workers:   r.cfg.Resolver.Workers,
			Logger:    r.logger,
		})
		return len(artifacts.Resolved), err
	})
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeProcessing, "overlap resolution failed", err)
	}

	// The jurisdiction filter scopes the dissolve and the rollup, not the
	// one-to-one mapping: the mapping stays complete so other scopes can be
	// recomputed without rerunning the join.
	keep := jurisdictionSet(jurisdictions)
	scopedZoning := zoning.FilterJurisdiction(keep)

	err = r.stage("dissolve", len(scopedZoning.Features), func() (int, error) {
		artifacts.Dissolved, err = overlay.Dissolve(scopedZoning, overlay.DissolveOptions{
			Geographic: geographic,
			Projected:  projected,
			Logger:     r.logger,
		})
		return len(artifacts.Dissolved), err
	})
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeGeometry, "dissolve failed", err)
	}

	scopedResolved := scopeResolved(artifacts.Resolved, scopedZoning, len(keep) > 0)
	err = r.stage("rollup", len(scopedResolved), func() (int, error) {
		artifacts.Rollups, err = overlay.Rollup(scopedResolved, artifacts.Dissolved, overlay.RollupOptions{
			Source:              geographic,
			Projected:           projected,
			SquareMetersPerUnit: r.cfg.Area.SquareMetersPerUnit,
			Logger:              r.logger,
		})
		return len(artifacts.Rollups), err
	})
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeProcessing, "rollup failed", err)
	}

	return artifacts, nil
}

// stage runs one pipeline stage and records its metrics
func (r *Runner) stage(name string, inputRows int, fn func() (int, error)) error {
	s := internal.StageStats{Name: name, InputRows: inputRows, StartTime: time.Now()}
	outputRows, err := fn()
	s.EndTime = time.Now()
	s.OutputRows = outputRows
	if err != nil {
		return err
	}
	r.stats.Add(s)
	r.logger.Info("stage complete",
		zap.String("stage", name),
		zap.Int("input_rows", inputRows),
		zap.Int("output_rows", outputRows),
		zap.Duration("elapsed", s.Duration()))
	return nil
}

// writeArtifacts persists all outputs, each file written whole after its
// producing stage succeeded.
func (r *Runner) writeArtifacts(a *Artifacts) error {
	dir := r.cfg.Output.Directory
	pretty := r.cfg.Output.Pretty

	resolvedFC, err := output.ResolvedFeatureCollection(a.Resolved)
	if err != nil {
		return internal.NewError(internal.ErrorCodeProcessing, "encoding resolved mapping failed", err)
	}
	data, err := output.FormatGeoJSON(resolvedFC, pretty)
	if err != nil {
		return err
	}
	if err := output.WriteFile(filepath.Join(dir, ResolvedFile), data); err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem, "writing resolved mapping failed", err)
	}

	dissolvedFC, err := output.DissolvedFeatureCollection(a.Dissolved)
	if err != nil {
		return internal.NewError(internal.ErrorCodeProcessing, "encoding dissolved categories failed", err)
	}
	data, err = output.FormatGeoJSON(dissolvedFC, pretty)
	if err != nil {
		return err
	}
	if err := output.WriteFile(filepath.Join(dir, DissolvedFile), data); err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem, "writing dissolved categories failed", err)
	}

	data, err = output.FormatCSV(RollupTable(a.Rollups, r.cfg.Area.Unit))
	if err != nil {
		return err
	}
	if err := output.WriteFile(filepath.Join(dir, RollupsFile), data); err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem, "writing rollups failed", err)
	}

	if a.Lookup != nil {
		data, err = output.FormatCSV(LookupTable(a.Lookup))
		if err != nil {
			return err
		}
		if err := output.WriteFile(filepath.Join(dir, LookupFile), data); err != nil {
			return internal.NewError(internal.ErrorCodeFileSystem, "writing lookup failed", err)
		}
	}

	r.logger.Info("outputs written", zap.String("directory", dir))
	return nil
}

// RollupTable renders rollup records as a CSV-ready table. The area unit
// shows up in the column names so the output is self-describing.
func RollupTable(records []overlay.RollupRecord, unit string) *output.Table {
	t := &output.Table{Columns: []string{
		"zoning_label", "zoning_desc", "parcel_count",
		"total_area_" + unit, "median_area_" + unit, "category_area_" + unit,
		"share_of_area", "parcels_per_" + unit, "parcel_area_ratio",
	}}
	for _, rec := range records {
		t.Rows = append(t.Rows, []string{
			rec.Label,
			rec.Desc,
			strconv.Itoa(rec.ParcelCount),
			formatFloat(rec.TotalArea),
			formatFloat(rec.MedianArea),
			formatFloat(rec.CategoryArea),
			formatFloat(rec.ShareOfArea),
			formatFloat(rec.ParcelsPerArea),
			formatFloat(rec.ParcelAreaRatio),
		})
	}
	return t
}

// LookupTable renders the id/name lookup as a CSV-ready table
func LookupTable(rows []layer.LookupRow) *output.Table {
	t := &output.Table{Columns: []string{"zoning_id", "zoning_name"}}
	for _, row := range rows {
		t.Rows = append(t.Rows, []string{row.ZoningID, row.Name})
	}
	return t
}

// jurisdictionSet converts the flag slice into a set
func jurisdictionSet(keys []int) map[int]bool {
	if len(keys) == 0 {
		return nil
	}
	set := make(map[int]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// scopeResolved restricts the resolved mapping to categories present in the
// scoped zoning layer. With no filter active the mapping passes through
// whole, unmatched rows included, so count conservation holds.
func scopeResolved(resolved []overlay.Resolved, scopedZoning *overlay.Layer, filtered bool) []overlay.Resolved {
	if !filtered {
		return resolved
	}
	codes := make(map[string]bool)
	for _, f := range scopedZoning.Features {
		if f.CategoryCode != "" {
			codes[f.CategoryCode] = true
		}
	}
	out := make([]overlay.Resolved, 0, len(resolved))
	for _, row := range resolved {
		if row.Matched && codes[row.CategoryCode] {
			out = append(out, row)
		}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
