// pkg/overlay/repair.go - Geometry repair for invalid polygon layers
package overlay

import (
	"fmt"

	"github.com/twpayne/go-geos"
	"go.uber.org/zap"
)

// RepairReport records what happened to each input row during repair:
// which rows were dropped for having no usable geometry, and which rows
// kept their original geometry because repair failed. Indexes refer to the
// input layer's row order.
type RepairReport struct {
	Dropped  []int
	Repaired []int
	Fallback []int
}

// RepairLayer removes null/empty geometries and rewrites the remaining
// geometries into topologically valid equivalents. Make-valid is the
// authoritative repair (it may change a geometry's part count, e.g. split a
// bowtie); a zero-distance buffer runs afterwards as an idempotent safety
// net. Failures are isolated per row: a row whose repair throws keeps its
// original geometry and the pipeline continues.
//
// The input layer is not modified. For a given input the output is
// identical on every run.
func RepairLayer(l *Layer, logger *zap.Logger) (*Layer, *RepairReport) {
	if logger == nil {
		logger = zap.NewNop()
	}

	out := &Layer{CRS: l.CRS, Features: make([]Feature, 0, len(l.Features))}
	report := &RepairReport{}

	for i, f := range l.Features {
		if f.Geom == nil || f.Geom.IsEmpty() {
			report.Dropped = append(report.Dropped, i)
			continue
		}

		g := f.Geom.Clone()
		if !g.IsValid() {
			reason := g.IsValidReason()
			repaired, err := makeValid(g)
			if err != nil {
				logger.Warn("make-valid failed; keeping original geometry",
					zap.Int("row", i),
					zap.String("id", f.ID),
					zap.String("reason", reason),
					zap.Error(err))
				report.Fallback = append(report.Fallback, i)
			} else {
				g = repaired
				report.Repaired = append(report.Repaired, i)
				logger.Debug("repaired invalid geometry",
					zap.Int("row", i),
					zap.String("id", f.ID),
					zap.String("reason", reason))
			}
		}

		// Second, independent pass: buffer(0) is a commonly effective but
		// less rigorous repair that can silently drop slivers, so it only
		// ever runs after make-valid, never as the sole repair.
		if buffered, err := zeroBuffer(g); err != nil || buffered.IsEmpty() {
			logger.Warn("zero-buffer failed; keeping make-valid result",
				zap.Int("row", i),
				zap.String("id", f.ID),
				zap.Error(err))
		} else {
			g = buffered
		}

		kept := f
		kept.Geom = g
		out.Features = append(out.Features, kept)
	}

	logger.Info("geometry repair complete",
		zap.Int("input_rows", len(l.Features)),
		zap.Int("output_rows", len(out.Features)),
		zap.Int("dropped", len(report.Dropped)),
		zap.Int("repaired", len(report.Repaired)),
		zap.Int("fallback", len(report.Fallback)))

	return out, report
}

// makeValid runs the GEOS make-valid algorithm, converting the panic GEOS
// raises on unrepairable input into an error so one bad row cannot abort a
// batch.
func makeValid(g *geos.Geom) (out *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("make-valid: %v", r)
		}
	}()
	out = g.MakeValidWithParams(geos.MakeValidLinework, geos.MakeValidDiscardCollapsed)
	if out == nil {
		return nil, fmt.Errorf("make-valid returned no geometry")
	}
	if !out.IsValid() {
		return nil, fmt.Errorf("make-valid output still invalid: %s", out.IsValidReason())
	}
	return out, nil
}

// zeroBuffer applies a zero-distance buffer, with the same per-row panic
// isolation as makeValid.
func zeroBuffer(g *geos.Geom) (out *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("buffer(0): %v", r)
		}
	}()
	return g.Buffer(0, 8), nil
}
