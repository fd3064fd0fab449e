// pkg/overlay/dissolve.go - Union of zoning polygons by category label
package overlay

import (
	"fmt"
	"sort"

	"github.com/twpayne/go-geos"
	"go.uber.org/zap"
)

// DissolveOptions carries the references the dissolve reprojects through:
// the union runs in Projected for geometric stability, and the result comes
// back in Geographic for downstream consumption.
type DissolveOptions struct {
	Geographic CRS
	Projected  CRS
	Logger     *zap.Logger
}

// Dissolve unions all zoning polygons sharing a category code into one
// (possibly multi-part) polygon per code. The description lookup is built
// before the union, since union discards non-geometry attributes. Geometry
// repair runs internally, so callers may hand in an unrepaired layer.
//
// Unlike repair, a union failure is fatal for the whole dissolve: the union
// is a global operation with no per-row recovery, and retrying on the same
// inputs would be pointless. The error names the offending label.
func Dissolve(zoning *Layer, opts DissolveOptions) ([]DissolvedCategory, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validateZoning(zoning); err != nil {
		return nil, err
	}
	if len(zoning.Features) == 0 {
		return nil, nil
	}

	ensured, err := EnsureCRS(zoning, opts.Geographic)
	if err != nil {
		return nil, err
	}

	// One representative description per label, first non-empty wins. Built
	// before the union touches anything.
	descByLabel := make(map[string]string)
	for _, f := range ensured.Features {
		label := f.CategoryCode
		if label == "" {
			continue
		}
		if _, ok := descByLabel[label]; !ok && f.CategoryDesc != "" {
			descByLabel[label] = f.CategoryDesc
		}
	}

	toProjected, err := NewReprojector(opts.Geographic, opts.Projected)
	if err != nil {
		return nil, err
	}
	work, err := toProjected.ReprojectLayer(ensured)
	if err != nil {
		return nil, err
	}
	work, _ = RepairLayer(work, logger)

	groups := make(map[string][]*geos.Geom)
	var labels []string
	for _, f := range work.Features {
		label := f.CategoryCode
		if label == "" {
			continue
		}
		if _, seen := groups[label]; !seen {
			labels = append(labels, label)
		}
		groups[label] = append(groups[label], f.Geom)
	}
	sort.Strings(labels)

	toGeographic, err := NewReprojector(opts.Projected, opts.Geographic)
	if err != nil {
		return nil, err
	}

	out := make([]DissolvedCategory, 0, len(labels))
	for _, label := range labels {
		unioned, err := cascadedUnion(groups[label])
		if err != nil {
			return nil, fmt.Errorf("dissolving category %q: %w", label, err)
		}
		back, err := toGeographic.Reproject(unioned)
		unioned.Destroy()
		if err != nil {
			return nil, fmt.Errorf("reprojecting dissolved category %q: %w", label, err)
		}
		out = append(out, DissolvedCategory{
			Label: label,
			Desc:  descByLabel[label],
			Geom:  back,
		})
	}

	logger.Info("dissolve complete",
		zap.Int("input_rows", len(zoning.Features)),
		zap.Int("categories", len(out)))

	return out, nil
}

// cascadedUnion unions a set of geometries pairwise, divide and conquer, to
// keep intermediate results small. The inputs are not consumed; every
// intermediate is destroyed.
func cascadedUnion(geoms []*geos.Geom) (out *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("union: %v", r)
		}
	}()
	out = unionRange(geoms)
	if out == nil {
		return nil, fmt.Errorf("union produced no geometry")
	}
	return out, nil
}

// unionRange is the recursive half of cascadedUnion. Leaves are cloned so
// the caller's geometries are never consumed; every intermediate the
// recursion creates is destroyed.
func unionRange(geoms []*geos.Geom) *geos.Geom {
	if len(geoms) == 1 {
		return geoms[0].Clone()
	}
	mid := len(geoms) / 2
	left := unionRange(geoms[:mid])
	right := unionRange(geoms[mid:])
	result := left.Union(right)
	left.Destroy()
	right.Destroy()
	return result
}
