// pkg/overlay/project.go - Reprojection of layer geometries between references
package overlay

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/twpayne/go-geos"
)

// Reprojector transforms polygon geometries from one reference to another.
// Parsing the CRS definitions is done once at construction; Reproject can
// then be applied across a whole layer.
type Reprojector struct {
	from, to  CRS
	transform proj.Transformer
}

// NewReprojector parses both CRS definitions and builds the coordinate
// transform between them.
func NewReprojector(from, to CRS) (*Reprojector, error) {
	src, err := proj.Parse(from.Def)
	if err != nil {
		return nil, fmt.Errorf("parsing source reference %s: %w", from, err)
	}
	dst, err := proj.Parse(to.Def)
	if err != nil {
		return nil, fmt.Errorf("parsing target reference %s: %w", to, err)
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("building transform %s -> %s: %w", from, to, err)
	}
	return &Reprojector{from: from, to: to, transform: t}, nil
}

// Reproject returns a new geometry with every vertex transformed. The input
// geometry is not modified. Only Polygon and MultiPolygon inputs are
// supported.
func (r *Reprojector) Reproject(g *geos.Geom) (*geos.Geom, error) {
	rings, err := multiPolygonCoords(g)
	if err != nil {
		return nil, err
	}
	out := make([][][][]float64, len(rings))
	for i, polygon := range rings {
		out[i] = make([][][]float64, len(polygon))
		for j, ring := range polygon {
			out[i][j] = make([][]float64, len(ring))
			for k, c := range ring {
				x, y, err := r.transform(c[0], c[1])
				if err != nil {
					return nil, fmt.Errorf("transforming vertex (%g, %g): %w", c[0], c[1], err)
				}
				out[i][j][k] = []float64{x, y}
			}
		}
	}
	return geomFromMultiPolygonCoords(out), nil
}

// ReprojectLayer returns a copy of the layer with all geometries transformed
// and the CRS tag updated.
func (r *Reprojector) ReprojectLayer(l *Layer) (*Layer, error) {
	out := &Layer{CRS: r.to, Features: make([]Feature, len(l.Features))}
	for i, f := range l.Features {
		out.Features[i] = f
		if f.Geom == nil {
			continue
		}
		g, err := r.Reproject(f.Geom)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", f.ID, err)
		}
		out.Features[i].Geom = g
	}
	return out, nil
}

// EnsureCRS tags an untagged layer with the target reference, and reprojects
// a layer tagged with a different reference. A layer already in the target
// reference is returned unchanged.
func EnsureCRS(l *Layer, target CRS) (*Layer, error) {
	if l.CRS.IsZero() {
		out := &Layer{CRS: target, Features: l.Features}
		return out, nil
	}
	if l.CRS.EPSG == target.EPSG {
		return l, nil
	}
	r, err := NewReprojector(l.CRS, target)
	if err != nil {
		return nil, err
	}
	return r.ReprojectLayer(l)
}

// MultiPolygonCoords decomposes a Polygon or MultiPolygon into raw ring
// coordinates: [polygon][ring][vertex][x y]. A Polygon yields one entry.
func MultiPolygonCoords(g *geos.Geom) ([][][][]float64, error) {
	return multiPolygonCoords(g)
}

func multiPolygonCoords(g *geos.Geom) ([][][][]float64, error) {
	switch g.TypeID() {
	case geos.TypeIDPolygon:
		p, err := polygonCoords(g)
		if err != nil {
			return nil, err
		}
		return [][][][]float64{p}, nil
	case geos.TypeIDMultiPolygon, geos.TypeIDGeometryCollection:
		var out [][][][]float64
		for i := 0; i < g.NumGeometries(); i++ {
			sub := g.Geometry(i)
			if sub.TypeID() != geos.TypeIDPolygon {
				// Collections out of make-valid can carry point/line debris;
				// polygonal content is all the pipeline measures.
				continue
			}
			p, err := polygonCoords(sub)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %v", g.TypeID())
	}
}

func polygonCoords(g *geos.Geom) ([][][]float64, error) {
	if g.IsEmpty() {
		return nil, nil
	}
	rings := make([][][]float64, 0, g.NumInteriorRings()+1)
	rings = append(rings, g.ExteriorRing().CoordSeq().ToCoords())
	for i := 0; i < g.NumInteriorRings(); i++ {
		rings = append(rings, g.InteriorRing(i).CoordSeq().ToCoords())
	}
	return rings, nil
}

// geomFromMultiPolygonCoords rebuilds a geometry from raw ring coordinates,
// returning a Polygon when there is a single part.
func geomFromMultiPolygonCoords(coords [][][][]float64) *geos.Geom {
	if len(coords) == 1 {
		return geos.NewPolygon(coords[0])
	}
	polys := make([]*geos.Geom, len(coords))
	for i, p := range coords {
		polys[i] = geos.NewPolygon(p)
	}
	return geos.NewCollection(geos.TypeIDMultiPolygon, polys)
}

// boundsOf computes the bounding box of a polygonal geometry in the form the
// rtree index wants.
func boundsOf(g *geos.Geom) (*geom.Bounds, error) {
	coords, err := multiPolygonCoords(g)
	if err != nil {
		return nil, err
	}
	b := &geom.Bounds{
		Min: geom.Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: geom.Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	for _, polygon := range coords {
		for _, ring := range polygon {
			for _, c := range ring {
				b.Min.X = math.Min(b.Min.X, c[0])
				b.Min.Y = math.Min(b.Min.Y, c[1])
				b.Max.X = math.Max(b.Max.X, c[0])
				b.Max.Y = math.Max(b.Max.Y, c[1])
			}
		}
	}
	return b, nil
}
