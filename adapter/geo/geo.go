// Package geo implements the injected geo library (C8): GeoJSON
// point-to-point geodesic distance and a coarse geometry/circle overlap
// test, plus Euclidean pair-mode distance for $near's non-GeoJSON operand
// shape. This package has no precedent in the example pack this project
// was grown from — it wires github.com/paulmach/orb, the only dependency
// in this tree added purely to give $near a real implementation.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/eyalvardi/marsdb/domain"
)

// Geo implements [domain.Geo].
type Geo struct{}

// New returns a new [domain.Geo].
func New() domain.Geo {
	return &Geo{}
}

// PointDistance implements [domain.Geo]. p and q must each be decodable as
// GeoJSON Point geometries (a mapping with "type":"Point" and a
// "coordinates" pair, or an *geojson.Geometry/orb.Point already).
func (g *Geo) PointDistance(p, q any) (float64, error) {
	pp, err := asPoint(p)
	if err != nil {
		return 0, fmt.Errorf("$near point: %w", err)
	}
	qp, err := asPoint(q)
	if err != nil {
		return 0, fmt.Errorf("$near point: %w", err)
	}
	return orbgeo.Distance(pp, qp), nil
}

// GeometryWithinRadius implements [domain.Geo], a coarse boolean test used
// for $near candidates that are not themselves Points: it reports whether
// one of the four corners or the center of geom's bounding box lies within
// radius of center, non-geodesically (planar approximation — spec's stated
// non-goal for true geodesic geometry pairs). Other points of geom are not
// tested.
func (g *Geo) GeometryWithinRadius(geom, center any, radius float64) (bool, error) {
	cp, err := asPoint(center)
	if err != nil {
		return false, fmt.Errorf("$near center: %w", err)
	}
	g2, err := asGeometry(geom)
	if err != nil {
		return false, fmt.Errorf("$near geometry: %w", err)
	}
	bound := g2.Bound()
	for _, corner := range []orb.Point{
		bound.Min, bound.Max,
		{bound.Min[0], bound.Max[1]},
		{bound.Max[0], bound.Min[1]},
	} {
		if planar.Distance(cp, corner) <= radius {
			return true, nil
		}
	}
	return planar.Distance(cp, bound.Center()) <= radius, nil
}

// PairDistance implements [domain.Geo]: Euclidean distance between two
// 2-element coordinate pairs.
func (g *Geo) PairDistance(a, b [2]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return math.Sqrt(dx*dx + dy*dy)
}

func asPoint(v any) (orb.Point, error) {
	switch t := v.(type) {
	case orb.Point:
		return t, nil
	case *geojson.Geometry:
		p, ok := t.Geometry().(orb.Point)
		if !ok {
			return orb.Point{}, fmt.Errorf("expected Point geometry, got %T", t.Geometry())
		}
		return p, nil
	case domain.Document:
		coords, ok := t.Get("coordinates").([]any)
		if !ok || len(coords) != 2 {
			return orb.Point{}, fmt.Errorf("expected a 2-element coordinates array")
		}
		x, xok := asFloat(coords[0])
		y, yok := asFloat(coords[1])
		if !xok || !yok {
			return orb.Point{}, fmt.Errorf("non-numeric coordinates")
		}
		return orb.Point{x, y}, nil
	case []any:
		if len(t) != 2 {
			return orb.Point{}, fmt.Errorf("expected a 2-element coordinate pair")
		}
		x, xok := asFloat(t[0])
		y, yok := asFloat(t[1])
		if !xok || !yok {
			return orb.Point{}, fmt.Errorf("non-numeric coordinates")
		}
		return orb.Point{x, y}, nil
	default:
		return orb.Point{}, fmt.Errorf("cannot interpret %T as a GeoJSON point", v)
	}
}

func asGeometry(v any) (orb.Geometry, error) {
	doc, ok := v.(domain.Document)
	if !ok {
		return nil, fmt.Errorf("expected a GeoJSON geometry mapping, got %T", v)
	}
	typ, _ := doc.Get("type").(string)
	switch typ {
	case "Point":
		p, err := asPoint(doc)
		return p, err
	case "Polygon", "MultiPolygon", "LineString", "MultiPoint", "MultiLineString":
		// Only Point operands get a precise distance; other geometries get
		// a coarse bounding-box test via their raw coordinate extents.
		coords, _ := doc.Get("coordinates").([]any)
		return boundingRing(coords), nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", typ)
	}
}

func boundingRing(v any) orb.Geometry {
	var pts []orb.Point
	collect(v, &pts)
	ring := make(orb.Ring, 0, len(pts))
	ring = append(ring, pts...)
	return orb.Polygon{ring}
}

func collect(v any, out *[]orb.Point) {
	switch t := v.(type) {
	case []any:
		if len(t) == 2 {
			if x, xok := asFloat(t[0]); xok {
				if y, yok := asFloat(t[1]); yok {
					*out = append(*out, orb.Point{x, y})
					return
				}
			}
		}
		for _, e := range t {
			collect(e, out)
		}
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
