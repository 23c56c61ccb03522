// Package geo converts scene shapes into simplefeatures geometries and moves coordinates
// between coordinate reference systems.
package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// ErrUnsupportedEPSG is returned when a coordinate transform yields no usable result.
var ErrUnsupportedEPSG = errors.New("unsupported EPSG code")

// Common EPSG codes.
const (
	WGS84       = 4326
	WebMercator = 3857
)

// ToGeometry converts a shape into a geometry:
// line and cline become a LineString, circle its center Point (the radius is not
// representable), and polygon a Polygon with its ring closed. Polygons with fewer than
// three vertices degrade to a LineString or Point.
//
// Rings and lines are built without topology validation, so self-intersecting and
// collinear polygons and zero-length lines convert as drawn. Non-finite coordinates
// fail with scene.ErrNonFinite.
func ToGeometry(s scene.Shape) (geom.Geometry, error) {
	switch {
	case s.Kind.LineLike():
		if s.Point1 == nil || s.Point2 == nil {
			return geom.Geometry{}, fmt.Errorf("%s: %w", s.Kind, scene.ErrIncompleteShape)
		}
		ls, err := lineString(*s.Point1, *s.Point2)
		if err != nil {
			return geom.Geometry{}, fmt.Errorf("%s: %w", s.Kind, err)
		}
		return ls.AsGeometry(), nil
	case s.Kind == scene.KindCircle:
		if s.Center == nil {
			return geom.Geometry{}, fmt.Errorf("%s: %w", s.Kind, scene.ErrIncompleteShape)
		}
		pt, err := point(*s.Center)
		if err != nil {
			return geom.Geometry{}, fmt.Errorf("%s: %w", s.Kind, err)
		}
		return pt.AsGeometry(), nil
	case s.Kind == scene.KindPolygon:
		g, err := polygon(s.Points)
		if err != nil {
			return geom.Geometry{}, fmt.Errorf("%s: %w", s.Kind, err)
		}
		return g, nil
	}
	return geom.Geometry{}, &scene.UnknownKindError{Name: s.Kind.String()}
}

// WKT returns the well-known text of the shape's geometry.
func WKT(s scene.Shape) (string, error) {
	g, err := ToGeometry(s)
	if err != nil {
		return "", err
	}
	return g.AsText(), nil
}

func polygon(points []scene.Point) (geom.Geometry, error) {
	switch len(points) {
	case 0:
		return geom.Polygon{}.AsGeometry(), nil
	case 1:
		pt, err := point(points[0])
		return pt.AsGeometry(), err
	case 2:
		ls, err := lineString(points...)
		return ls.AsGeometry(), err
	}
	ring := points
	if ring[0] != ring[len(ring)-1] {
		ring = append(append([]scene.Point(nil), ring...), ring[0])
	}
	ls, err := lineString(ring...)
	if err != nil {
		return geom.Geometry{}, err
	}
	poly, err := geom.NewPolygon([]geom.LineString{ls}, geom.DisableAllValidations)
	if err != nil {
		return geom.Geometry{}, err
	}
	return poly.AsGeometry(), nil
}

func point(p scene.Point) (geom.Point, error) {
	if !finite(p.X) || !finite(p.Y) {
		return geom.Point{}, fmt.Errorf("%w: (%g, %g)", scene.ErrNonFinite, p.X, p.Y)
	}
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}, Type: geom.DimXY})
}

func lineString(points ...scene.Point) (geom.LineString, error) {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		if !finite(p.X) || !finite(p.Y) {
			return geom.LineString{}, fmt.Errorf("%w: (%g, %g)", scene.ErrNonFinite, p.X, p.Y)
		}
		flat = append(flat, p.X, p.Y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY), geom.DisableAllValidations)
}

// ReprojectPoint transforms p from one EPSG coordinate reference system to another.
func ReprojectPoint(p scene.Point, from, to int) (scene.Point, error) {
	if from == to {
		return p, nil
	}
	f := wgs84.EPSG().Transform(from, to)
	x, y, _ := f(p.X, p.Y, 0)
	if !finite(x) || !finite(y) {
		return scene.Point{}, fmt.Errorf("%w: %d -> %d", ErrUnsupportedEPSG, from, to)
	}
	return scene.Point{X: x, Y: y}, nil
}

// ReprojectBBox transforms the four corners of b and returns the box spanning them.
// An empty box stays empty.
func ReprojectBBox(b scene.BBox, from, to int) (scene.BBox, error) {
	lo, hi, ok := b.MinMax()
	if !ok {
		return b, nil
	}
	corners := []scene.Point{lo, {X: lo.X, Y: hi.Y}, hi, {X: hi.X, Y: lo.Y}}
	var out scene.BBox
	for _, c := range corners {
		p, err := ReprojectPoint(c, from, to)
		if err != nil {
			return scene.BBox{}, err
		}
		out = out.Extend(p)
	}
	return out, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
