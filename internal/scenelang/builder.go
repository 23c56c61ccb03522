package scenelang

import "github.com/dataviewer2d/dataviewer/pkg/scene"

// pointSlot selects which endpoint of a line-like shape a point fills.
type pointSlot int

const (
	slotFirst pointSlot = iota
	slotSecond
)

// shapeBuilder accumulates the attributes of one shape in source order.
type shapeBuilder struct {
	kind   scene.Kind
	ends   [2]*scene.Point
	points []scene.Point
	center *scene.Point
	radius *float64
	width  *float64
	color  *string
	note   *string
	layer  *string
}

func newShapeBuilder(kind scene.Kind) *shapeBuilder {
	return &shapeBuilder{kind: kind}
}

// nextSlot is where a bare "point" lands on a line: the first endpoint until it is taken,
// then the second. A third bare point overwrites the second.
func (b *shapeBuilder) nextSlot() pointSlot {
	if b.ends[slotFirst] == nil {
		return slotFirst
	}
	return slotSecond
}

// setPoint stores a point attribute and reports whether the key applies to the kind.
func (b *shapeBuilder) setPoint(key string, p scene.Point) bool {
	switch {
	case b.kind.LineLike():
		var slot pointSlot
		switch key {
		case "point":
			slot = b.nextSlot()
		case "point1":
			slot = slotFirst
		case "point2":
			slot = slotSecond
		default:
			return false
		}
		b.ends[slot] = &p
	case b.kind == scene.KindCircle:
		if key != "center" {
			return false
		}
		b.center = &p
	case b.kind == scene.KindPolygon:
		if key != "point" {
			return false
		}
		b.points = append(b.points, p)
	default:
		return false
	}
	return true
}

func (b *shapeBuilder) setNumber(key string, f float64) bool {
	switch key {
	case "width":
		b.width = &f
	case "radius":
		if b.kind != scene.KindCircle {
			return false
		}
		b.radius = &f
	default:
		return false
	}
	return true
}

func (b *shapeBuilder) setString(key, v string) {
	switch key {
	case "color":
		b.color = &v
	case "comment":
		b.note = &v
	case "layer":
		b.layer = &v
	}
}

func (b *shapeBuilder) build() scene.Shape {
	s := scene.Shape{
		Kind:    b.kind,
		Width:   b.width,
		Color:   b.color,
		Comment: b.note,
		Layer:   b.layer,
	}
	switch {
	case b.kind.LineLike():
		s.Point1, s.Point2 = b.ends[slotFirst], b.ends[slotSecond]
	case b.kind == scene.KindCircle:
		s.Center, s.Radius = b.center, b.radius
	case b.kind == scene.KindPolygon:
		s.Points = b.points
	}
	return s
}
