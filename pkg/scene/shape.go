// pkg/scene/shape.go
package scene

import "encoding/json"

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Kind tags the variant a Shape holds.
type Kind int

const (
	KindLine Kind = iota
	KindCLine
	KindCircle
	KindPolygon
)

var kindNames = [...]string{
	KindLine:    "line",
	KindCLine:   "cline",
	KindCircle:  "circle",
	KindPolygon: "polygon",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// LineLike reports whether the kind carries a Point1/Point2 pair.
func (k Kind) LineLike() bool {
	return k == KindLine || k == KindCLine
}

// ParseKind maps a shape type name to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Shape is one drawable primitive. Which geometry fields are meaningful depends on Kind:
// line and cline use Point1/Point2, circle uses Center/Radius, polygon uses Points.
// Nil pointers mean the attribute was absent in the source.
type Shape struct {
	Kind Kind

	Point1 *Point
	Point2 *Point

	Center *Point
	Radius *float64

	Points []Point

	Width   *float64
	Color   *string
	Comment *string
	Layer   *string
}

// Scene is everything drawn in one frame, in paint order.
type Scene []Shape

// Line builds a line shape between two points.
func Line(p1, p2 Point) Shape {
	return Shape{Kind: KindLine, Point1: &p1, Point2: &p2}
}

// CLine builds a construction line between two points.
func CLine(p1, p2 Point) Shape {
	return Shape{Kind: KindCLine, Point1: &p1, Point2: &p2}
}

// Circle builds a circle shape.
func Circle(center Point, radius float64) Shape {
	return Shape{Kind: KindCircle, Center: &center, Radius: &radius}
}

// Polygon builds a polygon from its vertices.
func Polygon(points ...Point) Shape {
	return Shape{Kind: KindPolygon, Points: append([]Point(nil), points...)}
}

// WithWidth returns a copy of s with the width set.
func (s Shape) WithWidth(w float64) Shape {
	s.Width = &w
	return s
}

// WithColor returns a copy of s with the color set.
func (s Shape) WithColor(c string) Shape {
	s.Color = &c
	return s
}

// WithComment returns a copy of s with the comment set.
func (s Shape) WithComment(c string) Shape {
	s.Comment = &c
	return s
}

// WithLayer returns a copy of s with the layer set.
func (s Shape) WithLayer(l string) Shape {
	s.Layer = &l
	return s
}

// shapeJSON is the layout the web viewer consumes.
type shapeJSON struct {
	Type    string   `json:"type"`
	Point1  *Point   `json:"point1,omitempty"`
	Point2  *Point   `json:"point2,omitempty"`
	Center  *Point   `json:"center,omitempty"`
	Radius  *float64 `json:"radius,omitempty"`
	Points  *[]Point `json:"points,omitempty"`
	Width   *float64 `json:"width,omitempty"`
	Color   *string  `json:"color,omitempty"`
	Comment *string  `json:"comment,omitempty"`
	Layer   *string  `json:"layer,omitempty"`
}

// MarshalJSON encodes the shape as {"type": "...", ...} with absent attributes omitted.
func (s Shape) MarshalJSON() ([]byte, error) {
	out := shapeJSON{
		Type:    s.Kind.String(),
		Width:   s.Width,
		Color:   s.Color,
		Comment: s.Comment,
		Layer:   s.Layer,
	}
	switch {
	case s.Kind.LineLike():
		out.Point1, out.Point2 = s.Point1, s.Point2
	case s.Kind == KindCircle:
		out.Center, out.Radius = s.Center, s.Radius
	case s.Kind == KindPolygon:
		pts := s.Points
		if pts == nil {
			pts = []Point{}
		}
		out.Points = &pts
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the layout produced by MarshalJSON.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var in shapeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	kind, ok := ParseKind(in.Type)
	if !ok {
		return &UnknownKindError{Name: in.Type}
	}
	*s = Shape{
		Kind:    kind,
		Width:   in.Width,
		Color:   in.Color,
		Comment: in.Comment,
		Layer:   in.Layer,
	}
	switch {
	case kind.LineLike():
		s.Point1, s.Point2 = in.Point1, in.Point2
	case kind == KindCircle:
		s.Center, s.Radius = in.Center, in.Radius
	case kind == KindPolygon && in.Points != nil:
		s.Points = *in.Points
	}
	return nil
}

// UnknownKindError is returned when a shape type name is not one of the known kinds.
type UnknownKindError struct {
	Name string
}

func (e *UnknownKindError) Error() string {
	return "unknown shape type: " + e.Name
}
