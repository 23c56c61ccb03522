package scene

import (
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrIncompleteShape is returned when a shape lacks the geometry its kind requires.
var ErrIncompleteShape = errors.New("shape is missing required geometry")

// ErrNonFinite is returned when a coordinate is NaN or infinite.
var ErrNonFinite = errors.New("non-finite coordinate")

// BBox is an axis-aligned bounding box. The zero value is empty.
type BBox struct {
	env geom.Envelope
}

// NewBBox returns the box spanning the given points.
func NewBBox(points ...Point) BBox {
	var b BBox
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// Include returns the box grown to include p. A NaN or infinite coordinate leaves the box
// unchanged and returns ErrNonFinite.
func (b BBox) Include(p Point) (BBox, error) {
	env, err := b.env.ExtendToIncludeXY(geom.XY{X: p.X, Y: p.Y})
	if err != nil {
		return b, fmt.Errorf("%w: (%g, %g)", ErrNonFinite, p.X, p.Y)
	}
	return BBox{env: env}, nil
}

// Extend is Include for callers that skip non-finite points.
func (b BBox) Extend(p Point) BBox {
	b, _ = b.Include(p)
	return b
}

// IsEmpty reports whether no point has been merged yet.
func (b BBox) IsEmpty() bool {
	return b.env.IsEmpty()
}

// MinMax returns the lower-left and upper-right corners. ok is false for an empty box.
func (b BBox) MinMax() (lo, hi Point, ok bool) {
	minXY, maxXY, ok := b.env.MinMaxXYs()
	if !ok {
		return Point{}, Point{}, false
	}
	return Point{X: minXY.X, Y: minXY.Y}, Point{X: maxXY.X, Y: maxXY.Y}, true
}

// Min returns the lower-left corner, or the zero Point for an empty box.
func (b BBox) Min() Point {
	lo, _, _ := b.MinMax()
	return lo
}

// Max returns the upper-right corner, or the zero Point for an empty box.
func (b BBox) Max() Point {
	_, hi, _ := b.MinMax()
	return hi
}

func (b BBox) String() string {
	lo, hi, ok := b.MinMax()
	if !ok {
		return "BBox(empty)"
	}
	return fmt.Sprintf("BBox(%g %g, %g %g)", lo.X, lo.Y, hi.X, hi.Y)
}

// ExtentPoints returns the points a shape contributes to a bounding box: both endpoints of a
// line or cline, the four corners of a circle's bounding square, every polygon vertex.
// A line missing only its second point returns the first one along with
// ErrIncompleteShape.
func (s Shape) ExtentPoints() ([]Point, error) {
	switch {
	case s.Kind.LineLike():
		if s.Point1 == nil {
			return nil, fmt.Errorf("%s: %w", s.Kind, ErrIncompleteShape)
		}
		if s.Point2 == nil {
			return []Point{*s.Point1}, fmt.Errorf("%s: %w", s.Kind, ErrIncompleteShape)
		}
		return []Point{*s.Point1, *s.Point2}, nil
	case s.Kind == KindCircle:
		if s.Center == nil || s.Radius == nil {
			return nil, fmt.Errorf("%s: %w", s.Kind, ErrIncompleteShape)
		}
		c, r := *s.Center, *s.Radius
		return []Point{
			{X: c.X - r, Y: c.Y - r},
			{X: c.X - r, Y: c.Y + r},
			{X: c.X + r, Y: c.Y + r},
			{X: c.X + r, Y: c.Y - r},
		}, nil
	case s.Kind == KindPolygon:
		return s.Points, nil
	}
	return nil, &UnknownKindError{Name: s.Kind.String()}
}
