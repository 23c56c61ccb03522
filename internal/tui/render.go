package tui

import (
	"strings"

	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// viewBox returns the area the preview shows: the dataset bounding box, or the extent of the
// current frame when the dataset has none. Degenerate extents are padded so every axis has
// a width.
func (m Model) viewBox() (lo, hi scene.Point, ok bool) {
	lo, hi, ok = m.lo, m.hi, m.bounded
	if !ok {
		var box scene.BBox
		for _, s := range m.shapes {
			pts, err := s.ExtentPoints()
			if err != nil {
				continue
			}
			for _, p := range pts {
				box = box.Extend(p)
			}
		}
		lo, hi, ok = box.MinMax()
	}
	if !ok {
		return lo, hi, false
	}
	if hi.X <= lo.X {
		lo.X, hi.X = lo.X-1, hi.X+1
	}
	if hi.Y <= lo.Y {
		lo.Y, hi.Y = lo.Y-1, hi.Y+1
	}
	return lo, hi, true
}

// projector maps world coordinates onto the microgrid of a w x h cell canvas, y up.
type projector struct {
	lo, hi     scene.Point
	wMic, hMic int
}

func (p projector) scaleX() float64 {
	return float64(p.wMic-1) / (p.hi.X - p.lo.X)
}

func (p projector) scaleY() float64 {
	return float64(p.hMic-1) / (p.hi.Y - p.lo.Y)
}

func (p projector) xy(pt scene.Point) (int, int) {
	sx := (pt.X - p.lo.X) * p.scaleX()
	sy := (p.hi.Y - pt.Y) * p.scaleY()
	return int(sx + 0.5), int(sy + 0.5)
}

// renderPreview draws the current frame on a w x h cell braille canvas.
func (m Model) renderPreview(w, h int) string {
	br := newBrailleBuf(w, h)
	lo, hi, ok := m.viewBox()
	if ok && w > 0 && h > 0 {
		drawScene(br, projector{lo: lo, hi: hi, wMic: w * 2, hMic: h * 4}, m.shapes)
	}
	return strings.Join(br.toLines(), "\n")
}

func drawScene(br *brailleBuf, p projector, shapes scene.Scene) {
	for _, s := range shapes {
		switch {
		case s.Kind.LineLike():
			if s.Point1 == nil || s.Point2 == nil {
				continue
			}
			x0, y0 := p.xy(*s.Point1)
			x1, y1 := p.xy(*s.Point2)
			br.drawLine(x0, y0, x1, y1, s.Kind == scene.KindCLine)
		case s.Kind == scene.KindCircle:
			if s.Center == nil || s.Radius == nil {
				continue
			}
			cx, cy := p.xy(*s.Center)
			r := *s.Radius
			br.drawEllipse(float64(cx), float64(cy), r*p.scaleX(), r*p.scaleY())
		case s.Kind == scene.KindPolygon:
			n := len(s.Points)
			for i := 0; i < n; i++ {
				x0, y0 := p.xy(s.Points[i])
				x1, y1 := p.xy(s.Points[(i+1)%n])
				br.drawLine(x0, y0, x1, y1, false)
			}
		}
	}
}
