package scenelang

import (
	"strconv"
	"strings"

	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// Serializer writes scenes in canonical form.
//
// Comment and layer attributes are read by the parser but only written when Metadata is
// set, so the default output matches the established log format. A string attribute
// holding a double quote, a ';' or a line break has no spelling the tokenizer reads
// back, so it is left out.
type Serializer struct {
	Metadata bool
}

var defaultSerializer Serializer

// Serialize renders shapes as a "(scene" block with one shape per indented line.
func Serialize(shapes scene.Scene) string {
	return defaultSerializer.Serialize(shapes)
}

// SerializeFrame renders shapes on a single line, the form stored in a frame log.
func SerializeFrame(shapes scene.Scene) string {
	return defaultSerializer.SerializeFrame(shapes)
}

// Serialize renders shapes as a "(scene" block with one shape per indented line.
func (s Serializer) Serialize(shapes scene.Scene) string {
	var b strings.Builder
	b.WriteString("(scene\n")
	for _, shape := range shapes {
		b.WriteString("  ")
		s.writeShape(&b, shape)
		b.WriteByte('\n')
	}
	b.WriteByte(')')
	return b.String()
}

// SerializeFrame renders shapes on a single line.
func (s Serializer) SerializeFrame(shapes scene.Scene) string {
	var b strings.Builder
	b.WriteString("(scene")
	for _, shape := range shapes {
		b.WriteByte(' ')
		s.writeShape(&b, shape)
	}
	if len(shapes) == 0 {
		b.WriteByte(' ')
	}
	b.WriteByte(')')
	return b.String()
}

// SerializeShape renders a single shape expression.
func (s Serializer) SerializeShape(shape scene.Shape) string {
	var b strings.Builder
	s.writeShape(&b, shape)
	return b.String()
}

func (s Serializer) writeShape(b *strings.Builder, shape scene.Shape) {
	b.WriteByte('(')
	b.WriteString(shape.Kind.String())
	head := b.Len()
	switch {
	case shape.Kind == scene.KindPolygon:
		for _, p := range shape.Points {
			writePoint(b, "point", p)
		}
	case shape.Kind.LineLike():
		if shape.Point1 != nil {
			writePoint(b, "point", *shape.Point1)
		}
		if shape.Point2 != nil {
			writePoint(b, "point", *shape.Point2)
		}
	case shape.Kind == scene.KindCircle:
		if shape.Center != nil {
			writePoint(b, "center", *shape.Center)
		}
		if shape.Radius != nil {
			writeNumber(b, "radius", *shape.Radius)
		}
	}
	if shape.Width != nil {
		writeNumber(b, "width", *shape.Width)
	}
	if shape.Color != nil {
		writeString(b, "color", *shape.Color)
	}
	if s.Metadata {
		if shape.Comment != nil {
			writeString(b, "comment", *shape.Comment)
		}
		if shape.Layer != nil {
			writeString(b, "layer", *shape.Layer)
		}
	}
	// A word runs into a ')' that follows it directly.
	if b.Len() == head {
		b.WriteByte(' ')
	}
	b.WriteByte(')')
}

func writePoint(b *strings.Builder, key string, p scene.Point) {
	b.WriteString(" (")
	b.WriteString(key)
	b.WriteByte(' ')
	b.WriteString(FormatNumber(p.X))
	b.WriteByte(' ')
	b.WriteString(FormatNumber(p.Y))
	b.WriteByte(')')
}

func writeNumber(b *strings.Builder, key string, f float64) {
	b.WriteString(" (")
	b.WriteString(key)
	b.WriteByte(' ')
	b.WriteString(FormatNumber(f))
	b.WriteByte(')')
}

func writeString(b *strings.Builder, key, v string) {
	if !Representable(v) {
		return
	}
	b.WriteString(" (")
	b.WriteString(key)
	b.WriteString(` "`)
	b.WriteString(v)
	b.WriteString(`")`)
}

// Representable reports whether v can be written as a quoted string and read back
// unchanged.
func Representable(v string) bool {
	return !strings.ContainsAny(v, "\";\r\n")
}

// FormatNumber prints f in plain decimal with at least one fractional digit
// (3 -> "3.0", 0.25 -> "0.25"). Exponent notation is never used.
func FormatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if strings.ContainsAny(s, ".NI") {
		return s
	}
	return s + ".0"
}
