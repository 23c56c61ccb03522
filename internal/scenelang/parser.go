package scenelang

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// Logger receives parser diagnostics. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger routes diagnostics to l.
func WithLogger(l Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.log = l
		}
	}
}

// Parser turns token streams into scenes. It holds no per-parse state and is safe for
// concurrent use.
type Parser struct {
	log Logger
}

// NewParser creates a Parser. Without WithLogger diagnostics are discarded.
func NewParser(opts ...Option) *Parser {
	p := &Parser{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse decodes tokens with a Parser that discards diagnostics.
func Parse(tokens []string) (scene.Scene, error) {
	return defaultParser.Parse(tokens)
}

// ParseString tokenizes and parses src.
func ParseString(src string) (scene.Scene, error) {
	return defaultParser.Parse(Tokenize(src))
}

// ParseString tokenizes and parses src.
func (p *Parser) ParseString(src string) (scene.Scene, error) {
	return p.Parse(Tokenize(src))
}

// Parse decodes one scene expression. Tokens after the scene's closing ')' are ignored.
//
// A stream that does not open with "( scene" yields an empty scene and ErrNotScene.
// Unknown shape types and unknown attribute keys are logged and skipped. Truncated or
// malformed attribute values leave that attribute unset; they are returned as joined
// *SyntaxError values next to the best-effort scene.
func (p *Parser) Parse(tokens []string) (scene.Scene, error) {
	if len(tokens) < 2 || tokens[0] != "(" || tokens[1] != "scene" {
		p.log.Warn("input does not start with a scene", "tokens", len(tokens))
		return scene.Scene{}, ErrNotScene
	}
	st := &state{toks: tokens, pos: 2, log: p.log}
	shapes := st.scene()
	return shapes, errors.Join(st.errs...)
}

// state is the cursor over one token stream.
type state struct {
	toks []string
	pos  int
	log  Logger
	errs []error
}

func (s *state) peek() (string, bool) {
	if s.pos >= len(s.toks) {
		return "", false
	}
	return s.toks[s.pos], true
}

func (s *state) next() (string, bool) {
	tok, ok := s.peek()
	if ok {
		s.pos++
	}
	return tok, ok
}

func (s *state) fail(shape, msg string) {
	err := &SyntaxError{Pos: s.pos, Shape: shape, Msg: msg}
	s.errs = append(s.errs, err)
	s.log.Warn("scene syntax error", "pos", s.pos, "shape", shape, "error", msg)
}

// skipGroup consumes tokens through the ')' matching an already consumed '('.
func (s *state) skipGroup() {
	depth := 0
	for {
		tok, ok := s.next()
		if !ok {
			return
		}
		switch tok {
		case "(":
			depth++
		case ")":
			if depth == 0 {
				return
			}
			depth--
		}
	}
}

func (s *state) scene() scene.Scene {
	shapes := scene.Scene{}
	for {
		tok, ok := s.peek()
		if !ok {
			s.log.Debug("scene not closed", "pos", s.pos)
			return shapes
		}
		if tok == ")" {
			s.pos++
			return shapes
		}
		if tok != "(" {
			s.log.Debug("skipping unexpected token", "pos", s.pos, "token", tok)
			s.pos++
			continue
		}
		s.pos++

		name, ok := s.peek()
		if !ok {
			s.log.Debug("scene ends after '('", "pos", s.pos)
			return shapes
		}
		kind, known := scene.ParseKind(name)
		if !known {
			s.log.Warn("unknown shape type", "pos", s.pos, "type", name)
			s.skipGroup()
			continue
		}
		s.pos++
		shapes = append(shapes, s.shape(kind))
	}
}

func (s *state) shape(kind scene.Kind) scene.Shape {
	b := newShapeBuilder(kind)
	for {
		tok, ok := s.peek()
		if !ok {
			s.log.Debug("shape not closed", "pos", s.pos, "shape", kind)
			return b.build()
		}
		switch tok {
		case ")":
			s.pos++
			return b.build()
		case "(":
			s.pos++
			s.attribute(b)
		default:
			s.log.Warn("unexpected token in shape", "pos", s.pos, "shape", kind, "token", tok)
			s.skipGroup()
			return b.build()
		}
	}
}

func (s *state) attribute(b *shapeBuilder) {
	shape := b.kind.String()
	key, ok := s.next()
	if !ok {
		s.fail(shape, "attribute ends before its key")
		return
	}

	switch key {
	case "(":
		s.log.Warn("nested group in attribute position", "pos", s.pos, "shape", shape)
		s.skipGroup()
		s.skipGroup()
		return
	case ")":
		s.log.Debug("empty attribute", "pos", s.pos, "shape", shape)
		return
	case "point", "point1", "point2", "center":
		if p, ok := s.point(shape, key); ok && !b.setPoint(key, p) {
			s.log.Warn("attribute does not apply to shape", "pos", s.pos, "shape", shape, "key", key)
		}
	case "radius", "width":
		if f, ok := s.number(shape, key); ok && !b.setNumber(key, f) {
			s.log.Warn("attribute does not apply to shape", "pos", s.pos, "shape", shape, "key", key)
		}
	case "color", "comment", "layer":
		if str, ok := s.str(shape, key); ok {
			b.setString(key, str)
		}
	default:
		s.log.Warn("unknown attribute", "pos", s.pos, "shape", shape, "key", key)
		s.skipGroup()
		return
	}

	tok, ok := s.peek()
	switch {
	case !ok:
		s.log.Debug("attribute not closed", "pos", s.pos, "shape", shape, "key", key)
	case tok == ")":
		s.pos++
	default:
		s.log.Warn("extra values in attribute", "pos", s.pos, "shape", shape, "key", key, "token", tok)
		s.skipGroup()
	}
}

// value returns the next token if it can be an attribute value.
func (s *state) value(shape, key string) (string, bool) {
	tok, ok := s.peek()
	if !ok || tok == "(" || tok == ")" {
		s.fail(shape, fmt.Sprintf("%s: missing value", key))
		return "", false
	}
	s.pos++
	return tok, true
}

func (s *state) number(shape, key string) (float64, bool) {
	tok, ok := s.value(shape, key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		s.fail(shape, fmt.Sprintf("%s: invalid number %q", key, tok))
		return 0, false
	}
	return f, true
}

func (s *state) point(shape, key string) (scene.Point, bool) {
	x, ok := s.number(shape, key)
	if !ok {
		return scene.Point{}, false
	}
	y, ok := s.number(shape, key)
	if !ok {
		return scene.Point{}, false
	}
	return scene.Point{X: x, Y: y}, true
}

func (s *state) str(shape, key string) (string, bool) {
	tok, ok := s.value(shape, key)
	if !ok {
		return "", false
	}
	return strings.Trim(tok, `"`), true
}
