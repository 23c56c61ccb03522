package scenelang

import (
	"errors"
	"fmt"
)

// ErrNotScene is returned when the token stream does not open with "( scene".
var ErrNotScene = errors.New("input does not start with a scene")

// SyntaxError describes a structural problem the parser recovered from.
// Pos is the index of the offending token in the input stream.
type SyntaxError struct {
	Pos   int
	Shape string
	Msg   string
}

func (e *SyntaxError) Error() string {
	if e.Shape == "" {
		return fmt.Sprintf("token %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("token %d: %s: %s", e.Pos, e.Shape, e.Msg)
}
