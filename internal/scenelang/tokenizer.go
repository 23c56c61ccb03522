// Package scenelang reads and writes the parenthesized scene description language:
// one `(scene (<shape> (<key> <values>…) …) …)` expression per frame.
package scenelang

import (
	"regexp"
	"strings"
)

// Alternatives are tried left to right at each position, so a quoted string wins over a
// number and a number wins over a generic symbol.
var tokenPattern = regexp.MustCompile(`"[^"]*"|\(|\)|-?\d+\.\d+|-?\d+|\S+`)

// Tokenize splits src into tokens. Each line has everything from its first ';' dropped
// before it is scanned. Quoted strings keep their quotes.
func Tokenize(src string) []string {
	var tokens []string
	for _, line := range strings.Split(src, "\n") {
		line = StripComment(line)
		tokens = append(tokens, tokenPattern.FindAllString(line, -1)...)
	}
	return tokens
}

// StripComment removes everything from the first ';' to the end of line.
func StripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}
