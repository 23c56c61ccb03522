package scenelang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "line frame",
			input: `(scene (line (point 0 0) (point 3 4) (color "red")))`,
			want: []string{
				"(", "scene", "(", "line",
				"(", "point", "0", "0", ")",
				"(", "point", "3", "4", ")",
				"(", "color", `"red"`, ")",
				")", ")",
			},
		},
		{
			name:  "numbers",
			input: "-1.5 2 -3 0.25",
			want:  []string{"-1.5", "2", "-3", "0.25"},
		},
		{
			name:  "quoted string keeps spaces and quotes",
			input: `(color "dark red")`,
			want:  []string{"(", "color", `"dark red"`, ")"},
		},
		{
			name:  "number followed by letters splits",
			input: "1.5abc",
			want:  []string{"1.5", "abc"},
		},
		{
			name:  "unmatched quote degrades to symbol",
			input: `(color "red)`,
			want:  []string{"(", "color", `"red)`},
		},
		{
			name:  "symbol swallows trailing paren",
			input: "(color red)",
			want:  []string{"(", "color", "red)"},
		},
		{
			name:  "bare shape name swallows its close",
			input: "(line)",
			want:  []string{"(", "line)"},
		},
		{
			name:  "multiple lines",
			input: "(scene\n  (line )\n)",
			want:  []string{"(", "scene", "(", "line", ")", ")"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestTokenize_StripsComments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "trailing comment",
			input: "(scene (line (point 0 0))) ; (circle (radius 1))",
			want:  []string{"(", "scene", "(", "line", "(", "point", "0", "0", ")", ")", ")"},
		},
		{
			name:  "comment inside nesting",
			input: "(scene (line ; (point 0 0)))",
			want:  []string{"(", "scene", "(", "line"},
		},
		{
			name:  "semicolon inside quotes still starts a comment",
			input: `(color "a;b")`,
			want:  []string{"(", "color", `"a`},
		},
		{
			name:  "per line in multi-line input",
			input: "(scene ; header\n(line ) ; body\n)",
			want:  []string{"(", "scene", "(", "line", ")", ")"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, ";")
		})
	}
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   "))
	assert.Empty(t, Tokenize("; only a comment"))
}

func TestStripComment(t *testing.T) {
	assert.Equal(t, "(scene) ", StripComment("(scene) ; note"))
	assert.Equal(t, "(scene)", StripComment("(scene)"))
	assert.Equal(t, "", StripComment(";"))
}
