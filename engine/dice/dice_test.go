package dice

import (
	"errors"
	"testing"
)

// fixedRoller always returns the same face.
type fixedRoller int

func (f fixedRoller) Roll(int) int { return int(f) }

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Expr
	}{
		{"", Expr{}},
		{"0", Expr{}},
		{"1D10", Expr{Count: 1, Faces: 10}},
		{"d6", Expr{Count: 1, Faces: 6}},
		{"2d6+3", Expr{Count: 2, Faces: 6, Modifier: 3}},
		{"3D6-1", Expr{Count: 3, Faces: 6, Modifier: -1}},
		{"+1D4", Expr{Count: 1, Faces: 4}},
		{"+2D6", Expr{Count: 2, Faces: 6}},
		{"-2", Expr{Modifier: 2, Negative: true}},
		{"5", Expr{Modifier: 5}},
		{" 1 D 8 ", Expr{Count: 1, Faces: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"abc", "1D", "xD6", "1D0", "1D6+x"} {
		if _, err := Parse(input); !errors.Is(err, ErrNotation) {
			t.Errorf("Parse(%q): expected ErrNotation, got %v", input, err)
		}
	}
}

func TestExpr_Roll(t *testing.T) {
	tests := []struct {
		expr Expr
		face int
		want int
	}{
		{MustParse("2D6+3"), 4, 11},
		{MustParse("1D4"), 2, 2},
		{MustParse("-2"), 6, -2},
		{MustParse("0"), 6, 0},
	}
	for _, tt := range tests {
		if got := tt.expr.Roll(fixedRoller(tt.face)); got != tt.want {
			t.Errorf("%s with face %d: got %d, want %d", tt.expr, tt.face, got, tt.want)
		}
	}
}

func TestExpr_String(t *testing.T) {
	for _, s := range []string{"0", "1D10", "2D6+3", "3D6-1", "-2"} {
		if got := MustParse(s).String(); got != s {
			t.Errorf("String() = %q, want %q", got, s)
		}
	}
}
