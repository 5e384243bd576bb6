// Package dice parses dice notation such as "2D6+3", "1D10" and "+1D4".
// Intentionally small: one dice term and an optional flat modifier.
package dice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotation is returned for text that is not dice notation.
var ErrNotation = errors.New("invalid dice notation")

// Roller draws a single die.
type Roller interface {
	Roll(sides int) int
}

// Expr is a parsed dice expression: Count dice of Faces sides plus Modifier.
// Negative flips the sign of the whole roll.
type Expr struct {
	Count    int
	Faces    int
	Modifier int
	Negative bool
}

// IsZero reports whether the expression always rolls zero.
func (e Expr) IsZero() bool {
	return e.Count == 0 && e.Modifier == 0
}

// Roll evaluates the expression.
func (e Expr) Roll(r Roller) int {
	total := e.Modifier
	for i := 0; i < e.Count; i++ {
		total += r.Roll(e.Faces)
	}
	if e.Negative {
		return -total
	}
	return total
}

func (e Expr) String() string {
	if e.IsZero() {
		return "0"
	}
	var b strings.Builder
	if e.Negative {
		b.WriteByte('-')
	}
	if e.Count > 0 {
		fmt.Fprintf(&b, "%dD%d", e.Count, e.Faces)
		if e.Modifier > 0 {
			fmt.Fprintf(&b, "+%d", e.Modifier)
		} else if e.Modifier < 0 {
			fmt.Fprintf(&b, "%d", e.Modifier)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "%d", e.Modifier)
	return b.String()
}

// Parse parses notation like "1D10", "2d6+3", "3D6-1" or a bare integer.
// Empty input and "0" are the zero expression.
func Parse(s string) (Expr, error) {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if s == "" || s == "0" {
		return Expr{}, nil
	}

	var e Expr
	switch s[0] {
	case '-':
		e.Negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	d := strings.IndexByte(s, 'D')
	if d < 0 {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Expr{}, fmt.Errorf("%w: %q", ErrNotation, s)
		}
		e.Modifier = n
		return e, nil
	}

	count := 1
	if d > 0 {
		n, err := strconv.Atoi(s[:d])
		if err != nil || n < 0 {
			return Expr{}, fmt.Errorf("%w: bad dice count in %q", ErrNotation, s)
		}
		count = n
	}

	rest := s[d+1:]
	mod := 0
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		n, err := strconv.Atoi(rest[i:])
		if err != nil {
			return Expr{}, fmt.Errorf("%w: bad modifier in %q", ErrNotation, s)
		}
		mod = n
		rest = rest[:i]
	}

	faces, err := strconv.Atoi(rest)
	if err != nil || faces < 1 {
		return Expr{}, fmt.Errorf("%w: bad faces in %q", ErrNotation, s)
	}

	e.Count = count
	e.Faces = faces
	e.Modifier = mod
	return e, nil
}

// MustParse is Parse for notation known at compile time.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}
