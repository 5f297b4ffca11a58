package motion

import (
	"strconv"
	"strings"
)

// PositionType tags how the six values of a Position are interpreted.
type PositionType int

const (
	TypeCartesian PositionType = iota
	TypeJoint
)

func (t PositionType) String() string {
	if t == TypeJoint {
		return "joint"
	}
	return "cartesian"
}

// Position is a fixed six component vector. A Cartesian position holds X, Y, Z in mm
// followed by RX, RY, RZ in degrees, a joint position holds J1..J6 in degrees.
type Position struct {
	Values [6]float64   `json:"values"`
	Type   PositionType `json:"type"`
}

// Cartesian is the named view of a cartesian Position.
type Cartesian struct {
	X, Y, Z, RX, RY, RZ float64
}

// Joint is the named view of a joint Position.
type Joint struct {
	J1, J2, J3, J4, J5, J6 float64
}

// NewPosition creates a position of type t from up to six values, missing values are zero.
func NewPosition(t PositionType, values ...float64) Position {
	p := Position{Type: t}
	copy(p.Values[:], values)

	return p
}

// NewCartesian creates a cartesian position.
func NewCartesian(x, y, z, rx, ry, rz float64) Position {
	return Position{Values: [6]float64{x, y, z, rx, ry, rz}, Type: TypeCartesian}
}

// NewJoint creates a joint position.
func NewJoint(j1, j2, j3, j4, j5, j6 float64) Position {
	return Position{Values: [6]float64{j1, j2, j3, j4, j5, j6}, Type: TypeJoint}
}

// ParsePosition parses a comma separated list such as "{1,2,3}".
//
// Surrounding braces, CR/LF and whitespace are trimmed. Parsing stops at the first
// token that isn't a number, components beyond the sixth are ignored and missing
// trailing components are zero.
func ParsePosition(s string, t PositionType) Position {
	p := Position{Type: t}

	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\r\n{}"))
	if s == "" {
		return p
	}

	for i, token := range strings.Split(s, ",") {
		if i >= len(p.Values) {
			break
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
		if err != nil {
			break
		}
		p.Values[i] = v
	}

	return p
}

// ParseCartesian parses a cartesian position, see ParsePosition.
func ParseCartesian(s string) Position {
	return ParsePosition(s, TypeCartesian)
}

// ParseJoint parses a joint position, see ParsePosition.
func ParseJoint(s string) Position {
	return ParsePosition(s, TypeJoint)
}

func (p Position) V1() float64 { return p.Values[0] }
func (p Position) V2() float64 { return p.Values[1] }
func (p Position) V3() float64 { return p.Values[2] }
func (p Position) V4() float64 { return p.Values[3] }
func (p Position) V5() float64 { return p.Values[4] }
func (p Position) V6() float64 { return p.Values[5] }

// Cartesian returns the X..RZ view of p regardless of its type tag.
func (p Position) Cartesian() Cartesian {
	v := p.Values
	return Cartesian{X: v[0], Y: v[1], Z: v[2], RX: v[3], RY: v[4], RZ: v[5]}
}

// Joint returns the J1..J6 view of p regardless of its type tag.
func (p Position) Joint() Joint {
	v := p.Values
	return Joint{J1: v[0], J2: v[1], J3: v[2], J4: v[3], J5: v[4], J6: v[5]}
}

// IsZero reports whether all six components are zero.
func (p Position) IsZero() bool {
	return p.Values == [6]float64{}
}

// CSV renders the six components with exactly three decimals, e.g. "1.000,2.000,...".
func (p Position) CSV() string {
	var sb strings.Builder
	sb.Grow(6 * 10)

	for i, v := range p.Values {
		if i > 0 {
			sb.WriteByte(',')
		}
		if v == 0 {
			v = 0 // normalize negative zero
		}
		sb.WriteString(strconv.FormatFloat(v, 'f', 3, 64))
	}

	return sb.String()
}

// Literal renders p as a robot float array literal, e.g. "{1.000,2.000,...}".
func (p Position) Literal() string {
	return "{" + p.CSV() + "}"
}

func (p Position) String() string {
	return p.Type.String() + p.Literal()
}
