package motion

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [6]float64
	}{
		{"short input padded", "{1,2,3}", [6]float64{1, 2, 3, 0, 0, 0}},
		{"full input", "1.5,-2,3,180,0,-90", [6]float64{1.5, -2, 3, 180, 0, -90}},
		{"crlf and spaces", " {1, 2, 3, 4, 5, 6}\r\n", [6]float64{1, 2, 3, 4, 5, 6}},
		{"stops at first non-number", "{1,2,x,4}", [6]float64{1, 2, 0, 0, 0, 0}},
		{"extra components ignored", "1,2,3,4,5,6,7,8", [6]float64{1, 2, 3, 4, 5, 6}},
		{"empty", "", [6]float64{}},
		{"braces only", "{}", [6]float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			p := ParseCartesian(tt.input)
			require.Equal(tt.want, p.Values)
			require.Equal(TypeCartesian, p.Type)
		})
	}
}

func TestPosition_CSV(t *testing.T) {
	require := require.New(t)

	p := NewCartesian(1, 2, 3, 4, 5, 6)
	require.Equal("1.000,2.000,3.000,4.000,5.000,6.000", p.CSV())
	require.Equal("{1.000,2.000,3.000,4.000,5.000,6.000}", p.Literal())

	p = NewJoint(-0.0006, 12.34567, 0, -90, 0, 0)
	require.Equal("-0.001,12.346,0.000,-90.000,0.000,0.000", p.CSV())

	var zero Position
	require.Equal("0.000,0.000,0.000,0.000,0.000,0.000", zero.CSV())
	require.True(zero.IsZero())
}

func TestPosition_Views(t *testing.T) {
	require := require.New(t)

	p := NewPosition(TypeCartesian, 10, 20, 30, 180, 0, 90)
	c := p.Cartesian()
	require.Equal(10.0, c.X)
	require.Equal(30.0, c.Z)
	require.Equal(90.0, c.RZ)
	require.Equal(p.V6(), c.RZ)

	j := ParseJoint("{0,15,90,0,75,0}").Joint()
	require.Equal(15.0, j.J2)
	require.Equal(75.0, j.J5)
}
