package motion

import (
	"fmt"
	"strconv"
	"strings"
)

// Query is a script that makes the robot compute a value and return it through
// ListenSend on Channel.
type Query struct {
	// Tag is the script ID the robot acknowledges the script with.
	Tag string
	// Channel is the ListenSend channel number as echoed in the reply's script ID.
	Channel string
	// Script is the script text.
	Script string
}

func newQuery(tag string, index int, expr string) (Query, error) {
	if index < 0 || index > 9 {
		return Query{}, fmt.Errorf("%w: listen send index %d", ErrInvalidParameter, index)
	}

	ch := "9" + strconv.Itoa(index)

	return Query{Tag: tag, Channel: ch, Script: "ListenSend(" + ch + ", " + expr + ")" + scriptEOL}, nil
}

// precise wraps expr in GetString with 10 significant digits and 3 decimals.
func precise(expr string) string {
	return "GetString(" + expr + ", 10, 3)"
}

func plain(expr string) string {
	return "GetString(" + expr + ")"
}

func call(fn string, args ...string) string {
	return fn + "(" + strings.Join(args, ", ") + ")"
}

// BaseCoords queries the coordinates of the named base.
func BaseCoords(name string) Query {
	q, _ := newQuery("baseCoords", 0, plain("Base["+strconv.Quote(name)+"].Value"))
	return q
}

// ToolCoords queries the TCP offset of the named tool.
func ToolCoords(name string) Query {
	q, _ := newQuery("toolCoords", 0, plain("TCP["+strconv.Quote(name)+"].Value"))
	return q
}

// Landmark runs the "Landmark" vision job and returns its result.
func Landmark() Query {
	q, _ := newQuery("land", 0, `GetString(Vision_DoJob("Landmark"),2,0)`)
	return q
}

// Dist queries the distance between two points.
func Dist(index int, a, b Position) (Query, error) {
	return newQuery("dist", index, precise(call("dist", a.Literal(), b.Literal())))
}

// Points2Coord queries the coordinate system spanned by an origin and points on its X and Y axes.
func Points2Coord(index int, origin, xAxis, yAxis Position) (Query, error) {
	return newQuery("points2coord", index, plain(call("points2coord", origin.Literal(), xAxis.Literal(), yAxis.Literal())))
}

// ApplyTrans queries initial transformed by offset.
func ApplyTrans(index int, initial, offset Position, initialPoint bool) (Query, error) {
	return newQuery("applytrans", index, precise(call("applytrans", initial.Literal(), offset.Literal(), strconv.FormatBool(initialPoint))))
}

// InterPoint queries the point at ratio along the line from a to b.
func InterPoint(index int, a, b Position, ratio float64) (Query, error) {
	return newQuery("interpoint", index, precise(call("interpoint", a.Literal(), b.Literal(), strconv.FormatFloat(ratio, 'f', -1, 64))))
}

// Trans queries the transformation between two points.
func Trans(index int, start, end Position, referenceFirst bool) (Query, error) {
	return newQuery("trans", index, precise(call("trans", start.Literal(), end.Literal(), strconv.FormatBool(referenceFirst))))
}

// ChangeRef queries point, expressed in originalFrame, re-expressed in newFrame.
func ChangeRef(index int, point, originalFrame, newFrame Position) (Query, error) {
	return newQuery("changeref", index, plain(call("changeref", point.Literal(), originalFrame.Literal(), newFrame.Literal())))
}

// InverseTrans queries the inverse of a transformation.
func InverseTrans(index int, trans Position, baseRelative bool) (Query, error) {
	return newQuery("inverse", index, plain(call("inversetrans", trans.Literal(), strconv.FormatBool(baseRelative))))
}
