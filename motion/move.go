package motion

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// MoveType is the motion function a MoveStep renders to.
type MoveType int

const (
	PTP MoveType = iota
	Line
	PLine
	MovePTP
	MoveLine
	MovePLine
)

var moveTypeNames = [...]string{"PTP", "Line", "PLine", "Move_PTP", "Move_Line", "Move_PLine"}

func (t MoveType) String() string {
	if t < 0 || int(t) >= len(moveTypeNames) {
		return "MoveType(" + strconv.Itoa(int(t)) + ")"
	}
	return moveTypeNames[t]
}

// ParseMoveType parses a move type by its script name, e.g. "PTP" or "Move_Line".
func ParseMoveType(s string) (MoveType, error) {
	for i, name := range moveTypeNames {
		if strings.EqualFold(s, name) {
			return MoveType(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownMoveType, s)
}

// DataFormat describes how a move target is expressed: the first letter picks the
// frame (C cartesian, T tool, J joint), the second point or line, the third the
// parameter style (P percent, R rate, ...).
type DataFormat int

const (
	CPP DataFormat = iota
	CPR
	CAP
	CAR
	TPP
	TPR
	TAP
	TAR
	JPP
	JAP
)

var dataFormatNames = [...]string{"CPP", "CPR", "CAP", "CAR", "TPP", "TPR", "TAP", "TAR", "JPP", "JAP"}

func (f DataFormat) String() string {
	if f < 0 || int(f) >= len(dataFormatNames) {
		return "DataFormat(" + strconv.Itoa(int(f)) + ")"
	}
	return dataFormatNames[f]
}

// ParseDataFormat parses a data format by name.
func ParseDataFormat(s string) (DataFormat, error) {
	for i, name := range dataFormatNames {
		if strings.EqualFold(s, name) {
			return DataFormat(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownDataFormat, s)
}

var legalFormats = map[MoveType][]DataFormat{
	PTP:       {CPP, JPP},
	Line:      {CPP, CPR, CAP, CAR},
	PLine:     {CAP, JAP},
	MovePTP:   {CPP, TPP, JPP},
	MoveLine:  {CPP, CPR, CAP, CAR, TPP, TPR, TAP, TAR},
	MovePLine: {CAP, TAP, JAP},
}

// DataFormats returns the data formats accepted by t.
func (t MoveType) DataFormats() []DataFormat {
	return slices.Clone(legalFormats[t])
}

// Supports reports whether t accepts data format f.
func (t MoveType) Supports(f DataFormat) bool {
	return slices.Contains(legalFormats[t], f)
}

const (
	DefaultBaseName = "RobotBase"
	DefaultBlend    = 25
	DefaultVelocity = 100
	DefaultAccel    = 10
)

// MoveStep is one declarative move. It is immutable once created.
type MoveStep struct {
	moveType   MoveType
	dataFormat DataFormat
	position   Position
	velocity   int
	accel      int
	blend      int
	precision  bool
	baseName   string
}

// MoveOption configures a MoveStep.
type MoveOption interface {
	apply(*MoveStep) error
}

type moveOptFunc func(*MoveStep) error

func (f moveOptFunc) apply(ms *MoveStep) error {
	return f(ms)
}

// WithVelocity sets the velocity, the unit depends on the data format. Default 100.
func WithVelocity(v int) MoveOption {
	return moveOptFunc(func(ms *MoveStep) error {
		if v < 0 {
			return fmt.Errorf("%w: velocity %d", ErrInvalidParameter, v)
		}
		ms.velocity = v
		return nil
	})
}

// WithAccel sets the time to top speed in ms. Default 10.
func WithAccel(a int) MoveOption {
	return moveOptFunc(func(ms *MoveStep) error {
		if a < 0 {
			return fmt.Errorf("%w: accel %d", ErrInvalidParameter, a)
		}
		ms.accel = a
		return nil
	})
}

// WithBlend sets the blending percentage in [0, 100]. Default 25.
func WithBlend(pct int) MoveOption {
	return moveOptFunc(func(ms *MoveStep) error {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%w: blend %d", ErrInvalidParameter, pct)
		}
		ms.blend = pct
		return nil
	})
}

// WithPrecision sets whether the move must reach its target precisely.
func WithPrecision(precise bool) MoveOption {
	return moveOptFunc(func(ms *MoveStep) error {
		ms.precision = precise
		return nil
	})
}

// WithBase sets the base the move is expressed in. Default "RobotBase".
func WithBase(name string) MoveOption {
	return moveOptFunc(func(ms *MoveStep) error {
		ms.baseName = name
		return nil
	})
}

// NewMoveStep creates a move step. It returns ErrIncompatibleFormat when t doesn't accept f.
func NewMoveStep(t MoveType, f DataFormat, pos Position, opts ...MoveOption) (*MoveStep, error) {
	if _, ok := legalFormats[t]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMoveType, t)
	}

	if !t.Supports(f) {
		return nil, fmt.Errorf("%w: %s(%q)", ErrIncompatibleFormat, t, f)
	}

	ms := &MoveStep{
		moveType:   t,
		dataFormat: f,
		position:   pos,
		velocity:   DefaultVelocity,
		accel:      DefaultAccel,
		blend:      DefaultBlend,
		baseName:   DefaultBaseName,
	}

	for _, opt := range opts {
		if err := opt.apply(ms); err != nil {
			return nil, err
		}
	}

	return ms, nil
}

// ParseMoveStep creates a move step from textual names.
//
// An empty or unknown data format falls back to CPP for cartesian positions and JPP for
// joint positions. The resulting pair is still validated.
func ParseMoveStep(moveType string, dataFormat string, pos Position, opts ...MoveOption) (*MoveStep, error) {
	t, err := ParseMoveType(moveType)
	if err != nil {
		return nil, err
	}

	f, err := ParseDataFormat(dataFormat)
	if err != nil {
		f = CPP
		if pos.Type == TypeJoint {
			f = JPP
		}
	}

	return NewMoveStep(t, f, pos, opts...)
}

func (ms *MoveStep) MoveType() MoveType     { return ms.moveType }
func (ms *MoveStep) DataFormat() DataFormat { return ms.dataFormat }
func (ms *MoveStep) Position() Position     { return ms.position }
func (ms *MoveStep) Velocity() int          { return ms.velocity }
func (ms *MoveStep) Accel() int             { return ms.accel }
func (ms *MoveStep) Blend() int             { return ms.blend }
func (ms *MoveStep) Precision() bool        { return ms.precision }
func (ms *MoveStep) BaseName() string       { return ms.baseName }

// Command renders the move, e.g. PTP("CPP",1.000,2.000,3.000,4.000,5.000,6.000,100,10,25,true).
func (ms *MoveStep) Command() string {
	return ms.render(ms.position.CSV())
}

// CommandWithOffset renders a move to applytrans(offset, position, initialPoint).
func (ms *MoveStep) CommandWithOffset(offset Position, initialPoint bool) string {
	target := "applytrans(" + offset.Literal() + "," + ms.position.Literal() + "," + strconv.FormatBool(initialPoint) + ")"
	return ms.render(target)
}

// CommandWithChangeRef renders a move to the position re-expressed from frame offset
// into newFrame through changeref.
func (ms *MoveStep) CommandWithChangeRef(offset Position, newFrame Position) string {
	target := "changeref(" + ms.position.Literal() + "," + offset.Literal() + "," + newFrame.Literal() + ")"
	return ms.render(target)
}

// CommandFromCurrentWithOffset renders a move to the robot's current pose shifted by
// offset. It uses the script variables targetP<n>1..3, declaring them when declare is true.
func (ms *MoveStep) CommandFromCurrentWithOffset(offset Position, toolRelative bool, n int, declare bool) string {
	decl := " "
	if declare {
		decl = "float[] "
	}

	name := "targetP" + strconv.Itoa(n)

	var sb strings.Builder
	sb.WriteString(decl + name + "1=Robot[0].CoordRobot" + scriptEOL)
	sb.WriteString(decl + name + "2=" + offset.Literal() + scriptEOL)
	sb.WriteString(decl + name + "3=applytrans(" + name + "1," + name + "2," + strconv.FormatBool(toolRelative) + ")" + scriptEOL)
	sb.WriteString(ms.render(name + "3"))

	return sb.String()
}

// render emits the motion call. The trailing boolean is the robot's "disable precise
// positioning" argument, so it is the negation of Precision.
func (ms *MoveStep) render(target string) string {
	return fmt.Sprintf("%s(%q,%s,%d,%d,%d,%t)",
		ms.moveType, ms.dataFormat.String(), target, ms.velocity, ms.accel, ms.blend, !ms.precision)
}
