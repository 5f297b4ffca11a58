package motion

import (
	"fmt"
	"strconv"
	"strings"
)

const scriptEOL = "\r\n"

// QueueTag renders the QueueTag(n) marker. The robot reports the tag on the listen
// node once the motion queue reaches it.
func QueueTag(n int) string {
	return "QueueTag(" + strconv.Itoa(n) + ")"
}

// WaitQueueTag renders WaitQueueTag with the tag zero padded to two digits.
func WaitQueueTag(n int, timeoutMs int) string {
	return fmt.Sprintf("WaitQueueTag(%02d,%d)", n, timeoutMs)
}

// ScriptExit renders the parameterless ScriptExit().
func ScriptExit() string {
	return "ScriptExit()"
}

// ScriptExitMode renders ScriptExit with an exit mode, e.g. 1 to stop the running motion.
func ScriptExitMode(mode int) string {
	return "ScriptExit(" + strconv.Itoa(mode) + ")"
}

// QueueTagKey is the script ID and payload prefix the robot uses to report tag n.
func QueueTagKey(n int) string {
	return fmt.Sprintf("%02d", n)
}

// ChangeBase renders a switch to the named base.
func ChangeBase(name string) string {
	return "ChangeBase(" + strconv.Quote(name) + ")"
}

// ChangeBaseTo renders a switch to an anonymous base given by its coordinates.
func ChangeBaseTo(pos Position) string {
	return "ChangeBase(" + pos.CSV() + ")"
}

// DefineBase renders the assignment of a named base's coordinates.
func DefineBase(name string, pos Position) string {
	return "Base[" + strconv.Quote(name) + "].Value=" + pos.Literal()
}

// ChangeTool renders a switch to the named tool.
func ChangeTool(name string) string {
	return "ChangeTCP(" + strconv.Quote(name) + ")"
}

// ChangeToolTo renders a switch to an anonymous tool given by its TCP offset.
func ChangeToolTo(pos Position) string {
	return "ChangeTCP(" + pos.CSV() + ")"
}

// DefineTool renders the assignment of a named tool's TCP offset.
func DefineTool(name string, pos Position) string {
	return "TCP[" + strconv.Quote(name) + "].Value=" + pos.Literal()
}

// BuildMotionScript renders moves followed by QueueTag(queueTag) and, when exitAfter
// is set, ScriptExit().
func BuildMotionScript(moves []*MoveStep, exitAfter bool, queueTag int) (string, error) {
	if len(moves) == 0 {
		return "", ErrNoMoves
	}

	var sb strings.Builder
	sb.WriteString(scriptEOL)
	for _, ms := range moves {
		sb.WriteString(ms.Command())
		sb.WriteString(scriptEOL)
	}

	sb.WriteString(QueueTag(queueTag))
	sb.WriteString(scriptEOL)

	if exitAfter {
		sb.WriteString(ScriptExit())
	}

	return sb.String(), nil
}

// Script composes a script line by line.
type Script struct {
	sb   strings.Builder
	step int
}

// NewScript creates an empty script.
func NewScript() *Script {
	return &Script{step: 1}
}

// Reset clears the script and restarts the variable numbering.
func (s *Script) Reset() {
	s.sb.Reset()
	s.step = 1
}

func (s *Script) line(text string) *Script {
	s.sb.WriteString(text)
	s.sb.WriteString(scriptEOL)

	return s
}

func (s *Script) AddBaseChange(name string) *Script        { return s.line(ChangeBase(name)) }
func (s *Script) AddBaseChangeTo(pos Position) *Script     { return s.line(ChangeBaseTo(pos)) }
func (s *Script) AddToolChange(name string) *Script        { return s.line(ChangeTool(name)) }
func (s *Script) AddToolChangeTo(pos Position) *Script     { return s.line(ChangeToolTo(pos)) }
func (s *Script) AddMove(ms *MoveStep) *Script             { return s.line(ms.Command()) }
func (s *Script) AddQueueTag(n int) *Script                { return s.line(QueueTag(n)) }
func (s *Script) AddWaitQueueTag(n, timeoutMs int) *Script { return s.line(WaitQueueTag(n, timeoutMs)) }
func (s *Script) AddScriptExit() *Script                   { return s.line(ScriptExit()) }

// AddMoveWithOffset adds a move to applytrans(offset, target, initialPoint).
func (s *Script) AddMoveWithOffset(ms *MoveStep, offset Position, initialPoint bool) *Script {
	return s.line(ms.CommandWithOffset(offset, initialPoint))
}

// AddMoveWithOffsetChangeRef adds a move whose target is re-expressed into newFrame.
func (s *Script) AddMoveWithOffsetChangeRef(ms *MoveStep, offset, newFrame Position) *Script {
	return s.line(ms.CommandWithChangeRef(offset, newFrame))
}

// AddMoveFromCurrentWithOffset adds QueueTag(9) followed by a move relative to the
// robot's pose at the time the line executes.
func (s *Script) AddMoveFromCurrentWithOffset(ms *MoveStep, offset Position, toolRelative bool) *Script {
	s.AddQueueTag(9)
	s.line(ms.CommandFromCurrentWithOffset(offset, toolRelative, s.step, true))
	s.step++

	return s
}

// String returns the script text composed so far.
func (s *Script) String() string {
	return s.sb.String()
}
