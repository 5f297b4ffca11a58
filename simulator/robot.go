package simulator

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/arloliu/go-tmcomm/ethslave"
	"github.com/arloliu/go-tmcomm/listennode"
	"github.com/arloliu/go-tmcomm/motion"
	"github.com/arloliu/go-tmcomm/robot"
)

const exitScriptID = "exit"

var (
	changeBaseRe = regexp.MustCompile(`^ChangeBase\((.*)\)$`)
	changeToolRe = regexp.MustCompile(`^ChangeTCP\((.*)\)$`)
	defineRe     = regexp.MustCompile(`^(Base|TCP)\["([^"]*)"\]\.Value\s*=\s*(\{[^{}]*\})$`)
	moveRe       = regexp.MustCompile(`^(Move_PTP|Move_Line|Move_PLine|PTP|Line|PLine)\("(\w+)",(.*)\)$`)
	queueTagRe   = regexp.MustCompile(`^QueueTag\((\d+)\)$`)
	scriptExitRe = regexp.MustCompile(`^ScriptExit\((\d*)\)$`)
	listenSendRe = regexp.MustCompile(`^ListenSend\((\d+),\s*(.*)\)$`)
	positionRe   = regexp.MustCompile(`\{[^{}]*\}`)
	namedRe      = regexp.MustCompile(`^(Base|TCP)\["([^"]*)"\]\.Value`)
)

// Robot is the simulated robot controller. It interprets the subset of the TM script
// language the client emits and produces the listen node replies a real robot would.
//
// The frame functions (applytrans, trans, changeref, inversetrans, points2coord) are
// approximated by their translational part.
type Robot struct {
	mu sync.Mutex

	base       string
	tool       string
	toolOffset motion.Position
	cartesian  motion.Position
	joint      motion.Position
	landmark   motion.Position

	bases map[string]motion.Position
	tools map[string]motion.Position

	listenNode string
	inListen   bool
	mute       bool
	txIndex    int

	scripts []string
}

// NewRobot creates a simulated robot in RobotBase without a tool, waiting in listenNode.
func NewRobot(listenNode string) *Robot {
	return &Robot{
		base:       robot.RobotBase,
		tool:       robot.NoTool,
		cartesian:  motion.NewCartesian(417.5, -122.3, 363.9, 180, 0, 90),
		joint:      motion.NewJoint(0, 0, 90, 0, 90, 0),
		landmark:   motion.NewCartesian(350, 0, 10, 0, 0, 0),
		bases:      map[string]motion.Position{},
		tools:      map[string]motion.Position{},
		listenNode: listenNode,
		inListen:   true,
	}
}

// Base returns the current base name.
func (r *Robot) Base() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.base
}

// Tool returns the current tool name.
func (r *Robot) Tool() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.tool
}

// Cartesian returns the current tool pose.
func (r *Robot) Cartesian() motion.Position {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cartesian
}

// SetMute sets whether the robot ignores scripts. A muted robot still answers status
// queries and still broadcasts telemetry.
func (r *Robot) SetMute(mute bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mute = mute
}

// SetInListen sets whether the robot waits in the listen node.
func (r *Robot) SetInListen(in bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.inListen = in
}

// SetLandmark sets the result of the landmark vision job.
func (r *Robot) SetLandmark(pos motion.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.landmark = pos
}

// Scripts returns the scripts received so far.
func (r *Robot) Scripts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.scripts...)
}

// Handle processes one listen node frame and returns the replies in send order.
func (r *Robot) Handle(f *listennode.Frame) []*listennode.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch f.Header() {
	case listennode.StatusQuery:
		if f.ScriptID() != "00" {
			return []*listennode.Frame{listennode.NewCommErrorFrame(listennode.ErrCodePacketData)}
		}
		reply, _ := listennode.NewStatusFrame("00", strconv.FormatBool(r.inListen))
		return []*listennode.Frame{reply}

	case listennode.ScriptCommand:
		if r.mute {
			return nil
		}
		if !r.inListen {
			return []*listennode.Frame{listennode.NewCommErrorFrame(listennode.ErrCodeNotInListenNode)}
		}
		r.scripts = append(r.scripts, f.Payload())

		return r.runScript(f.ScriptID(), f.Payload())

	default:
		return nil
	}
}

func (r *Robot) runScript(id string, script string) []*listennode.Frame {
	var (
		results []*listennode.Frame
		exited  bool
	)

	lines := strings.Split(script, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !balanced(line) {
			reply, _ := listennode.NewScriptFrame(id, "ERROR;1;"+strconv.Itoa(i+1))
			return []*listennode.Frame{reply}
		}

		if m := listenSendRe.FindStringSubmatch(line); m != nil {
			reply, _ := listennode.NewStatusFrame(m[1], r.eval(m[2]))
			results = append(results, reply)

			continue
		}

		if m := queueTagRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			key := motion.QueueTagKey(n)
			reply, _ := listennode.NewStatusFrame(key, key+",true")
			results = append(results, reply)

			continue
		}

		if scriptExitRe.MatchString(line) {
			exited = true
			break
		}

		r.execute(line)
	}

	ack, _ := listennode.NewScriptFrame(id, "OK")
	replies := append([]*listennode.Frame{ack}, results...)

	if exited {
		if id != exitScriptID {
			exit, _ := listennode.NewScriptFrame(exitScriptID, "OK")
			replies = append(replies, exit)
		}
		reentry, _ := listennode.NewScriptFrame("0", r.listenNode)
		replies = append(replies, reentry)
	}

	return replies
}

// execute applies a statement without reply.
func (r *Robot) execute(line string) {
	if m := defineRe.FindStringSubmatch(line); m != nil {
		pos := motion.ParseCartesian(m[3])
		if m[1] == "Base" {
			r.bases[m[2]] = pos
		} else {
			r.tools[m[2]] = pos
		}

		return
	}

	if m := changeBaseRe.FindStringSubmatch(line); m != nil {
		r.base = frameName(m[1])
		return
	}

	if m := changeToolRe.FindStringSubmatch(line); m != nil {
		r.tool = frameName(m[1])
		if pos, ok := r.tools[r.tool]; ok {
			r.toolOffset = pos
		} else if r.tool == "" {
			r.toolOffset = motion.ParseCartesian(m[1])
		} else {
			r.toolOffset = motion.Position{}
		}

		return
	}

	if m := moveRe.FindStringSubmatch(line); m != nil {
		args := strings.Split(m[3], ",")
		if len(args) < 6 {
			return
		}
		csv := strings.Join(args[:6], ",")
		if strings.HasPrefix(m[2], "J") {
			r.joint = motion.ParseJoint(csv)
		} else {
			r.cartesian = motion.ParseCartesian(csv)
		}
	}
}

// eval evaluates a ListenSend expression.
func (r *Robot) eval(expr string) string {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimPrefix(expr, "GetString(")

	if m := namedRe.FindStringSubmatch(expr); m != nil {
		src := r.bases
		if m[1] == "TCP" {
			src = r.tools
		}
		return src[m[2]].Literal()
	}

	if strings.HasPrefix(expr, "Vision_DoJob(") {
		return r.landmark.Literal()
	}

	positions := positionRe.FindAllString(expr, -1)
	pos := make([]motion.Position, len(positions))
	for i, s := range positions {
		pos[i] = motion.ParseCartesian(s)
	}

	fn, _, _ := strings.Cut(expr, "(")
	switch {
	case fn == "dist" && len(pos) >= 2:
		d := math.Sqrt(sq(pos[0].V1()-pos[1].V1()) + sq(pos[0].V2()-pos[1].V2()) + sq(pos[0].V3()-pos[1].V3()))
		return strconv.FormatFloat(d, 'f', 3, 64)

	case fn == "interpoint" && len(pos) >= 2:
		ratio := ratioArg(expr)
		var out motion.Position
		for i := range out.Values {
			out.Values[i] = pos[0].Values[i] + (pos[1].Values[i]-pos[0].Values[i])*ratio
		}
		return out.Literal()

	case fn == "applytrans" && len(pos) >= 2:
		return translate(pos[0], pos[1], 1).Literal()

	case fn == "trans" && len(pos) >= 2:
		return translate(pos[1], pos[0], -1).Literal()

	case fn == "changeref" && len(pos) >= 3:
		return translate(translate(pos[0], pos[1], 1), pos[2], -1).Literal()

	case fn == "inversetrans" && len(pos) >= 1:
		return translate(motion.Position{}, pos[0], -1).Literal()

	case fn == "points2coord" && len(pos) >= 1:
		return motion.NewCartesian(pos[0].V1(), pos[0].V2(), pos[0].V3(), 0, 0, 0).Literal()
	}

	return motion.Position{}.Literal()
}

// Telemetry returns the next telemetry frame. The transaction ID cycles through 0..9.
func (r *Robot) Telemetry(mode ethslave.Mode) *ethslave.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := r.txIndex
	r.txIndex = (r.txIndex + 1) % 10

	return ethslave.NewFrame(strconv.Itoa(tx), mode,
		ethslave.Item{Key: ethslave.KeyBaseName, Value: strconv.Quote(r.base)},
		ethslave.Item{Key: ethslave.KeyToolName, Value: strconv.Quote(r.tool)},
		ethslave.Item{Key: ethslave.KeyToolValue, Value: r.toolOffset.Literal()},
		ethslave.Item{Key: ethslave.KeyCoordBaseTool, Value: r.cartesian.Literal()},
		ethslave.Item{Key: ethslave.KeyJointAngle, Value: r.joint.Literal()},
	)
}

// frameName returns the name of a ChangeBase/ChangeTCP argument, or "" for coordinates.
func frameName(arg string) string {
	arg = strings.TrimSpace(arg)
	if name, err := strconv.Unquote(arg); err == nil {
		return name
	}

	return ""
}

func translate(p, by motion.Position, sign float64) motion.Position {
	out := p
	for i := 0; i < 3; i++ {
		out.Values[i] += sign * by.Values[i]
	}

	return out
}

// ratioArg returns the number following the last position argument of expr.
func ratioArg(expr string) float64 {
	i := strings.LastIndex(expr, "}")
	if i < 0 {
		return 0
	}
	rest := strings.TrimLeft(expr[i+1:], ", ")
	rest, _, _ = strings.Cut(rest, ")")
	v, _ := strconv.ParseFloat(strings.TrimSpace(rest), 64)

	return v
}

func sq(v float64) float64 { return v * v }

func balanced(line string) bool {
	depth := 0
	inStr := false
	for _, c := range line {
		switch {
		case c == '"':
			inStr = !inStr
		case inStr:
		case c == '(' || c == '{' || c == '[':
			depth++
		case c == ')' || c == '}' || c == ']':
			depth--
			if depth < 0 {
				return false
			}
		}
	}

	return depth == 0 && !inStr
}
