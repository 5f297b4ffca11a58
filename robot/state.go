// Package robot holds the client side view of the robot: the telemetry fed state cache
// and the tool/base preset registries.
package robot

import (
	"strings"

	"github.com/arloliu/go-tmcomm/ethslave"
	"github.com/arloliu/go-tmcomm/motion"
)

// State is a snapshot of the robot state. It is a value; a State never changes after
// it has been handed out.
type State struct {
	Base           string          `json:"base"`
	Tool           string          `json:"tool"`
	ToolOffset     motion.Position `json:"toolOffset"`
	Cartesian      motion.Position `json:"cartesian"`
	Joint          motion.Position `json:"joint"`
	TelemetryReady bool            `json:"telemetryReady"`
	CommandReady   bool            `json:"commandReady"`
}

// Ready reports whether both channels are ready.
func (s State) Ready() bool {
	return s.TelemetryReady && s.CommandReady
}

// ShouldUpdate reports whether a telemetry frame with the given transaction index
// updates the state. The robot cycles the index 0..9; only 0 and 5 are taken.
func ShouldUpdate(txIndex int) bool {
	return txIndex == 0 || txIndex == 5
}

// next derives the state carried by frame f from s. Items missing from f keep their
// value in s.
func (s State) next(f *ethslave.Frame) State {
	n := s
	n.TelemetryReady = true

	if v, ok := f.Lookup(ethslave.KeyBaseName); ok {
		n.Base = unquote(v)
	}
	if v, ok := f.Lookup(ethslave.KeyToolName); ok {
		n.Tool = unquote(v)
	}
	if v, ok := f.Lookup(ethslave.KeyToolValue); ok {
		n.ToolOffset = motion.ParseCartesian(v)
	}
	if v, ok := f.Lookup(ethslave.KeyCoordBaseTool); ok {
		n.Cartesian = motion.ParseCartesian(v)
	}
	if v, ok := f.Lookup(ethslave.KeyJointAngle); ok {
		n.Joint = motion.ParseJoint(v)
	}

	return n
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}
