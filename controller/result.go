package controller

import (
	"fmt"
	"strconv"

	"github.com/arloliu/go-tmcomm/motion"
	"github.com/arloliu/go-tmcomm/waiter"
)

// Stage is the step of an operation a Result comes from.
type Stage int

const (
	StageReady Stage = iota
	StageSend
	StageAcknowledge
	StageQueueTag
	StageComputedValue
	StageStatusReply
	StageScriptReentry
	StageMotionComplete
	StageBaseChange
	StageToolChange
)

var stageNames = [...]string{
	"ready", "send", "acknowledge", "queue-tag", "computed-value", "status-reply",
	"script-reentry", "motion-complete", "base-change", "tool-change",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "stage(" + strconv.Itoa(int(s)) + ")"
	}
	return stageNames[s]
}

// Result is the outcome of an operation.
//
// On success Outcome is waiter.Resolved and Stage is the operation's final stage. On
// failure Stage is the step that failed; Err is set for waiter.Failed.
type Result struct {
	Stage   Stage
	Outcome waiter.Outcome
	Payload string
	Err     error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Outcome == waiter.Resolved
}

// Position parses the payload of a computed value as a position of type t.
func (r Result) Position(t motion.PositionType) motion.Position {
	return motion.ParsePosition(r.Payload, t)
}

// Float parses the payload of a computed value as a number.
func (r Result) Float() (float64, error) {
	return strconv.ParseFloat(r.Payload, 64)
}

func (r Result) String() string {
	s := fmt.Sprintf("%s: %s", r.Stage, r.Outcome)
	if r.Payload != "" {
		s += " " + strconv.Quote(r.Payload)
	}
	if r.Err != nil {
		s += ": " + r.Err.Error()
	}

	return s
}

func resolved(stage Stage, payload string) Result {
	return Result{Stage: stage, Outcome: waiter.Resolved, Payload: payload}
}

func failed(stage Stage, err error) Result {
	return Result{Stage: stage, Outcome: waiter.Failed, Err: err}
}

func fromWait(stage Stage, res waiter.Result) Result {
	return Result{Stage: stage, Outcome: res.Outcome, Payload: res.Payload}
}
