package waiter

import "strconv"

// Kind is the kind of reply a wait expects.
type Kind int

const (
	// Acknowledge expects "OK" for a script ID.
	Acknowledge Kind = iota
	// QueueTagReached expects the robot to report a queue tag.
	QueueTagReached
	// ComputedValueReady expects a ListenSend value on a channel.
	ComputedValueReady
	// StatusReply expects the reply to a TMSTA sub-command.
	StatusReply
	// ScriptReentry expects the robot to re-enter the listen node.
	ScriptReentry

	numKinds
)

var kindNames = [...]string{"acknowledge", "queue-tag", "computed-value", "status-reply", "script-reentry"}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Outcome is how a wait ended.
type Outcome int

const (
	// Timeout means no matching frame arrived before the deadline, or the kind wasn't armed.
	Timeout Outcome = iota
	// Resolved means a matching frame arrived.
	Resolved
	// Terminated means the robot reported a script exit while waiting.
	Terminated
	// Disconnected means a channel was lost while waiting.
	Disconnected
	// NotReady means the request wasn't sent because a channel isn't ready.
	NotReady
	// Cancelled means the wait was cancelled or its context is done.
	Cancelled
	// Failed means the request couldn't be built or sent.
	Failed
)

var outcomeNames = [...]string{"timeout", "resolved", "terminated", "disconnected", "not-ready", "cancelled", "failed"}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "outcome(" + strconv.Itoa(int(o)) + ")"
	}
	return outcomeNames[o]
}

// Result is the outcome of a wait together with the payload of the resolving frame.
type Result struct {
	Kind    Kind
	Outcome Outcome
	Payload string
}

// OK reports whether the wait was resolved.
func (r Result) OK() bool {
	return r.Outcome == Resolved
}
