package transport

// State is the connection state of a Channel.
type State uint32

const (
	// Disconnected means there is no TCP connection.
	Disconnected State = iota
	// Connecting means a dial is in progress.
	Connecting
	// Connected means the TCP connection is established and the channel tasks run.
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// StateHandler is invoked on every state transition.
//
// Note: handlers run synchronously on the goroutine performing the transition.
// Take care with long-running implementations.
type StateHandler func(ch *Channel, prev State, cur State)

// MessageHandler is invoked for every inbound message, with the framing bytes removed.
// Handlers run sequentially on the channel's dispatch goroutine.
type MessageHandler func(ch *Channel, msg string)
