package transport

import "errors"

var (
	// ErrNotConnected indicates an operation that needs an established connection.
	ErrNotConnected = errors.New("channel not connected")

	// ErrClosed indicates the channel has been closed by Close.
	ErrClosed = errors.New("channel closed")

	// ErrSendTimeout indicates a message couldn't be written within the write timeout.
	ErrSendTimeout = errors.New("send timeout")

	// ErrConfigNil indicates a nil configuration.
	ErrConfigNil = errors.New("channel config is nil")
)
