package transport

import "sync/atomic"

// Metrics contains atomic counters of a channel.
// They can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// SendCount indicates the number of messages written.
	SendCount atomic.Uint64
	// SendErrCount indicates the number of failed or timed out writes.
	SendErrCount atomic.Uint64
	// RecvCount indicates the number of messages received.
	RecvCount atomic.Uint64
	// RecvDropCount indicates the number of messages dropped because the receive queue was full.
	RecvDropCount atomic.Uint64
	// ConnectCount indicates the number of established connections.
	ConnectCount atomic.Uint64
	// DisconnectCount indicates the number of lost or closed connections.
	DisconnectCount atomic.Uint64
	// ConnRetryGauge indicates the number of failed dials since the last successful one.
	ConnRetryGauge atomic.Uint32
}
