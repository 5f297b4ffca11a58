package controller

import "sync/atomic"

// Metrics contains atomic counters of a controller.
type Metrics struct {
	// CommandDecodeErrCount indicates the number of listen node messages that failed to decode.
	CommandDecodeErrCount atomic.Uint64
	// TelemetryDecodeErrCount indicates the number of telemetry messages that failed to decode.
	TelemetryDecodeErrCount atomic.Uint64
	// CommErrCount indicates the number of CPERR frames received.
	CommErrCount atomic.Uint64
	// OperationCount indicates the number of operations started.
	OperationCount atomic.Uint64
	// OperationErrCount indicates the number of operations that didn't succeed.
	OperationErrCount atomic.Uint64
}
