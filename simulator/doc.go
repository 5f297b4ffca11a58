// Package simulator implements an in-process TM robot serving the listen node and the
// ethernet slave ports.
//
// It understands the scripts the controller package emits: base and tool changes,
// motions, queue tags, ListenSend queries and ScriptExit. Telemetry is broadcast in
// string or JSON mode with transaction IDs cycling through 0..9.
//
// Example Usage:
//
//	srv, err := simulator.NewServer(ctx, simulator.WithCommandPort(0), simulator.WithTelemetryPort(0))
//	if err != nil {
//	    return err
//	}
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
package simulator
