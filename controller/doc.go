// Package controller implements the robot operations on top of the two TM robot channels.
//
// A Controller owns the listen node (command) channel and the ethernet slave (telemetry)
// channel. Telemetry keeps a robot.Cache up to date, command replies are correlated with
// the outstanding request by a waiter.Engine. Every operation is a short sequence of
// "arm the expected replies, send the script, await the replies" steps and returns a
// Result value instead of an error:
//
//	ctrl, err := controller.New(ctx, cfg)
//	if err != nil { ... }
//	_ = ctrl.Connect()
//
//	res := ctrl.SetBase(ctx, "RobotBase")
//	if !res.OK() {
//	    log.Println("set base failed:", res)
//	}
//
// Operations must be issued one at a time per Controller: at most one reply of each
// kind can be awaited at a time.
package controller
