package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-tmcomm/ethslave"
	"github.com/arloliu/go-tmcomm/logger"
	"github.com/arloliu/go-tmcomm/motion"
	"github.com/arloliu/go-tmcomm/simulator"
	"github.com/arloliu/go-tmcomm/transport"
	"github.com/arloliu/go-tmcomm/waiter"
)

func startSimulator(t *testing.T, mode ethslave.Mode) *simulator.Server {
	t.Helper()

	srv, err := simulator.NewServer(context.Background(),
		simulator.WithCommandPort(0),
		simulator.WithTelemetryPort(0),
		simulator.WithTelemetryMode(mode),
		simulator.WithTelemetryInterval(5*time.Millisecond),
		simulator.WithLogger(logger.NewPermissiveMockLogger()),
	)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	return srv
}

func connectController(t *testing.T, srv *simulator.Server) *Controller {
	t.Helper()

	cfg, err := NewConfig("127.0.0.1",
		WithCommandPort(srv.CommandPort()),
		WithTelemetryPort(srv.TelemetryPort()),
		WithAckTimeout(time.Second),
		WithMotionTimeout(2*time.Second),
		WithLogger(logger.NewPermissiveMockLogger()),
		WithTransportOptions(transport.WithMaxRetryDelay(50*time.Millisecond)),
	)
	require.NoError(t, err)

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, c.Connect())
	t.Cleanup(func() { _ = c.Disconnect() })

	require.Eventually(t, c.IsReady, 2*time.Second, 5*time.Millisecond)

	return c
}

func TestIntegration_Operations(t *testing.T) {
	for _, mode := range []ethslave.Mode{ethslave.ModeString, ethslave.ModeJSON} {
		t.Run(mode.String(), func(t *testing.T) {
			require := require.New(t)
			ctx := context.Background()

			srv := startSimulator(t, mode)
			c := connectController(t, srv)
			require.True(c.command.Config().BlockingReceive())
			require.False(c.telemetry.Config().BlockingReceive())

			require.True(c.IsListenNodeReady(ctx))

			res := c.SetBase(ctx, "table")
			require.True(res.OK(), res.String())
			require.Equal("table", srv.Robot().Base())

			target := motion.NewCartesian(400, 100, 300, 180, 0, 90)
			step, err := motion.NewMoveStep(motion.Line, motion.CPP, target, motion.WithBase("table"), motion.WithBlend(0))
			require.NoError(err)

			res = c.MoveTo(ctx, 1, step)
			require.True(res.OK(), res.String())
			require.Eventually(func() bool { return c.State().Cartesian == target }, time.Second, 5*time.Millisecond)

			res = c.GetDist(ctx, 0, motion.Position{}, motion.NewCartesian(0, 3, 4, 0, 0, 0))
			require.True(res.OK(), res.String())
			require.Equal("5.000", res.Payload)

			res = c.StopMotion(ctx)
			require.True(res.OK(), res.String())

			require.Zero(c.Metrics().CommandDecodeErrCount.Load())
			require.Zero(c.Metrics().TelemetryDecodeErrCount.Load())
		})
	}
}

func TestIntegration_Reconnect(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	srv := startSimulator(t, ethslave.ModeString)
	c := connectController(t, srv)

	srv.Robot().SetMute(true)
	step, err := motion.NewMoveStep(motion.PTP, motion.JPP, motion.NewJoint(0, 0, 90, 0, 90, 0))
	require.NoError(err)

	done := make(chan Result, 1)
	go func() { done <- c.MoveTo(ctx, 1, step) }()

	time.Sleep(50 * time.Millisecond)
	srv.DropClients()

	select {
	case res := <-done:
		require.Equal(waiter.Disconnected, res.Outcome)
	case <-time.After(2 * time.Second):
		require.Fail("motion wait not failed on disconnect")
	}

	srv.Robot().SetMute(false)
	require.Eventually(c.IsReady, 3*time.Second, 5*time.Millisecond)

	res := c.SetBase(ctx, "table")
	require.True(res.OK(), res.String())
}
