package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-tmcomm/logger"
	"github.com/arloliu/go-tmcomm/simulator"
)

func startSim(t *testing.T) *simulator.Server {
	t.Helper()

	srv, err := simulator.NewServer(context.Background(),
		simulator.WithCommandPort(0),
		simulator.WithTelemetryPort(0),
		simulator.WithTelemetryInterval(5*time.Millisecond),
		simulator.WithLogger(logger.NewPermissiveMockLogger()),
	)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	return srv
}

func execute(srv *simulator.Server, args ...string) error {
	rootCmd.SetArgs(append([]string{
		"--command-port", strconv.Itoa(srv.CommandPort()),
		"--telemetry-port", strconv.Itoa(srv.TelemetryPort()),
		"--timeout", "2s",
		"--log-level", "error",
	}, args...))

	return rootCmd.Execute()
}

func TestCommands(t *testing.T) {
	require := require.New(t)

	srv := startSim(t)

	require.NoError(execute(srv, "status"))

	require.NoError(execute(srv, "base", "table"))
	require.Equal("table", srv.Robot().Base())

	require.NoError(execute(srv, "move", "--type", "Line", "--format", "CPP", "--base", "table", "400,0,300,180,0,90"))
	require.Equal(400.0, srv.Robot().Cartesian().V1())

	require.NoError(execute(srv, "query", "dist", "0,0,0", "3,4,0"))
	require.NoError(execute(srv, "exit"))

	require.Error(execute(srv, "move", "--type", "PTP", "--format", "CAR", "1,2,3"))
	require.Error(execute(srv, "query", "dist", "--index", "12", "0,0,0", "3,4,0"))
}

func TestReadScript(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	name := filepath.Join(dir, "move.script")
	require.NoError(os.WriteFile(name, []byte("PTP(\"JPP\",0,0,90,0,90,0,100,10,0,false)\nQueueTag(1)\n"), 0o600))

	script, err := readScript(name)
	require.NoError(err)
	require.Equal("PTP(\"JPP\",0,0,90,0,90,0,100,10,0,false)\r\nQueueTag(1)\r\n", script)

	empty := filepath.Join(dir, "empty.script")
	require.NoError(os.WriteFile(empty, []byte("\n\n"), 0o600))
	_, err = readScript(empty)
	require.Error(err)

	_, err = readScript(filepath.Join(dir, "missing"))
	require.Error(err)
}
