package simulator

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-tmcomm/ethslave"
	"github.com/arloliu/go-tmcomm/listennode"
	"github.com/arloliu/go-tmcomm/logger"
	"github.com/arloliu/go-tmcomm/transport"
)

func startServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	opts = append([]Option{
		WithCommandPort(0),
		WithTelemetryPort(0),
		WithLogger(logger.NewPermissiveMockLogger()),
	}, opts...)

	srv, err := NewServer(context.Background(), opts...)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	return srv
}

func dial(t *testing.T, port int) net.Conn {
	t.Helper()

	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestServer_Command(t *testing.T) {
	require := require.New(t)

	srv := startServer(t)
	conn := dial(t, srv.CommandPort())

	frame, err := listennode.NewScriptFrame("base", `ChangeBase("table")`)
	require.NoError(err)
	_, err = conn.Write(frame.ToBytes())
	require.NoError(err)

	scanner := bufio.NewScanner(conn)
	scanner.Split(transport.ScanCRLF)
	require.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	require.True(scanner.Scan())

	reply, err := listennode.Decode(scanner.Text())
	require.NoError(err)
	require.Equal("base", reply.ScriptID())
	require.Equal("OK", reply.Payload())
	require.Equal("table", srv.Robot().Base())

	// same length, wrong checksum
	raw := frame.ToBytes()
	raw[bytes.Index(raw, []byte("table"))] = 'T'
	_, err = conn.Write(raw)
	require.NoError(err)
	require.True(scanner.Scan())

	reply, err = listennode.Decode(scanner.Text())
	require.NoError(err)
	require.Equal(listennode.CommError, reply.Header())
}

func TestServer_Telemetry(t *testing.T) {
	require := require.New(t)

	for _, mode := range []ethslave.Mode{ethslave.ModeString, ethslave.ModeJSON} {
		t.Run(mode.String(), func(t *testing.T) {
			srv := startServer(t, WithTelemetryMode(mode), WithTelemetryInterval(5*time.Millisecond))
			conn := dial(t, srv.TelemetryPort())

			scanner := bufio.NewScanner(conn)
			scanner.Split(transport.ScanEnvelope)
			require.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))

			for i := 0; i < 3; i++ {
				require.True(scanner.Scan())

				f, err := ethslave.Decode(scanner.Text())
				require.NoError(err)
				require.Equal(mode, f.Mode)
				require.Equal(`"RobotBase"`, f.Value(ethslave.KeyBaseName))
			}
		})
	}
}

func TestServer_Options(t *testing.T) {
	require := require.New(t)

	_, err := NewServer(context.Background(), WithCommandPort(70000))
	require.Error(err)

	_, err = NewServer(context.Background(), WithTelemetryMode(ethslave.ModeBinary))
	require.ErrorIs(err, ethslave.ErrUnsupportedMode)

	srv, err := NewServer(context.Background(), WithCommandPort(0), WithTelemetryPort(0))
	require.NoError(err)
	require.NoError(srv.Stop())
	require.ErrorIs(srv.Start(), ErrServerClosed)
}
