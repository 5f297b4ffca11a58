package simulator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-tmcomm/envelope"
	"github.com/arloliu/go-tmcomm/ethslave"
	"github.com/arloliu/go-tmcomm/internal/task"
	"github.com/arloliu/go-tmcomm/listennode"
	"github.com/arloliu/go-tmcomm/logger"
	"github.com/arloliu/go-tmcomm/transport"
)

// ErrServerClosed is returned by Start on a stopped server.
var ErrServerClosed = errors.New("simulator: server closed")

// Server serves a simulated Robot on the command and telemetry ports.
type Server struct {
	cfg    *config
	robot  *Robot
	logger logger.Logger

	taskMgr *task.Manager

	mu    sync.Mutex
	cmdLn net.Listener
	telLn net.Listener

	clients    *xsync.MapOf[uint64, net.Conn]
	telClients *xsync.MapOf[uint64, net.Conn]
	nextID     atomic.Uint64

	stopped       atomic.Bool
	telemetrySent atomic.Uint64
}

type config struct {
	host              string
	commandPort       int
	telemetryPort     int
	telemetryInterval time.Duration
	telemetryMode     ethslave.Mode
	listenNode        string
	logger            logger.Logger
}

// Option configures a Server.
type Option func(*config) error

// WithHost sets the address the server listens on. Defaults to "127.0.0.1".
func WithHost(host string) Option {
	return func(cfg *config) error {
		cfg.host = host
		return nil
	}
}

// WithCommandPort sets the listen node port. Zero selects a free port.
func WithCommandPort(port int) Option {
	return func(cfg *config) error {
		if port < 0 || port > 65535 {
			return fmt.Errorf("command port %d out of range", port)
		}
		cfg.commandPort = port

		return nil
	}
}

// WithTelemetryPort sets the ethernet slave port. Zero selects a free port.
func WithTelemetryPort(port int) Option {
	return func(cfg *config) error {
		if port < 0 || port > 65535 {
			return fmt.Errorf("telemetry port %d out of range", port)
		}
		cfg.telemetryPort = port

		return nil
	}
}

// WithTelemetryInterval sets the telemetry broadcast period. Defaults to 10ms.
func WithTelemetryInterval(d time.Duration) Option {
	return func(cfg *config) error {
		if d < time.Millisecond {
			return fmt.Errorf("telemetry interval %s too short", d)
		}
		cfg.telemetryInterval = d

		return nil
	}
}

// WithTelemetryMode sets the telemetry content mode. Defaults to ethslave.ModeString.
func WithTelemetryMode(mode ethslave.Mode) Option {
	return func(cfg *config) error {
		if mode != ethslave.ModeString && mode != ethslave.ModeJSON {
			return fmt.Errorf("%w: %s", ethslave.ErrUnsupportedMode, mode)
		}
		cfg.telemetryMode = mode

		return nil
	}
}

// WithListenNode sets the listen node name the robot reports on re-entry. Defaults to "Listen1".
func WithListenNode(name string) Option {
	return func(cfg *config) error {
		if name == "" {
			return errors.New("empty listen node name")
		}
		cfg.listenNode = name

		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(cfg *config) error {
		if l == nil {
			return errors.New("nil logger")
		}
		cfg.logger = l

		return nil
	}
}

// NewServer creates a simulator server. The listeners are opened by Start.
func NewServer(ctx context.Context, opts ...Option) (*Server, error) {
	cfg := &config{
		host:              "127.0.0.1",
		commandPort:       listennode.Port,
		telemetryPort:     ethslave.Port,
		telemetryInterval: 10 * time.Millisecond,
		telemetryMode:     ethslave.ModeString,
		listenNode:        "Listen1",
		logger:            logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	l := cfg.logger.With("component", "simulator")

	return &Server{
		cfg:        cfg,
		robot:      NewRobot(cfg.listenNode),
		logger:     l,
		taskMgr:    task.NewManager(ctx, l),
		clients:    xsync.NewMapOf[uint64, net.Conn](),
		telClients: xsync.NewMapOf[uint64, net.Conn](),
	}, nil
}

// Robot returns the simulated robot.
func (s *Server) Robot() *Robot { return s.robot }

// CommandPort returns the port the listen node is served on, valid after Start.
func (s *Server) CommandPort() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return listenerPort(s.cmdLn)
}

// TelemetryPort returns the port telemetry is served on, valid after Start.
func (s *Server) TelemetryPort() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return listenerPort(s.telLn)
}

// TelemetrySent returns the number of telemetry frames written.
func (s *Server) TelemetrySent() uint64 { return s.telemetrySent.Load() }

// Start opens both listeners and starts serving.
func (s *Server) Start() error {
	if s.stopped.Load() {
		return ErrServerClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var lc net.ListenConfig
	ctx := s.taskMgr.Context()

	cmdLn, err := lc.Listen(ctx, "tcp", net.JoinHostPort(s.cfg.host, strconv.Itoa(s.cfg.commandPort)))
	if err != nil {
		return err
	}

	telLn, err := lc.Listen(ctx, "tcp", net.JoinHostPort(s.cfg.host, strconv.Itoa(s.cfg.telemetryPort)))
	if err != nil {
		_ = cmdLn.Close()
		return err
	}

	s.cmdLn, s.telLn = cmdLn, telLn
	s.logger.Info("simulator listening", "command", cmdLn.Addr().String(), "telemetry", telLn.Addr().String())

	if err := s.taskMgr.Start("commandAccept", func() bool { return s.accept(cmdLn, s.clients, s.serveCommand) }, nil); err != nil {
		return err
	}
	if err := s.taskMgr.Start("telemetryAccept", func() bool { return s.accept(telLn, s.telClients, nil) }, nil); err != nil {
		return err
	}

	ticker := time.NewTicker(s.cfg.telemetryInterval)
	return s.taskMgr.Start("telemetryBroadcast", func() bool {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			s.broadcastTelemetry()
			return true
		}
	}, ticker.Stop)
}

// Stop closes the listeners and every client connection.
func (s *Server) Stop() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}

	s.taskMgr.Stop()

	s.mu.Lock()
	var errs []error
	if s.cmdLn != nil {
		errs = append(errs, s.cmdLn.Close())
	}
	if s.telLn != nil {
		errs = append(errs, s.telLn.Close())
	}
	s.mu.Unlock()

	s.DropClients()
	s.taskMgr.Wait()

	return errors.Join(errs...)
}

// DropClients closes every client connection while keeping the listeners open.
func (s *Server) DropClients() {
	drop := func(_ uint64, conn net.Conn) bool {
		_ = conn.Close()
		return true
	}
	s.clients.Range(drop)
	s.telClients.Range(drop)
}

func (s *Server) accept(ln net.Listener, clients *xsync.MapOf[uint64, net.Conn], serve func(uint64, net.Conn)) bool {
	conn, err := ln.Accept()
	if err != nil {
		if s.stopped.Load() || errors.Is(err, net.ErrClosed) {
			return false
		}
		s.logger.Warn("failed to accept connection", "error", err)

		return true
	}

	id := s.nextID.Add(1)
	clients.Store(id, conn)
	s.logger.Debug("client connected", "id", id, "remote", conn.RemoteAddr().String())

	go func() {
		defer func() {
			clients.Delete(id)
			_ = conn.Close()
		}()

		if serve != nil {
			serve(id, conn)
			return
		}

		// telemetry clients never send; read until the connection closes.
		buf := make([]byte, 256)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	return true
}

func (s *Server) serveCommand(id uint64, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), 1<<20)
	scanner.Split(transport.ScanEnvelope)

	for scanner.Scan() {
		raw := scanner.Text()

		frame, err := listennode.Decode(raw)
		if err != nil {
			s.logger.Debug("malformed frame", "id", id, "raw", raw, "error", err)
			code := listennode.ErrCodePacket
			if errors.Is(err, listennode.ErrUnknownHeader) {
				code = listennode.ErrCodeHeader
			} else if errors.Is(err, envelope.ErrChecksumMismatch) {
				code = listennode.ErrCodeChecksum
			}
			if err := writeFrame(conn, listennode.NewCommErrorFrame(code)); err != nil {
				return
			}

			continue
		}

		for _, reply := range s.robot.Handle(frame) {
			if err := writeFrame(conn, reply); err != nil {
				s.logger.Debug("failed to reply", "id", id, "error", err)
				return
			}
		}
	}
}

func (s *Server) broadcastTelemetry() {
	frame := s.robot.Telemetry(s.cfg.telemetryMode)
	data, err := frame.ToBytes()
	if err != nil {
		s.logger.Error("failed to encode telemetry", "error", err)
		return
	}

	s.telClients.Range(func(id uint64, conn net.Conn) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		if _, err := conn.Write(data); err != nil {
			s.logger.Debug("failed to write telemetry", "id", id, "error", err)
			_ = conn.Close()
		} else {
			s.telemetrySent.Add(1)
		}

		return true
	})
}

func writeFrame(conn net.Conn, f *listennode.Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, err := conn.Write(f.ToBytes())

	return err
}

func listenerPort(ln net.Listener) int {
	if ln == nil {
		return 0
	}
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}

	return 0
}
