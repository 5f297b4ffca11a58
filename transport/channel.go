package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-tmcomm/internal/pool"
	"github.com/arloliu/go-tmcomm/internal/task"
	"github.com/arloliu/go-tmcomm/logger"
)

const (
	initialRetryDelay = 100 * time.Millisecond
	retryDelayFactor  = 2
)

type sendReq struct {
	data  []byte
	errCh chan error
}

// Channel is a client connection to one robot TCP port.
type Channel struct {
	pctx      context.Context
	ctx       context.Context
	ctxCancel context.CancelFunc
	ctxMu     sync.RWMutex
	cfg       *Config
	logger    logger.Logger

	conn   net.Conn
	connMu sync.Mutex
	openMu sync.Mutex // serializes dial and close

	state         atomic.Uint32
	handlerMu     sync.RWMutex
	stateHandlers []StateHandler
	msgHandlers   []MessageHandler

	taskMgr  *task.Manager
	sendCh   chan sendReq
	recvCh   chan string
	shutdown atomic.Bool
	lost     atomic.Bool // set once per connection when a task detects the loss

	retryMu            sync.Mutex
	retryDelay         time.Duration
	reconnectScheduled atomic.Bool

	metrics Metrics
}

// NewChannel creates a channel. The connection is established by Open.
func NewChannel(ctx context.Context, cfg *Config) (*Channel, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	l := cfg.logger.With("channel", cfg.name)

	c := &Channel{
		pctx:       ctx,
		cfg:        cfg,
		logger:     l,
		taskMgr:    task.NewManager(ctx, l),
		retryDelay: initialRetryDelay,
	}
	c.createContext()

	return c, nil
}

// Config returns the channel configuration.
func (c *Channel) Config() *Config { return c.cfg }

// State returns the current connection state.
func (c *Channel) State() State { return State(c.state.Load()) }

// IsConnected reports whether the channel is connected.
func (c *Channel) IsConnected() bool { return c.State() == Connected }

// Metrics returns the channel counters.
func (c *Channel) Metrics() *Metrics { return &c.metrics }

// AddStateHandler registers state transition handlers.
func (c *Channel) AddStateHandler(handlers ...StateHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()

	c.stateHandlers = append(c.stateHandlers, handlers...)
}

// AddMessageHandler registers inbound message handlers.
func (c *Channel) AddMessageHandler(handlers ...MessageHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()

	c.msgHandlers = append(c.msgHandlers, handlers...)
}

// Open dials the robot.
//
// When the dial fails and auto-reconnect is enabled, the channel keeps re-dialing in
// the background and Open still returns the dial error.
func (c *Channel) Open() error {
	c.shutdown.Store(false)

	err := c.dial()
	if err != nil && c.cfg.autoReconnect {
		c.scheduleReconnect()
	}

	return err
}

// Close closes the connection and stops reconnecting.
func (c *Channel) Close() error {
	if c.shutdown.Swap(true) {
		return nil
	}

	c.openMu.Lock()
	defer c.openMu.Unlock()

	c.closeConn()

	return nil
}

// Send writes one message and waits until it has been written to the socket.
func (c *Channel) Send(ctx context.Context, data []byte) error {
	if c.shutdown.Load() {
		return ErrClosed
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	connCtx, sendCh := c.session()
	req := sendReq{data: data, errCh: make(chan error, 1)}

	timer := pool.GetTimer(c.cfg.writeTimeout)
	defer pool.PutTimer(timer)

	select {
	case sendCh <- req:
	case <-connCtx.Done():
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		c.metrics.SendErrCount.Add(1)
		return ErrSendTimeout
	}

	select {
	case err := <-req.errCh:
		return err
	case <-connCtx.Done():
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		c.metrics.SendErrCount.Add(1)
		return ErrSendTimeout
	}
}

// session returns the context and the sender queue of the current connection.
func (c *Channel) session() (context.Context, chan sendReq) {
	c.ctxMu.RLock()
	defer c.ctxMu.RUnlock()

	return c.ctx, c.sendCh
}

func (c *Channel) createContext() {
	c.ctxMu.Lock()
	defer c.ctxMu.Unlock()

	c.ctx, c.ctxCancel = context.WithCancel(c.pctx)
	c.sendCh = make(chan sendReq, c.cfg.senderQueueSize)
	c.recvCh = make(chan string, c.cfg.recvQueueSize)
}

func (c *Channel) dial() error {
	c.openMu.Lock()
	defer c.openMu.Unlock()

	if c.shutdown.Load() {
		return ErrClosed
	}
	if c.IsConnected() {
		return nil
	}

	c.setState(Connecting)

	dialer := &net.Dialer{KeepAlive: 30 * time.Second}
	dialCtx, cancel := context.WithTimeout(c.pctx, c.cfg.connectTimeout)
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "tcp", c.cfg.Address())
	if err != nil {
		c.metrics.ConnRetryGauge.Add(1)
		c.logger.Debug("failed to dial to robot", "address", c.cfg.Address(), "error", err)
		c.setState(Disconnected)

		return err
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.createContext()
	c.lost.Store(false)

	if err := c.startTasks(conn); err != nil {
		c.logger.Error("failed to start channel tasks", "error", err)
		c.closeConn()

		return err
	}

	c.metrics.ConnRetryGauge.Store(0)
	c.metrics.ConnectCount.Add(1)
	c.retryMu.Lock()
	c.retryDelay = initialRetryDelay
	c.retryMu.Unlock()

	c.logger.Info("connected to the robot",
		"address", c.cfg.Address(),
		"local_addr", conn.LocalAddr().String(),
		"method", "dial",
	)

	c.setState(Connected)

	return nil
}

func (c *Channel) startTasks(conn net.Conn) error {
	c.ctxMu.RLock()
	ctx, sendCh, recvCh := c.ctx, c.sendCh, c.recvCh
	c.ctxMu.RUnlock()

	if err := task.StartConsumer(c.taskMgr, "dispatchTask", recvCh, c.dispatch); err != nil {
		return err
	}

	if err := task.StartConsumer(c.taskMgr, "senderTask", sendCh, func(req sendReq) bool {
		return c.write(conn, req)
	}); err != nil {
		return err
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), c.cfg.maxMessageSize)
	scanner.Split(c.cfg.split)

	return c.taskMgr.Start("receiverTask", func() bool {
		return c.receive(ctx, scanner, recvCh)
	}, nil)
}

func (c *Channel) write(conn net.Conn, req sendReq) bool {
	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.writeTimeout)); err != nil {
		req.errCh <- err
		c.connLost(err)

		return false
	}

	if _, err := conn.Write(req.data); err != nil {
		c.metrics.SendErrCount.Add(1)
		c.logger.Debug("failed to write message", "method", "senderTask", "error", err)

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			err = ErrSendTimeout
		}
		req.errCh <- err
		c.connLost(err)

		return false
	}

	c.metrics.SendCount.Add(1)
	req.errCh <- nil

	return true
}

func (c *Channel) receive(ctx context.Context, scanner *bufio.Scanner, recvCh chan<- string) bool {
	if !scanner.Scan() {
		err := scanner.Err()
		if err == nil {
			err = net.ErrClosed
		}
		c.logger.Debug("receiver stopped", "method", "receiverTask", "error", err)
		c.connLost(err)

		return false
	}

	msg := scanner.Text()
	if msg == "" {
		return true
	}

	c.metrics.RecvCount.Add(1)

	if c.cfg.blockingReceive {
		select {
		case recvCh <- msg:
			return true
		case <-ctx.Done():
			return false
		}
	}

	select {
	case recvCh <- msg:
	default:
		c.metrics.RecvDropCount.Add(1)
		c.logger.Warn("receive queue full, message dropped", "method", "receiverTask")
	}

	return true
}

func (c *Channel) dispatch(msg string) bool {
	c.handlerMu.RLock()
	handlers := c.msgHandlers
	c.handlerMu.RUnlock()

	for _, h := range handlers {
		h(c, msg)
	}

	return true
}

// connLost is called from a channel task when the connection breaks. The teardown
// runs on its own goroutine because it waits for the calling task to exit.
func (c *Channel) connLost(err error) {
	if c.shutdown.Load() || !c.lost.CompareAndSwap(false, true) {
		return
	}

	c.logger.Warn("connection lost", "address", c.cfg.Address(), "error", err)

	go func() {
		c.openMu.Lock()
		if !c.shutdown.Load() {
			c.closeConn()
		}
		c.openMu.Unlock()

		if c.cfg.autoReconnect && !c.shutdown.Load() {
			c.scheduleReconnect()
		}
	}()
}

// closeConn cancels the connection context, closes the socket and waits for the tasks.
// The caller must hold openMu.
func (c *Channel) closeConn() {
	c.ctxMu.RLock()
	cancel := c.ctxCancel
	c.ctxMu.RUnlock()
	if cancel != nil {
		cancel()
	}

	c.taskMgr.Stop()

	c.connMu.Lock()
	hadConn := c.conn != nil
	if c.conn != nil {
		if tcpConn, ok := c.conn.(*net.TCPConn); ok {
			_ = tcpConn.SetLinger(0)
		}
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("failed to close TCP connection", "method", "closeConn", "error", err)
		}
		c.conn = nil
	}
	c.connMu.Unlock()

	done := make(chan struct{})
	go func() {
		c.taskMgr.Wait()
		close(done)
	}()

	timer := pool.GetTimer(c.cfg.closeTimeout)
	defer pool.PutTimer(timer)

	select {
	case <-done:
		c.logger.Debug("close success", "method", "closeConn")
	case <-timer.C:
		c.logger.Error("close timeout", "method", "closeConn", "timeout", c.cfg.closeTimeout)
	}

	if hadConn {
		c.metrics.DisconnectCount.Add(1)
	}
	c.setState(Disconnected)
}

func (c *Channel) scheduleReconnect() {
	if c.shutdown.Load() || !c.reconnectScheduled.CompareAndSwap(false, true) {
		return
	}

	c.retryMu.Lock()
	delay := c.retryDelay
	next := delay * retryDelayFactor
	if next > c.cfg.maxRetryDelay {
		next = c.cfg.maxRetryDelay
	}
	c.retryDelay = next
	c.retryMu.Unlock()

	c.logger.Debug("schedule reconnect", "delay", delay)

	go func() {
		timer := pool.GetTimer(delay)
		defer pool.PutTimer(timer)

		select {
		case <-c.pctx.Done():
			c.reconnectScheduled.Store(false)
			return
		case <-timer.C:
		}

		c.reconnectScheduled.Store(false)
		if c.shutdown.Load() {
			return
		}

		if err := c.dial(); err != nil && c.cfg.autoReconnect {
			c.scheduleReconnect()
		}
	}()
}

func (c *Channel) setState(s State) {
	prev := State(c.state.Swap(uint32(s)))
	if prev == s {
		return
	}

	c.logger.Debug("channel state changes", "prev_state", prev, "cur_state", s)

	c.handlerMu.RLock()
	handlers := c.stateHandlers
	c.handlerMu.RUnlock()

	for _, h := range handlers {
		h(c, prev, s)
	}
}
