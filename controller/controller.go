package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/arloliu/go-tmcomm/ethslave"
	"github.com/arloliu/go-tmcomm/listennode"
	"github.com/arloliu/go-tmcomm/logger"
	"github.com/arloliu/go-tmcomm/robot"
	"github.com/arloliu/go-tmcomm/transport"
	"github.com/arloliu/go-tmcomm/waiter"
)

// Channel names used in logs and decode error events.
const (
	CommandChannel   = "command"
	TelemetryChannel = "telemetry"
)

// DecodeErrorHandler is invoked for every inbound message that fails to decode.
// Handlers run on the channel's dispatch goroutine and must not block.
type DecodeErrorHandler func(channel string, raw string, err error)

// sender writes one encoded listen node frame.
type sender interface {
	Send(ctx context.Context, data []byte) error
}

// Controller is a client of one TM robot.
type Controller struct {
	cfg    *Config
	logger logger.Logger

	command   *transport.Channel
	telemetry *transport.Channel
	sender    sender

	engine  *waiter.Engine
	cache   *robot.Cache
	presets *robot.Presets

	handlerMu         sync.RWMutex
	decodeErrHandlers []DecodeErrorHandler

	metrics Metrics
}

// New creates a controller for the robot described by cfg. Preset directories are loaded
// right away; the channels connect on Connect.
func New(ctx context.Context, cfg *Config) (*Controller, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	c := newController(cfg, nil)

	cmdOpts := append([]transport.Option{
		transport.WithName(CommandChannel),
		transport.WithSplitFunc(transport.ScanCRLF),
		transport.WithBlockingReceive(true),
		transport.WithLogger(cfg.logger),
	}, cfg.transportOpts...)
	cmdCfg, err := transport.NewConfig(cfg.host, cfg.commandPort, cmdOpts...)
	if err != nil {
		return nil, err
	}

	telOpts := append([]transport.Option{
		transport.WithName(TelemetryChannel),
		transport.WithSplitFunc(transport.ScanEnvelope),
		transport.WithLogger(cfg.logger),
	}, cfg.transportOpts...)
	telCfg, err := transport.NewConfig(cfg.host, cfg.telemetryPort, telOpts...)
	if err != nil {
		return nil, err
	}

	if c.command, err = transport.NewChannel(ctx, cmdCfg); err != nil {
		return nil, err
	}
	if c.telemetry, err = transport.NewChannel(ctx, telCfg); err != nil {
		return nil, err
	}
	c.sender = c.command

	c.command.AddStateHandler(c.commandStateHandler)
	c.command.AddMessageHandler(func(_ *transport.Channel, msg string) { c.handleCommandMessage(msg) })
	c.telemetry.AddStateHandler(c.telemetryStateHandler)
	c.telemetry.AddMessageHandler(func(_ *transport.Channel, msg string) { c.handleTelemetryMessage(msg) })

	return c, nil
}

// newController creates a controller without channels, sending through s.
func newController(cfg *Config, s sender) *Controller {
	c := &Controller{
		cfg:     cfg,
		logger:  cfg.logger,
		sender:  s,
		engine:  waiter.NewEngine(cfg.logger),
		cache:   robot.NewCache(cfg.logger),
		presets: robot.NewPresets(),
	}

	for _, dir := range cfg.presetDirs {
		if err := c.presets.Load(dir); err != nil {
			c.logger.Warn("failed to load presets", "dir", dir, "error", err)
		}
	}

	return c
}

// Connect opens both channels. With auto-reconnect enabled (the default) the channels
// that failed keep re-dialing in the background.
func (c *Controller) Connect() error {
	c.logger.Info("connect to robot", "host", c.cfg.host,
		"command_port", c.cfg.commandPort, "telemetry_port", c.cfg.telemetryPort)

	return errors.Join(c.telemetry.Open(), c.command.Open())
}

// Disconnect closes both channels.
func (c *Controller) Disconnect() error {
	c.logger.Info("disconnect from robot", "host", c.cfg.host)

	return errors.Join(c.command.Close(), c.telemetry.Close())
}

// Config returns the controller configuration.
func (c *Controller) Config() *Config { return c.cfg }

// State returns a snapshot of the robot state.
func (c *Controller) State() robot.State { return c.cache.Snapshot() }

// IsReady reports whether both channels are ready.
func (c *Controller) IsReady() bool { return c.cache.Ready() }

// Cache returns the robot state cache, e.g. to subscribe to state changes.
func (c *Controller) Cache() *robot.Cache { return c.cache }

// Presets returns the tool and base preset registries.
func (c *Controller) Presets() *robot.Presets { return c.presets }

// Metrics returns the controller counters.
func (c *Controller) Metrics() *Metrics { return &c.metrics }

// AddDecodeErrorHandler registers handlers for inbound messages that fail to decode.
func (c *Controller) AddDecodeErrorHandler(handlers ...DecodeErrorHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()

	c.decodeErrHandlers = append(c.decodeErrHandlers, handlers...)
}

func (c *Controller) commandStateHandler(_ *transport.Channel, prev transport.State, cur transport.State) {
	switch cur {
	case transport.Connected:
		c.cache.SetCommandReady(true)

	case transport.Disconnected:
		if prev != transport.Connected {
			return
		}
		c.logger.Warn("command channel lost", "host", c.cfg.host)
		c.cache.SetCommandReady(false)
		if c.cfg.failFast {
			c.engine.FailAll(waiter.Disconnected)
		}
	}
}

func (c *Controller) telemetryStateHandler(_ *transport.Channel, prev transport.State, cur transport.State) {
	if cur != transport.Disconnected || prev != transport.Connected {
		return
	}

	c.logger.Warn("telemetry channel lost", "host", c.cfg.host)
	c.cache.Reset()
	if c.cfg.failFast {
		c.engine.FailAll(waiter.Disconnected)
	}
}

func (c *Controller) handleCommandMessage(raw string) {
	frame, err := listennode.Decode(raw)
	if err != nil {
		c.metrics.CommandDecodeErrCount.Add(1)
		c.decodeFailed(CommandChannel, raw, err)

		return
	}

	if frame.Header() == listennode.CommError {
		c.metrics.CommErrCount.Add(1)
		c.logger.Warn("robot reported communication error", "code", frame.ErrorCode())
	} else {
		c.logger.Debug("listen node frame received", "frame", frame.String())
	}

	c.engine.Dispatch(frame)
}

func (c *Controller) handleTelemetryMessage(raw string) {
	frame, err := ethslave.Decode(raw)
	if err != nil {
		c.metrics.TelemetryDecodeErrCount.Add(1)
		c.decodeFailed(TelemetryChannel, raw, err)

		return
	}

	if frame.TransactionIndex() < 0 {
		c.logger.Debug("telemetry response received", "transaction_id", frame.TransactionID)
		return
	}

	c.cache.Apply(frame)
}

func (c *Controller) decodeFailed(channel string, raw string, err error) {
	c.logger.Warn("failed to decode message", "channel", channel, "raw", raw, "error", err)

	c.handlerMu.RLock()
	handlers := c.decodeErrHandlers
	c.handlerMu.RUnlock()

	for _, h := range handlers {
		h(channel, raw, err)
	}
}

// send encodes and writes one listen node frame.
func (c *Controller) send(ctx context.Context, frame *listennode.Frame) error {
	c.logger.Debug("send listen node frame", "frame", frame.String())

	if c.sender == nil {
		return transport.ErrNotConnected
	}

	return c.sender.Send(ctx, frame.ToBytes())
}

func (c *Controller) sendScript(ctx context.Context, scriptID string, script string) error {
	frame, err := listennode.NewScriptFrame(scriptID, script)
	if err != nil {
		return err
	}

	return c.send(ctx, frame)
}

// finish counts an operation result.
func (c *Controller) finish(op string, res Result) Result {
	c.metrics.OperationCount.Add(1)
	if !res.OK() {
		c.metrics.OperationErrCount.Add(1)
		c.logger.Warn("operation failed", "op", op, "stage", res.Stage, "outcome", res.Outcome, "error", res.Err)
	} else {
		c.logger.Debug("operation done", "op", op, "stage", res.Stage)
	}

	return res
}
