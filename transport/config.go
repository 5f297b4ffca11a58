package transport

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-tmcomm/logger"
)

// Config represents the configuration of a robot TCP channel.
type Config struct {
	// host specifies the host of the robot.
	host string

	// port specifies the TCP port of the channel.
	port int

	// name is the channel name used in logs, e.g. "command" or "telemetry".
	name string

	// connectTimeout defines the timeout of a single dial. It should be between 1 ms and 30 seconds.
	// Defaults to 3 seconds.
	connectTimeout time.Duration

	// writeTimeout defines the timeout of writing one message. It should be between 1 ms and 60 seconds.
	// Defaults to 5 seconds.
	writeTimeout time.Duration

	// closeTimeout defines the timeout of waiting for the channel tasks to terminate on close.
	// Defaults to 3 seconds.
	closeTimeout time.Duration

	// autoReconnect indicates whether a lost connection is re-dialed.
	// Defaults to true.
	autoReconnect bool

	// maxRetryDelay caps the exponential reconnect backoff. It should be between 10 ms and 5 minutes.
	// Defaults to 10 seconds.
	maxRetryDelay time.Duration

	// senderQueueSize defines the size of the sender queue, which buffers messages before they are
	// written to the socket.
	//
	// Defaults to 10.
	senderQueueSize int

	// recvQueueSize defines the size of the receive queue between the socket reader and the
	// dispatch goroutine. A message arriving while the queue is full is dropped unless
	// blockingReceive is set.
	//
	// Defaults to 100.
	recvQueueSize int

	// blockingReceive makes the socket reader wait for room in a full receive queue instead
	// of dropping the message.
	// Defaults to false.
	blockingReceive bool

	// maxMessageSize defines the maximum size of one inbound message.
	// Defaults to 1 MiB.
	maxMessageSize int

	// split defines the inbound message framing.
	// Defaults to ScanCRLF.
	split bufio.SplitFunc

	logger logger.Logger
}

// NewConfig creates a channel configuration for host:port with the given options applied
// on top of the defaults.
func NewConfig(host string, port int, opts ...Option) (*Config, error) {
	cfg := &Config{
		name:            "channel",
		connectTimeout:  3 * time.Second,
		writeTimeout:    5 * time.Second,
		closeTimeout:    3 * time.Second,
		autoReconnect:   true,
		maxRetryDelay:   10 * time.Second,
		senderQueueSize: 10,
		recvQueueSize:   100,
		maxMessageSize:  1 << 20,
		split:           ScanCRLF,
		logger:          logger.GetLogger(),
	}

	if err := withHost(host).apply(cfg); err != nil {
		return cfg, err
	}

	if err := withPort(port).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Address returns "host:port".
func (cfg *Config) Address() string {
	return net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port))
}

// Name returns the channel name.
func (cfg *Config) Name() string { return cfg.name }

// BlockingReceive reports whether a full receive queue blocks the reader instead of dropping.
func (cfg *Config) BlockingReceive() bool { return cfg.blockingReceive }

// Option represents a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error {
	if cfg == nil {
		return ErrConfigNil
	}
	if err := o.applyFunc(cfg); err != nil {
		return fmt.Errorf("%s: %w", o.name, err)
	}

	return nil
}

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

func withHost(host string) Option {
	return newOptFunc("withHost", func(cfg *Config) error {
		if ip := net.ParseIP(host); ip != nil {
			cfg.host = host
			return nil
		}

		host = strings.TrimSuffix(strings.TrimPrefix(host, "."), ".")
		if host == "" {
			return errors.New("empty host")
		}

		if _, err := net.LookupHost(host); err != nil {
			return fmt.Errorf("invalid host %q: %w", host, err)
		}
		cfg.host = host

		return nil
	})
}

func withPort(port int) Option {
	return newOptFunc("withPort", func(cfg *Config) error {
		if port < 1 || port > 65535 {
			return fmt.Errorf("port %d out of range", port)
		}
		cfg.port = port

		return nil
	})
}

// WithName sets the channel name used in logs.
func WithName(name string) Option {
	return newOptFunc("WithName", func(cfg *Config) error {
		cfg.name = name
		return nil
	})
}

// WithConnectTimeout sets the dial timeout.
func WithConnectTimeout(d time.Duration) Option {
	return newOptFunc("WithConnectTimeout", func(cfg *Config) error {
		if d < time.Millisecond || d > 30*time.Second {
			return fmt.Errorf("connect timeout %s out of range", d)
		}
		cfg.connectTimeout = d

		return nil
	})
}

// WithWriteTimeout sets the timeout of writing one message.
func WithWriteTimeout(d time.Duration) Option {
	return newOptFunc("WithWriteTimeout", func(cfg *Config) error {
		if d < time.Millisecond || d > 60*time.Second {
			return fmt.Errorf("write timeout %s out of range", d)
		}
		cfg.writeTimeout = d

		return nil
	})
}

// WithCloseTimeout sets the timeout of waiting for the channel tasks on close.
func WithCloseTimeout(d time.Duration) Option {
	return newOptFunc("WithCloseTimeout", func(cfg *Config) error {
		if d < time.Millisecond || d > 30*time.Second {
			return fmt.Errorf("close timeout %s out of range", d)
		}
		cfg.closeTimeout = d

		return nil
	})
}

// WithAutoReconnect enables or disables re-dialing a lost connection.
func WithAutoReconnect(enabled bool) Option {
	return newOptFunc("WithAutoReconnect", func(cfg *Config) error {
		cfg.autoReconnect = enabled
		return nil
	})
}

// WithMaxRetryDelay caps the exponential reconnect backoff.
func WithMaxRetryDelay(d time.Duration) Option {
	return newOptFunc("WithMaxRetryDelay", func(cfg *Config) error {
		if d < 10*time.Millisecond || d > 5*time.Minute {
			return fmt.Errorf("max retry delay %s out of range", d)
		}
		cfg.maxRetryDelay = d

		return nil
	})
}

// WithSenderQueueSize sets the size of the outbound queue.
func WithSenderQueueSize(size int) Option {
	return newOptFunc("WithSenderQueueSize", func(cfg *Config) error {
		if size < 1 {
			return fmt.Errorf("sender queue size %d out of range", size)
		}
		cfg.senderQueueSize = size

		return nil
	})
}

// WithRecvQueueSize sets the size of the inbound queue.
func WithRecvQueueSize(size int) Option {
	return newOptFunc("WithRecvQueueSize", func(cfg *Config) error {
		if size < 1 {
			return fmt.Errorf("receive queue size %d out of range", size)
		}
		cfg.recvQueueSize = size

		return nil
	})
}

// WithBlockingReceive sets whether the socket reader waits for room in a full receive queue.
// Inbound messages are then never dropped and a slow handler applies TCP backpressure.
func WithBlockingReceive(enabled bool) Option {
	return newOptFunc("WithBlockingReceive", func(cfg *Config) error {
		cfg.blockingReceive = enabled
		return nil
	})
}

// WithMaxMessageSize sets the maximum size of one inbound message.
func WithMaxMessageSize(size int) Option {
	return newOptFunc("WithMaxMessageSize", func(cfg *Config) error {
		if size < 64 {
			return fmt.Errorf("max message size %d out of range", size)
		}
		cfg.maxMessageSize = size

		return nil
	})
}

// WithSplitFunc sets the inbound message framing, e.g. ScanCRLF or ScanEnvelope.
func WithSplitFunc(split bufio.SplitFunc) Option {
	return newOptFunc("WithSplitFunc", func(cfg *Config) error {
		if split == nil {
			return errors.New("nil split function")
		}
		cfg.split = split

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if l == nil {
			return errors.New("nil logger")
		}
		cfg.logger = l

		return nil
	})
}
