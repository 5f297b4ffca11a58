package controller

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/go-tmcomm/ethslave"
	"github.com/arloliu/go-tmcomm/listennode"
	"github.com/arloliu/go-tmcomm/logger"
	"github.com/arloliu/go-tmcomm/transport"
)

// DefaultListenNodeName is the name of the listen node the robot project waits in.
const DefaultListenNodeName = "Listen1"

// Config represents the configuration of a Controller.
type Config struct {
	// host specifies the host of the robot.
	host string

	// commandPort specifies the listen node port. Defaults to 5890.
	commandPort int

	// telemetryPort specifies the ethernet slave port. Defaults to 5891.
	telemetryPort int

	// ackTimeout defines how long to wait for the "OK" of a script. Defaults to 5 seconds.
	ackTimeout time.Duration

	// valueTimeout defines how long to wait for a ListenSend value. Defaults to 5 seconds.
	valueTimeout time.Duration

	// statusTimeout defines how long to wait for a TMSTA reply. Defaults to 5 seconds.
	statusTimeout time.Duration

	// reentryTimeout defines how long to wait for the robot to re-enter the listen node
	// after a script exit. Defaults to 5 seconds.
	reentryTimeout time.Duration

	// motionTimeout defines how long to wait for a motion queue tag. Zero waits until the
	// motion completes, the script exits or a channel is lost.
	// Defaults to 0.
	motionTimeout time.Duration

	// confirmTimeout defines how long to wait for telemetry to report a base or tool change
	// after it was acknowledged. Defaults to 1 second.
	confirmTimeout time.Duration

	// listenNodeName is the listen node the robot returns to after a script exit.
	// Defaults to "Listen1".
	listenNodeName string

	// failFast resolves every outstanding wait with waiter.Disconnected as soon as a
	// channel is lost. Defaults to true.
	failFast bool

	// statusPreflight queries the listen node status before every operation and refuses
	// to send when the listen node isn't ready. Defaults to false.
	statusPreflight bool

	// presetDirs are the directories tool and base preset files are loaded from.
	presetDirs []string

	// transportOpts are applied to both channel configurations.
	transportOpts []transport.Option

	logger logger.Logger
}

// NewConfig creates a controller configuration for the robot at host.
func NewConfig(host string, opts ...Option) (*Config, error) {
	cfg := &Config{
		host:           strings.TrimSpace(host),
		commandPort:    listennode.Port,
		telemetryPort:  ethslave.Port,
		ackTimeout:     5 * time.Second,
		valueTimeout:   5 * time.Second,
		statusTimeout:  5 * time.Second,
		reentryTimeout: 5 * time.Second,
		confirmTimeout: time.Second,
		listenNodeName: DefaultListenNodeName,
		failFast:       true,
		logger:         logger.GetLogger(),
	}

	if cfg.host == "" {
		return cfg, errors.New("empty host")
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Host returns the robot host.
func (cfg *Config) Host() string { return cfg.host }

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

func validPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	return nil
}

func validTimeout(d time.Duration, max time.Duration) error {
	if d < time.Millisecond || d > max {
		return fmt.Errorf("timeout %s out of range [1ms, %s]", d, max)
	}
	return nil
}

// WithCommandPort sets the listen node port.
func WithCommandPort(port int) Option {
	return newOptFunc("WithCommandPort", func(cfg *Config) error {
		if err := validPort(port); err != nil {
			return err
		}
		cfg.commandPort = port

		return nil
	})
}

// WithTelemetryPort sets the ethernet slave port.
func WithTelemetryPort(port int) Option {
	return newOptFunc("WithTelemetryPort", func(cfg *Config) error {
		if err := validPort(port); err != nil {
			return err
		}
		cfg.telemetryPort = port

		return nil
	})
}

// WithAckTimeout sets the script acknowledgement timeout.
func WithAckTimeout(d time.Duration) Option {
	return newOptFunc("WithAckTimeout", func(cfg *Config) error {
		if err := validTimeout(d, 10*time.Minute); err != nil {
			return err
		}
		cfg.ackTimeout = d

		return nil
	})
}

// WithValueTimeout sets the ListenSend value timeout.
func WithValueTimeout(d time.Duration) Option {
	return newOptFunc("WithValueTimeout", func(cfg *Config) error {
		if err := validTimeout(d, 10*time.Minute); err != nil {
			return err
		}
		cfg.valueTimeout = d

		return nil
	})
}

// WithStatusTimeout sets the TMSTA reply timeout.
func WithStatusTimeout(d time.Duration) Option {
	return newOptFunc("WithStatusTimeout", func(cfg *Config) error {
		if err := validTimeout(d, time.Minute); err != nil {
			return err
		}
		cfg.statusTimeout = d

		return nil
	})
}

// WithReentryTimeout sets the listen node re-entry timeout.
func WithReentryTimeout(d time.Duration) Option {
	return newOptFunc("WithReentryTimeout", func(cfg *Config) error {
		if err := validTimeout(d, 10*time.Minute); err != nil {
			return err
		}
		cfg.reentryTimeout = d

		return nil
	})
}

// WithMotionTimeout sets the queue tag timeout. Zero disables it.
func WithMotionTimeout(d time.Duration) Option {
	return newOptFunc("WithMotionTimeout", func(cfg *Config) error {
		if d < 0 {
			return fmt.Errorf("negative timeout %s", d)
		}
		cfg.motionTimeout = d

		return nil
	})
}

// WithConfirmTimeout sets how long a base or tool change may take to show up in telemetry.
func WithConfirmTimeout(d time.Duration) Option {
	return newOptFunc("WithConfirmTimeout", func(cfg *Config) error {
		if err := validTimeout(d, time.Minute); err != nil {
			return err
		}
		cfg.confirmTimeout = d

		return nil
	})
}

// WithListenNodeName sets the listen node name awaited after a script exit.
func WithListenNodeName(name string) Option {
	return newOptFunc("WithListenNodeName", func(cfg *Config) error {
		if strings.TrimSpace(name) == "" {
			return errors.New("empty listen node name")
		}
		cfg.listenNodeName = name

		return nil
	})
}

// WithFailFastOnDisconnect sets whether a lost channel fails the outstanding waits at once.
func WithFailFastOnDisconnect(enabled bool) Option {
	return newOptFunc("WithFailFastOnDisconnect", func(cfg *Config) error {
		cfg.failFast = enabled
		return nil
	})
}

// WithStatusPreflight sets whether every operation first checks the listen node status.
func WithStatusPreflight(enabled bool) Option {
	return newOptFunc("WithStatusPreflight", func(cfg *Config) error {
		cfg.statusPreflight = enabled
		return nil
	})
}

// WithPresetDirs sets the directories the *.tool and *.base preset files are loaded from.
func WithPresetDirs(dirs ...string) Option {
	return newOptFunc("WithPresetDirs", func(cfg *Config) error {
		cfg.presetDirs = append(cfg.presetDirs, dirs...)
		return nil
	})
}

// WithTransportOptions sets options applied to both channels, e.g. transport.WithConnectTimeout.
func WithTransportOptions(opts ...transport.Option) Option {
	return newOptFunc("WithTransportOptions", func(cfg *Config) error {
		cfg.transportOpts = append(cfg.transportOpts, opts...)
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
