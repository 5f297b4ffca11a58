package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-tmcomm/controller"
	"github.com/arloliu/go-tmcomm/ethslave"
	"github.com/arloliu/go-tmcomm/listennode"
	"github.com/arloliu/go-tmcomm/logger"
	"github.com/arloliu/go-tmcomm/robot"
)

var (
	// Robot connection flags
	host          string
	commandPort   int
	telemetryPort int
	timeout       time.Duration
	presetDirs    []string

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "tmctl",
	Short: "TM robot listen node client",
	Long: `tmctl - A CLI tool for driving a TM robot through its listen node.

Scripts and queries go to the listen node port (5890 by default); the robot state
is read from the ethernet slave telemetry port (5891 by default). The robot project
must be waiting in a listen node, and the ethernet slave must broadcast Base_Name,
TCP_Name, TCP_Value, Coord_Base_Tool and Joint_Angle.

Use "tmctl sim" to run a simulated robot on localhost.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLogger(logger.NewSlogWithWriter(os.Stderr, level, false))

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", "127.0.0.1", "Robot host")
	rootCmd.PersistentFlags().IntVar(&commandPort, "command-port", listennode.Port, "Listen node port")
	rootCmd.PersistentFlags().IntVar(&telemetryPort, "telemetry-port", ethslave.Port, "Ethernet slave port")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "Timeout of connecting and of each reply")
	rootCmd.PersistentFlags().StringSliceVar(&presetDirs, "preset-dir", nil, "Directory of *.tool and *.base preset files")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// connect creates a controller from the persistent flags and waits until both channels
// are ready.
func connect(ctx context.Context) (*controller.Controller, error) {
	cfg, err := controller.NewConfig(host,
		controller.WithCommandPort(commandPort),
		controller.WithTelemetryPort(telemetryPort),
		controller.WithAckTimeout(timeout),
		controller.WithValueTimeout(timeout),
		controller.WithStatusTimeout(timeout),
		controller.WithReentryTimeout(timeout),
		controller.WithPresetDirs(presetDirs...),
		controller.WithLogger(logger.GetLogger()),
	)
	if err != nil {
		return nil, err
	}

	c, err := controller.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := c.Connect(); err != nil {
		_ = c.Disconnect()
		return nil, err
	}

	if _, ok := c.Cache().WaitFor(ctx, timeout, robot.State.Ready); !ok {
		_ = c.Disconnect()
		return nil, fmt.Errorf("robot at %s not ready within %s", host, timeout)
	}

	return c, nil
}

// withController connects, runs fn and disconnects.
func withController(fn func(ctx context.Context, c *controller.Controller) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = c.Disconnect() }()

	return fn(ctx, c)
}

// report prints res and converts a failed result into an error.
func report(res controller.Result) error {
	if !res.OK() {
		if res.Err != nil {
			return fmt.Errorf("%s: %w", res.Stage, res.Err)
		}
		return errors.New(res.String())
	}

	if res.Payload != "" {
		fmt.Println(res.Payload)
	} else {
		fmt.Println("OK")
	}

	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func printCompactJSON(v any) error {
	return json.NewEncoder(os.Stdout).Encode(v)
}
