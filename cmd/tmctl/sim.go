package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-tmcomm/ethslave"
	"github.com/arloliu/go-tmcomm/logger"
	"github.com/arloliu/go-tmcomm/simulator"
)

var (
	simHost     string
	simInterval time.Duration
	simJSON     bool
	simNode     string
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run a simulated robot until interrupted",
	Long: `Run a simulated robot serving the listen node on --command-port and telemetry on
--telemetry-port. Other tmctl commands can then be pointed at it.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		mode := ethslave.ModeString
		if simJSON {
			mode = ethslave.ModeJSON
		}

		srv, err := simulator.NewServer(ctx,
			simulator.WithHost(simHost),
			simulator.WithCommandPort(commandPort),
			simulator.WithTelemetryPort(telemetryPort),
			simulator.WithTelemetryInterval(simInterval),
			simulator.WithTelemetryMode(mode),
			simulator.WithListenNode(simNode),
			simulator.WithLogger(logger.GetLogger()),
		)
		if err != nil {
			return err
		}

		if err := srv.Start(); err != nil {
			return err
		}
		fmt.Printf("simulated robot on %s, listen node :%d, telemetry :%d\n", simHost, srv.CommandPort(), srv.TelemetryPort())

		<-ctx.Done()

		return srv.Stop()
	},
}

func init() {
	rootCmd.AddCommand(simCmd)
	simCmd.Flags().StringVar(&simHost, "listen-host", "127.0.0.1", "Address to listen on")
	simCmd.Flags().DurationVar(&simInterval, "interval", 10*time.Millisecond, "Telemetry period")
	simCmd.Flags().BoolVar(&simJSON, "json", false, "Broadcast telemetry in JSON mode")
	simCmd.Flags().StringVar(&simNode, "node", "Listen1", "Listen node name")
}
