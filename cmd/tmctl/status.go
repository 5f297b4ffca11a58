package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-tmcomm/controller"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the robot state and the listen node status",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withController(func(ctx context.Context, c *controller.Controller) error {
			state := c.State()
			if err := printJSON(state); err != nil {
				return err
			}

			res := c.ListenNodeStatus(ctx)
			if !res.OK() {
				return fmt.Errorf("listen node status: %s", res)
			}
			fmt.Printf("listen node ready: %s\n", res.Payload)

			return nil
		})
	},
}

var watchCount int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print robot state changes as JSON lines until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withController(func(ctx context.Context, c *controller.Controller) error {
			updates, cancel := c.Cache().Subscribe()
			defer cancel()

			for n := 0; watchCount <= 0 || n < watchCount; n++ {
				select {
				case <-ctx.Done():
					return nil
				case s := <-updates:
					if err := printCompactJSON(s); err != nil {
						return err
					}
				}
			}

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVarP(&watchCount, "count", "n", 0, "Stop after n updates (0 = until interrupted)")
}
