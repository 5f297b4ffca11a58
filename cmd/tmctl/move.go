package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-tmcomm/controller"
	"github.com/arloliu/go-tmcomm/motion"
)

var (
	moveType     string
	moveFormat   string
	moveVelocity int
	moveAccel    int
	moveBlend    int
	movePrecise  bool
	moveBase     string
	moveTag      int
)

var moveCmd = &cobra.Command{
	Use:   "move <position>...",
	Short: "Move through one or more positions",
	Long: `Move through one or more positions given as "x,y,z,rx,ry,rz" (or "j1,...,j6"
for joint data formats). All positions share the move type and parameters.

Examples:
  tmctl move --type Line --format CPP "400,0,300,180,0,90"
  tmctl move --type PTP --format JPP "0,0,90,0,90,0" --tag 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMove,
}

func init() {
	rootCmd.AddCommand(moveCmd)
	moveCmd.Flags().StringVar(&moveType, "type", "PTP", "Move type (PTP, Line, PLine, Move_PTP, Move_Line, Move_PLine)")
	moveCmd.Flags().StringVar(&moveFormat, "format", "CPP", "Data format (CPP, CPR, CAP, CAR, JPP, JAP, TPP, TPR, TAP, TAR)")
	moveCmd.Flags().IntVar(&moveVelocity, "velocity", motion.DefaultVelocity, "Velocity (percent or mm/s, depending on the format)")
	moveCmd.Flags().IntVar(&moveAccel, "accel", motion.DefaultAccel, "Time to top speed in ms")
	moveCmd.Flags().IntVar(&moveBlend, "blend", motion.DefaultBlend, "Blending percentage")
	moveCmd.Flags().BoolVar(&movePrecise, "precise", false, "Precise positioning")
	moveCmd.Flags().StringVar(&moveBase, "base", motion.DefaultBaseName, "Base the positions are expressed in")
	moveCmd.Flags().IntVar(&moveTag, "tag", 1, "Queue tag to wait for (0 = don't wait for the motion)")
}

func runMove(_ *cobra.Command, args []string) error {
	posType := motion.TypeCartesian
	if strings.HasPrefix(strings.ToUpper(moveFormat), "J") {
		posType = motion.TypeJoint
	}

	steps := make([]*motion.MoveStep, 0, len(args))
	for _, arg := range args {
		step, err := motion.ParseMoveStep(moveType, moveFormat, motion.ParsePosition(arg, posType),
			motion.WithVelocity(moveVelocity),
			motion.WithAccel(moveAccel),
			motion.WithBlend(moveBlend),
			motion.WithPrecision(movePrecise),
			motion.WithBase(moveBase),
		)
		if err != nil {
			return err
		}
		steps = append(steps, step)
	}

	return withController(func(ctx context.Context, c *controller.Controller) error {
		return report(c.MoveTo(ctx, moveTag, steps...))
	})
}

var (
	execTag  int
	execExit bool
)

var execCmd = &cobra.Command{
	Use:   "exec <script-file | ->",
	Short: "Send a raw script to the listen node",
	Long: `Send the content of a script file, or of stdin with "-", to the listen node.

With --tag the script is expected to call QueueTag(tag) itself and exec waits until
the robot reports it. With --exit the robot leaves the script afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		script, err := readScript(args[0])
		if err != nil {
			return err
		}

		return withController(func(ctx context.Context, c *controller.Controller) error {
			return report(c.ExecuteScript(ctx, script, execTag, execExit))
		})
	},
}

func readScript(name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", err
	}

	script := strings.ReplaceAll(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n", "\r\n")
	if strings.TrimSpace(script) == "" {
		return "", fmt.Errorf("empty script %q", name)
	}

	return script, nil
}

var (
	exitMode int
	exitNode string
)

var exitCmd = &cobra.Command{
	Use:   "exit",
	Short: "Leave the running script and wait for the robot to re-enter the listen node",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withController(func(ctx context.Context, c *controller.Controller) error {
			return report(c.ScriptExit(ctx, exitMode, exitNode))
		})
	},
}

var baseCmd = &cobra.Command{
	Use:   "base <name>",
	Short: "Switch to a base, looked up in the presets first",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withController(func(ctx context.Context, c *controller.Controller) error {
			if _, ok := c.Presets().Bases.Get(args[0]); ok {
				return report(c.SetBasePreset(ctx, args[0]))
			}
			return report(c.SetBase(ctx, args[0]))
		})
	},
}

var toolCmd = &cobra.Command{
	Use:   "tool <name>",
	Short: "Switch to a tool, looked up in the presets first",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withController(func(ctx context.Context, c *controller.Controller) error {
			if _, ok := c.Presets().Tools.Get(args[0]); ok {
				return report(c.SetToolPreset(ctx, args[0]))
			}
			return report(c.SetTool(ctx, args[0]))
		})
	},
}

func init() {
	rootCmd.AddCommand(execCmd, exitCmd, baseCmd, toolCmd)
	execCmd.Flags().IntVar(&execTag, "tag", 0, "Queue tag to wait for")
	execCmd.Flags().BoolVar(&execExit, "exit", false, "Leave the script afterwards")
	exitCmd.Flags().IntVar(&exitMode, "mode", 1, "ScriptExit mode")
	exitCmd.Flags().StringVar(&exitNode, "node", "", "Listen node to wait for (default: Listen1)")
}
