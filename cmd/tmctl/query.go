package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-tmcomm/controller"
	"github.com/arloliu/go-tmcomm/motion"
)

var (
	queryIndex int
	queryRatio float64
	queryFlag  bool
)

// queryKind describes one query subcommand: its positional arguments and how to run it.
type queryKind struct {
	name  string
	args  string
	nArgs int
	short string
	run   func(ctx context.Context, c *controller.Controller, args []string) controller.Result
}

func pos(s string) motion.Position { return motion.ParseCartesian(s) }

var queryKinds = []queryKind{
	{"base", "<name>", 1, "Coordinates of a base", func(ctx context.Context, c *controller.Controller, a []string) controller.Result {
		return c.GetBaseCoords(ctx, a[0])
	}},
	{"tool", "<name>", 1, "TCP offset of a tool", func(ctx context.Context, c *controller.Controller, a []string) controller.Result {
		return c.GetToolCoords(ctx, a[0])
	}},
	{"landmark", "", 0, "Run the landmark vision job", func(ctx context.Context, c *controller.Controller, _ []string) controller.Result {
		return c.AcquireLandmark(ctx)
	}},
	{"dist", "<a> <b>", 2, "Distance between two points", func(ctx context.Context, c *controller.Controller, a []string) controller.Result {
		return c.GetDist(ctx, queryIndex, pos(a[0]), pos(a[1]))
	}},
	{"points2coord", "<origin> <x> <y>", 3, "Frame spanned by an origin and points on its axes",
		func(ctx context.Context, c *controller.Controller, a []string) controller.Result {
			return c.GetPoints2Coord(ctx, queryIndex, pos(a[0]), pos(a[1]), pos(a[2]))
		}},
	{"applytrans", "<initial> <offset>", 2, "Point transformed by an offset (--flag: offset is an initial point)",
		func(ctx context.Context, c *controller.Controller, a []string) controller.Result {
			return c.GetApplyTrans(ctx, queryIndex, pos(a[0]), pos(a[1]), queryFlag)
		}},
	{"interpoint", "<a> <b>", 2, "Point at --ratio between two points", func(ctx context.Context, c *controller.Controller, a []string) controller.Result {
		return c.GetInterPoint(ctx, queryIndex, pos(a[0]), pos(a[1]), queryRatio)
	}},
	{"trans", "<start> <end>", 2, "Transformation between two points", func(ctx context.Context, c *controller.Controller, a []string) controller.Result {
		return c.GetTrans(ctx, queryIndex, pos(a[0]), pos(a[1]), queryFlag)
	}},
	{"changeref", "<point> <from> <to>", 3, "Point re-expressed in another frame",
		func(ctx context.Context, c *controller.Controller, a []string) controller.Result {
			return c.GetChangeRef(ctx, queryIndex, pos(a[0]), pos(a[1]), pos(a[2]))
		}},
	{"inverse", "<trans>", 1, "Inverse of a transformation", func(ctx context.Context, c *controller.Controller, a []string) controller.Result {
		return c.GetInverse(ctx, queryIndex, pos(a[0]), queryFlag)
	}},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Let the robot compute a value",
	Long: `Let the robot compute a value and print it. Positions are given as "x,y,z,rx,ry,rz".

Example:
  tmctl query dist "0,0,0" "100,0,0"`,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.PersistentFlags().IntVar(&queryIndex, "index", 0, "ListenSend channel index (0-9)")
	queryCmd.PersistentFlags().Float64Var(&queryRatio, "ratio", 0.5, "Ratio for interpoint")
	queryCmd.PersistentFlags().BoolVar(&queryFlag, "flag", false, "Boolean argument of applytrans, trans and inverse")

	for _, kind := range queryKinds {
		queryCmd.AddCommand(&cobra.Command{
			Use:   strings.TrimSpace(kind.name + " " + kind.args),
			Short: kind.short,
			Args:  cobra.ExactArgs(kind.nArgs),
			RunE: func(_ *cobra.Command, args []string) error {
				if queryIndex < 0 || queryIndex > 9 {
					return fmt.Errorf("index %d out of range [0, 9]", queryIndex)
				}

				return withController(func(ctx context.Context, c *controller.Controller) error {
					return report(kind.run(ctx, c, args))
				})
			},
		})
	}
}
