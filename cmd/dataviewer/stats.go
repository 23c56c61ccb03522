package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dataviewer2d/dataviewer/internal/config"
	"github.com/dataviewer2d/dataviewer/internal/frameindex"
	"github.com/dataviewer2d/dataviewer/internal/influx"
	"github.com/dataviewer2d/dataviewer/internal/logging"
	"github.com/dataviewer2d/dataviewer/internal/scenelang"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/spf13/cobra"
)

// pointWriter receives stats points; *influx.Manager in production.
type pointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

var statsQuiet bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count the shapes of every frame, optionally pushing the counts to InfluxDB",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetInput()
		log := SlogManager.Component("frameindex")
		ix, err := indexInput(path, cmd.ErrOrStderr(), log)
		if err != nil {
			return err
		}
		// strict so decode errors can be counted; they are not fatal here
		r, err := frameindex.Open(path, ix, frameindex.WithLogger(log), frameindex.Strict())
		if err != nil {
			return err
		}
		defer r.Close()

		var points pointWriter
		influxCfg := config.GetInfluxConfig()
		if influxCfg.Enabled {
			mgr := influx.NewManager(influxCfg, logging.NewZerolog(cmd.ErrOrStderr(), config.GetLogConfig().Level))
			if err := mgr.Connect(cmd.Context()); err != nil {
				return fmt.Errorf("connecting to InfluxDB: %w", err)
			}
			defer func() {
				if err := mgr.Close(); err != nil {
					Logger.Error("Error closing InfluxDB client", "error", err)
				}
			}()
			points = mgr
		}

		out := cmd.OutOrStdout()
		if statsQuiet {
			out = io.Discard
		}
		return runStats(cmd.Context(), out, r, points, datasetName(path), time.Now())
	},
}

func init() {
	statsCmd.Flags().Bool("influx", false, "push per-frame counts and a dataset summary to InfluxDB")
	statsCmd.Flags().BoolVarP(&statsQuiet, "quiet", "q", false, "do not print the per-frame table")
	mustBind("influx.enabled", statsCmd.Flags().Lookup("influx"))
	rootCmd.AddCommand(statsCmd)
}

// isDecodeError reports whether err came from the scene parser rather than from I/O.
func isDecodeError(err error) bool {
	var syntaxErr *scenelang.SyntaxError
	return errors.Is(err, scenelang.ErrNotScene) || errors.As(err, &syntaxErr)
}

// runStats prints a per-kind shape count for every frame of r and, when points is set,
// writes one frame point per frame plus a dataset summary point.
func runStats(ctx context.Context, w io.Writer, r *frameindex.Reader, points pointWriter, dataset string, start time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "frame\ttotal\tline\tcline\tcircle\tpolygon\t")

	var decodeErrors, total int
	for n := 0; n < r.Len(); n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		shapes, err := r.ReadFrame(n)
		if err != nil {
			if !isDecodeError(err) {
				return err
			}
			decodeErrors++
		}

		c := influx.Count(shapes)
		total += c.Total()
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t\n", n, c.Total(), c.Line, c.CLine, c.Circle, c.Polygon)

		if points != nil {
			// frame is a field, so every point needs its own timestamp
			if err := points.WritePoint(influx.FramePoint(dataset, n, c, start.Add(time.Duration(n)*time.Millisecond))); err != nil {
				return err
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d frames, %d shapes, %d decode errors\n", r.Len(), total, decodeErrors)

	if points != nil {
		return points.WritePoint(influx.SummaryPoint(dataset, r.Index().Info(), decodeErrors, start))
	}
	return nil
}
