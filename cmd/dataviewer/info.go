package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/dataviewer2d/dataviewer/internal/config"
	"github.com/dataviewer2d/dataviewer/internal/frameindex"
	"github.com/dataviewer2d/dataviewer/internal/geo"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
	"github.com/spf13/cobra"
)

type infoOptions struct {
	JSON       bool
	SourceEPSG int
	TargetEPSG int
}

var infoOpts infoOptions

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(8)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the frame count and bounding box of the input log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := indexInput(config.GetInput(), cmd.ErrOrStderr(), SlogManager.Component("frameindex"))
		if err != nil {
			return err
		}
		return runInfo(cmd.OutOrStdout(), ix, infoOpts)
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoOpts.JSON, "json", false, "print the /data-info payload")
	infoCmd.Flags().IntVar(&infoOpts.SourceEPSG, "source-epsg", geo.WGS84, "EPSG code of the log coordinates")
	infoCmd.Flags().IntVar(&infoOpts.TargetEPSG, "epsg", 0, "report the bounding box in this EPSG code")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(w io.Writer, ix *frameindex.Index, opts infoOptions) error {
	box := ix.BBox()
	if opts.TargetEPSG != 0 {
		var err error
		box, err = geo.ReprojectBBox(box, opts.SourceEPSG, opts.TargetEPSG)
		if err != nil {
			return fmt.Errorf("reprojecting bounding box: %w", err)
		}
	}

	if opts.JSON {
		info := ix.Info()
		enc := json.NewEncoder(w)
		if info.Empty() {
			return enc.Encode(struct{}{})
		}
		info.MinXY, info.MaxXY = box.Min(), box.Max()
		return enc.Encode(info)
	}

	fmt.Fprintln(w, labelStyle.Render("frames"), ix.Len())
	if lo, hi, ok := box.MinMax(); ok {
		fmt.Fprintln(w, labelStyle.Render("bbox"), formatBox(lo, hi))
	} else {
		fmt.Fprintln(w, labelStyle.Render("bbox"), warnStyle.Render("none"))
	}
	if opts.TargetEPSG != 0 {
		fmt.Fprintln(w, labelStyle.Render("crs"), fmt.Sprintf("EPSG:%d", opts.TargetEPSG))
	}

	sample := ix.Sample()
	status := fmt.Sprintf("%s (%d shapes from frame 0)", sample.Status, sample.Shapes)
	if sample.Err != nil {
		status = warnStyle.Render(fmt.Sprintf("%s: %v", sample.Status, sample.Err))
	}
	fmt.Fprintln(w, labelStyle.Render("sample"), status)
	return nil
}

func formatBox(lo, hi scene.Point) string {
	return fmt.Sprintf("(%g, %g) - (%g, %g)", lo.X, lo.Y, hi.X, hi.Y)
}
