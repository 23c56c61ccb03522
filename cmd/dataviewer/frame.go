package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/dataviewer2d/dataviewer/internal/scenelang"
	"github.com/dataviewer2d/dataviewer/internal/server"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
	"github.com/spf13/cobra"
)

var frameJSON bool

var frameCmd = &cobra.Command{
	Use:   "frame N",
	Short: "Print frame N of the input log in canonical form",
	Long: `Print frame N of the input log in canonical form. A frame past the end of the log
prints an empty scene. With --json the shapes are printed as the /frame/{n} payload.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("frame number must be an integer: %q", args[0])
		}

		r, err := openInput(cmd.ErrOrStderr(), SlogManager.Component("frameindex"))
		if err != nil {
			return err
		}
		defer r.Close()

		shapes, err := r.ReadFrame(n)
		if err != nil {
			return err
		}
		return printFrame(cmd.OutOrStdout(), shapes, newSerializer(), frameJSON)
	},
}

func init() {
	frameCmd.Flags().BoolVar(&frameJSON, "json", false, "print JSON instead of the scene language")
	rootCmd.AddCommand(frameCmd)
}

func printFrame(w io.Writer, shapes scene.Scene, s scenelang.Serializer, asJSON bool) error {
	if asJSON {
		if shapes == nil {
			shapes = scene.Scene{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(server.FrameResponse{Drawings: shapes})
	}
	_, err := fmt.Fprintln(w, s.Serialize(shapes))
	return err
}
