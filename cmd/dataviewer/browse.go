package main

import (
	"fmt"
	"log/slog"

	"github.com/dataviewer2d/dataviewer/internal/api"
	"github.com/dataviewer2d/dataviewer/internal/config"
	"github.com/dataviewer2d/dataviewer/internal/tui"
	"github.com/spf13/cobra"
)

var browseRemote string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Step through frames in the terminal",
	Long: `Step through frames in the terminal: the canonical text of the current frame next to a
braille preview scaled to the dataset bounding box. Frames come from the input log, or from
a running "dataviewer serve" with --remote.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if browseRemote != "" {
			client := api.New(browseRemote)
			if err := client.Healthcheck(cmd.Context()); err != nil {
				return fmt.Errorf("viewer server at %s: %w", browseRemote, err)
			}
			src, err := client.Remote(cmd.Context())
			if err != nil {
				return err
			}
			Logger.Info("Browsing remote frames", "url", browseRemote, "frames", src.Len())
			return tui.Run(src, newSerializer())
		}

		// console records would tear the full-screen view
		log := SlogManager.Component("frameindex")
		if !config.GetLogConfig().ToFile {
			log = slog.New(slog.DiscardHandler)
		}
		r, err := openInput(cmd.ErrOrStderr(), log)
		if err != nil {
			return err
		}
		defer r.Close()
		return tui.Run(tui.FromReader(r), newSerializer())
	},
}

func init() {
	browseCmd.Flags().StringVar(&browseRemote, "remote", "", "base URL of a viewer server, e.g. http://localhost:3527")
	rootCmd.AddCommand(browseCmd)
}
