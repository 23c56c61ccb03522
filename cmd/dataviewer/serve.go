package main

import (
	"github.com/dataviewer2d/dataviewer/internal/config"
	"github.com/dataviewer2d/dataviewer/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve frames and the web viewer over HTTP",
	Long: `Index the input frame log and serve it to the web viewer:

  GET /data-info   frame count and bounding box
  GET /frame/{n}   shapes of frame n
  GET /            index.html and static assets from the web root`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openInput(cmd.ErrOrStderr(), SlogManager.Component("frameindex"))
		if err != nil {
			return err
		}
		defer r.Close()

		cfg := config.GetServerConfig()
		srv := server.New(r, cfg.Addr(), cfg.WebRoot, Logger)
		return srv.ListenAndServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().String("web-root", ".", "directory holding index.html, css/ and fonts/")
	mustBind("server.webRoot", serveCmd.Flags().Lookup("web-root"))
	rootCmd.AddCommand(serveCmd)
}
