package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dataviewer2d/dataviewer/internal/config"
	"github.com/dataviewer2d/dataviewer/internal/storage"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// frameSource is the read side an export or stats pass walks.
type frameSource interface {
	Len() int
	ReadFrame(n int) (scene.Scene, error)
}

type summarizer interface {
	Summary() storage.Summary
}

var exportName string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy every frame of the input log into a storage backend",
	Long: `Copy every frame of the input log into a storage backend:

  memory    one JSON document (gzipped by default) under storage.memory.outputDir
  logfile   a canonical frame log at storage.logfile.path
  sqlite    frames and shapes tables in a SQLite database
  postgres  frames and shapes tables in a Postgres database`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openInput(cmd.ErrOrStderr(), SlogManager.Component("frameindex"))
		if err != nil {
			return err
		}
		defer r.Close()

		name := exportName
		if name == "" {
			name = datasetName(config.GetInput())
		}
		log := SlogManager.Component("storage")
		backend, err := createStorageBackend(config.GetStorageConfig(), name, newSerializer(), log)
		if err != nil {
			return err
		}

		sum, err := runExport(cmd.Context(), r, backend, cmd.ErrOrStderr(), log)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "exported %d frames, %d shapes\n", sum.Frames, sum.Shapes)
		if ex, ok := backend.(storage.Exported); ok && ex.ExportedFilePath() != "" {
			fmt.Fprintln(out, ex.ExportedFilePath())
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("type", "memory", "storage backend: memory, logfile, sqlite, postgres or websocket")
	exportCmd.Flags().StringVar(&exportName, "name", "", "dataset name (default: input file name)")
	mustBind("storage.type", exportCmd.Flags().Lookup("type"))
	rootCmd.AddCommand(exportCmd)
}

// runExport appends every frame of src to backend, then closes it. The backend is closed on
// every path, so a partial export still leaves consistent output.
func runExport(ctx context.Context, src frameSource, backend storage.Backend, progress io.Writer, log *slog.Logger) (sum storage.Summary, err error) {
	if err := backend.Init(); err != nil {
		return sum, fmt.Errorf("initializing storage: %w", err)
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing storage: %w", cerr))
		}
		if s, ok := backend.(summarizer); ok {
			sum = s.Summary()
		}
	}()

	bar := progressbar.NewOptions(src.Len(),
		progressbar.OptionSetDescription("Exporting"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish()

	start := time.Now()
	for n := 0; n < src.Len(); n++ {
		if err := ctx.Err(); err != nil {
			log.Warn("Export interrupted", "frame", n)
			return sum, err
		}
		shapes, err := src.ReadFrame(n)
		if err != nil {
			return sum, err
		}
		if err := backend.AppendFrame(n, shapes); err != nil {
			return sum, fmt.Errorf("storing frame %d: %w", n, err)
		}
		_ = bar.Add(1)
	}
	log.Info("Export finished", "frames", src.Len(), "took", time.Since(start))
	return sum, nil
}
