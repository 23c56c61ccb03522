package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dataviewer2d/dataviewer/internal/config"
	"github.com/dataviewer2d/dataviewer/internal/database"
	gormstorage "github.com/dataviewer2d/dataviewer/internal/storage/gorm"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var datasetsJSON bool

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the datasets exported to the sqlite or postgres backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStorageDB(config.GetStorageConfig())
		if err != nil {
			return err
		}
		defer database.Close(db)
		return runDatasets(cmd.OutOrStdout(), db)
	},
}

var datasetsFrameCmd = &cobra.Command{
	Use:   "frame ID N",
	Short: "Print frame N of an exported dataset in canonical form",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 0)
		if err != nil {
			return fmt.Errorf("dataset id must be a positive integer: %q", args[0])
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("frame number must be an integer: %q", args[1])
		}

		db, err := openStorageDB(config.GetStorageConfig())
		if err != nil {
			return err
		}
		defer database.Close(db)

		shapes, err := storedFrame(db, uint(id), n)
		if err != nil {
			return err
		}
		return printFrame(cmd.OutOrStdout(), shapes, newSerializer(), datasetsJSON)
	},
}

func init() {
	datasetsFrameCmd.Flags().BoolVar(&datasetsJSON, "json", false, "print JSON instead of the scene language")
	datasetsCmd.AddCommand(datasetsFrameCmd)
	rootCmd.AddCommand(datasetsCmd)
}

// openStorageDB opens the database an earlier export wrote to. A SQLite database must
// already exist.
func openStorageDB(cfg config.StorageConfig) (*gorm.DB, error) {
	switch cfg.Type {
	case "sqlite":
		path := cfg.SQLite.Path
		if path == "" {
			path = cfg.SQLite.DumpPath
		}
		if path == "" {
			return nil, errors.New("no SQLite database configured (storage.sqlite.path or storage.sqlite.dumpPath)")
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("opening SQLite database: %w", err)
		}
		return database.OpenSQLite(path, cfg.SQLite.BatchSize)
	case "postgres":
		return database.OpenPostgres(cfg.Postgres.DSN(), cfg.Postgres.BatchSize)
	default:
		return nil, fmt.Errorf("storage type %q keeps no queryable datasets (want sqlite or postgres)", cfg.Type)
	}
}

func runDatasets(w io.Writer, db *gorm.DB) error {
	datasets, err := gormstorage.Datasets(db)
	if err != nil {
		return err
	}
	if len(datasets) == 0 {
		fmt.Fprintln(w, "No datasets found in database.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFRAMES\tSHAPES\tEXTENT\tCREATED")
	fmt.Fprintln(tw, "--\t----\t------\t------\t------\t-------")
	for _, d := range datasets {
		extent := "-"
		if d.MinX != nil && d.MinY != nil && d.MaxX != nil && d.MaxY != nil {
			extent = formatBox(scene.Point{X: *d.MinX, Y: *d.MinY}, scene.Point{X: *d.MaxX, Y: *d.MaxY})
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\n",
			d.ID, d.Name, d.NFrames, d.NShapes, extent, d.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// storedFrame loads frame n of a dataset. Like the frame reader, a frame outside the
// dataset yields an empty scene.
func storedFrame(db *gorm.DB, datasetID uint, n int) (scene.Scene, error) {
	count, err := gormstorage.CountFrames(db, datasetID)
	if err != nil {
		return nil, err
	}
	if n < 0 || int64(n) >= count {
		return scene.Scene{}, nil
	}
	return gormstorage.ShapesForFrame(db, datasetID, n)
}
