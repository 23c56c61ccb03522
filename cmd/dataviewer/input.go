package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dataviewer2d/dataviewer/internal/config"
	"github.com/dataviewer2d/dataviewer/internal/frameindex"
	"github.com/dataviewer2d/dataviewer/internal/scenelang"
	"github.com/schollz/progressbar/v3"
)

var errNoInput = errors.New("no input frame log given (use --input or set input in the config file)")

// indexInput builds the index of the frame log at path, drawing progress on progress.
func indexInput(path string, progress io.Writer, log *slog.Logger) (*frameindex.Index, error) {
	if path == "" {
		return nil, errNoInput
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frame log: %w", err)
	}
	defer f.Close()

	var size int64 = -1
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetDescription("Indexing"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	start := time.Now()
	ix, err := frameindex.Build(io.TeeReader(f, bar), frameindex.WithLogger(log))
	_ = bar.Finish()
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", path, err)
	}

	loadedIndex.Store(ix)
	sample := ix.Sample()
	log.Info("Frame log indexed",
		"path", path,
		"frames", ix.Len(),
		"bbox", ix.BBox().String(),
		"sample", sample.Status.String(),
		"took", time.Since(start))
	if sample.Err != nil {
		log.Warn("Bounding box sample incomplete", "error", sample.Err)
	}
	return ix, nil
}

// readerOptions returns frame reader options from config.
func readerOptions(log *slog.Logger) []frameindex.Option {
	opts := []frameindex.Option{frameindex.WithLogger(log)}
	if config.GetReaderConfig().Strict {
		opts = append(opts, frameindex.Strict())
	}
	return opts
}

// openInput indexes the configured input log and opens a reader on it.
func openInput(progress io.Writer, log *slog.Logger) (*frameindex.Reader, error) {
	path := config.GetInput()
	ix, err := indexInput(path, progress, log)
	if err != nil {
		return nil, err
	}
	return frameindex.Open(path, ix, readerOptions(log)...)
}

func newSerializer() scenelang.Serializer {
	return scenelang.Serializer{Metadata: config.GetSerializerConfig().Metadata}
}
