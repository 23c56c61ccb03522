// Package logfile implements the storage.Backend interface by writing a frame log: one
// serialized scene per line, readable again by frameindex.
package logfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dataviewer2d/dataviewer/internal/scenelang"
	"github.com/dataviewer2d/dataviewer/internal/storage"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// Backend writes frames to a line-oriented log file.
type Backend struct {
	path       string
	serializer scenelang.Serializer

	f    *os.File
	w    *bufio.Writer
	next int

	shapes int
	closed bool
	mu     sync.Mutex
}

// New creates a logfile backend writing to path.
func New(path string, serializer scenelang.Serializer) *Backend {
	return &Backend{path: path, serializer: serializer}
}

// Init creates the output file, truncating an existing one.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.Create(b.path)
	if err != nil {
		return fmt.Errorf("failed to create frame log: %w", err)
	}
	b.f = f
	b.w = bufio.NewWriter(f)
	return nil
}

// AppendFrame writes frame n on its own line. Frames skipped since the previous call are
// written as empty scenes so line numbers keep matching frame numbers.
func (b *Backend) AppendFrame(n int, shapes scene.Scene) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return storage.ErrClosed
	}
	if b.w == nil {
		return fmt.Errorf("frame log %s not initialized", b.path)
	}
	if n < b.next {
		return fmt.Errorf("frame %d after %d: %w", n, b.next-1, storage.ErrFrameOrder)
	}

	for ; b.next < n; b.next++ {
		if _, err := b.w.WriteString(b.serializer.SerializeFrame(nil) + "\n"); err != nil {
			return fmt.Errorf("writing frame %d: %w", b.next, err)
		}
	}
	if _, err := b.w.WriteString(b.serializer.SerializeFrame(shapes) + "\n"); err != nil {
		return fmt.Errorf("writing frame %d: %w", n, err)
	}
	b.next = n + 1
	b.shapes += len(shapes)
	return nil
}

// Summary returns how many frame lines and shapes were written.
func (b *Backend) Summary() storage.Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return storage.Summary{Frames: b.next, Shapes: b.shapes}
}

// Close flushes and closes the file. Calling it again is a no-op.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.f == nil {
		return nil
	}
	flushErr := b.w.Flush()
	closeErr := b.f.Close()
	if flushErr != nil {
		return fmt.Errorf("flushing frame log: %w", flushErr)
	}
	return closeErr
}

// ExportedFilePath returns the frame log path.
func (b *Backend) ExportedFilePath() string {
	return b.path
}
