// internal/storage/memory/memory.go
package memory

import (
	"sync"
	"time"

	"github.com/dataviewer2d/dataviewer/internal/config"
	"github.com/dataviewer2d/dataviewer/internal/storage"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// FrameRecord is one stored frame.
type FrameRecord struct {
	Frame    int
	Drawings scene.Scene
}

// Backend keeps frames in memory and exports them to JSON on Close
type Backend struct {
	cfg   config.MemoryConfig
	name  string
	start time.Time

	frames []FrameRecord
	shapes int
	closed bool

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend. name labels the export file and start stamps it.
func New(cfg config.MemoryConfig, name string, start time.Time) *Backend {
	return &Backend{
		cfg:   cfg,
		name:  name,
		start: start,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// AppendFrame records a frame
func (b *Backend) AppendFrame(n int, shapes scene.Scene) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return storage.ErrClosed
	}
	if len(b.frames) > 0 && n <= b.frames[len(b.frames)-1].Frame {
		return storage.ErrFrameOrder
	}
	b.frames = append(b.frames, FrameRecord{Frame: n, Drawings: shapes})
	b.shapes += len(shapes)
	return nil
}

// Frame returns a stored frame by number.
func (b *Backend) Frame(n int) (scene.Scene, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, rec := range b.frames {
		if rec.Frame == n {
			return rec.Drawings, true
		}
	}
	return nil, false
}

// Summary returns how many frames and shapes are held.
func (b *Backend) Summary() storage.Summary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return storage.Summary{Frames: len(b.frames), Shapes: b.shapes}
}

// Close exports the collected frames. Calling it again is a no-op.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.exportJSON()
}

// ExportedFilePath returns the path of the last export, empty before Close.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
