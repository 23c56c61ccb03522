// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// ErrClosed is returned when frames are appended to a backend after Close.
var ErrClosed = errors.New("storage backend is closed")

// ErrFrameOrder is returned when a frame number does not follow the previous one.
var ErrFrameOrder = errors.New("frames must be appended in increasing order")

// Backend is the interface all export targets must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// AppendFrame stores the scene drawn in frame n. Frames arrive in increasing order.
	AppendFrame(n int, shapes scene.Scene) error
}

// Exported is an optional interface for backends that produce a file once closed.
type Exported interface {
	ExportedFilePath() string
}

// Summary counts what a backend has stored.
type Summary struct {
	Frames int
	Shapes int
}
