// Package websocket implements the storage.Backend interface by streaming frames to a
// live viewer over a WebSocket.
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dataviewer2d/dataviewer/internal/config"
	"github.com/dataviewer2d/dataviewer/internal/storage"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

const defaultAckTimeout = 10 * time.Second

// Backend streams frames over WebSocket. It implements storage.Backend but not
// storage.Exported.
type Backend struct {
	endpoint string
	cfg      config.WebSocketConfig
	name     string
	log      *slog.Logger

	mu      sync.Mutex
	stream  *stream
	started bool
	next    int
	frames  int
	shapes  int
	closed  bool
}

// New creates a new WebSocket storage backend. It does not connect until Init.
func New(cfg config.WebSocketConfig, name string, log *slog.Logger) (*Backend, error) {
	if cfg.URL == "" {
		return nil, errors.New("websocket backend requires storage.websocket.url")
	}
	endpoint, err := endpointURL(cfg.URL, cfg.Secret)
	if err != nil {
		return nil, err
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	return &Backend{endpoint: endpoint, cfg: cfg, name: name, log: log}, nil
}

// Init connects and announces the dataset, waiting for the server ack.
func (b *Backend) Init() error {
	hello, err := marshalEnvelope(TypeStartDataset, StartDatasetPayload{Name: b.name})
	if err != nil {
		return err
	}
	s, err := openStream(b.endpoint, hello, b.log)
	if err != nil {
		return err
	}
	if err := s.awaitAck(TypeStartDataset, b.cfg.AckTimeout); err != nil {
		return errors.Join(err, s.shutdown())
	}

	b.mu.Lock()
	b.stream = s
	b.started = true
	b.mu.Unlock()
	return nil
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// AppendFrame queues frame n for the write loop. Frames are not acknowledged.
func (b *Backend) AppendFrame(n int, shapes scene.Scene) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return storage.ErrClosed
	}
	if !b.started {
		return fmt.Errorf("websocket backend not initialized")
	}
	if n < b.next {
		return fmt.Errorf("frame %d after %d: %w", n, b.next-1, storage.ErrFrameOrder)
	}
	if shapes == nil {
		shapes = scene.Scene{}
	}

	data, err := marshalEnvelope(TypeFrame, FramePayload{Frame: n, Drawings: shapes})
	if err != nil {
		return err
	}
	if err := b.stream.enqueue(data); err != nil {
		return fmt.Errorf("sending frame %d: %w", n, err)
	}
	b.next = n + 1
	b.frames++
	b.shapes += len(shapes)
	return nil
}

// Summary returns how many frames and shapes were sent.
func (b *Backend) Summary() storage.Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return storage.Summary{Frames: b.frames, Shapes: b.shapes}
}

// Close sends end_dataset, waits for its ack and disconnects. Calling it again is a
// no-op.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	s := b.stream
	end := EndDatasetPayload{Frames: b.frames, Shapes: b.shapes}
	b.mu.Unlock()

	if s == nil {
		return nil
	}

	data, err := marshalEnvelope(TypeEndDataset, end)
	if err == nil {
		err = s.enqueue(data)
	}
	if err == nil {
		err = s.awaitAck(TypeEndDataset, b.cfg.AckTimeout)
	}
	return errors.Join(err, s.shutdown())
}
