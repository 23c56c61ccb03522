// Package gormstorage implements the storage.Backend interface on top of GORM with
// internal queues that are written to the database in batched transactions.
// The sqlite and postgres backends wrap it and only own the connection.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dataviewer2d/dataviewer/internal/queue"
	"github.com/dataviewer2d/dataviewer/internal/storage"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
	"gorm.io/gorm"
)

// DefaultBatchSize is used when Dependencies.BatchSize is not set.
const DefaultBatchSize = 2000

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
	// Name labels the dataset row.
	Name string
	// BatchSize is both the queue flush threshold and the insert batch size.
	BatchSize int
	// FlushInterval starts a background writer when positive. Otherwise queues are only
	// written when full and on Close.
	FlushInterval time.Duration
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Frames *queue.Queue[Frame]
	Shapes *queue.Queue[Shape]
}

func newQueues(limit int) *queues {
	return &queues{
		Frames: queue.New[Frame](limit),
		Shapes: queue.New[Shape](limit),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps    Dependencies
	log     *slog.Logger
	queues  *queues
	dataset Dataset

	next   int
	box    scene.BBox
	closed bool

	mu       sync.Mutex
	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		deps: deps,
		log:  log.With("component", "storage", "dialect", dialect(deps.DB)),
	}
}

func dialect(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "none"
	}
	return db.Dialector.Name()
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// DatasetID returns the id of the dataset row created by Init.
func (b *Backend) DatasetID() uint {
	return b.dataset.ID
}

// Init creates internal queues, runs schema migration, inserts the dataset row and, if
// configured, starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend requires a database")
	}
	b.queues = newQueues(b.deps.BatchSize)
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.dataset = Dataset{Name: b.deps.Name}
	if err := b.deps.DB.Create(&b.dataset).Error; err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}

	if b.deps.FlushInterval > 0 {
		go b.writerLoop()
	} else {
		close(b.done)
	}
	return nil
}

// setupDB migrates tables.
func (b *Backend) setupDB() error {
	b.log.Info("Migrating schema")
	if err := b.deps.DB.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// AppendFrame converts a frame into rows and queues them. A full queue is written
// immediately.
func (b *Backend) AppendFrame(n int, shapes scene.Scene) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return storage.ErrClosed
	}
	if b.queues == nil {
		b.mu.Unlock()
		return fmt.Errorf("gorm backend not initialized")
	}
	if n < b.next {
		b.mu.Unlock()
		return fmt.Errorf("frame %d after %d: %w", n, b.next-1, storage.ErrFrameOrder)
	}

	rows := make([]Shape, 0, len(shapes))
	for i, s := range shapes {
		row, err := toShape(b.dataset.ID, n, i, s)
		if err != nil {
			b.mu.Unlock()
			return fmt.Errorf("frame %d: %w", n, err)
		}
		rows = append(rows, row)
		if pts, err := s.ExtentPoints(); err == nil {
			for _, p := range pts {
				b.box = b.box.Extend(p)
			}
		}
	}
	b.next = n + 1
	b.dataset.NFrames++
	b.dataset.NShapes += len(shapes)

	full := b.queues.Frames.Push(Frame{DatasetID: b.dataset.ID, FrameNum: n, ShapeCount: len(shapes)})
	if b.queues.Shapes.Push(rows...) {
		full = true
	}
	b.mu.Unlock()

	if full {
		return b.Flush()
	}
	return nil
}

// Flush writes every queued row.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := writeQueue(b.deps.DB, b.queues.Frames, "frames", b.deps.BatchSize, b.log); err != nil {
		return err
	}
	return writeQueue(b.deps.DB, b.queues.Shapes, "shapes", b.deps.BatchSize, b.log)
}

// Summary returns how many frames and shapes were appended.
func (b *Backend) Summary() storage.Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return storage.Summary{Frames: b.dataset.NFrames, Shapes: b.dataset.NShapes}
}

// Close stops the DB writer goroutine, writes what is left and updates the dataset row.
// The connection stays open; it belongs to the caller.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed || b.queues == nil {
		b.closed = true
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.stopChan)
	<-b.done

	if err := b.Flush(); err != nil {
		return err
	}

	if lo, hi, ok := b.box.MinMax(); ok {
		b.dataset.MinX, b.dataset.MinY = &lo.X, &lo.Y
		b.dataset.MaxX, b.dataset.MaxY = &hi.X, &hi.Y
	}
	if err := b.deps.DB.Save(&b.dataset).Error; err != nil {
		return fmt.Errorf("failed to update dataset: %w", err)
	}
	return nil
}

// writerLoop periodically drains the queues into the DB.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log.Error("Background write failed", "error", err)
			}
		}
	}
}

// writeQueue writes all items from a queue to the database in a transaction. On failure
// the items are put back so a later flush can retry them.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, batchSize int, log *slog.Logger) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain(0)
	start := time.Now()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&items, batchSize).Error
	})
	if err != nil {
		log.Error("Error creating rows", "table", name, "count", len(items), "error", err)
		q.Push(items...)
		return fmt.Errorf("writing %s: %w", name, err)
	}

	log.Debug("Wrote rows", "table", name, "count", len(items), "duration", time.Since(start))
	return nil
}
