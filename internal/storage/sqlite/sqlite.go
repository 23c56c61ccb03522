// Package sqlitestorage implements the storage.Backend interface using SQLite.
// It wraps the GORM backend via composition. The only SQLite-specific concerns are
// opening the database and, for an in-memory database, dumping it to disk with
// VACUUM INTO periodically and once more on Close.
package sqlitestorage

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dataviewer2d/dataviewer/internal/config"
	"github.com/dataviewer2d/dataviewer/internal/database"
	gormstorage "github.com/dataviewer2d/dataviewer/internal/storage/gorm"
	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      *slog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// New opens the database and creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, name string, log *slog.Logger) (*Backend, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = gormstorage.DefaultBatchSize
	}
	if log == nil {
		log = slog.Default()
	}

	db, err := database.OpenSQLite(cfg.Path, cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	if cfg.Path == "" {
		log.Info("Using SQLite DB in memory with periodic disk dump", "dumpPath", cfg.DumpPath)
	} else {
		log.Info("Using local SQLite DB", "path", cfg.Path)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:        db,
		Logger:    log,
		Name:      name,
		BatchSize: cfg.BatchSize,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (b *Backend) inMemory() bool {
	return b.cfg.Path == "" && b.cfg.DumpPath != ""
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.inMemory() && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.done)
	}
	return nil
}

// Close stops the dump goroutine, closes the embedded GORM backend, writes the final dump
// and closes the database.
func (b *Backend) Close() error {
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	<-b.done

	err := b.Backend.Close()
	if err == nil && b.inMemory() {
		err = b.dump()
	}
	return errors.Join(err, database.Close(b.db))
}

// ExportedFilePath returns the database file: the dump for an in-memory database.
func (b *Backend) ExportedFilePath() string {
	if b.cfg.Path != "" {
		return b.cfg.Path
	}
	return b.cfg.DumpPath
}

func (b *Backend) dump() error {
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so writers are not paused.
func (b *Backend) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log.Error("Error flushing before dump", "error", err)
				continue
			}
			if err := b.dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
