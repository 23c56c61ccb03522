// Package postgres implements the storage.Backend interface using GORM/PostgreSQL.
// Queueing and batching live in the embedded GORM backend.
package postgres

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

// DefaultBatchSize matches the insert batch size Postgres handles comfortably.
const DefaultBatchSize = 10000

// Backend wraps the GORM backend with a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	db     *gorm.DB
	closed bool
}

// New connects to Postgres and creates the backend. flushInterval starts the background
// writer when positive.
func New(cfg config.PostgresConfig, name string, flushInterval time.Duration, log *slog.Logger) (*Backend, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if log == nil {
		log = slog.Default()
	}

	log.Debug("Connecting to Postgres DB", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	db, err := database.OpenPostgres(cfg.DSN(), cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := database.Ping(db); err != nil {
		return nil, errors.Join(err, database.Close(db))
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	log.Info("Connected to database")

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:            db,
			Logger:        log,
			Name:          name,
			BatchSize:     cfg.BatchSize,
			FlushInterval: flushInterval,
		}),
		db: db,
	}, nil
}

// Close writes the remaining rows and closes the connection.
func (b *Backend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return errors.Join(b.Backend.Close(), database.Close(b.db))
}
