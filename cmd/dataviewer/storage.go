package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dataviewer2d/dataviewer/internal/config"
	"github.com/dataviewer2d/dataviewer/internal/scenelang"
	"github.com/dataviewer2d/dataviewer/internal/storage"
	"github.com/dataviewer2d/dataviewer/internal/storage/logfile"
	"github.com/dataviewer2d/dataviewer/internal/storage/memory"
	pgstorage "github.com/dataviewer2d/dataviewer/internal/storage/postgres"
	sqlitestorage "github.com/dataviewer2d/dataviewer/internal/storage/sqlite"
	wsstorage "github.com/dataviewer2d/dataviewer/internal/storage/websocket"
)

func createStorageBackend(storageCfg config.StorageConfig, name string, serializer scenelang.Serializer, log *slog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		backend, err := pgstorage.New(storageCfg.Postgres, name, 0, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres backend: %w", err)
		}
		log.Info("Postgres storage backend initialized", "host", storageCfg.Postgres.Host, "database", storageCfg.Postgres.Database)
		return backend, nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, name, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		log.Info("SQLite storage backend initialized")
		return backend, nil

	case "websocket":
		backend, err := wsstorage.New(storageCfg.WebSocket, name, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create WebSocket backend: %w", err)
		}
		log.Info("WebSocket storage backend initialized", "url", storageCfg.WebSocket.URL)
		return backend, nil

	case "logfile":
		log.Info("Frame log storage backend initialized", "path", storageCfg.LogFile.Path)
		return logfile.New(storageCfg.LogFile.Path, serializer), nil

	case "memory", "":
		log.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory, name, SessionStartTime), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q (want memory, logfile, sqlite, postgres or websocket)", storageCfg.Type)
	}
}

// datasetName derives the export name from the input log file name.
func datasetName(input string) string {
	base := filepath.Base(input)
	if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" && name != "." {
		return name
	}
	return AppName
}
