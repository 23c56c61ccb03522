package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Swapped in tests to capture console output.
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// Sinks selects where log records go besides the console.
type Sinks struct {
	// File receives plain text records. When set, the console is left quiet.
	File io.Writer
	// Console replaces stdout as the console writer.
	Console io.Writer
	// Graylog receives one JSON document per record, typically a *gelf.Writer.
	Graylog io.Writer
	// Provider bridges records into OpenTelemetry. Nil disables it.
	Provider *sdklog.LoggerProvider
	// Context adds dynamic attributes to every record.
	Context ContextProvider
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// handlerOptions formats timestamps as RFC3339 UTC.
func handlerOptions(lvl slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// Setup (re)builds the logger from sinks. Calling it again replaces the previous logger.
func (m *SlogManager) Setup(sinks Sinks, level string) {
	lvl := parseLevel(level)
	m.logProvider = sinks.Provider
	opts := handlerOptions(lvl)

	var handlers []slog.Handler
	if sinks.File != nil {
		handlers = append(handlers, slog.NewTextHandler(sinks.File, opts))
	} else {
		console := sinks.Console
		if console == nil {
			console = osStdout
		}
		handlers = append(handlers, slog.NewTextHandler(console, opts))
	}
	if sinks.Graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(sinks.Graylog, opts))
	}
	if sinks.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler("dataviewer", otelslog.WithLoggerProvider(sinks.Provider)))
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if sinks.Context != nil {
		h = NewContextHandler(h, sinks.Context)
	}

	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", lvl.String())
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Component returns a child logger tagged with the component name.
func (m *SlogManager) Component(name string) *slog.Logger {
	return m.Logger().With("component", name)
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
