package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/dataviewer2d/dataviewer/internal/config"
	"github.com/dataviewer2d/dataviewer/internal/frameindex"
	"github.com/dataviewer2d/dataviewer/internal/logging"
	intOtel "github.com/dataviewer2d/dataviewer/internal/otel"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	// cfgFile is an explicit config file; empty means dataviewer.cfg.json in the working directory
	cfgFile string

	// SlogManager handles all slog-based logging
	SlogManager = logging.NewSlogManager()

	// Logger is the slog logger (convenience reference)
	Logger = slog.Default()

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	logFile    *os.File
	gelfWriter *gelf.Writer

	SessionStartTime = time.Now()

	// loadedIndex is the index of the input log once built, reported in every log record
	loadedIndex atomic.Pointer[frameindex.Index]
)

var rootCmd = &cobra.Command{
	Use:           AppName,
	Short:         "Index, inspect, serve and export 2D scene frame logs",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		return setupLogging(cmd.ErrOrStderr())
	},
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{printf \"%%s\\n\" .Version}}built %s\n", BuildDate))

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		Logger.Error("command failed", "error", err)
	}
	// ctx may already be cancelled by a signal
	shutdownLogging(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./"+config.FileName+")")
	flags.StringP("input", "i", "", "frame log to read")
	flags.String("host", "0.0.0.0", "address the viewer server listens on")
	flags.IntP("port", "p", 3527, "port the viewer server listens on")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	mustBind("input", flags.Lookup("input"))
	mustBind("server.host", flags.Lookup("host"))
	mustBind("server.port", flags.Lookup("port"))
	mustBind("log.level", flags.Lookup("log-level"))
}

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", key, err))
	}
}

func loadConfig() error {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load(".")
}

// setupLogging builds the slog pipeline from config. Console records go to console,
// keeping stdout free for command output.
func setupLogging(console io.Writer) error {
	logCfg := config.GetLogConfig()
	sinks := logging.Sinks{
		Console: console,
		Context: logContext,
	}

	if logCfg.ToFile {
		if err := os.MkdirAll(logCfg.Dir, 0755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(logging.LogFilePath(logCfg.Dir, AppName, SessionStartTime),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logFile = f
		sinks.File = f
	}

	var graylogErr error
	if gl := config.GetGraylogConfig(); gl.Enabled {
		gelfWriter, graylogErr = logging.NewGraylogWriter(gl.Address, gl.Facility)
		if graylogErr == nil {
			sinks.Graylog = gelfWriter
		}
	}

	otelCfg := config.GetOTelConfig()
	var otelWriter io.Writer
	if logFile != nil {
		otelWriter = logFile
	}
	provider, err := intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    otelWriter,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		return fmt.Errorf("setting up OpenTelemetry: %w", err)
	}
	OTelProvider = provider
	sinks.Provider = provider.LoggerProvider()

	SlogManager.Setup(sinks, logCfg.Level)
	Logger = SlogManager.Logger()

	if graylogErr != nil {
		Logger.Warn("Graylog sink disabled", "error", graylogErr)
	}
	return nil
}

func logContext() []slog.Attr {
	attrs := []slog.Attr{slog.String("input", filepath.Base(config.GetInput()))}
	if ix := loadedIndex.Load(); ix != nil {
		attrs = append(attrs, slog.Int("frames", ix.Len()))
	}
	return attrs
}

func shutdownLogging(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if OTelProvider != nil {
		errs = append(errs, OTelProvider.Shutdown(ctx))
		OTelProvider = nil
	}
	if gelfWriter != nil {
		errs = append(errs, gelfWriter.Close())
		gelfWriter = nil
	}
	if logFile != nil {
		errs = append(errs, logFile.Close())
		logFile = nil
	}
	if err := errors.Join(errs...); err != nil {
		fmt.Fprintln(os.Stderr, "error shutting down logging:", err)
	}
}
