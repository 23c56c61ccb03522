// Package otel sets up the OpenTelemetry log pipeline.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ErrNoExporter is returned when OTel is enabled without a log writer or endpoint.
var ErrNoExporter = errors.New("otel enabled but no log writer or endpoint configured")

// Config holds OTel configuration.
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	// LogWriter receives pretty-printed OTel log records, usually the session log file.
	LogWriter io.Writer
	// Endpoint is an optional OTLP/HTTP collector (host:port).
	Endpoint string
	Insecure bool
}

// Provider owns the OTel log provider. A disabled Provider is a valid no-op.
type Provider struct {
	logProvider *sdklog.LoggerProvider
	config      Config
}

// New creates a provider. When cfg.Enabled is false nothing is exported.
func New(cfg Config) (*Provider, error) {
	p := &Provider{config: cfg}
	if !cfg.Enabled {
		return p, nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create file log exporter: %w", err)
		}
		opts = append(opts, sdklog.WithProcessor(p.batch(exp)))
	}
	if cfg.Endpoint != "" {
		exp, err := otlploghttp.New(ctx, p.otlpOptions()...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		opts = append(opts, sdklog.WithProcessor(p.batch(exp)))
	}
	if len(opts) == 1 {
		return nil, ErrNoExporter
	}

	p.logProvider = sdklog.NewLoggerProvider(opts...)
	return p, nil
}

func (p *Provider) batch(exp sdklog.Exporter) sdklog.Processor {
	var opts []sdklog.BatchProcessorOption
	if p.config.BatchTimeout > 0 {
		opts = append(opts, sdklog.WithExportTimeout(p.config.BatchTimeout))
	}
	return sdklog.NewBatchProcessor(exp, opts...)
}

func (p *Provider) otlpOptions() []otlploghttp.Option {
	opts := []otlploghttp.Option{otlploghttp.WithEndpoint(p.config.Endpoint)}
	if p.config.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	return opts
}

// Enabled reports whether logs are exported.
func (p *Provider) Enabled() bool {
	return p.logProvider != nil
}

// LoggerProvider returns the log provider for the otelslog bridge, or nil when disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Flush forces a flush of all pending logs.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush failed: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the provider. Call it once on exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}
