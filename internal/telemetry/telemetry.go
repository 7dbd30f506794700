// Package telemetry exports the shipper's own logs and Prometheus metrics
// over OTLP with the stock OpenTelemetry exporters, separate from the
// pipeline it runs.
package telemetry

import (
	"context"
	"fmt"
	"time"

	prombridge "go.opentelemetry.io/contrib/bridges/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	defaultPushInterval    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// RetryConfig configures the stock exporters' retry. Zero durations keep
// the SDK defaults.
type RetryConfig struct {
	Enabled     bool
	Initial     time.Duration
	MaxInterval time.Duration
	MaxElapsed  time.Duration
}

// Config holds configuration for self telemetry export.
type Config struct {
	Endpoint        string            // host:port; empty disables telemetry
	Protocol        string            // "grpc" (default) or "http"
	Insecure        bool              // plaintext connection
	Timeout         time.Duration     // per-export timeout
	PushInterval    time.Duration     // metric push interval (default 30s)
	Compression     string            // "gzip" or ""
	Headers         map[string]string // sent with every export
	ShutdownTimeout time.Duration     // flush budget on exit (default 5s)
	Retry           RetryConfig
}

// Identity describes the running process in the exported resource.
type Identity struct {
	ServiceName    string
	ServiceVersion string
	InstanceID     string
	// Mode is the CLI mode, "send" or "sink".
	Mode string
}

// Telemetry holds the OTEL SDK providers for self-monitoring.
type Telemetry struct {
	logProvider     *sdklog.LoggerProvider
	meterProvider   *metric.MeterProvider
	logger          otellog.Logger
	shutdownFuncs   []func(context.Context) error
	shutdownTimeout time.Duration
}

// Enabled returns true if telemetry is configured.
func (t *Telemetry) Enabled() bool {
	return t != nil && t.logger != nil
}

// Logger returns the OTEL logger for emitting log records.
func (t *Telemetry) Logger() otellog.Logger {
	if t == nil {
		return nil
	}
	return t.logger
}

// ShutdownTimeout returns the flush budget for Shutdown.
func (t *Telemetry) ShutdownTimeout() time.Duration {
	if t == nil || t.shutdownTimeout <= 0 {
		return defaultShutdownTimeout
	}
	return t.shutdownTimeout
}

// Init starts OTLP log and metric export. It returns nil, nil when
// cfg.Endpoint is empty.
func Init(ctx context.Context, cfg Config, id Identity) (*Telemetry, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	switch cfg.Protocol {
	case "":
		cfg.Protocol = "grpc"
	case "grpc", "http":
	default:
		return nil, fmt.Errorf("telemetry: unsupported protocol %q", cfg.Protocol)
	}

	attrs := []resource.Option{resource.WithAttributes(
		semconv.ServiceName(id.ServiceName),
		semconv.ServiceVersion(id.ServiceVersion),
	)}
	if id.InstanceID != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceInstanceID(id.InstanceID)))
	}
	if id.Mode != "" {
		attrs = append(attrs, resource.WithAttributes(attribute.String("otlp_shipper.mode", id.Mode)))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}

	t := &Telemetry{shutdownTimeout: cfg.ShutdownTimeout}

	logExporter, err := newLogExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create log exporter: %w", err)
	}
	t.logProvider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)
	t.shutdownFuncs = append(t.shutdownFuncs, t.logProvider.Shutdown)
	t.logger = t.logProvider.Logger(id.ServiceName)

	metricExporter, err := newMetricExporter(ctx, cfg)
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: create metric exporter: %w", err)
	}

	pushInterval := cfg.PushInterval
	if pushInterval <= 0 {
		pushInterval = defaultPushInterval
	}
	// The bridge reads the default Prometheus registry, so every
	// otlp_shipper_* collector is pushed without double instrumentation.
	t.meterProvider = metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter,
			metric.WithInterval(pushInterval),
			metric.WithProducer(prombridge.NewMetricProducer()),
		)),
	)
	t.shutdownFuncs = append(t.shutdownFuncs, t.meterProvider.Shutdown)

	return t, nil
}

// Shutdown flushes and stops the providers, returning the first error.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var firstErr error
	for _, fn := range t.shutdownFuncs {
		if err := fn(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

//nolint:dupl // each OTEL exporter has its own option type
func newLogExporter(ctx context.Context, cfg Config) (sdklog.Exporter, error) {
	if cfg.Protocol == "http" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		if cfg.Timeout > 0 {
			opts = append(opts, otlploghttp.WithTimeout(cfg.Timeout))
		}
		if cfg.Compression == "gzip" {
			opts = append(opts, otlploghttp.WithCompression(otlploghttp.GzipCompression))
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlploghttp.WithHeaders(cfg.Headers))
		}
		opts = append(opts, otlploghttp.WithRetry(otlploghttp.RetryConfig{
			Enabled:         cfg.Retry.Enabled,
			InitialInterval: cfg.Retry.Initial,
			MaxInterval:     cfg.Retry.MaxInterval,
			MaxElapsedTime:  cfg.Retry.MaxElapsed,
		}))
		return otlploghttp.New(ctx, opts...)
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlploggrpc.WithTimeout(cfg.Timeout))
	}
	if cfg.Compression == "gzip" {
		opts = append(opts, otlploggrpc.WithCompressor("gzip"))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlploggrpc.WithHeaders(cfg.Headers))
	}
	opts = append(opts, otlploggrpc.WithRetry(otlploggrpc.RetryConfig{
		Enabled:         cfg.Retry.Enabled,
		InitialInterval: cfg.Retry.Initial,
		MaxInterval:     cfg.Retry.MaxInterval,
		MaxElapsedTime:  cfg.Retry.MaxElapsed,
	}))
	return otlploggrpc.New(ctx, opts...)
}

//nolint:dupl // each OTEL exporter has its own option type
func newMetricExporter(ctx context.Context, cfg Config) (metric.Exporter, error) {
	if cfg.Protocol == "http" {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if cfg.Timeout > 0 {
			opts = append(opts, otlpmetrichttp.WithTimeout(cfg.Timeout))
		}
		if cfg.Compression == "gzip" {
			opts = append(opts, otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression))
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
		}
		opts = append(opts, otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{
			Enabled:         cfg.Retry.Enabled,
			InitialInterval: cfg.Retry.Initial,
			MaxInterval:     cfg.Retry.MaxInterval,
			MaxElapsedTime:  cfg.Retry.MaxElapsed,
		}))
		return otlpmetrichttp.New(ctx, opts...)
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlpmetricgrpc.WithTimeout(cfg.Timeout))
	}
	if cfg.Compression == "gzip" {
		opts = append(opts, otlpmetricgrpc.WithCompressor("gzip"))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.Headers))
	}
	opts = append(opts, otlpmetricgrpc.WithRetry(otlpmetricgrpc.RetryConfig{
		Enabled:         cfg.Retry.Enabled,
		InitialInterval: cfg.Retry.Initial,
		MaxInterval:     cfg.Retry.MaxInterval,
		MaxElapsedTime:  cfg.Retry.MaxElapsed,
	}))
	return otlpmetricgrpc.New(ctx, opts...)
}
