package config

import (
	"errors"
	"fmt"

	"github.com/szibis/otlp-shipper/internal/cardinality"
	"github.com/szibis/otlp-shipper/internal/compression"
	"github.com/szibis/otlp-shipper/internal/exporter"
	"github.com/szibis/otlp-shipper/internal/logging"
)

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Mode != ModeSend && c.Mode != ModeSink {
		add("mode must be %s or %s, got %q", ModeSend, ModeSink, c.Mode)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		add("log-level: %v", err)
	}
	if c.MemoryLimitRatio < 0 || c.MemoryLimitRatio > 1 {
		add("memory-limit-ratio must be between 0 and 1, got %v", c.MemoryLimitRatio)
	}
	if c.ShutdownTimeout <= 0 {
		add("shutdown-timeout must be positive")
	}

	if c.Mode == ModeSend {
		errs = append(errs, c.validateSend()...)
	}
	if c.Mode == ModeSink {
		errs = append(errs, c.validateSink()...)
	}

	switch c.TelemetryProtocol {
	case "", "grpc", "http":
	default:
		add("telemetry-protocol must be grpc or http, got %q", c.TelemetryProtocol)
	}
	if c.TelemetryEndpoint != "" && c.TelemetryPushInterval <= 0 {
		add("telemetry-push-interval must be positive")
	}
	return errors.Join(errs...)
}

func (c *Config) validateSend() []error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if c.ExporterEndpoint == "" {
		add("exporter-endpoint is required")
	}
	if _, err := exporter.ParseProtocol(c.ExporterProtocol); err != nil {
		add("exporter-protocol: %v", err)
	}
	if _, err := compression.ParseType(c.ExporterCompression); err != nil {
		add("exporter-compression: %v", err)
	}
	if c.ExporterTimeout < 0 {
		add("exporter-timeout must not be negative")
	}
	if c.ExporterConcurrencyLimit < 0 {
		add("exporter-concurrency-limit must not be negative")
	}
	if c.ExporterBeaconQueueSize < 0 {
		add("exporter-beacon-queue-size must not be negative")
	}
	if c.ExporterTLSEnabled && (c.ExporterTLSCertFile == "") != (c.ExporterTLSKeyFile == "") {
		add("exporter-tls-cert and exporter-tls-key must be set together")
	}
	if c.BatchMaxQueueSize <= 0 {
		add("max-queue-size must be positive")
	}
	if c.BatchMaxExportBatchSize <= 0 {
		add("max-export-batch-size must be positive")
	} else if c.BatchMaxExportBatchSize > c.BatchMaxQueueSize {
		add("max-export-batch-size (%d) must not exceed max-queue-size (%d)", c.BatchMaxExportBatchSize, c.BatchMaxQueueSize)
	}
	if c.BatchScheduleDelay <= 0 {
		add("schedule-delay must be positive")
	}
	if c.MetricInterval <= 0 {
		add("metric-interval must be positive")
	}
	if traces, metrics := c.Signals(); !traces && !metrics {
		add("send-signals must name traces, metrics or both, got %q", c.SendSignals)
	}
	if c.SendRate <= 0 {
		add("send-rate must be positive")
	}
	if c.SendWorkers <= 0 {
		add("send-workers must be positive")
	}
	if c.SendDuration < 0 {
		add("send-duration must not be negative")
	}
	return errs
}

func (c *Config) validateSink() []error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if c.SinkGRPCListen == "" && c.SinkHTTPListen == "" {
		add("at least one of sink-grpc-listen and sink-http-listen is required")
	}
	if c.SinkMaxRequestBodySize < 0 {
		add("sink-max-body-size must not be negative")
	}
	if c.SinkStatsInterval <= 0 {
		add("sink-stats-interval must be positive")
	}
	if c.SinkStatsWindow < 0 {
		add("sink-stats-window must not be negative")
	}
	mode, err := cardinality.ParseMode(c.SinkDuplicateMode)
	if err != nil {
		add("sink-duplicate-mode: %v", err)
	} else if mode == cardinality.ModeHLL {
		add("sink-duplicate-mode must be bloom or exact; hll cannot test membership")
	}
	if c.SinkDuplicateFPRate <= 0 || c.SinkDuplicateFPRate >= 1 {
		add("sink-duplicate-fp-rate must be between 0 and 1 exclusive, got %v", c.SinkDuplicateFPRate)
	}
	if c.SinkTLSEnabled && (c.SinkTLSCertFile == "" || c.SinkTLSKeyFile == "") {
		add("sink-tls-cert and sink-tls-key are required when sink TLS is enabled")
	}
	if c.SinkAuthEnabled && c.SinkAuthBearerToken == "" && c.SinkAuthBasicUsername == "" {
		add("sink auth requires a bearer token or basic credentials")
	}
	return errs
}
