package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"sink defaults", func(c *Config) { c.Mode = ModeSink }, ""},
		{"bad mode", func(c *Config) { c.Mode = "relay" }, "mode must be"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log-level"},
		{"bad memory ratio", func(c *Config) { c.MemoryLimitRatio = 1.5 }, "memory-limit-ratio"},
		{"bad protocol", func(c *Config) { c.ExporterProtocol = "udp" }, "exporter-protocol"},
		{"bad compression", func(c *Config) { c.ExporterCompression = "brotli" }, "exporter-compression"},
		{"negative limit", func(c *Config) { c.ExporterConcurrencyLimit = -1 }, "exporter-concurrency-limit"},
		{"zero limit", func(c *Config) { c.ExporterConcurrencyLimit = 0 }, ""},
		{"batch over queue", func(c *Config) { c.BatchMaxExportBatchSize = 4096 }, "must not exceed max-queue-size"},
		{"no signals", func(c *Config) { c.SendSignals = "logs" }, "send-signals"},
		{"zero rate", func(c *Config) { c.SendRate = 0 }, "send-rate"},
		{"zero workers", func(c *Config) { c.SendWorkers = 0 }, "send-workers"},
		{"half mtls", func(c *Config) {
			c.ExporterTLSEnabled = true
			c.ExporterTLSCertFile = "cert.pem"
		}, "exporter-tls-cert and exporter-tls-key"},
		{"hll duplicates", func(c *Config) {
			c.Mode = ModeSink
			c.SinkDuplicateMode = "hll"
		}, "hll cannot test membership"},
		{"bad fp rate", func(c *Config) {
			c.Mode = ModeSink
			c.SinkDuplicateFPRate = 1
		}, "sink-duplicate-fp-rate"},
		{"no listeners", func(c *Config) {
			c.Mode = ModeSink
			c.SinkGRPCListen = ""
			c.SinkHTTPListen = ""
		}, "at least one of"},
		{"sink tls without cert", func(c *Config) {
			c.Mode = ModeSink
			c.SinkTLSEnabled = true
		}, "sink-tls-cert"},
		{"sink auth without credentials", func(c *Config) {
			c.Mode = ModeSink
			c.SinkAuthEnabled = true
		}, "bearer token or basic"},
		{"sink ignores send settings", func(c *Config) {
			c.Mode = ModeSink
			c.SendRate = 0
		}, ""},
		{"bad telemetry protocol", func(c *Config) { c.TelemetryProtocol = "udp" }, "telemetry-protocol"},
		{"zero push interval", func(c *Config) {
			c.TelemetryEndpoint = "otel:4317"
			c.TelemetryPushInterval = 0
		}, "telemetry-push-interval"},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 * time.Second }, "shutdown-timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SendRate = 0
	cfg.SendWorkers = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"send-rate", "send-workers"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
