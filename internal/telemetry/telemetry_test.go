package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	otellog "go.opentelemetry.io/otel/log"

	"github.com/szibis/otlp-shipper/internal/logging"
)

var testIdentity = Identity{ServiceName: "otlp-shipper", ServiceVersion: "test", InstanceID: "abc", Mode: "send"}

func TestInit_Disabled(t *testing.T) {
	tel, err := Init(context.Background(), Config{}, testIdentity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tel != nil {
		t.Error("expected nil telemetry when endpoint is empty")
	}
}

func TestInit_Protocols(t *testing.T) {
	for _, tc := range []struct{ protocol, endpoint string }{
		{"", "localhost:4317"},
		{"grpc", "localhost:4317"},
		{"http", "localhost:4318"},
	} {
		t.Run("protocol="+tc.protocol, func(t *testing.T) {
			// Nothing listens; setup must still succeed.
			tel, err := Init(context.Background(), Config{
				Endpoint:    tc.endpoint,
				Protocol:    tc.protocol,
				Insecure:    true,
				Compression: "gzip",
				Headers:     map[string]string{"x-tenant": "a"},
				Retry:       RetryConfig{Enabled: true, Initial: time.Second},
			}, testIdentity)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tel.Enabled() || tel.Logger() == nil {
				t.Fatal("expected enabled telemetry with a logger")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = tel.Shutdown(ctx)
		})
	}
}

func TestInit_InvalidProtocol(t *testing.T) {
	_, err := Init(context.Background(), Config{Endpoint: "localhost:4317", Protocol: "udp"}, testIdentity)
	if err == nil {
		t.Fatal("expected error for unsupported protocol")
	}
}

func TestTelemetry_Nil(t *testing.T) {
	var tel *Telemetry
	if tel.Enabled() {
		t.Error("nil telemetry should not be enabled")
	}
	if tel.Logger() != nil {
		t.Error("nil telemetry logger should be nil")
	}
	if tel.NewLogHook() != nil {
		t.Error("nil telemetry should return nil hook")
	}
	if tel.ShutdownTimeout() != defaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v", tel.ShutdownTimeout())
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("nil telemetry shutdown should not error: %v", err)
	}
}

func TestNewLogHook_Emits(t *testing.T) {
	tel, err := Init(context.Background(), Config{Endpoint: "localhost:4317", Insecure: true}, testIdentity)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_ = tel.Shutdown(ctx)
	}()

	hook := tel.NewLogHook()
	if hook == nil {
		t.Fatal("expected non-nil hook")
	}
	hook(logging.LevelWarn, "export failed", map[string]interface{}{"records": 3, "retryable": true, "err": errors.New("x")})
	hook(logging.LevelDebug, "debug", nil)
}

func TestToOTELSeverity(t *testing.T) {
	tests := []struct {
		level logging.Level
		want  otellog.Severity
	}{
		{logging.LevelDebug, otellog.SeverityDebug},
		{logging.LevelInfo, otellog.SeverityInfo},
		{logging.LevelWarn, otellog.SeverityWarn},
		{logging.LevelError, otellog.SeverityError},
		{logging.LevelFatal, otellog.SeverityFatal},
	}
	for _, tt := range tests {
		if got := toOTELSeverity(tt.level); got != tt.want {
			t.Errorf("toOTELSeverity(%s) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestToOTELAttributes(t *testing.T) {
	got := toOTELAttributes(map[string]interface{}{
		"signal":  "traces",
		"records": 3,
		"elapsed": 2 * time.Second,
		"nil":     nil,
	})
	keys := make([]string, 0, len(got))
	for _, kv := range got {
		keys = append(keys, kv.Key)
	}
	if diff := cmp.Diff([]string{"elapsed", "nil", "records", "signal"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if got[0].Value.AsString() != "2s" || got[2].Value.AsInt64() != 3 {
		t.Errorf("unexpected values %v %v", got[0].Value, got[2].Value)
	}
}
