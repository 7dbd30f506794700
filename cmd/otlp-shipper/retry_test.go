package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/szibis/otlp-shipper/internal/exporter"
	"github.com/szibis/otlp-shipper/internal/logging"
)

// scriptedSpanExporter returns the scripted errors in order, then nil.
type scriptedSpanExporter struct {
	errs  []error
	calls int
}

func (e *scriptedSpanExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	e.calls++
	if len(e.errs) == 0 {
		return nil
	}
	err := e.errs[0]
	e.errs = e.errs[1:]
	return err
}

func (e *scriptedSpanExporter) Shutdown(context.Context) error { return nil }

func fastPolicy(maxElapsed time.Duration) retryPolicy {
	return retryPolicy{
		maxElapsed: maxElapsed,
		newBackOff: func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) },
		log:        logging.Named("retry"),
	}
}

func TestRetryingSpanExporter(t *testing.T) {
	retryable := &exporter.ExportError{Err: errors.New("503"), Type: exporter.ErrorTypeServerError, StatusCode: 503}
	final := &exporter.ExportError{Err: errors.New("400"), Type: exporter.ErrorTypeClientError, StatusCode: 400}

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{"success", nil, 1, nil},
		{"retry then success", []error{retryable, retryable}, 3, nil},
		{"client error is final", []error{final, nil}, 1, final},
		{"shutdown is final", []error{exporter.ErrShutdown}, 1, exporter.ErrShutdown},
		{"concurrency limit is final", []error{exporter.ErrConcurrencyLimit}, 1, exporter.ErrConcurrencyLimit},
		{"retryable then final", []error{retryable, final}, 2, final},
	}
	spans := tracetest.SpanStubs{{Name: "a"}, {Name: "b"}}.Snapshots()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &scriptedSpanExporter{errs: tt.errs}
			exp := &retryingSpanExporter{SpanExporter: inner, policy: fastPolicy(time.Second)}
			err := exp.ExportSpans(context.Background(), spans)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ExportSpans() error = %v, want %v", err, tt.wantErr)
			}
			if inner.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", inner.calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryingSpanExporterGivesUp(t *testing.T) {
	retryable := &exporter.ExportError{Err: errors.New("unavailable"), Type: exporter.ErrorTypeNetwork}
	errs := make([]error, 1000)
	for i := range errs {
		errs[i] = retryable
	}
	inner := &scriptedSpanExporter{errs: errs}
	exp := &retryingSpanExporter{SpanExporter: inner, policy: fastPolicy(20 * time.Millisecond)}

	err := exp.ExportSpans(context.Background(), nil)
	if !exporter.IsRetryable(err) {
		t.Fatalf("expected the last retryable error, got %v", err)
	}
	if inner.calls < 2 || inner.calls == len(errs) {
		t.Errorf("unexpected attempt count %d", inner.calls)
	}
}

func TestRetryingSpanExporterHonorsContext(t *testing.T) {
	retryable := &exporter.ExportError{Err: errors.New("timeout"), Type: exporter.ErrorTypeTimeout}
	inner := &scriptedSpanExporter{errs: []error{retryable, retryable, retryable}}
	exp := &retryingSpanExporter{SpanExporter: inner, policy: fastPolicy(time.Minute)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := exp.ExportSpans(ctx, nil); err == nil {
		t.Fatal("expected error with a cancelled context")
	}
}
