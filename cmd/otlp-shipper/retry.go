package main

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/szibis/otlp-shipper/internal/exporter"
	"github.com/szibis/otlp-shipper/internal/logging"
)

// retryPolicy retries exports that failed with a retryable error, with
// exponential backoff, until maxElapsed or the caller's context runs out.
type retryPolicy struct {
	maxElapsed time.Duration
	newBackOff func() backoff.BackOff
	log        logging.Component
}

func newRetryPolicy(signal string, maxElapsed time.Duration) retryPolicy {
	return retryPolicy{
		maxElapsed: maxElapsed,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		log:        logging.Named("retry").With("signal", signal),
	}
}

func (p retryPolicy) do(ctx context.Context, records int, export func() error) error {
	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := export()
		if err == nil {
			return struct{}{}, nil
		}
		if !exporter.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxElapsedTime(p.maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.log.Debug("retrying export", logging.F(
				"attempt", attempts,
				"records", records,
				"next", next.String(),
				"error_type", string(exporter.TypeOf(err)),
			))
		}),
	)
	if err != nil && attempts > 1 {
		p.log.Warn("export failed after retries", logging.F("attempts", attempts, "records", records, "error", err.Error()))
	}
	return err
}

// retryingSpanExporter retries retryable failures of the wrapped exporter.
type retryingSpanExporter struct {
	sdktrace.SpanExporter
	policy retryPolicy
}

func (e *retryingSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return e.policy.do(ctx, len(spans), func() error {
		return e.SpanExporter.ExportSpans(ctx, spans)
	})
}

// retryingMetricExporter retries retryable failures of the wrapped exporter.
type retryingMetricExporter struct {
	sdkmetric.Exporter
	policy retryPolicy
}

func (e *retryingMetricExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	metrics := 0
	for _, sm := range rm.ScopeMetrics {
		metrics += len(sm.Metrics)
	}
	return e.policy.do(ctx, metrics, func() error {
		return e.Exporter.Export(ctx, rm)
	})
}
