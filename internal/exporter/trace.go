package exporter

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/szibis/otlp-shipper/internal/grouping"
	"github.com/szibis/otlp-shipper/internal/otlpwire"
	"github.com/szibis/otlp-shipper/internal/translate"
)

// TraceExporter exports spans. It implements sdktrace.SpanExporter, so it
// can sit behind the SDK's batch span processor.
type TraceExporter struct {
	exp *Exporter[sdktrace.ReadOnlySpan]
}

var _ sdktrace.SpanExporter = (*TraceExporter)(nil)

// NewTraceExporter creates a span exporter.
func NewTraceExporter(cfg Config) (*TraceExporter, error) {
	exp, err := New(SignalTraces, cfg, translate.SpanKey, buildSpans)
	if err != nil {
		return nil, err
	}
	return &TraceExporter{exp: exp}, nil
}

func buildSpans(b grouping.Batch[sdktrace.ReadOnlySpan]) (otlpwire.Message, error) {
	req, err := translate.Spans(b)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Export starts exporting spans without waiting for the outcome.
func (e *TraceExporter) Export(spans []sdktrace.ReadOnlySpan) *PendingExport {
	return e.exp.Export(spans)
}

// ExportSpans exports spans and waits for the outcome or ctx.
func (e *TraceExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return e.exp.Export(spans).Wait(ctx)
}

// Shutdown implements sdktrace.SpanExporter.
func (e *TraceExporter) Shutdown(ctx context.Context) error {
	return e.exp.Shutdown(ctx)
}

// Flush waits for in-flight exports.
func (e *TraceExporter) Flush(ctx context.Context) error { return e.exp.Flush(ctx) }

// Ready reports whether exports go straight to the network.
func (e *TraceExporter) Ready() bool { return e.exp.Ready() }

// Guarantee reports what a successful export proves.
func (e *TraceExporter) Guarantee() Guarantee { return e.exp.Guarantee() }
