package exporter

import (
	"context"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/szibis/otlp-shipper/internal/grouping"
	"github.com/szibis/otlp-shipper/internal/otlpwire"
	"github.com/szibis/otlp-shipper/internal/translate"
)

// MetricExporter exports metrics. It implements sdkmetric.Exporter, so it
// can be driven by a periodic reader.
type MetricExporter struct {
	exp         *Exporter[translate.MetricRecord]
	temporality sdkmetric.TemporalitySelector
	aggregation sdkmetric.AggregationSelector
}

var _ sdkmetric.Exporter = (*MetricExporter)(nil)

// MetricOption configures a MetricExporter.
type MetricOption func(*MetricExporter)

// WithTemporalitySelector sets the temporality reported to the reader.
func WithTemporalitySelector(s sdkmetric.TemporalitySelector) MetricOption {
	return func(e *MetricExporter) { e.temporality = s }
}

// WithAggregationSelector sets the aggregation reported to the reader.
func WithAggregationSelector(s sdkmetric.AggregationSelector) MetricOption {
	return func(e *MetricExporter) { e.aggregation = s }
}

// NewMetricExporter creates a metric exporter.
func NewMetricExporter(cfg Config, opts ...MetricOption) (*MetricExporter, error) {
	exp, err := New(SignalMetrics, cfg, translate.MetricKey, buildMetrics)
	if err != nil {
		return nil, err
	}
	e := &MetricExporter{
		exp:         exp,
		temporality: sdkmetric.DefaultTemporalitySelector,
		aggregation: sdkmetric.DefaultAggregationSelector,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

func buildMetrics(b grouping.Batch[translate.MetricRecord]) (otlpwire.Message, error) {
	req, err := translate.Metrics(b)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Temporality implements sdkmetric.Exporter.
func (e *MetricExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return e.temporality(k)
}

// Aggregation implements sdkmetric.Exporter.
func (e *MetricExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return e.aggregation(k)
}

// ExportRecords starts exporting records without waiting for the outcome.
func (e *MetricExporter) ExportRecords(records []translate.MetricRecord) *PendingExport {
	return e.exp.Export(records)
}

// Export implements sdkmetric.Exporter and waits for the outcome or ctx.
func (e *MetricExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	return e.exp.Export(translate.MetricRecords(rm)).Wait(ctx)
}

// ForceFlush implements sdkmetric.Exporter.
func (e *MetricExporter) ForceFlush(ctx context.Context) error {
	return e.exp.Flush(ctx)
}

// Shutdown implements sdkmetric.Exporter.
func (e *MetricExporter) Shutdown(ctx context.Context) error {
	return e.exp.Shutdown(ctx)
}

// Ready reports whether exports go straight to the network.
func (e *MetricExporter) Ready() bool { return e.exp.Ready() }

// Guarantee reports what a successful export proves.
func (e *MetricExporter) Guarantee() Guarantee { return e.exp.Guarantee() }
