package translate

import (
	"fmt"

	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/szibis/otlp-shipper/internal/grouping"
	"github.com/szibis/otlp-shipper/internal/otlpwire"
)

// MetricRecord is one aggregated metric together with the resource and
// scope it was collected under.
type MetricRecord struct {
	Resource *resource.Resource
	Scope    instrumentation.Scope
	Metric   metricdata.Metrics
}

// MetricKey is the grouping key function for metric records.
func MetricKey(r MetricRecord) (*resource.Resource, instrumentation.Scope) {
	return r.Resource, r.Scope
}

// MetricRecords flattens a collection into records, preserving the order
// of scopes and metrics.
func MetricRecords(rm *metricdata.ResourceMetrics) []MetricRecord {
	var out []MetricRecord
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out = append(out, MetricRecord{Resource: rm.Resource, Scope: sm.Scope, Metric: m})
		}
	}
	return out
}

// Metrics builds a metrics export request from a grouped batch.
func Metrics(batch grouping.Batch[MetricRecord]) (*otlpwire.ExportMetricsServiceRequest, error) {
	req := &otlpwire.ExportMetricsServiceRequest{
		ResourceMetrics: make([]*otlpwire.ResourceMetrics, 0, len(batch.Resources)),
	}
	for _, rg := range batch.Resources {
		res, err := Resource(rg.Resource)
		if err != nil {
			return nil, err
		}
		rm := &otlpwire.ResourceMetrics{
			Resource:                      res,
			InstrumentationLibraryMetrics: make([]*otlpwire.InstrumentationLibraryMetrics, 0, len(rg.Scopes)),
		}
		for _, sg := range rg.Scopes {
			ilm := &otlpwire.InstrumentationLibraryMetrics{
				InstrumentationLibrary: Library(sg.Scope),
				Metrics:                make([]*otlpwire.Metric, 0, len(sg.Records)),
			}
			for _, rec := range sg.Records {
				m, err := Metric(rec.Metric)
				if err != nil {
					return nil, err
				}
				ilm.Metrics = append(ilm.Metrics, m)
			}
			rm.InstrumentationLibraryMetrics = append(rm.InstrumentationLibraryMetrics, ilm)
		}
		req.ResourceMetrics = append(req.ResourceMetrics, rm)
	}
	return req, nil
}

// Metric converts one aggregated metric.
func Metric(m metricdata.Metrics) (*otlpwire.Metric, error) {
	desc := &otlpwire.MetricDescriptor{
		Name:        m.Name,
		Description: m.Description,
		Unit:        m.Unit,
	}
	out := &otlpwire.Metric{MetricDescriptor: desc}

	switch data := m.Data.(type) {
	case metricdata.Gauge[int64]:
		desc.Type = otlpwire.MetricTypeInt64
		desc.Temporality = otlpwire.TemporalityInstantaneous
		out.Int64DataPoints = int64Points(data.DataPoints)
	case metricdata.Gauge[float64]:
		desc.Type = otlpwire.MetricTypeDouble
		desc.Temporality = otlpwire.TemporalityInstantaneous
		out.DoubleDataPoints = doublePoints(data.DataPoints)
	case metricdata.Sum[int64]:
		desc.Type = otlpwire.MetricTypeInt64
		if data.IsMonotonic {
			desc.Type = otlpwire.MetricTypeMonotonicInt64
		}
		desc.Temporality = temporality(data.Temporality)
		out.Int64DataPoints = int64Points(data.DataPoints)
	case metricdata.Sum[float64]:
		desc.Type = otlpwire.MetricTypeDouble
		if data.IsMonotonic {
			desc.Type = otlpwire.MetricTypeMonotonicDouble
		}
		desc.Temporality = temporality(data.Temporality)
		out.DoubleDataPoints = doublePoints(data.DataPoints)
	case metricdata.Histogram[int64]:
		desc.Type = otlpwire.MetricTypeHistogram
		desc.Temporality = temporality(data.Temporality)
		out.HistogramDataPoints = histogramPoints(data.DataPoints)
	case metricdata.Histogram[float64]:
		desc.Type = otlpwire.MetricTypeHistogram
		desc.Temporality = temporality(data.Temporality)
		out.HistogramDataPoints = histogramPoints(data.DataPoints)
	case metricdata.Summary:
		desc.Type = otlpwire.MetricTypeSummary
		desc.Temporality = otlpwire.TemporalityCumulative
		out.SummaryDataPoints = summaryPoints(data.DataPoints)
	default:
		return nil, fmt.Errorf("metric %q: %w", m.Name, &UnsupportedValueError{Kind: fmt.Sprintf("%T", m.Data)})
	}
	return out, nil
}

func temporality(t metricdata.Temporality) otlpwire.Temporality {
	switch t {
	case metricdata.DeltaTemporality:
		return otlpwire.TemporalityDelta
	case metricdata.CumulativeTemporality:
		return otlpwire.TemporalityCumulative
	default:
		return otlpwire.TemporalityInvalid
	}
}

func int64Points(dps []metricdata.DataPoint[int64]) []*otlpwire.Int64DataPoint {
	out := make([]*otlpwire.Int64DataPoint, 0, len(dps))
	for _, dp := range dps {
		out = append(out, &otlpwire.Int64DataPoint{
			Labels:            Labels(dp.Attributes),
			StartTimeUnixNano: unixNano(dp.StartTime),
			TimeUnixNano:      unixNano(dp.Time),
			Value:             dp.Value,
		})
	}
	return out
}

func doublePoints(dps []metricdata.DataPoint[float64]) []*otlpwire.DoubleDataPoint {
	out := make([]*otlpwire.DoubleDataPoint, 0, len(dps))
	for _, dp := range dps {
		out = append(out, &otlpwire.DoubleDataPoint{
			Labels:            Labels(dp.Attributes),
			StartTimeUnixNano: unixNano(dp.StartTime),
			TimeUnixNano:      unixNano(dp.Time),
			Value:             dp.Value,
		})
	}
	return out
}

func histogramPoints[N int64 | float64](dps []metricdata.HistogramDataPoint[N]) []*otlpwire.HistogramDataPoint {
	out := make([]*otlpwire.HistogramDataPoint, 0, len(dps))
	for _, dp := range dps {
		p := &otlpwire.HistogramDataPoint{
			Labels:            Labels(dp.Attributes),
			StartTimeUnixNano: unixNano(dp.StartTime),
			TimeUnixNano:      unixNano(dp.Time),
			Count:             dp.Count,
			Sum:               float64(dp.Sum),
			ExplicitBounds:    dp.Bounds,
		}
		for _, c := range dp.BucketCounts {
			p.Buckets = append(p.Buckets, &otlpwire.HistogramBucket{Count: c})
		}
		out = append(out, p)
	}
	return out
}

// summaryPoints rescales SDK quantiles (0..1) to percentiles (0..100).
func summaryPoints(dps []metricdata.SummaryDataPoint) []*otlpwire.SummaryDataPoint {
	out := make([]*otlpwire.SummaryDataPoint, 0, len(dps))
	for _, dp := range dps {
		p := &otlpwire.SummaryDataPoint{
			Labels:            Labels(dp.Attributes),
			StartTimeUnixNano: unixNano(dp.StartTime),
			TimeUnixNano:      unixNano(dp.Time),
			Count:             dp.Count,
			Sum:               dp.Sum,
		}
		for _, q := range dp.QuantileValues {
			p.PercentileValues = append(p.PercentileValues, &otlpwire.ValueAtPercentile{
				Percentile: q.Quantile * 100,
				Value:      q.Value,
			})
		}
		out = append(out, p)
	}
	return out
}
