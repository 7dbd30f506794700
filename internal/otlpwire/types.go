// Package otlpwire defines the OTLP export request schema spoken by the
// shipper and its codecs: JSON (struct tags), protobuf binary (protowire) and
// a gRPC codec carrying the same structs over the collector services.
//
// The layout is the instrumentation_library_* generation of OTLP, where every
// attribute carries an explicit value type tag.
package otlpwire

// ValueType discriminates the value stored in an AttributeKeyValue.
type ValueType int32

const (
	ValueTypeString ValueType = 0
	ValueTypeInt    ValueType = 1
	ValueTypeDouble ValueType = 2
	ValueTypeBool   ValueType = 3
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeString:
		return "STRING"
	case ValueTypeInt:
		return "INT"
	case ValueTypeDouble:
		return "DOUBLE"
	case ValueTypeBool:
		return "BOOL"
	default:
		return "UNKNOWN"
	}
}

// AttributeKeyValue is a typed attribute.
type AttributeKeyValue struct {
	Key         string    `json:"key"`
	Type        ValueType `json:"type"`
	StringValue string    `json:"stringValue,omitempty"`
	IntValue    int64     `json:"intValue,omitempty"`
	DoubleValue float64   `json:"doubleValue,omitempty"`
	BoolValue   bool      `json:"boolValue,omitempty"`
}

// StringKeyValue is a string-only label used by metric data points.
type StringKeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Resource is the identity of the process that produced the telemetry.
type Resource struct {
	Attributes             []*AttributeKeyValue `json:"attributes,omitempty"`
	DroppedAttributesCount uint32               `json:"droppedAttributesCount,omitempty"`
}

// InstrumentationLibrary identifies the instrumentation scope.
type InstrumentationLibrary struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// SpanKind mirrors the OTLP span kind enumeration.
type SpanKind int32

const (
	SpanKindUnspecified SpanKind = 0
	SpanKindInternal    SpanKind = 1
	SpanKindServer      SpanKind = 2
	SpanKindClient      SpanKind = 3
	SpanKindProducer    SpanKind = 4
	SpanKindConsumer    SpanKind = 5
)

// StatusCode uses the gRPC-derived codes of this OTLP generation.
type StatusCode int32

const (
	StatusCodeOk           StatusCode = 0
	StatusCodeUnknownError StatusCode = 2
)

// Status is the span status.
type Status struct {
	Code    StatusCode `json:"code,omitempty"`
	Message string     `json:"message,omitempty"`
}

// SpanEvent is a timestamped annotation on a span.
type SpanEvent struct {
	TimeUnixNano           uint64               `json:"timeUnixNano,omitempty"`
	Name                   string               `json:"name,omitempty"`
	Attributes             []*AttributeKeyValue `json:"attributes,omitempty"`
	DroppedAttributesCount uint32               `json:"droppedAttributesCount,omitempty"`
}

// SpanLink points to another span.
type SpanLink struct {
	TraceID                []byte               `json:"traceId,omitempty"`
	SpanID                 []byte               `json:"spanId,omitempty"`
	TraceState             string               `json:"traceState,omitempty"`
	Attributes             []*AttributeKeyValue `json:"attributes,omitempty"`
	DroppedAttributesCount uint32               `json:"droppedAttributesCount,omitempty"`
}

// Span is a single operation. Identifiers are raw bytes: 16 for trace ids,
// 8 for span ids.
type Span struct {
	TraceID                []byte               `json:"traceId,omitempty"`
	SpanID                 []byte               `json:"spanId,omitempty"`
	TraceState             string               `json:"traceState,omitempty"`
	ParentSpanID           []byte               `json:"parentSpanId,omitempty"`
	Name                   string               `json:"name,omitempty"`
	Kind                   SpanKind             `json:"kind,omitempty"`
	StartTimeUnixNano      uint64               `json:"startTimeUnixNano,omitempty"`
	EndTimeUnixNano        uint64               `json:"endTimeUnixNano,omitempty"`
	Attributes             []*AttributeKeyValue `json:"attributes,omitempty"`
	DroppedAttributesCount uint32               `json:"droppedAttributesCount,omitempty"`
	Events                 []*SpanEvent         `json:"events,omitempty"`
	DroppedEventsCount     uint32               `json:"droppedEventsCount,omitempty"`
	Links                  []*SpanLink          `json:"links,omitempty"`
	DroppedLinksCount      uint32               `json:"droppedLinksCount,omitempty"`
	Status                 *Status              `json:"status,omitempty"`
}

// InstrumentationLibrarySpans groups spans of one instrumentation scope.
type InstrumentationLibrarySpans struct {
	InstrumentationLibrary *InstrumentationLibrary `json:"instrumentationLibrary,omitempty"`
	Spans                  []*Span                 `json:"spans,omitempty"`
}

// ResourceSpans groups scopes of one resource.
type ResourceSpans struct {
	Resource                    *Resource                      `json:"resource,omitempty"`
	InstrumentationLibrarySpans []*InstrumentationLibrarySpans `json:"instrumentationLibrarySpans,omitempty"`
}

// ExportTraceServiceRequest is the trace export request.
type ExportTraceServiceRequest struct {
	ResourceSpans []*ResourceSpans `json:"resourceSpans,omitempty"`
}

// ExportTraceServiceResponse is empty in this OTLP generation.
type ExportTraceServiceResponse struct{}

// MetricType is the descriptor type of a metric.
type MetricType int32

const (
	MetricTypeInvalid         MetricType = 0
	MetricTypeInt64           MetricType = 1
	MetricTypeMonotonicInt64  MetricType = 2
	MetricTypeDouble          MetricType = 3
	MetricTypeMonotonicDouble MetricType = 4
	MetricTypeHistogram       MetricType = 5
	MetricTypeSummary         MetricType = 6
)

// Temporality describes the time window of a metric's points.
type Temporality int32

const (
	TemporalityInvalid       Temporality = 0
	TemporalityInstantaneous Temporality = 1
	TemporalityDelta         Temporality = 2
	TemporalityCumulative    Temporality = 3
)

// MetricDescriptor describes a metric.
type MetricDescriptor struct {
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Unit        string      `json:"unit,omitempty"`
	Type        MetricType  `json:"type,omitempty"`
	Temporality Temporality `json:"temporality,omitempty"`
}

// Int64DataPoint is an integer measurement.
type Int64DataPoint struct {
	Labels            []*StringKeyValue `json:"labels,omitempty"`
	StartTimeUnixNano uint64            `json:"startTimeUnixNano,omitempty"`
	TimeUnixNano      uint64            `json:"timeUnixNano,omitempty"`
	Value             int64             `json:"value,omitempty"`
}

// DoubleDataPoint is a floating point measurement.
type DoubleDataPoint struct {
	Labels            []*StringKeyValue `json:"labels,omitempty"`
	StartTimeUnixNano uint64            `json:"startTimeUnixNano,omitempty"`
	TimeUnixNano      uint64            `json:"timeUnixNano,omitempty"`
	Value             float64           `json:"value,omitempty"`
}

// HistogramBucket is one bucket count of a histogram point.
type HistogramBucket struct {
	Count uint64 `json:"count,omitempty"`
}

// HistogramDataPoint is an explicit-bounds histogram measurement.
type HistogramDataPoint struct {
	Labels            []*StringKeyValue  `json:"labels,omitempty"`
	StartTimeUnixNano uint64             `json:"startTimeUnixNano,omitempty"`
	TimeUnixNano      uint64             `json:"timeUnixNano,omitempty"`
	Count             uint64             `json:"count,omitempty"`
	Sum               float64            `json:"sum,omitempty"`
	Buckets           []*HistogramBucket `json:"buckets,omitempty"`
	ExplicitBounds    []float64          `json:"explicitBounds,omitempty"`
}

// ValueAtPercentile is one quantile of a summary point.
type ValueAtPercentile struct {
	Percentile float64 `json:"percentile,omitempty"`
	Value      float64 `json:"value,omitempty"`
}

// SummaryDataPoint is a summary measurement.
type SummaryDataPoint struct {
	Labels            []*StringKeyValue    `json:"labels,omitempty"`
	StartTimeUnixNano uint64               `json:"startTimeUnixNano,omitempty"`
	TimeUnixNano      uint64               `json:"timeUnixNano,omitempty"`
	Count             uint64               `json:"count,omitempty"`
	Sum               float64              `json:"sum,omitempty"`
	PercentileValues  []*ValueAtPercentile `json:"percentileValues,omitempty"`
}

// Metric carries a descriptor and the points matching its type.
type Metric struct {
	MetricDescriptor    *MetricDescriptor     `json:"metricDescriptor,omitempty"`
	Int64DataPoints     []*Int64DataPoint     `json:"int64DataPoints,omitempty"`
	DoubleDataPoints    []*DoubleDataPoint    `json:"doubleDataPoints,omitempty"`
	HistogramDataPoints []*HistogramDataPoint `json:"histogramDataPoints,omitempty"`
	SummaryDataPoints   []*SummaryDataPoint   `json:"summaryDataPoints,omitempty"`
}

// InstrumentationLibraryMetrics groups metrics of one instrumentation scope.
type InstrumentationLibraryMetrics struct {
	InstrumentationLibrary *InstrumentationLibrary `json:"instrumentationLibrary,omitempty"`
	Metrics                []*Metric               `json:"metrics,omitempty"`
}

// ResourceMetrics groups scopes of one resource.
type ResourceMetrics struct {
	Resource                      *Resource                        `json:"resource,omitempty"`
	InstrumentationLibraryMetrics []*InstrumentationLibraryMetrics `json:"instrumentationLibraryMetrics,omitempty"`
}

// ExportMetricsServiceRequest is the metrics export request.
type ExportMetricsServiceRequest struct {
	ResourceMetrics []*ResourceMetrics `json:"resourceMetrics,omitempty"`
}

// ExportMetricsServiceResponse is empty in this OTLP generation.
type ExportMetricsServiceResponse struct{}

// SpanCount returns the number of spans in the request.
func (r *ExportTraceServiceRequest) SpanCount() int {
	n := 0
	for _, rs := range r.ResourceSpans {
		for _, ils := range rs.InstrumentationLibrarySpans {
			n += len(ils.Spans)
		}
	}
	return n
}

// MetricCount returns the number of metrics in the request.
func (r *ExportMetricsServiceRequest) MetricCount() int {
	n := 0
	for _, rm := range r.ResourceMetrics {
		for _, ilm := range rm.InstrumentationLibraryMetrics {
			n += len(ilm.Metrics)
		}
	}
	return n
}

// DataPointCount returns the number of data points across all metrics.
func (r *ExportMetricsServiceRequest) DataPointCount() int {
	n := 0
	for _, rm := range r.ResourceMetrics {
		for _, ilm := range rm.InstrumentationLibraryMetrics {
			for _, m := range ilm.Metrics {
				n += len(m.Int64DataPoints) + len(m.DoubleDataPoints) +
					len(m.HistogramDataPoints) + len(m.SummaryDataPoints)
			}
		}
	}
	return n
}
