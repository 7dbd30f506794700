package receiver

import (
	"sync"

	"github.com/szibis/otlp-shipper/internal/otlpwire"
)

type request struct {
	protocol, encoding string
	wire, decoded      int
}

// recordingConsumer keeps everything it is handed.
type recordingConsumer struct {
	mu       sync.Mutex
	traces   []*otlpwire.ExportTraceServiceRequest
	metrics  []*otlpwire.ExportMetricsServiceRequest
	requests []request
}

func (c *recordingConsumer) ConsumeTraces(req *otlpwire.ExportTraceServiceRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traces = append(c.traces, req)
}

func (c *recordingConsumer) ConsumeMetrics(req *otlpwire.ExportMetricsServiceRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = append(c.metrics, req)
}

func (c *recordingConsumer) RecordRequest(protocol, encoding string, wire, decoded int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, request{protocol, encoding, wire, decoded})
}

func (c *recordingConsumer) snapshot() ([]*otlpwire.ExportTraceServiceRequest, []*otlpwire.ExportMetricsServiceRequest, []request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*otlpwire.ExportTraceServiceRequest(nil), c.traces...),
		append([]*otlpwire.ExportMetricsServiceRequest(nil), c.metrics...),
		append([]request(nil), c.requests...)
}

func sampleTraces() *otlpwire.ExportTraceServiceRequest {
	return &otlpwire.ExportTraceServiceRequest{ResourceSpans: []*otlpwire.ResourceSpans{{
		Resource: &otlpwire.Resource{Attributes: []*otlpwire.AttributeKeyValue{
			{Key: "service.name", Type: otlpwire.ValueTypeString, StringValue: "web"},
		}},
		InstrumentationLibrarySpans: []*otlpwire.InstrumentationLibrarySpans{{
			InstrumentationLibrary: &otlpwire.InstrumentationLibrary{Name: "fetch"},
			Spans: []*otlpwire.Span{{
				TraceID: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
				SpanID:  []byte{1, 2, 3, 4, 5, 6, 7, 8},
				Name:    "GET /",
			}},
		}},
	}}}
}

func sampleMetrics() *otlpwire.ExportMetricsServiceRequest {
	return &otlpwire.ExportMetricsServiceRequest{ResourceMetrics: []*otlpwire.ResourceMetrics{{
		InstrumentationLibraryMetrics: []*otlpwire.InstrumentationLibraryMetrics{{
			Metrics: []*otlpwire.Metric{{
				MetricDescriptor: &otlpwire.MetricDescriptor{Name: "requests", Type: otlpwire.MetricTypeMonotonicInt64},
				Int64DataPoints:  []*otlpwire.Int64DataPoint{{Value: 3}, {Value: 4}},
			}},
		}},
	}}}
}
