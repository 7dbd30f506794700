package stats

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/szibis/otlp-shipper/internal/otlpwire"
)

func traceRequest(service string, traceID byte, spanIDs ...byte) *otlpwire.ExportTraceServiceRequest {
	var spans []*otlpwire.Span
	for _, id := range spanIDs {
		spans = append(spans, &otlpwire.Span{
			TraceID: []byte{traceID, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1},
			SpanID:  []byte{id, 0, 0, 0, 0, 0, 0, 1},
			Name:    "op",
		})
	}
	var res *otlpwire.Resource
	if service != "" {
		res = &otlpwire.Resource{Attributes: []*otlpwire.AttributeKeyValue{
			{Key: "service.name", Type: otlpwire.ValueTypeString, StringValue: service},
		}}
	}
	return &otlpwire.ExportTraceServiceRequest{ResourceSpans: []*otlpwire.ResourceSpans{{
		Resource:                    res,
		InstrumentationLibrarySpans: []*otlpwire.InstrumentationLibrarySpans{{Spans: spans}},
	}}}
}

func TestCollector_Traces(t *testing.T) {
	c := NewCollector(Config{})
	c.ConsumeTraces(traceRequest("checkout", 1, 1, 2, 3))
	c.ConsumeTraces(traceRequest("checkout", 2, 4))
	c.ConsumeTraces(traceRequest("", 1, 1))

	s := c.Snapshot()
	if s.Spans != 5 {
		t.Errorf("Spans = %d, want 5", s.Spans)
	}
	if s.UniqueTraces != 2 {
		t.Errorf("UniqueTraces = %d, want 2", s.UniqueTraces)
	}
	if s.DuplicateSpans != 1 {
		t.Errorf("DuplicateSpans = %d, want 1", s.DuplicateSpans)
	}
	want := []ServiceStats{{Service: "checkout", Spans: 4}, {Service: "unknown", Spans: 1}}
	if diff := cmp.Diff(want, s.Services); diff != "" {
		t.Errorf("services mismatch (-want +got):\n%s", diff)
	}
}

func TestCollector_Metrics(t *testing.T) {
	c := NewCollector(Config{})
	req := &otlpwire.ExportMetricsServiceRequest{ResourceMetrics: []*otlpwire.ResourceMetrics{{
		Resource: &otlpwire.Resource{Attributes: []*otlpwire.AttributeKeyValue{
			{Key: "service.name", Type: otlpwire.ValueTypeString, StringValue: "api"},
		}},
		InstrumentationLibraryMetrics: []*otlpwire.InstrumentationLibraryMetrics{{
			Metrics: []*otlpwire.Metric{
				{MetricDescriptor: &otlpwire.MetricDescriptor{Name: "requests"}, Int64DataPoints: []*otlpwire.Int64DataPoint{{Value: 1}, {Value: 2}}},
				{MetricDescriptor: &otlpwire.MetricDescriptor{Name: "latency"}, HistogramDataPoints: []*otlpwire.HistogramDataPoint{{Count: 3}}},
				{MetricDescriptor: &otlpwire.MetricDescriptor{Name: "requests"}, DoubleDataPoints: []*otlpwire.DoubleDataPoint{{Value: 1}}},
			},
		}},
	}}}
	c.ConsumeMetrics(req)

	s := c.Snapshot()
	if s.Metrics != 3 || s.DataPoints != 4 || s.UniqueMetricNames != 2 {
		t.Errorf("unexpected snapshot %+v", s)
	}
	if s.Services[0].Service != "api" || s.Services[0].DataPoints != 4 {
		t.Errorf("services %+v", s.Services)
	}
}

func TestCollector_ResetIdentifiers(t *testing.T) {
	c := NewCollector(Config{})
	c.ConsumeTraces(traceRequest("a", 1, 1))
	c.ResetIdentifiers()
	c.ConsumeTraces(traceRequest("a", 1, 1))

	s := c.Snapshot()
	if s.DuplicateSpans != 0 {
		t.Error("reset should forget previously seen spans")
	}
	if s.Spans != 2 {
		t.Error("reset must keep totals")
	}
}

func TestCollector_ServeHTTP(t *testing.T) {
	c := NewCollector(Config{})
	c.RecordRequest("http", "json", 100, 300)
	c.ConsumeTraces(traceRequest("checkout", 1, 1, 2))

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest("GET", "/stats", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`otlp_shipper_sink_requests_total{transport="http/json"} 1`,
		"otlp_shipper_sink_spans_total 2",
		`otlp_shipper_sink_bytes_total{stage="wire"} 100`,
		`otlp_shipper_sink_bytes_total{stage="decoded"} 300`,
		`otlp_shipper_sink_service_spans_total{service="checkout"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector(Config{})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				c.ConsumeTraces(traceRequest("svc", byte(g), byte(i)))
				c.RecordRequest("grpc", "native", 10, 10)
				_ = c.Snapshot()
			}
		}(g)
	}
	wg.Wait()
	if s := c.Snapshot(); s.Spans != 400 || s.Requests["grpc/native"] != 400 {
		t.Errorf("lost updates: %+v", s)
	}
}

func TestStartPeriodicLogging_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewCollector(Config{Window: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.StartPeriodicLogging(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	<-done
}
