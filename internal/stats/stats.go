// Package stats accounts for the telemetry the sink receives: totals per
// signal and service, unique trace IDs and suspected duplicate spans.
package stats

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/szibis/otlp-shipper/internal/cardinality"
	"github.com/szibis/otlp-shipper/internal/logging"
	"github.com/szibis/otlp-shipper/internal/otlpwire"
)

// unknownService labels data whose resource has no service.name.
const unknownService = "unknown"

// Config configures a Collector.
type Config struct {
	// Duplicates sizes the span-key tracker used to flag repeated spans.
	Duplicates cardinality.Config
	// Window resets the identifier trackers periodically; 0 never resets.
	Window time.Duration
}

// ServiceStats holds per-service totals.
type ServiceStats struct {
	Service    string `json:"service"`
	Spans      uint64 `json:"spans"`
	Metrics    uint64 `json:"metrics"`
	DataPoints uint64 `json:"dataPoints"`
}

// Snapshot is a point-in-time copy of the collector's counters.
type Snapshot struct {
	Requests          map[string]uint64 `json:"requests"`
	Spans             uint64            `json:"spans"`
	Metrics           uint64            `json:"metrics"`
	DataPoints        uint64            `json:"dataPoints"`
	UniqueTraces      int64             `json:"uniqueTraces"`
	UniqueMetricNames int64             `json:"uniqueMetricNames"`
	DuplicateSpans    uint64            `json:"duplicateSpans"`
	BytesWire         uint64            `json:"bytesWire"`
	BytesDecoded      uint64            `json:"bytesDecoded"`
	Services          []ServiceStats    `json:"services"`
}

// Collector aggregates received requests. It is safe for concurrent use.
type Collector struct {
	mu sync.Mutex

	window time.Duration

	requests   map[string]uint64
	spans      uint64
	metrics    uint64
	dataPoints uint64
	duplicates uint64
	bytesWire  uint64
	bytesBody  uint64
	services   map[string]*ServiceStats

	traces      cardinality.Tracker
	spanKeys    cardinality.Tracker
	metricNames cardinality.Tracker
}

// NewCollector creates a collector.
func NewCollector(cfg Config) *Collector {
	dup := cfg.Duplicates
	if dup.ExpectedItems == 0 {
		dup = cardinality.DefaultConfig()
	}
	return &Collector{
		window:      cfg.Window,
		requests:    make(map[string]uint64),
		services:    make(map[string]*ServiceStats),
		traces:      cardinality.NewHLLTracker(),
		spanKeys:    cardinality.NewTracker(dup),
		metricNames: cardinality.NewExactTracker(),
	}
}

// RecordRequest counts one request by protocol ("grpc", "http") and
// encoding, with its size on the wire and after decompression.
func (c *Collector) RecordRequest(protocol, encoding string, wireBytes, decodedBytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests[protocol+"/"+encoding]++
	c.bytesWire += uint64(wireBytes)
	c.bytesBody += uint64(decodedBytes)
}

// ConsumeTraces accounts for a trace export request.
func (c *Collector) ConsumeTraces(req *otlpwire.ExportTraceServiceRequest) {
	key := make([]byte, 0, 24)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rs := range req.ResourceSpans {
		svc := c.service(rs.Resource)
		for _, ils := range rs.InstrumentationLibrarySpans {
			for _, sp := range ils.Spans {
				c.spans++
				svc.Spans++
				if len(sp.TraceID) > 0 {
					c.traces.Add(sp.TraceID)
				}
				key = append(append(key[:0], sp.TraceID...), sp.SpanID...)
				if len(key) > 0 && !c.spanKeys.Add(key) {
					c.duplicates++
				}
			}
		}
	}
}

// ConsumeMetrics accounts for a metrics export request.
func (c *Collector) ConsumeMetrics(req *otlpwire.ExportMetricsServiceRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rm := range req.ResourceMetrics {
		svc := c.service(rm.Resource)
		for _, ilm := range rm.InstrumentationLibraryMetrics {
			for _, m := range ilm.Metrics {
				points := uint64(len(m.Int64DataPoints) + len(m.DoubleDataPoints) +
					len(m.HistogramDataPoints) + len(m.SummaryDataPoints))
				c.metrics++
				c.dataPoints += points
				svc.Metrics++
				svc.DataPoints += points
				if m.MetricDescriptor != nil {
					c.metricNames.Add([]byte(m.MetricDescriptor.Name))
				}
			}
		}
	}
}

// service returns the per-service entry; the caller holds mu.
func (c *Collector) service(res *otlpwire.Resource) *ServiceStats {
	name := unknownService
	if res != nil {
		for _, a := range res.Attributes {
			if a.Key == "service.name" && a.Type == otlpwire.ValueTypeString && a.StringValue != "" {
				name = a.StringValue
				break
			}
		}
	}
	s, ok := c.services[name]
	if !ok {
		s = &ServiceStats{Service: name}
		c.services[name] = s
	}
	return s
}

// Snapshot copies the current counters. Services are sorted by name.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Requests:          make(map[string]uint64, len(c.requests)),
		Spans:             c.spans,
		Metrics:           c.metrics,
		DataPoints:        c.dataPoints,
		UniqueTraces:      c.traces.Count(),
		UniqueMetricNames: c.metricNames.Count(),
		DuplicateSpans:    c.duplicates,
		BytesWire:         c.bytesWire,
		BytesDecoded:      c.bytesBody,
		Services:          make([]ServiceStats, 0, len(c.services)),
	}
	for k, v := range c.requests {
		s.Requests[k] = v
	}
	for _, svc := range c.services {
		s.Services = append(s.Services, *svc)
	}
	sort.Slice(s.Services, func(i, j int) bool { return s.Services[i].Service < s.Services[j].Service })
	return s
}

// ResetIdentifiers clears the unique-trace and duplicate trackers, bounding
// their memory. Totals are kept.
func (c *Collector) ResetIdentifiers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traces.Reset()
	c.spanKeys.Reset()
	c.metricNames.Reset()
}

// StartPeriodicLogging logs a summary every interval and resets the
// identifier trackers every window until ctx is done.
func (c *Collector) StartPeriodicLogging(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var reset <-chan time.Time
	if c.window > 0 {
		t := time.NewTicker(c.window)
		defer t.Stop()
		reset = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := c.Snapshot()
			logging.Info("sink stats", logging.F(
				"spans", s.Spans,
				"metrics", s.Metrics,
				"data_points", s.DataPoints,
				"unique_traces", s.UniqueTraces,
				"duplicate_spans", s.DuplicateSpans,
				"services", len(s.Services),
			))
		case <-reset:
			c.ResetIdentifiers()
		}
	}
}

// ServeHTTP writes the counters in the Prometheus text format.
func (c *Collector) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s := c.Snapshot()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	fmt.Fprintf(w, "# HELP otlp_shipper_sink_requests_total Export requests received by protocol and encoding\n")
	fmt.Fprintf(w, "# TYPE otlp_shipper_sink_requests_total counter\n")
	keys := make([]string, 0, len(s.Requests))
	for k := range s.Requests {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "otlp_shipper_sink_requests_total{transport=%q} %d\n", k, s.Requests[k])
	}

	fmt.Fprintf(w, "# HELP otlp_shipper_sink_spans_total Spans received\n")
	fmt.Fprintf(w, "# TYPE otlp_shipper_sink_spans_total counter\n")
	fmt.Fprintf(w, "otlp_shipper_sink_spans_total %d\n", s.Spans)

	fmt.Fprintf(w, "# HELP otlp_shipper_sink_metrics_total Metrics received\n")
	fmt.Fprintf(w, "# TYPE otlp_shipper_sink_metrics_total counter\n")
	fmt.Fprintf(w, "otlp_shipper_sink_metrics_total %d\n", s.Metrics)

	fmt.Fprintf(w, "# HELP otlp_shipper_sink_datapoints_total Metric data points received\n")
	fmt.Fprintf(w, "# TYPE otlp_shipper_sink_datapoints_total counter\n")
	fmt.Fprintf(w, "otlp_shipper_sink_datapoints_total %d\n", s.DataPoints)

	fmt.Fprintf(w, "# HELP otlp_shipper_sink_unique_traces Estimated distinct trace IDs in the current window\n")
	fmt.Fprintf(w, "# TYPE otlp_shipper_sink_unique_traces gauge\n")
	fmt.Fprintf(w, "otlp_shipper_sink_unique_traces %d\n", s.UniqueTraces)

	fmt.Fprintf(w, "# HELP otlp_shipper_sink_duplicate_spans_total Spans whose trace and span ID were already seen\n")
	fmt.Fprintf(w, "# TYPE otlp_shipper_sink_duplicate_spans_total counter\n")
	fmt.Fprintf(w, "otlp_shipper_sink_duplicate_spans_total %d\n", s.DuplicateSpans)

	fmt.Fprintf(w, "# HELP otlp_shipper_sink_bytes_total Request bytes on the wire and after decompression\n")
	fmt.Fprintf(w, "# TYPE otlp_shipper_sink_bytes_total counter\n")
	fmt.Fprintf(w, "otlp_shipper_sink_bytes_total{stage=\"wire\"} %d\n", s.BytesWire)
	fmt.Fprintf(w, "otlp_shipper_sink_bytes_total{stage=\"decoded\"} %d\n", s.BytesDecoded)

	fmt.Fprintf(w, "# HELP otlp_shipper_sink_service_spans_total Spans received per service\n")
	fmt.Fprintf(w, "# TYPE otlp_shipper_sink_service_spans_total counter\n")
	for _, svc := range s.Services {
		fmt.Fprintf(w, "otlp_shipper_sink_service_spans_total{service=%q} %d\n", svc.Service, svc.Spans)
	}
	fmt.Fprintf(w, "# HELP otlp_shipper_sink_service_datapoints_total Data points received per service\n")
	fmt.Fprintf(w, "# TYPE otlp_shipper_sink_service_datapoints_total counter\n")
	for _, svc := range s.Services {
		fmt.Fprintf(w, "otlp_shipper_sink_service_datapoints_total{service=%q} %d\n", svc.Service, svc.DataPoints)
	}
}
