package receiver

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/szibis/otlp-shipper/internal/otlpwire"
)

var (
	receiverRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otlp_shipper_receiver_requests_total",
		Help: "Total number of export requests received",
	}, []string{"protocol", "signal"})

	receiverErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otlp_shipper_receiver_errors_total",
		Help: "Total number of rejected export requests by reason",
	}, []string{"type"})

	receiverSpansTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "otlp_shipper_receiver_spans_total",
		Help: "Total number of spans received",
	})

	receiverDatapointsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "otlp_shipper_receiver_datapoints_total",
		Help: "Total number of metric data points received",
	})
)

func init() {
	prometheus.MustRegister(receiverRequestsTotal)
	prometheus.MustRegister(receiverErrorsTotal)
	prometheus.MustRegister(receiverSpansTotal)
	prometheus.MustRegister(receiverDatapointsTotal)

	// Initialize counters with 0 so they appear in /metrics immediately
	for _, p := range []string{"grpc", "http"} {
		for _, s := range []string{"traces", "metrics"} {
			receiverRequestsTotal.WithLabelValues(p, s).Add(0)
		}
	}
	for _, t := range []string{"read", "too_large", "decompress", "decode", "content_type", "method"} {
		receiverErrorsTotal.WithLabelValues(t).Add(0)
	}
	receiverSpansTotal.Add(0)
	receiverDatapointsTotal.Add(0)
}

func incrementError(errorType string) {
	receiverErrorsTotal.WithLabelValues(errorType).Inc()
}

func recordTraces(protocol string, req *otlpwire.ExportTraceServiceRequest) {
	receiverRequestsTotal.WithLabelValues(protocol, "traces").Inc()
	receiverSpansTotal.Add(float64(req.SpanCount()))
}

func recordMetrics(protocol string, req *otlpwire.ExportMetricsServiceRequest) {
	receiverRequestsTotal.WithLabelValues(protocol, "metrics").Inc()
	receiverDatapointsTotal.Add(float64(req.DataPointCount()))
}
