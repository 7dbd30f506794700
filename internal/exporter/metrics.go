package exporter

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	exportRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otlp_shipper_export_requests_total",
		Help: "Export calls handed to a transport, by signal and encoding",
	}, []string{"signal", "encoding"})

	exportErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otlp_shipper_export_errors_total",
		Help: "Failed exports by signal and error type",
	}, []string{"signal", "error_type"})

	exportRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otlp_shipper_export_records_total",
		Help: "Records whose export resolved, by signal and outcome",
	}, []string{"signal", "outcome"})

	exportBytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otlp_shipper_export_bytes_total",
		Help: "Encoded bytes handed to transports, by signal and encoding",
	}, []string{"signal", "encoding"})

	exportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "otlp_shipper_export_duration_seconds",
		Help:    "Time from admission to resolution of an export",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"signal"})

	exportsInFlight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "otlp_shipper_exports_in_flight",
		Help: "Admitted exports that have not resolved yet",
	}, []string{"signal"})

	readinessQueueLength = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "otlp_shipper_readiness_queue_length",
		Help: "Exports waiting for the gRPC transport to become ready",
	}, []string{"signal"})

	beaconSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otlp_shipper_beacon_submissions_total",
		Help: "Beacon transport submissions by result (accepted, rejected, fallback)",
	}, []string{"signal", "result"})
)

func init() {
	prometheus.MustRegister(
		exportRequestsTotal,
		exportErrorsTotal,
		exportRecordsTotal,
		exportBytesTotal,
		exportDuration,
		exportsInFlight,
		readinessQueueLength,
		beaconSubmissionsTotal,
	)
}
