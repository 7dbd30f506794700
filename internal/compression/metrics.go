package compression

import (
	"github.com/prometheus/client_golang/prometheus"
)

var compressionBytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "otlp_shipper_compression_bytes_total",
	Help: "Bytes passed through body compression, before (in) and after (out)",
}, []string{"type", "direction"})

func init() {
	prometheus.MustRegister(compressionBytesTotal)
}

func recordBytes(t Type, in, out int) {
	compressionBytesTotal.WithLabelValues(string(t), "in").Add(float64(in))
	compressionBytesTotal.WithLabelValues(string(t), "out").Add(float64(out))
}
