// Package receiver implements the sink: OTLP trace and metric export
// endpoints over gRPC and HTTP that decode every encoding the exporters
// produce and hand the requests to a Consumer.
package receiver

import (
	"fmt"
	"net"
	"time"

	"github.com/szibis/otlp-shipper/internal/otlpwire"
)

// Consumer receives decoded export requests. Implementations must be safe
// for concurrent use.
type Consumer interface {
	ConsumeTraces(req *otlpwire.ExportTraceServiceRequest)
	ConsumeMetrics(req *otlpwire.ExportMetricsServiceRequest)
	// RecordRequest counts one request with its size on the wire and
	// after decompression.
	RecordRequest(protocol, encoding string, wireBytes, decodedBytes int)
}

// healthCheck dials addr to confirm a listener accepts connections.
func healthCheck(kind, addr string) error {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return fmt.Errorf("%s receiver not reachable on %s: %w", kind, addr, err)
	}
	conn.Close()
	return nil
}
