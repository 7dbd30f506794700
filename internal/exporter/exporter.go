// Package exporter ships grouped telemetry to an OTLP collector over gRPC,
// HTTP (protobuf or JSON) or a best-effort beacon, with non-blocking
// admission control and a one-way shutdown.
package exporter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/szibis/otlp-shipper/internal/auth"
	"github.com/szibis/otlp-shipper/internal/compression"
	"github.com/szibis/otlp-shipper/internal/grouping"
	"github.com/szibis/otlp-shipper/internal/logging"
	"github.com/szibis/otlp-shipper/internal/otlpwire"
	tlspkg "github.com/szibis/otlp-shipper/internal/tls"
)

// DefaultTimeout bounds a single send when Config.Timeout is unset.
const DefaultTimeout = 10 * time.Second

// Protocol selects the transport.
type Protocol string

const (
	// ProtocolGRPC uses the collector's gRPC export services.
	ProtocolGRPC Protocol = "grpc"
	// ProtocolHTTPProtobuf POSTs protobuf bodies.
	ProtocolHTTPProtobuf Protocol = "http/protobuf"
	// ProtocolHTTPJSON POSTs JSON bodies.
	ProtocolHTTPJSON Protocol = "http/json"
	// ProtocolBeacon submits JSON bodies fire-and-forget.
	ProtocolBeacon Protocol = "beacon"
)

// ParseProtocol parses a protocol name. "http" is accepted for
// http/protobuf.
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case "", ProtocolGRPC:
		return ProtocolGRPC, nil
	case "http", ProtocolHTTPProtobuf:
		return ProtocolHTTPProtobuf, nil
	case ProtocolHTTPJSON, ProtocolBeacon:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported protocol: %s", s)
	}
}

// Encoding returns the wire encoding the protocol sends.
func (p Protocol) Encoding() Encoding {
	switch p {
	case ProtocolGRPC:
		return EncodingNative
	case ProtocolHTTPProtobuf:
		return EncodingProtobuf
	default:
		return EncodingJSON
	}
}

// HTTPClientConfig holds HTTP client connection pool settings.
type HTTPClientConfig struct {
	// MaxIdleConns caps idle keep-alive connections across hosts (default 100).
	MaxIdleConns int
	// MaxIdleConnsPerHost caps idle keep-alive connections per host (default 100).
	MaxIdleConnsPerHost int
	// MaxConnsPerHost limits the total number of connections per host.
	MaxConnsPerHost int
	// IdleConnTimeout closes idle connections (default 90s).
	IdleConnTimeout time.Duration
	// ForceAttemptHTTP2 enables HTTP/2 even without TLS configuration.
	ForceAttemptHTTP2 bool
	// HTTP2ReadIdleTimeout triggers a ping health check on silent connections.
	HTTP2ReadIdleTimeout time.Duration
	// HTTP2PingTimeout closes a connection whose ping is not answered.
	HTTP2PingTimeout time.Duration
}

// BeaconConfig configures the best-effort transport.
type BeaconConfig struct {
	// QueueSize bounds submissions waiting for the background poster.
	QueueSize int
	// Beacon overrides the platform primitive.
	Beacon Beacon
}

// Config holds the exporter configuration.
type Config struct {
	// Endpoint is host:port for gRPC and a URL (or host:port) for HTTP.
	Endpoint string
	// Protocol selects the transport (default grpc).
	Protocol Protocol
	// Insecure disables TLS.
	Insecure bool
	// Timeout bounds each send.
	Timeout time.Duration
	// Path overrides the signal's default HTTP path when Endpoint has none.
	Path string
	// Headers are sent with every export and win over EnvHeaders.
	Headers map[string]string
	// EnvHeaders is the raw OTEL_EXPORTER_OTLP_HEADERS value.
	EnvHeaders string
	// ConcurrencyLimit caps unresolved exports; <= 0 is unbounded.
	ConcurrencyLimit int
	// TLS configuration for secure connections.
	TLS tlspkg.ClientConfig
	// Auth adds bearer or basic credentials.
	Auth auth.ClientConfig
	// Compression for request bodies (HTTP) or messages (gRPC gzip/zstd).
	Compression compression.Config
	// HTTPClient configuration for HTTP connection pooling.
	HTTPClient HTTPClientConfig
	// Beacon configures the beacon protocol.
	Beacon BeaconConfig
}

// BuildFunc turns a grouped batch into an export request.
type BuildFunc[R any] func(grouping.Batch[R]) (otlpwire.Message, error)

// Exporter admits batches of records, encodes them and hands them to its
// transport. Admission (shutdown check and limiter) is atomic with respect
// to Shutdown.
type Exporter[R any] struct {
	signal    Signal
	encoding  Encoding
	transport Transport
	limiter   *ConcurrencyLimiter
	keyOf     grouping.KeyFunc[R]
	build     BuildFunc[R]
	log       logging.Component

	mu       sync.Mutex
	shutdown bool
	inflight int
	drained  chan struct{}
}

// New builds an exporter for signal with the transport cfg selects.
func New[R any](signal Signal, cfg Config, keyOf grouping.KeyFunc[R], build BuildFunc[R]) (*Exporter[R], error) {
	protocol, err := ParseProtocol(string(cfg.Protocol))
	if err != nil {
		return nil, err
	}
	cfg.Protocol = protocol
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	env, err := ParseHeaders(cfg.EnvHeaders)
	if err != nil {
		logging.Named("exporter").Warn("ignoring malformed header entries", logging.F("env", EnvHeaders, "error", err.Error()))
	}

	var t Transport
	switch cfg.Protocol {
	case ProtocolGRPC:
		t = newGRPCTransport(signal, cfg, env, nil)
	case ProtocolHTTPProtobuf, ProtocolHTTPJSON:
		t, err = newHTTPTransport(signal, cfg, env)
	case ProtocolBeacon:
		t, err = newBeaconTransport(signal, cfg, env)
	}
	if err != nil {
		return nil, err
	}

	e := newExporter(signal, cfg.Protocol.Encoding(), cfg.ConcurrencyLimit, t, keyOf, build)
	e.log.Info("exporter created", logging.F(
		"endpoint", cfg.Endpoint,
		"protocol", string(cfg.Protocol),
		"concurrency_limit", cfg.ConcurrencyLimit,
	))
	return e, nil
}

func newExporter[R any](signal Signal, enc Encoding, limit int, t Transport, keyOf grouping.KeyFunc[R], build BuildFunc[R]) *Exporter[R] {
	e := &Exporter[R]{
		signal:    signal,
		encoding:  enc,
		transport: t,
		limiter:   NewConcurrencyLimiter(limit),
		keyOf:     keyOf,
		build:     build,
		log:       logging.Named("exporter").With("signal", string(signal)),
	}
	if t.Guarantee() == GuaranteeSubmission {
		e.log.Warn("transport only confirms submission; successful exports may still be lost in transit")
	}
	return e
}

// Export groups, encodes and sends records. It never blocks on the network
// and never panics; the outcome arrives through the returned PendingExport.
// After Shutdown, or when the concurrency limit is reached, the result is
// already resolved on return and no transport call is made.
func (e *Exporter[R]) Export(records []R) *PendingExport {
	p := newPendingExport(len(records))

	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		e.reject(p, ErrShutdown)
		return p
	}
	if len(records) == 0 {
		e.mu.Unlock()
		p.resolve(nil)
		return p
	}
	if !e.limiter.TryAcquire() {
		e.mu.Unlock()
		e.reject(p, ErrConcurrencyLimit)
		return p
	}
	e.inflight++
	e.mu.Unlock()

	exportsInFlight.WithLabelValues(string(e.signal)).Inc()
	p.onResolve = e.settle(p)

	msg, err := e.encode(records)
	if err != nil {
		p.resolve(err)
		return p
	}
	exportRequestsTotal.WithLabelValues(string(e.signal), e.encoding.String()).Inc()
	exportBytesTotal.WithLabelValues(string(e.signal), e.encoding.String()).Add(float64(len(msg.Body)))
	e.transport.Send(msg, p.resolve)
	return p
}

// encode runs grouping, translation and serialization, converting any
// failure, including a panic in a translator, into an encoding error.
func (e *Exporter[R]) encode(records []R) (msg *WireMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg, err = nil, encodingError(fmt.Errorf("panic: %v", r))
		}
	}()
	req, err := e.build(grouping.Group(records, e.keyOf))
	if err != nil {
		return nil, encodingError(err)
	}
	msg, err = Encode(e.signal, req, e.encoding)
	if err != nil {
		return nil, err
	}
	msg.Records = len(records)
	return msg, nil
}

// reject resolves an export that was never admitted.
func (e *Exporter[R]) reject(p *PendingExport, err *ExportError) {
	p.resolve(err)
	e.record(p, err)
}

// settle returns the bookkeeping run when an admitted export resolves.
func (e *Exporter[R]) settle(p *PendingExport) func(error) {
	return func(err error) {
		e.limiter.Release()
		exportsInFlight.WithLabelValues(string(e.signal)).Dec()
		exportDuration.WithLabelValues(string(e.signal)).Observe(time.Since(p.enqueued).Seconds())
		e.record(p, err)

		e.mu.Lock()
		e.inflight--
		if e.inflight == 0 && e.drained != nil {
			close(e.drained)
			e.drained = nil
		}
		e.mu.Unlock()
	}
}

func (e *Exporter[R]) record(p *PendingExport, err error) {
	signal := string(e.signal)
	if err == nil {
		exportRecordsTotal.WithLabelValues(signal, "success").Add(float64(p.records))
		return
	}
	t := TypeOf(err)
	exportRecordsTotal.WithLabelValues(signal, "failure").Add(float64(p.records))
	exportErrorsTotal.WithLabelValues(signal, string(t)).Inc()

	fields := logging.F("error_type", string(t), "records", p.records, "error", err.Error(), "retryable", IsRetryable(err))
	if ee, ok := err.(*ExportError); ok {
		if ee.StatusCode != 0 {
			fields["status_code"] = ee.StatusCode
		}
		if ee.GRPCCode != 0 {
			fields["grpc_code"] = ee.GRPCCode.String()
		}
	}
	e.log.Warn("export failed", fields)
}

// Flush waits until every admitted export has resolved, or ctx is done.
func (e *Exporter[R]) Flush(ctx context.Context) error {
	e.mu.Lock()
	if e.inflight == 0 {
		e.mu.Unlock()
		return nil
	}
	if e.drained == nil {
		e.drained = make(chan struct{})
	}
	ch := e.drained
	e.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown rejects all later exports and shuts the transport down. Only
// the first call does anything; later calls log and return nil.
func (e *Exporter[R]) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		e.log.Warn("shutdown called more than once")
		return nil
	}
	e.shutdown = true
	e.mu.Unlock()

	e.log.Info("shutting down")
	if err := e.transport.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s transport shutdown: %w", e.signal, err)
	}
	return nil
}

// Ready reports whether the transport sends immediately. It is false
// after Shutdown.
func (e *Exporter[R]) Ready() bool {
	e.mu.Lock()
	down := e.shutdown
	e.mu.Unlock()
	return !down && e.transport.Ready()
}

// Guarantee reports the transport's delivery guarantee.
func (e *Exporter[R]) Guarantee() Guarantee {
	return e.transport.Guarantee()
}

// InFlight returns the number of admitted, unresolved exports.
func (e *Exporter[R]) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight
}
