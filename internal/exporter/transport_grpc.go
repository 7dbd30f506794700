package exporter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/szibis/otlp-shipper/internal/auth"
	"github.com/szibis/otlp-shipper/internal/compression"
	"github.com/szibis/otlp-shipper/internal/logging"
	"github.com/szibis/otlp-shipper/internal/otlpwire"
	tlspkg "github.com/szibis/otlp-shipper/internal/tls"
)

// TransportState is the lifecycle of the gRPC transport. Transitions only
// move forward.
type TransportState int32

const (
	StateUninitialized TransportState = iota
	StateInitializing
	StateReady
	StateFailed
	StateShutDown
)

func (s TransportState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateShutDown:
		return "shut_down"
	default:
		return "unknown"
	}
}

// grpcConn is the part of *grpc.ClientConn the transport uses.
type grpcConn interface {
	grpc.ClientConnInterface
	Close() error
}

// dialFunc opens the connection. It runs once, off the caller's goroutine.
type dialFunc func() (grpcConn, error)

type queuedSend struct {
	msg  *WireMessage
	done func(error)
}

// grpcTransport sends over one long-lived connection. Sends issued while
// the connection is being set up wait in a readiness queue and go out in
// submission order before any later send.
type grpcTransport struct {
	signal  Signal
	timeout time.Duration
	md      metadata.MD
	callOpt []grpc.CallOption
	log     logging.Component

	mu      sync.Mutex
	state   TransportState
	queue   []queuedSend
	conn    grpcConn
	initErr error

	initDone chan struct{}
	inflight sync.WaitGroup
}

func newGRPCTransport(signal Signal, cfg Config, env map[string]string, dial dialFunc) *grpcTransport {
	t := &grpcTransport{
		signal:   signal,
		timeout:  cfg.Timeout,
		md:       grpcMetadata(env, cfg.Headers),
		log:      logging.Named("grpc-transport").With("signal", string(signal)),
		state:    StateUninitialized,
		initDone: make(chan struct{}),
	}
	if t.timeout <= 0 {
		t.timeout = DefaultTimeout
	}
	if name := compression.GRPCName(cfg.Compression.Type); name != "" {
		t.callOpt = append(t.callOpt, grpc.UseCompressor(name))
	} else if cfg.Compression.Enabled() {
		t.log.Warn("compression not available over gRPC, sending uncompressed", logging.F("compression", string(cfg.Compression.Type)))
	}
	if dial == nil {
		dial = defaultDial(cfg)
	}

	t.state = StateInitializing
	go t.init(dial)
	return t
}

// defaultDial creates the client connection the way a collector expects:
// TLS unless Insecure, with credentials attached to every call.
func defaultDial(cfg Config) dialFunc {
	return func() (grpcConn, error) {
		creds, err := tlspkg.ClientCredentials(cfg.TLS, cfg.Insecure)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS credentials: %w", err)
		}
		opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
		if cfg.Auth.Enabled() {
			opts = append(opts, grpc.WithUnaryInterceptor(auth.GRPCClientInterceptor(cfg.Auth)))
		}
		conn, err := grpc.NewClient(grpcTarget(cfg.Endpoint), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC client: %w", err)
		}
		return conn, nil
	}
}

// grpcTarget strips an http(s) scheme: gRPC targets are host:port.
func grpcTarget(endpoint string) string {
	if endpoint == "" {
		return "localhost:4317"
	}
	for _, p := range []string{"http://", "https://"} {
		if strings.HasPrefix(endpoint, p) {
			endpoint = strings.TrimPrefix(endpoint, p)
		}
	}
	return strings.TrimSuffix(endpoint, "/")
}

func grpcMetadata(env, configured map[string]string) metadata.MD {
	md := metadata.MD{}
	for k, v := range env {
		md.Set(k, v)
	}
	for k, v := range configured {
		md.Set(k, v)
	}
	return md
}

func (t *grpcTransport) init(dial dialFunc) {
	defer close(t.initDone)

	conn, err := dial()

	t.mu.Lock()
	if t.state == StateShutDown {
		t.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		t.state = StateFailed
		t.initErr = &ExportError{Err: fmt.Errorf("gRPC transport unavailable: %w", err), Type: ErrorTypeClientError}
		queued := t.queue
		t.queue = nil
		t.mu.Unlock()

		readinessQueueLength.WithLabelValues(string(t.signal)).Set(0)
		t.log.Error("gRPC transport initialization failed", logging.F("error", err.Error(), "queued", len(queued)))
		for _, q := range queued {
			q.done(t.initErr)
		}
		return
	}
	t.conn = conn
	t.mu.Unlock()

	t.drain()
}

// drain sends the queued exports one at a time in submission order. Sends
// arriving meanwhile keep queueing, so the state only becomes Ready once
// the queue is empty.
func (t *grpcTransport) drain() {
	drained := 0
	for {
		t.mu.Lock()
		if t.state == StateShutDown {
			t.mu.Unlock()
			return
		}
		if len(t.queue) == 0 {
			t.state = StateReady
			t.mu.Unlock()
			break
		}
		next := t.queue[0]
		t.queue = t.queue[1:]
		conn := t.conn
		t.inflight.Add(1)
		t.mu.Unlock()

		readinessQueueLength.WithLabelValues(string(t.signal)).Dec()
		next.done(t.invoke(conn, next.msg))
		t.inflight.Done()
		drained++
	}
	t.log.Info("gRPC transport ready", logging.F("drained", drained))
}

// Send implements Transport.
func (t *grpcTransport) Send(msg *WireMessage, done func(error)) {
	t.mu.Lock()
	switch t.state {
	case StateShutDown:
		t.mu.Unlock()
		done(ErrShutdown)
		return
	case StateFailed:
		err := t.initErr
		t.mu.Unlock()
		done(err)
		return
	case StateUninitialized, StateInitializing:
		t.queue = append(t.queue, queuedSend{msg: msg, done: done})
		t.mu.Unlock()
		readinessQueueLength.WithLabelValues(string(t.signal)).Inc()
		return
	}
	conn := t.conn
	t.inflight.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.inflight.Done()
		done(t.invoke(conn, msg))
	}()
}

// invoke performs one export RPC with the per-call timeout.
func (t *grpcTransport) invoke(conn grpcConn, msg *WireMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	if len(t.md) > 0 {
		ctx = metadata.NewOutgoingContext(ctx, t.md.Copy())
	}

	var err error
	switch req := msg.Request.(type) {
	case *otlpwire.ExportTraceServiceRequest:
		_, err = otlpwire.NewTraceServiceClient(conn).Export(ctx, req, t.callOpt...)
	case *otlpwire.ExportMetricsServiceRequest:
		_, err = otlpwire.NewMetricsServiceClient(conn).Export(ctx, req, t.callOpt...)
	default:
		return encodingError(fmt.Errorf("unsupported gRPC request %T", msg.Request))
	}
	if err != nil {
		return grpcError(err)
	}
	return nil
}

// Ready implements Transport.
func (t *grpcTransport) Ready() bool {
	return t.State() == StateReady
}

// State returns the current lifecycle state.
func (t *grpcTransport) State() TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Guarantee implements Transport.
func (t *grpcTransport) Guarantee() Guarantee { return GuaranteeDelivery }

// Shutdown resolves queued sends with a shutdown error, waits for
// in-flight RPCs (bounded by ctx) and closes the connection.
func (t *grpcTransport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateShutDown {
		t.mu.Unlock()
		return nil
	}
	prev := t.state
	t.state = StateShutDown
	queued := t.queue
	t.queue = nil
	t.mu.Unlock()

	if len(queued) > 0 {
		readinessQueueLength.WithLabelValues(string(t.signal)).Set(0)
		t.log.Warn("discarding exports queued before the transport was ready", logging.F("queued", len(queued), "state", prev.String()))
		for _, q := range queued {
			q.done(errQueueDiscarded)
		}
	}

	waited := make(chan struct{})
	go func() {
		<-t.initDone
		t.inflight.Wait()
		close(waited)
	}()
	var err error
	select {
	case <-waited:
	case <-ctx.Done():
		err = ctx.Err()
	}

	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn != nil {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
