package exporter

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/szibis/otlp-shipper/internal/otlpwire"
)

type traceSink struct {
	mu    sync.Mutex
	names []string
	md    []metadata.MD
	err   error
}

func (s *traceSink) Export(ctx context.Context, req *otlpwire.ExportTraceServiceRequest) (*otlpwire.ExportTraceServiceResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, _ := metadata.FromIncomingContext(ctx)
	s.md = append(s.md, md)
	for _, rs := range req.ResourceSpans {
		for _, ils := range rs.InstrumentationLibrarySpans {
			for _, sp := range ils.Spans {
				s.names = append(s.names, sp.Name)
			}
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &otlpwire.ExportTraceServiceResponse{}, nil
}

func (s *traceSink) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

func startTraceSink(t *testing.T, sink *traceSink) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	srv := grpc.NewServer(grpc.ForceServerCodec(otlpwire.Codec{}))
	otlpwire.RegisterTraceServiceServer(srv, sink)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

func dialTo(addr string) dialFunc {
	return func() (grpcConn, error) {
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// gatedDial blocks initialization until gate is closed.
func gatedDial(gate <-chan struct{}, next dialFunc) dialFunc {
	return func() (grpcConn, error) {
		<-gate
		return next()
	}
}

func spanMessage(t *testing.T, name string) *WireMessage {
	t.Helper()
	req := &otlpwire.ExportTraceServiceRequest{ResourceSpans: []*otlpwire.ResourceSpans{{
		InstrumentationLibrarySpans: []*otlpwire.InstrumentationLibrarySpans{{
			Spans: []*otlpwire.Span{{Name: name}},
		}},
	}}}
	msg, err := Encode(SignalTraces, req, EncodingNative)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return msg
}

func waitState(t *testing.T, tr *grpcTransport, want TransportState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for tr.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state %s, want %s", tr.State(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGRPCTransport_DrainsQueueInOrder(t *testing.T) {
	sink := &traceSink{}
	addr := startTraceSink(t, sink)
	gate := make(chan struct{})
	tr := newGRPCTransport(SignalTraces, Config{Timeout: 5 * time.Second}, nil, gatedDial(gate, dialTo(addr)))
	defer tr.Shutdown(context.Background())

	if tr.State() != StateInitializing || tr.Ready() {
		t.Fatalf("expected initializing, got %s", tr.State())
	}

	names := []string{"first", "second", "third", "fourth", "fifth"}
	results := make(chan error, len(names))
	for _, n := range names {
		tr.Send(spanMessage(t, n), func(err error) { results <- err })
	}
	close(gate)

	for range names {
		if err := <-results; err != nil {
			t.Fatalf("queued send failed: %v", err)
		}
	}
	got := sink.received()
	for i, n := range names {
		if got[i] != n {
			t.Fatalf("delivery order %v, want %v", got, names)
		}
	}
	waitState(t, tr, StateReady)

	done := make(chan error, 1)
	tr.Send(spanMessage(t, "direct"), func(err error) { done <- err })
	if err := <-done; err != nil {
		t.Fatalf("direct send: %v", err)
	}
}

func TestGRPCTransport_InitFailure(t *testing.T) {
	gate := make(chan struct{})
	dial := gatedDial(gate, func() (grpcConn, error) { return nil, errors.New("no service definition") })
	tr := newGRPCTransport(SignalTraces, Config{}, nil, dial)

	queued := make(chan error, 1)
	tr.Send(spanMessage(t, "q"), func(err error) { queued <- err })
	close(gate)

	err := <-queued
	if err == nil || IsRetryable(err) {
		t.Fatalf("expected non-retryable init failure, got %v", err)
	}
	waitState(t, tr, StateFailed)

	later := make(chan error, 1)
	tr.Send(spanMessage(t, "later"), func(err error) { later <- err })
	if err := <-later; err == nil {
		t.Fatal("send after failed init should fail")
	}
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestGRPCTransport_ShutdownWhileInitializing(t *testing.T) {
	sink := &traceSink{}
	addr := startTraceSink(t, sink)
	gate := make(chan struct{})
	tr := newGRPCTransport(SignalTraces, Config{}, nil, gatedDial(gate, dialTo(addr)))

	results := make(chan error, 3)
	for i := 0; i < 3; i++ {
		tr.Send(spanMessage(t, "queued"), func(err error) { results <- err })
	}

	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- tr.Shutdown(context.Background()) }()

	for i := 0; i < 3; i++ {
		err := <-results
		if TypeOf(err) != ErrorTypeShutdown {
			t.Fatalf("queued send resolved with %v, want shutdown", err)
		}
	}
	close(gate)
	if err := <-shutdownErr; err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if len(sink.received()) != 0 {
		t.Error("discarded exports reached the collector")
	}

	after := make(chan error, 1)
	tr.Send(spanMessage(t, "after"), func(err error) { after <- err })
	if TypeOf(<-after) != ErrorTypeShutdown {
		t.Error("send after shutdown should be rejected")
	}
}

func TestGRPCTransport_HeadersAndErrors(t *testing.T) {
	sink := &traceSink{err: status.Error(codes.Unavailable, "collector restarting")}
	addr := startTraceSink(t, sink)
	cfg := Config{Headers: map[string]string{"x-tenant": "configured"}}
	env := map[string]string{"x-tenant": "env", "x-region": "eu"}
	tr := newGRPCTransport(SignalTraces, cfg, env, dialTo(addr))
	defer tr.Shutdown(context.Background())
	waitState(t, tr, StateReady)

	done := make(chan error, 1)
	tr.Send(spanMessage(t, "a"), func(err error) { done <- err })
	err := <-done

	var ee *ExportError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExportError, got %v", err)
	}
	if ee.GRPCCode != codes.Unavailable || ee.Type != ErrorTypeNetwork || !ee.IsRetryable() {
		t.Errorf("unexpected classification %+v", ee)
	}

	sink.mu.Lock()
	md := sink.md[0]
	sink.mu.Unlock()
	if got := md.Get("x-tenant"); len(got) != 1 || got[0] != "configured" {
		t.Errorf("x-tenant = %v, want configured", got)
	}
	if got := md.Get("x-region"); len(got) != 1 || got[0] != "eu" {
		t.Errorf("x-region = %v, want eu", got)
	}
}

func TestGRPCTarget(t *testing.T) {
	tests := map[string]string{
		"":                        "localhost:4317",
		"collector:4317":          "collector:4317",
		"http://collector:4317":   "collector:4317",
		"https://collector:4317/": "collector:4317",
	}
	for in, want := range tests {
		if got := grpcTarget(in); got != want {
			t.Errorf("grpcTarget(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTraceExporter_GRPCEndToEnd(t *testing.T) {
	sink := &traceSink{}
	addr := startTraceSink(t, sink)

	exp, err := NewTraceExporter(Config{Endpoint: "http://" + addr, Insecure: true, ConcurrencyLimit: 4})
	if err != nil {
		t.Fatalf("NewTraceExporter: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := exp.ExportSpans(ctx, testSpans(t, "a", "b")); err != nil {
		t.Fatalf("ExportSpans: %v", err)
	}
	if err := exp.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := sink.received(); len(got) != 2 {
		t.Errorf("received %v", got)
	}
	if err := exp.ExportSpans(ctx, testSpans(t, "c")); TypeOf(err) != ErrorTypeShutdown {
		t.Errorf("expected shutdown rejection, got %v", err)
	}
}
