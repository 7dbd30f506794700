package exporter

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestLeakCheck_GRPCTransport(t *testing.T) {
	sink := &traceSink{}
	addr := startTraceSink(t, sink)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	tr := newGRPCTransport(SignalTraces, Config{}, nil, dialTo(addr))
	waitState(t, tr, StateReady)
	if err := sendAndWait(tr, spanMessage(t, "a")); err != nil {
		t.Fatalf("send: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestLeakCheck_HTTPExporter(t *testing.T) {
	srv := httptest.NewServer(&httpSink{})
	defer srv.Close()
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	exp, err := NewTraceExporter(Config{Endpoint: srv.URL, Protocol: ProtocolHTTPJSON})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := exp.ExportSpans(ctx, testSpans(t, "a")); err != nil {
		t.Fatalf("ExportSpans: %v", err)
	}
	if err := exp.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestLeakCheck_BeaconPoster(t *testing.T) {
	srv := httptest.NewServer(&httpSink{})
	defer srv.Close()
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := newBeaconPoster(4, srv.Client())
	p.Send(srv.URL, "application/json", []byte(`{}`))
	if err := p.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	srv.Client().CloseIdleConnections()
}
