package main

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestProducer(t *testing.T) {
	spans := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	p, err := newProducer(1000, tp, mp)
	if err != nil {
		t.Fatalf("newProducer: %v", err)
	}
	for i := 0; i < 5; i++ {
		p.request(context.Background(), 0)
	}

	got := spans.GetSpans()
	if len(got) != 10 {
		t.Fatalf("got %d spans, want 10", len(got))
	}
	var servers, clients int
	for _, s := range got {
		switch s.SpanKind {
		case trace.SpanKindServer:
			servers++
		case trace.SpanKindClient:
			clients++
			if !s.Parent.IsValid() {
				t.Errorf("client span %q has no parent", s.Name)
			}
		}
	}
	if servers != 5 || clients != 5 {
		t.Errorf("servers=%d clients=%d, want 5 each", servers, clients)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "demo.requests" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 5 {
		t.Errorf("demo.requests = %d, want 5", total)
	}
	if p.sent() != 5 {
		t.Errorf("sent() = %d, want 5", p.sent())
	}
}

func TestProducerRunStopsOnCancel(t *testing.T) {
	p, err := newProducer(1000, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		p.run(ctx, 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	if p.sent() == 0 {
		t.Error("expected some requests before cancel")
	}
}

func TestNewProducerRejectsZeroRate(t *testing.T) {
	if _, err := newProducer(0, nil, nil); err == nil {
		t.Error("expected error for zero rate")
	}
}
