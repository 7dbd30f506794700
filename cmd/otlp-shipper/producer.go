package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/szibis/otlp-shipper/cmd/otlp-shipper"

var demoRoutes = []string{"/", "/api/orders", "/api/orders/{id}", "/api/users", "/health"}

// producer simulates HTTP requests, each a server span with a database
// child span plus a request counter and a latency histogram.
type producer struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	interval time.Duration
	count    atomic.Int64
}

// newProducer builds a producer issuing rate requests per second per
// worker. A nil provider disables that signal.
func newProducer(rate int, tp trace.TracerProvider, mp metric.MeterProvider) (*producer, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %d", rate)
	}
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	requests, err := meter.Int64Counter("demo.requests",
		metric.WithDescription("Simulated requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("demo.request.duration",
		metric.WithDescription("Simulated request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1),
	)
	if err != nil {
		return nil, err
	}
	interval := time.Second / time.Duration(rate)
	if interval <= 0 {
		interval = time.Nanosecond
	}
	return &producer{
		tracer:   tp.Tracer(instrumentationName),
		requests: requests,
		latency:  latency,
		interval: interval,
	}, nil
}

// run issues requests until ctx is done.
func (p *producer) run(ctx context.Context, worker int) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.request(ctx, worker)
		}
	}
}

func (p *producer) request(ctx context.Context, worker int) {
	route := demoRoutes[rand.IntN(len(demoRoutes))]
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "GET "+route,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", route),
			attribute.Int("worker", worker),
		),
	)
	_, db := p.tracer.Start(ctx, "db.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", "postgresql")),
	)
	if rand.IntN(10) == 0 {
		db.AddEvent("cache.miss", trace.WithAttributes(attribute.Bool("retried", false)))
	}
	db.End()

	status := 200
	if rand.IntN(50) == 0 {
		status = 500
		span.SetStatus(codes.Error, "internal error")
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	span.End()

	attrs := metric.WithAttributes(
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	p.requests.Add(ctx, 1, attrs)
	p.latency.Record(ctx, time.Since(start).Seconds(), attrs)
	p.count.Add(1)
}

func (p *producer) sent() int64 {
	return p.count.Load()
}
