package main

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/szibis/otlp-shipper/internal/config"
	"github.com/szibis/otlp-shipper/internal/exporter"
	"github.com/szibis/otlp-shipper/internal/health"
	"github.com/szibis/otlp-shipper/internal/logging"
)

// runSend drives the SDK pipelines with the demo producer until ctx is
// done or the configured duration elapses, then flushes and shuts them
// down.
func runSend(ctx context.Context, cfg *config.Config, checker *health.Checker, instanceID string) error {
	ecfg, err := cfg.ExporterConfig()
	if err != nil {
		return err
	}
	traces, metrics := cfg.Signals()

	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(cfg.SendServiceName),
		semconv.ServiceVersion(config.Version()),
		semconv.ServiceInstanceID(instanceID),
	)

	var (
		tp *sdktrace.TracerProvider
		mp *sdkmetric.MeterProvider
	)
	if traces {
		exp, err := exporter.NewTraceExporter(ecfg)
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		checker.RegisterReadiness("trace_exporter", health.ReadyCheck(exp))
		var se sdktrace.SpanExporter = exp
		if cfg.SendRetry {
			se = &retryingSpanExporter{SpanExporter: exp, policy: newRetryPolicy("traces", cfg.SendRetryMaxElapsed)}
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(se, cfg.BatchOptions()...),
		)
	}
	if metrics {
		exp, err := exporter.NewMetricExporter(ecfg)
		if err != nil {
			if tp != nil {
				_ = tp.Shutdown(context.Background())
			}
			return fmt.Errorf("create metric exporter: %w", err)
		}
		checker.RegisterReadiness("metric_exporter", health.ReadyCheck(exp))
		var me sdkmetric.Exporter = exp
		if cfg.SendRetry {
			me = &retryingMetricExporter{Exporter: exp, policy: newRetryPolicy("metrics", cfg.SendRetryMaxElapsed)}
		}
		mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(me, cfg.ReaderOptions()...)),
		)
	}

	var (
		tracers trace.TracerProvider
		meters  metric.MeterProvider
	)
	if tp != nil {
		tracers = tp
	}
	if mp != nil {
		meters = mp
	}
	p, err := newProducer(cfg.SendRate, tracers, meters)
	if err != nil {
		return err
	}

	runCtx := ctx
	if cfg.SendDuration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.SendDuration)
		defer cancel()
	}

	logging.Info("send mode started", logging.F(
		"endpoint", ecfg.Endpoint,
		"protocol", string(ecfg.Protocol),
		"traces", traces,
		"metrics", metrics,
		"workers", cfg.SendWorkers,
		"rate", cfg.SendRate,
	))

	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < cfg.SendWorkers; i++ {
		worker := i
		g.Go(func() error {
			p.run(gctx, worker)
			return nil
		})
	}
	runErr := g.Wait()

	checker.SetShuttingDown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if mp != nil {
		if err := mp.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	logging.Info("send mode stopped", logging.F("requests", p.sent()))
	return errors.Join(errs...)
}
