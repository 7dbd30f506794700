package main

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/szibis/otlp-shipper/internal/config"
	"github.com/szibis/otlp-shipper/internal/health"
	"github.com/szibis/otlp-shipper/internal/logging"
	"github.com/szibis/otlp-shipper/internal/receiver"
	"github.com/szibis/otlp-shipper/internal/stats"
)

// runSink receives exports over gRPC and HTTP and records what arrived
// until ctx is done.
func runSink(ctx context.Context, cfg *config.Config, checker *health.Checker, adminMux *http.ServeMux) error {
	scfg, err := cfg.StatsConfig()
	if err != nil {
		return err
	}
	collector := stats.NewCollector(scfg)
	adminMux.Handle("/stats", collector)

	var (
		grpcReceiver *receiver.GRPCReceiver
		httpReceiver *receiver.HTTPReceiver
	)
	if cfg.SinkGRPCListen != "" {
		if grpcReceiver, err = receiver.NewGRPC(cfg.GRPCReceiverConfig(), collector); err != nil {
			return err
		}
		checker.RegisterReadiness("grpc_receiver", grpcReceiver.HealthCheck)
	}
	if cfg.SinkHTTPListen != "" {
		if httpReceiver, err = receiver.NewHTTP(cfg.HTTPReceiverConfig(), collector); err != nil {
			return err
		}
		checker.RegisterReadiness("http_receiver", httpReceiver.HealthCheck)
	}

	g, gctx := errgroup.WithContext(ctx)
	if grpcReceiver != nil {
		g.Go(func() error {
			if err := grpcReceiver.Start(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
	}
	if httpReceiver != nil {
		g.Go(httpReceiver.Start)
	}
	g.Go(func() error {
		collector.StartPeriodicLogging(gctx, cfg.SinkStatsInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		checker.SetShuttingDown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if grpcReceiver != nil {
			grpcReceiver.Stop()
		}
		if httpReceiver != nil {
			if err := httpReceiver.Stop(shutdownCtx); err != nil {
				logging.Warn("HTTP receiver shutdown", logging.F("error", err.Error()))
			}
		}
		return nil
	})

	logging.Info("sink mode started", logging.F(
		"grpc_addr", cfg.SinkGRPCListen,
		"http_addr", cfg.SinkHTTPListen,
		"tls", cfg.SinkTLSEnabled,
		"auth", cfg.SinkAuthEnabled,
		"duplicate_mode", cfg.SinkDuplicateMode,
	))

	err = g.Wait()

	s := collector.Snapshot()
	logging.Info("sink mode stopped", logging.F(
		"spans", s.Spans,
		"metrics", s.Metrics,
		"data_points", s.DataPoints,
		"unique_traces", s.UniqueTraces,
		"duplicate_spans", s.DuplicateSpans,
	))
	return err
}
