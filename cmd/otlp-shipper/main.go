package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/szibis/otlp-shipper/internal/config"
	"github.com/szibis/otlp-shipper/internal/health"
	"github.com/szibis/otlp-shipper/internal/logging"
	"github.com/szibis/otlp-shipper/internal/telemetry"
)

const serviceName = "otlp-shipper"

func main() {
	cfg, err := config.ParseArgs(os.Args[1:], nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n\n", serviceName, err)
		config.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	if cfg.ShowHelp {
		config.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	if cfg.ShowVersion {
		fmt.Printf("%s %s\n", serviceName, config.Version())
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		logging.Fatal("invalid configuration", logging.F("error", err.Error()))
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.SetLevel(level)

	instanceID := uuid.NewString()
	logging.SetResource(map[string]string{
		"service.name":        serviceName,
		"service.version":     config.Version(),
		"service.instance.id": instanceID,
	})

	if cfg.MemoryLimitRatio > 0 {
		setMemoryLimit(cfg.MemoryLimitRatio)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tcfg, err := cfg.TelemetryConfig()
	if err != nil {
		logging.Fatal("invalid telemetry configuration", logging.F("error", err.Error()))
	}
	tel, err := telemetry.Init(ctx, tcfg, telemetry.Identity{
		ServiceName:    serviceName,
		ServiceVersion: config.Version(),
		InstanceID:     instanceID,
		Mode:           cfg.Mode,
	})
	if err != nil {
		logging.Fatal("failed to start self telemetry", logging.F("error", err.Error()))
	}
	if tel.Enabled() {
		logging.SetHook(tel.NewLogHook())
		logging.Info("self telemetry enabled", logging.F("endpoint", tcfg.Endpoint, "protocol", tcfg.Protocol))
	}

	checker := health.New()
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	checker.Register(adminMux)

	adminServer := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           adminMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.Info("admin endpoint started", logging.F("addr", cfg.AdminAddr, "paths", "/metrics,/live,/ready"))
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("admin server error", logging.F("error", err.Error()))
		}
	}()

	logging.Info("otlp-shipper started", logging.F(
		"mode", cfg.Mode,
		"version", config.Version(),
		"instance_id", instanceID,
	))

	var runErr error
	switch cfg.Mode {
	case config.ModeSink:
		runErr = runSink(ctx, cfg, checker, adminMux)
	default:
		runErr = runSend(ctx, cfg, checker, instanceID)
	}

	logging.Info("shutting down")
	checker.SetShuttingDown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logging.Warn("admin server shutdown", logging.F("error", err.Error()))
	}

	telCtx, telCancel := context.WithTimeout(context.Background(), tel.ShutdownTimeout())
	defer telCancel()
	logging.SetHook(nil)
	if err := tel.Shutdown(telCtx); err != nil {
		logging.Warn("self telemetry shutdown", logging.F("error", err.Error()))
	}

	if runErr != nil {
		logging.Fatal("otlp-shipper failed", logging.F("error", runErr.Error()))
	}
	logging.Info("shutdown complete")
}

// setMemoryLimit sets GOMEMLIMIT to ratio of the cgroup limit, falling back
// to system memory.
func setMemoryLimit(ratio float64) {
	limit, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(ratio),
		memlimit.WithProvider(memlimit.ApplyFallback(memlimit.FromCgroup, memlimit.FromSystem)),
	)
	if err != nil {
		logging.Warn("failed to set GOMEMLIMIT", logging.F("error", err.Error()))
		return
	}
	logging.Info("GOMEMLIMIT set", logging.F("bytes", limit, "ratio", ratio))
}
