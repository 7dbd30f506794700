// Package config resolves the shipper's configuration from defaults, an
// optional YAML file and command line flags, in increasing priority.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/szibis/otlp-shipper/internal/auth"
	"github.com/szibis/otlp-shipper/internal/cardinality"
	"github.com/szibis/otlp-shipper/internal/compression"
	"github.com/szibis/otlp-shipper/internal/exporter"
	"github.com/szibis/otlp-shipper/internal/receiver"
	"github.com/szibis/otlp-shipper/internal/stats"
	"github.com/szibis/otlp-shipper/internal/telemetry"
	tlspkg "github.com/szibis/otlp-shipper/internal/tls"
)

var version = "dev"

// Version returns the build version.
func Version() string { return version }

// Modes of the CLI.
const (
	ModeSend = "send"
	ModeSink = "sink"
)

// Config holds the resolved configuration.
type Config struct {
	Mode       string
	ConfigFile string

	LogLevel         string
	AdminAddr        string // /metrics, /live, /ready and, in sink mode, /stats
	ShutdownTimeout  time.Duration
	MemoryLimitRatio float64

	// Exporter (send mode)
	ExporterEndpoint         string
	ExporterProtocol         string
	ExporterInsecure         bool
	ExporterTimeout          time.Duration
	ExporterPath             string
	ExporterHeaders          string // k=v,k2=v2
	ExporterEnvHeaders       string // OTEL_EXPORTER_OTLP_HEADERS
	ExporterConcurrencyLimit int
	ExporterCompression      string
	ExporterCompressionLevel int
	ExporterBeaconQueueSize  int

	ExporterTLSEnabled            bool
	ExporterTLSCertFile           string
	ExporterTLSKeyFile            string
	ExporterTLSCAFile             string
	ExporterTLSInsecureSkipVerify bool
	ExporterTLSServerName         string

	ExporterAuthBearerToken   string
	ExporterAuthBasicUsername string
	ExporterAuthBasicPassword string

	ExporterMaxIdleConns         int
	ExporterMaxIdleConnsPerHost  int
	ExporterMaxConnsPerHost      int
	ExporterIdleConnTimeout      time.Duration
	ExporterForceHTTP2           bool
	ExporterHTTP2ReadIdleTimeout time.Duration
	ExporterHTTP2PingTimeout     time.Duration

	// Batching, handed to the SDK processors
	BatchMaxQueueSize       int
	BatchMaxExportBatchSize int
	BatchScheduleDelay      time.Duration
	BatchExportTimeout      time.Duration
	MetricInterval          time.Duration

	// Demo producer (send mode)
	SendSignals         string // comma separated: traces, metrics
	SendServiceName     string
	SendRate            int // simulated requests per second per worker
	SendWorkers         int
	SendDuration        time.Duration // 0 runs until interrupted
	SendRetry           bool
	SendRetryMaxElapsed time.Duration

	// Sink mode
	SinkGRPCListen         string
	SinkHTTPListen         string
	SinkMaxRequestBodySize int64
	SinkAllowedOrigins     string
	SinkStatsInterval      time.Duration
	SinkStatsWindow        time.Duration
	SinkDuplicateMode      string
	SinkDuplicateExpected  uint
	SinkDuplicateFPRate    float64

	SinkTLSEnabled    bool
	SinkTLSCertFile   string
	SinkTLSKeyFile    string
	SinkTLSCAFile     string
	SinkTLSClientAuth bool

	SinkAuthEnabled       bool
	SinkAuthBearerToken   string
	SinkAuthBasicUsername string
	SinkAuthBasicPassword string

	// Self telemetry
	TelemetryEndpoint        string
	TelemetryProtocol        string
	TelemetryInsecure        bool
	TelemetryPushInterval    time.Duration
	TelemetryCompression     string
	TelemetryHeaders         string
	TelemetryShutdownTimeout time.Duration
	TelemetryRetryEnabled    bool

	// Explicit holds the names of flags set on the command line.
	Explicit map[string]bool

	ShowHelp    bool
	ShowVersion bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Mode:             ModeSend,
		LogLevel:         "info",
		AdminAddr:        ":9090",
		ShutdownTimeout:  15 * time.Second,
		MemoryLimitRatio: 0.9,

		ExporterEndpoint:         "localhost:4317",
		ExporterProtocol:         string(exporter.ProtocolGRPC),
		ExporterInsecure:         true,
		ExporterTimeout:          exporter.DefaultTimeout,
		ExporterConcurrencyLimit: 30,
		ExporterCompression:      string(compression.TypeNone),
		ExporterBeaconQueueSize:  exporter.DefaultBeaconQueueSize,

		ExporterMaxIdleConns:        100,
		ExporterMaxIdleConnsPerHost: 100,
		ExporterIdleConnTimeout:     90 * time.Second,

		BatchMaxQueueSize:       2048,
		BatchMaxExportBatchSize: 512,
		BatchScheduleDelay:      5 * time.Second,
		BatchExportTimeout:      30 * time.Second,
		MetricInterval:          10 * time.Second,

		SendSignals:         "traces,metrics",
		SendServiceName:     "otlp-shipper-demo",
		SendRate:            100,
		SendWorkers:         1,
		SendRetry:           true,
		SendRetryMaxElapsed: time.Minute,

		SinkGRPCListen:         ":4317",
		SinkHTTPListen:         ":4318",
		SinkMaxRequestBodySize: 16 << 20,
		SinkStatsInterval:      30 * time.Second,
		SinkStatsWindow:        10 * time.Minute,
		SinkDuplicateMode:      "bloom",
		SinkDuplicateExpected:  1_000_000,
		SinkDuplicateFPRate:    0.001,

		TelemetryProtocol:        "grpc",
		TelemetryInsecure:        true,
		TelemetryPushInterval:    30 * time.Second,
		TelemetryShutdownTimeout: 5 * time.Second,
		TelemetryRetryEnabled:    true,

		Explicit: map[string]bool{},
	}
}

// bindFlags registers every flag on fs with cfg's current values as
// defaults, so a flag left unset keeps what defaults or YAML produced.
func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "Path to YAML configuration file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.AdminAddr, "admin-listen", cfg.AdminAddr, "Address serving /metrics, /live, /ready and /stats")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Grace period for flushing on exit")
	fs.Float64Var(&cfg.MemoryLimitRatio, "memory-limit-ratio", cfg.MemoryLimitRatio, "Fraction of the container memory limit used for GOMEMLIMIT (0 disables)")

	fs.StringVar(&cfg.ExporterEndpoint, "exporter-endpoint", cfg.ExporterEndpoint, "Collector endpoint (host:port or URL)")
	fs.StringVar(&cfg.ExporterProtocol, "exporter-protocol", cfg.ExporterProtocol, "Protocol: grpc, http/protobuf, http/json, beacon")
	fs.BoolVar(&cfg.ExporterInsecure, "exporter-insecure", cfg.ExporterInsecure, "Use a plaintext connection")
	fs.DurationVar(&cfg.ExporterTimeout, "exporter-timeout", cfg.ExporterTimeout, "Per-export timeout")
	fs.StringVar(&cfg.ExporterPath, "exporter-path", cfg.ExporterPath, "HTTP path when the endpoint has none (default /v1/<signal>)")
	fs.StringVar(&cfg.ExporterHeaders, "exporter-headers", cfg.ExporterHeaders, "Headers for every export (format: key1=value1,key2=value2)")
	fs.IntVar(&cfg.ExporterConcurrencyLimit, "exporter-concurrency-limit", cfg.ExporterConcurrencyLimit, "Maximum unresolved exports per signal (0 = unbounded)")
	fs.StringVar(&cfg.ExporterCompression, "exporter-compression", cfg.ExporterCompression, "Compression: none, gzip, zstd, snappy, zlib, deflate, lz4")
	fs.IntVar(&cfg.ExporterCompressionLevel, "exporter-compression-level", cfg.ExporterCompressionLevel, "Compression level (0 for default)")
	fs.IntVar(&cfg.ExporterBeaconQueueSize, "exporter-beacon-queue-size", cfg.ExporterBeaconQueueSize, "Beacon submissions waiting to be posted")

	fs.BoolVar(&cfg.ExporterTLSEnabled, "exporter-tls-enabled", cfg.ExporterTLSEnabled, "Load custom TLS files for the exporter")
	fs.StringVar(&cfg.ExporterTLSCertFile, "exporter-tls-cert", cfg.ExporterTLSCertFile, "Client certificate file (mTLS)")
	fs.StringVar(&cfg.ExporterTLSKeyFile, "exporter-tls-key", cfg.ExporterTLSKeyFile, "Client private key file (mTLS)")
	fs.StringVar(&cfg.ExporterTLSCAFile, "exporter-tls-ca", cfg.ExporterTLSCAFile, "CA certificate for server verification")
	fs.BoolVar(&cfg.ExporterTLSInsecureSkipVerify, "exporter-tls-skip-verify", cfg.ExporterTLSInsecureSkipVerify, "Skip TLS certificate verification")
	fs.StringVar(&cfg.ExporterTLSServerName, "exporter-tls-server-name", cfg.ExporterTLSServerName, "Override the TLS server name")

	fs.StringVar(&cfg.ExporterAuthBearerToken, "exporter-auth-bearer-token", cfg.ExporterAuthBearerToken, "Bearer token for exports")
	fs.StringVar(&cfg.ExporterAuthBasicUsername, "exporter-auth-basic-username", cfg.ExporterAuthBasicUsername, "Basic auth username for exports")
	fs.StringVar(&cfg.ExporterAuthBasicPassword, "exporter-auth-basic-password", cfg.ExporterAuthBasicPassword, "Basic auth password for exports")

	fs.IntVar(&cfg.ExporterMaxIdleConns, "exporter-max-idle-conns", cfg.ExporterMaxIdleConns, "Idle HTTP connections across hosts")
	fs.IntVar(&cfg.ExporterMaxIdleConnsPerHost, "exporter-max-idle-conns-per-host", cfg.ExporterMaxIdleConnsPerHost, "Idle HTTP connections per host")
	fs.IntVar(&cfg.ExporterMaxConnsPerHost, "exporter-max-conns-per-host", cfg.ExporterMaxConnsPerHost, "HTTP connections per host (0 = unlimited)")
	fs.DurationVar(&cfg.ExporterIdleConnTimeout, "exporter-idle-conn-timeout", cfg.ExporterIdleConnTimeout, "Idle HTTP connection lifetime")
	fs.BoolVar(&cfg.ExporterForceHTTP2, "exporter-force-http2", cfg.ExporterForceHTTP2, "Attempt HTTP/2 without TLS configuration")
	fs.DurationVar(&cfg.ExporterHTTP2ReadIdleTimeout, "exporter-http2-read-idle-timeout", cfg.ExporterHTTP2ReadIdleTimeout, "Ping silent HTTP/2 connections after this long")
	fs.DurationVar(&cfg.ExporterHTTP2PingTimeout, "exporter-http2-ping-timeout", cfg.ExporterHTTP2PingTimeout, "Close HTTP/2 connections whose ping is unanswered")

	fs.IntVar(&cfg.BatchMaxQueueSize, "max-queue-size", cfg.BatchMaxQueueSize, "Spans buffered by the batch processor")
	fs.IntVar(&cfg.BatchMaxExportBatchSize, "max-export-batch-size", cfg.BatchMaxExportBatchSize, "Spans per export")
	fs.DurationVar(&cfg.BatchScheduleDelay, "schedule-delay", cfg.BatchScheduleDelay, "Delay between batch exports")
	fs.DurationVar(&cfg.BatchExportTimeout, "export-timeout", cfg.BatchExportTimeout, "Batch processor export timeout")
	fs.DurationVar(&cfg.MetricInterval, "metric-interval", cfg.MetricInterval, "Metric reader collection interval")

	fs.StringVar(&cfg.SendSignals, "send-signals", cfg.SendSignals, "Signals the demo producer emits: traces, metrics")
	fs.StringVar(&cfg.SendServiceName, "send-service-name", cfg.SendServiceName, "service.name of the demo producer")
	fs.IntVar(&cfg.SendRate, "send-rate", cfg.SendRate, "Simulated requests per second per worker, two spans each")
	fs.IntVar(&cfg.SendWorkers, "send-workers", cfg.SendWorkers, "Concurrent demo producers")
	fs.DurationVar(&cfg.SendDuration, "send-duration", cfg.SendDuration, "Stop after this long (0 = until interrupted)")
	fs.BoolVar(&cfg.SendRetry, "send-retry", cfg.SendRetry, "Retry retryable export failures with backoff")
	fs.DurationVar(&cfg.SendRetryMaxElapsed, "send-retry-max-elapsed", cfg.SendRetryMaxElapsed, "Give up retrying a batch after this long")

	fs.StringVar(&cfg.SinkGRPCListen, "sink-grpc-listen", cfg.SinkGRPCListen, "Sink gRPC listen address")
	fs.StringVar(&cfg.SinkHTTPListen, "sink-http-listen", cfg.SinkHTTPListen, "Sink HTTP listen address")
	fs.Int64Var(&cfg.SinkMaxRequestBodySize, "sink-max-body-size", cfg.SinkMaxRequestBodySize, "Maximum HTTP request body in bytes (0 = unlimited)")
	fs.StringVar(&cfg.SinkAllowedOrigins, "sink-cors-origins", cfg.SinkAllowedOrigins, "Comma separated CORS origins for browser exporters (* for any)")
	fs.DurationVar(&cfg.SinkStatsInterval, "sink-stats-interval", cfg.SinkStatsInterval, "Interval between stats log lines")
	fs.DurationVar(&cfg.SinkStatsWindow, "sink-stats-window", cfg.SinkStatsWindow, "Reset unique trace and duplicate tracking this often (0 = never)")
	fs.StringVar(&cfg.SinkDuplicateMode, "sink-duplicate-mode", cfg.SinkDuplicateMode, "Duplicate span tracking: bloom or exact")
	fs.UintVar(&cfg.SinkDuplicateExpected, "sink-duplicate-expected", cfg.SinkDuplicateExpected, "Expected spans per window (bloom sizing)")
	fs.Float64Var(&cfg.SinkDuplicateFPRate, "sink-duplicate-fp-rate", cfg.SinkDuplicateFPRate, "Bloom false positive rate")

	fs.BoolVar(&cfg.SinkTLSEnabled, "sink-tls-enabled", cfg.SinkTLSEnabled, "Enable TLS for the sink")
	fs.StringVar(&cfg.SinkTLSCertFile, "sink-tls-cert", cfg.SinkTLSCertFile, "Server certificate file")
	fs.StringVar(&cfg.SinkTLSKeyFile, "sink-tls-key", cfg.SinkTLSKeyFile, "Server private key file")
	fs.StringVar(&cfg.SinkTLSCAFile, "sink-tls-ca", cfg.SinkTLSCAFile, "CA certificate for client verification (mTLS)")
	fs.BoolVar(&cfg.SinkTLSClientAuth, "sink-tls-client-auth", cfg.SinkTLSClientAuth, "Require client certificates")

	fs.BoolVar(&cfg.SinkAuthEnabled, "sink-auth-enabled", cfg.SinkAuthEnabled, "Require credentials on the sink")
	fs.StringVar(&cfg.SinkAuthBearerToken, "sink-auth-bearer-token", cfg.SinkAuthBearerToken, "Expected bearer token")
	fs.StringVar(&cfg.SinkAuthBasicUsername, "sink-auth-basic-username", cfg.SinkAuthBasicUsername, "Expected basic auth username")
	fs.StringVar(&cfg.SinkAuthBasicPassword, "sink-auth-basic-password", cfg.SinkAuthBasicPassword, "Expected basic auth password")

	fs.StringVar(&cfg.TelemetryEndpoint, "telemetry-endpoint", cfg.TelemetryEndpoint, "OTLP endpoint for self telemetry (empty disables)")
	fs.StringVar(&cfg.TelemetryProtocol, "telemetry-protocol", cfg.TelemetryProtocol, "Self telemetry protocol: grpc or http")
	fs.BoolVar(&cfg.TelemetryInsecure, "telemetry-insecure", cfg.TelemetryInsecure, "Plaintext self telemetry connection")
	fs.DurationVar(&cfg.TelemetryPushInterval, "telemetry-push-interval", cfg.TelemetryPushInterval, "Self telemetry metric push interval")
	fs.StringVar(&cfg.TelemetryCompression, "telemetry-compression", cfg.TelemetryCompression, "Self telemetry compression: gzip or empty")
	fs.StringVar(&cfg.TelemetryHeaders, "telemetry-headers", cfg.TelemetryHeaders, "Self telemetry headers (format: key1=value1,key2=value2)")
	fs.DurationVar(&cfg.TelemetryShutdownTimeout, "telemetry-shutdown-timeout", cfg.TelemetryShutdownTimeout, "Self telemetry flush budget on exit")
	fs.BoolVar(&cfg.TelemetryRetryEnabled, "telemetry-retry", cfg.TelemetryRetryEnabled, "Retry failed self telemetry exports")

	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version")
}

// ParseArgs resolves the configuration from args (without the program
// name). The first argument may name the mode, "send" (default) or "sink".
// getenv supplies OTEL_EXPORTER_OTLP_HEADERS; nil means os.Getenv.
func ParseArgs(args []string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	mode := ModeSend
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		mode, args = args[0], args[1:]
	}
	if mode != ModeSend && mode != ModeSink {
		return nil, fmt.Errorf("unknown mode %q, want %s or %s", mode, ModeSend, ModeSink)
	}

	// First pass finds the config file; the second binds flags on top of
	// whatever it produced.
	probe := DefaultConfig()
	pfs := newFlagSet(probe)
	if err := pfs.Parse(args); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if probe.ConfigFile != "" {
		y, err := LoadYAML(probe.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", probe.ConfigFile, err)
		}
		y.Apply(cfg)
	}

	fs := newFlagSet(cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	fs.Visit(func(f *flag.Flag) {
		cfg.Explicit[f.Name] = true
	})
	cfg.Mode = mode
	cfg.ExporterEnvHeaders = getenv(exporter.EnvHeaders)
	return cfg, nil
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("otlp-shipper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	bindFlags(fs, cfg)
	return fs
}

// PrintUsage writes the flag reference to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, `otlp-shipper - OTLP trace and metric export pipeline

USAGE:
    otlp-shipper [send|sink] [OPTIONS]

MODES:
    send    Produce demo spans and metrics and export them to -exporter-endpoint
    sink    Receive OTLP exports over gRPC and HTTP and report what arrived

OPTIONS:
`)
	fs := flag.NewFlagSet("otlp-shipper", flag.ContinueOnError)
	fs.SetOutput(w)
	bindFlags(fs, DefaultConfig())
	fs.PrintDefaults()
}

// ExporterConfig returns the exporter configuration.
func (c *Config) ExporterConfig() (exporter.Config, error) {
	headers, err := exporter.ParseHeaders(c.ExporterHeaders)
	if err != nil {
		return exporter.Config{}, fmt.Errorf("exporter headers: %w", err)
	}
	protocol, err := exporter.ParseProtocol(c.ExporterProtocol)
	if err != nil {
		return exporter.Config{}, err
	}
	ctype, err := compression.ParseType(c.ExporterCompression)
	if err != nil {
		return exporter.Config{}, err
	}
	return exporter.Config{
		Endpoint:         c.ExporterEndpoint,
		Protocol:         protocol,
		Insecure:         c.ExporterInsecure,
		Timeout:          c.ExporterTimeout,
		Path:             c.ExporterPath,
		Headers:          headers,
		EnvHeaders:       c.ExporterEnvHeaders,
		ConcurrencyLimit: c.ExporterConcurrencyLimit,
		TLS: tlspkg.ClientConfig{
			Enabled:            c.ExporterTLSEnabled,
			CertFile:           c.ExporterTLSCertFile,
			KeyFile:            c.ExporterTLSKeyFile,
			CAFile:             c.ExporterTLSCAFile,
			InsecureSkipVerify: c.ExporterTLSInsecureSkipVerify,
			ServerName:         c.ExporterTLSServerName,
		},
		Auth: auth.ClientConfig{
			BearerToken:       c.ExporterAuthBearerToken,
			BasicAuthUsername: c.ExporterAuthBasicUsername,
			BasicAuthPassword: c.ExporterAuthBasicPassword,
		},
		Compression: compression.Config{
			Type:  ctype,
			Level: compression.Level(c.ExporterCompressionLevel),
		},
		HTTPClient: exporter.HTTPClientConfig{
			MaxIdleConns:         c.ExporterMaxIdleConns,
			MaxIdleConnsPerHost:  c.ExporterMaxIdleConnsPerHost,
			MaxConnsPerHost:      c.ExporterMaxConnsPerHost,
			IdleConnTimeout:      c.ExporterIdleConnTimeout,
			ForceAttemptHTTP2:    c.ExporterForceHTTP2,
			HTTP2ReadIdleTimeout: c.ExporterHTTP2ReadIdleTimeout,
			HTTP2PingTimeout:     c.ExporterHTTP2PingTimeout,
		},
		Beacon: exporter.BeaconConfig{QueueSize: c.ExporterBeaconQueueSize},
	}, nil
}

// BatchOptions configures the SDK's BatchSpanProcessor.
func (c *Config) BatchOptions() []sdktrace.BatchSpanProcessorOption {
	return []sdktrace.BatchSpanProcessorOption{
		sdktrace.WithMaxQueueSize(c.BatchMaxQueueSize),
		sdktrace.WithMaxExportBatchSize(c.BatchMaxExportBatchSize),
		sdktrace.WithBatchTimeout(c.BatchScheduleDelay),
		sdktrace.WithExportTimeout(c.BatchExportTimeout),
	}
}

// ReaderOptions configures the SDK's PeriodicReader.
func (c *Config) ReaderOptions() []sdkmetric.PeriodicReaderOption {
	return []sdkmetric.PeriodicReaderOption{
		sdkmetric.WithInterval(c.MetricInterval),
		sdkmetric.WithTimeout(c.BatchExportTimeout),
	}
}

// Signals returns the demo producer's signals.
func (c *Config) Signals() (traces, metrics bool) {
	for _, s := range strings.Split(c.SendSignals, ",") {
		switch strings.TrimSpace(s) {
		case string(exporter.SignalTraces):
			traces = true
		case string(exporter.SignalMetrics):
			metrics = true
		}
	}
	return traces, metrics
}

func (c *Config) sinkTLS() tlspkg.ServerConfig {
	return tlspkg.ServerConfig{
		Enabled:    c.SinkTLSEnabled,
		CertFile:   c.SinkTLSCertFile,
		KeyFile:    c.SinkTLSKeyFile,
		CAFile:     c.SinkTLSCAFile,
		ClientAuth: c.SinkTLSClientAuth,
	}
}

func (c *Config) sinkAuth() auth.ServerConfig {
	return auth.ServerConfig{
		Enabled:           c.SinkAuthEnabled,
		BearerToken:       c.SinkAuthBearerToken,
		BasicAuthUsername: c.SinkAuthBasicUsername,
		BasicAuthPassword: c.SinkAuthBasicPassword,
	}
}

// GRPCReceiverConfig returns the sink's gRPC receiver configuration.
func (c *Config) GRPCReceiverConfig() receiver.GRPCConfig {
	return receiver.GRPCConfig{
		Addr: c.SinkGRPCListen,
		TLS:  c.sinkTLS(),
		Auth: c.sinkAuth(),
	}
}

// HTTPReceiverConfig returns the sink's HTTP receiver configuration.
func (c *Config) HTTPReceiverConfig() receiver.HTTPConfig {
	var origins []string
	for _, o := range strings.Split(c.SinkAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return receiver.HTTPConfig{
		Addr: c.SinkHTTPListen,
		TLS:  c.sinkTLS(),
		Auth: c.sinkAuth(),
		Server: receiver.HTTPServerConfig{
			MaxRequestBodySize: c.SinkMaxRequestBodySize,
		},
		AllowedOrigins: origins,
	}
}

// StatsConfig returns the sink statistics configuration.
func (c *Config) StatsConfig() (stats.Config, error) {
	mode, err := cardinality.ParseMode(c.SinkDuplicateMode)
	if err != nil {
		return stats.Config{}, err
	}
	return stats.Config{
		Duplicates: cardinality.Config{
			Mode:              mode,
			ExpectedItems:     c.SinkDuplicateExpected,
			FalsePositiveRate: c.SinkDuplicateFPRate,
		},
		Window: c.SinkStatsWindow,
	}, nil
}

// TelemetryConfig returns the self telemetry configuration.
func (c *Config) TelemetryConfig() (telemetry.Config, error) {
	headers, err := exporter.ParseHeaders(c.TelemetryHeaders)
	if err != nil {
		return telemetry.Config{}, fmt.Errorf("telemetry headers: %w", err)
	}
	return telemetry.Config{
		Endpoint:        c.TelemetryEndpoint,
		Protocol:        c.TelemetryProtocol,
		Insecure:        c.TelemetryInsecure,
		PushInterval:    c.TelemetryPushInterval,
		Compression:     c.TelemetryCompression,
		Headers:         headers,
		ShutdownTimeout: c.TelemetryShutdownTimeout,
		Retry:           telemetry.RetryConfig{Enabled: c.TelemetryRetryEnabled},
	}, nil
}
