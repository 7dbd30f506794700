package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig is the configuration file layout. Unset fields leave the
// defaults untouched.
type YAMLConfig struct {
	LogLevel         string   `yaml:"log_level"`
	AdminListen      string   `yaml:"admin_listen"`
	ShutdownTimeout  Duration `yaml:"shutdown_timeout"`
	MemoryLimitRatio *float64 `yaml:"memory_limit_ratio"`

	Exporter  ExporterYAMLConfig  `yaml:"exporter"`
	Batch     BatchYAMLConfig     `yaml:"batch"`
	Send      SendYAMLConfig      `yaml:"send"`
	Sink      SinkYAMLConfig      `yaml:"sink"`
	Telemetry TelemetryYAMLConfig `yaml:"telemetry"`
}

// ExporterYAMLConfig holds exporter settings.
type ExporterYAMLConfig struct {
	Endpoint         string            `yaml:"endpoint"`
	Protocol         string            `yaml:"protocol"`
	Insecure         *bool             `yaml:"insecure"`
	Timeout          Duration          `yaml:"timeout"`
	Path             string            `yaml:"path"`
	Headers          map[string]string `yaml:"headers"`
	ConcurrencyLimit *int              `yaml:"concurrency_limit"`
	BeaconQueueSize  int               `yaml:"beacon_queue_size"`

	Compression struct {
		Type  string `yaml:"type"`
		Level int    `yaml:"level"`
	} `yaml:"compression"`

	TLS struct {
		Enabled            bool   `yaml:"enabled"`
		CertFile           string `yaml:"cert_file"`
		KeyFile            string `yaml:"key_file"`
		CAFile             string `yaml:"ca_file"`
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
		ServerName         string `yaml:"server_name"`
	} `yaml:"tls"`

	Auth struct {
		BearerToken   string `yaml:"bearer_token"`
		BasicUsername string `yaml:"basic_username"`
		BasicPassword string `yaml:"basic_password"`
	} `yaml:"auth"`

	HTTPClient struct {
		MaxIdleConns         int      `yaml:"max_idle_conns"`
		MaxIdleConnsPerHost  int      `yaml:"max_idle_conns_per_host"`
		MaxConnsPerHost      int      `yaml:"max_conns_per_host"`
		IdleConnTimeout      Duration `yaml:"idle_conn_timeout"`
		ForceHTTP2           bool     `yaml:"force_http2"`
		HTTP2ReadIdleTimeout Duration `yaml:"http2_read_idle_timeout"`
		HTTP2PingTimeout     Duration `yaml:"http2_ping_timeout"`
	} `yaml:"http_client"`
}

// BatchYAMLConfig holds SDK batching settings.
type BatchYAMLConfig struct {
	MaxQueueSize       int      `yaml:"max_queue_size"`
	MaxExportBatchSize int      `yaml:"max_export_batch_size"`
	ScheduleDelay      Duration `yaml:"schedule_delay"`
	ExportTimeout      Duration `yaml:"export_timeout"`
	MetricInterval     Duration `yaml:"metric_interval"`
}

// SendYAMLConfig holds demo producer settings.
type SendYAMLConfig struct {
	Signals         []string `yaml:"signals"`
	ServiceName     string   `yaml:"service_name"`
	Rate            int      `yaml:"rate"`
	Workers         int      `yaml:"workers"`
	Duration        Duration `yaml:"duration"`
	Retry           *bool    `yaml:"retry"`
	RetryMaxElapsed Duration `yaml:"retry_max_elapsed"`
}

// SinkYAMLConfig holds sink settings.
type SinkYAMLConfig struct {
	GRPCListen         string   `yaml:"grpc_listen"`
	HTTPListen         string   `yaml:"http_listen"`
	MaxRequestBodySize int64    `yaml:"max_request_body_size"`
	CORSOrigins        []string `yaml:"cors_origins"`
	StatsInterval      Duration `yaml:"stats_interval"`
	StatsWindow        Duration `yaml:"stats_window"`

	Duplicates struct {
		Mode              string  `yaml:"mode"`
		ExpectedItems     uint    `yaml:"expected_items"`
		FalsePositiveRate float64 `yaml:"false_positive_rate"`
	} `yaml:"duplicates"`

	TLS struct {
		Enabled    bool   `yaml:"enabled"`
		CertFile   string `yaml:"cert_file"`
		KeyFile    string `yaml:"key_file"`
		CAFile     string `yaml:"ca_file"`
		ClientAuth bool   `yaml:"client_auth"`
	} `yaml:"tls"`

	Auth struct {
		Enabled       bool   `yaml:"enabled"`
		BearerToken   string `yaml:"bearer_token"`
		BasicUsername string `yaml:"basic_username"`
		BasicPassword string `yaml:"basic_password"`
	} `yaml:"auth"`
}

// TelemetryYAMLConfig holds OTLP self-monitoring configuration.
type TelemetryYAMLConfig struct {
	Endpoint        string            `yaml:"endpoint"`         // empty disables
	Protocol        string            `yaml:"protocol"`         // "grpc" or "http"
	Insecure        *bool             `yaml:"insecure"`         // default true
	PushInterval    Duration          `yaml:"push_interval"`    // default 30s
	Compression     string            `yaml:"compression"`      // "gzip" or ""
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // default 5s
	Headers         map[string]string `yaml:"headers"`
	Retry           *bool             `yaml:"retry"` // default true
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	duration, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// LoadYAML reads and parses a configuration file.
func LoadYAML(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(data)
}

// ParseYAML parses YAML configuration, rejecting unknown keys.
func ParseYAML(data []byte) (*YAMLConfig, error) {
	y := &YAMLConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(y); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return y, nil
}

// Apply copies every set field onto cfg.
func (y *YAMLConfig) Apply(cfg *Config) {
	setString(&cfg.LogLevel, y.LogLevel)
	setString(&cfg.AdminAddr, y.AdminListen)
	setDuration(&cfg.ShutdownTimeout, y.ShutdownTimeout)
	if y.MemoryLimitRatio != nil {
		cfg.MemoryLimitRatio = *y.MemoryLimitRatio
	}

	e := &y.Exporter
	setString(&cfg.ExporterEndpoint, e.Endpoint)
	setString(&cfg.ExporterProtocol, e.Protocol)
	if e.Insecure != nil {
		cfg.ExporterInsecure = *e.Insecure
	}
	setDuration(&cfg.ExporterTimeout, e.Timeout)
	setString(&cfg.ExporterPath, e.Path)
	if len(e.Headers) > 0 {
		cfg.ExporterHeaders = headersMapToString(e.Headers)
	}
	if e.ConcurrencyLimit != nil {
		cfg.ExporterConcurrencyLimit = *e.ConcurrencyLimit
	}
	setInt(&cfg.ExporterBeaconQueueSize, e.BeaconQueueSize)
	setString(&cfg.ExporterCompression, e.Compression.Type)
	setInt(&cfg.ExporterCompressionLevel, e.Compression.Level)
	if e.TLS.Enabled {
		cfg.ExporterTLSEnabled = true
		cfg.ExporterTLSCertFile = e.TLS.CertFile
		cfg.ExporterTLSKeyFile = e.TLS.KeyFile
		cfg.ExporterTLSCAFile = e.TLS.CAFile
		cfg.ExporterTLSInsecureSkipVerify = e.TLS.InsecureSkipVerify
		cfg.ExporterTLSServerName = e.TLS.ServerName
	}
	setString(&cfg.ExporterAuthBearerToken, e.Auth.BearerToken)
	setString(&cfg.ExporterAuthBasicUsername, e.Auth.BasicUsername)
	setString(&cfg.ExporterAuthBasicPassword, e.Auth.BasicPassword)
	setInt(&cfg.ExporterMaxIdleConns, e.HTTPClient.MaxIdleConns)
	setInt(&cfg.ExporterMaxIdleConnsPerHost, e.HTTPClient.MaxIdleConnsPerHost)
	setInt(&cfg.ExporterMaxConnsPerHost, e.HTTPClient.MaxConnsPerHost)
	setDuration(&cfg.ExporterIdleConnTimeout, e.HTTPClient.IdleConnTimeout)
	cfg.ExporterForceHTTP2 = cfg.ExporterForceHTTP2 || e.HTTPClient.ForceHTTP2
	setDuration(&cfg.ExporterHTTP2ReadIdleTimeout, e.HTTPClient.HTTP2ReadIdleTimeout)
	setDuration(&cfg.ExporterHTTP2PingTimeout, e.HTTPClient.HTTP2PingTimeout)

	b := &y.Batch
	setInt(&cfg.BatchMaxQueueSize, b.MaxQueueSize)
	setInt(&cfg.BatchMaxExportBatchSize, b.MaxExportBatchSize)
	setDuration(&cfg.BatchScheduleDelay, b.ScheduleDelay)
	setDuration(&cfg.BatchExportTimeout, b.ExportTimeout)
	setDuration(&cfg.MetricInterval, b.MetricInterval)

	s := &y.Send
	if len(s.Signals) > 0 {
		cfg.SendSignals = strings.Join(s.Signals, ",")
	}
	setString(&cfg.SendServiceName, s.ServiceName)
	setInt(&cfg.SendRate, s.Rate)
	setInt(&cfg.SendWorkers, s.Workers)
	setDuration(&cfg.SendDuration, s.Duration)
	if s.Retry != nil {
		cfg.SendRetry = *s.Retry
	}
	setDuration(&cfg.SendRetryMaxElapsed, s.RetryMaxElapsed)

	k := &y.Sink
	setString(&cfg.SinkGRPCListen, k.GRPCListen)
	setString(&cfg.SinkHTTPListen, k.HTTPListen)
	if k.MaxRequestBodySize > 0 {
		cfg.SinkMaxRequestBodySize = k.MaxRequestBodySize
	}
	if len(k.CORSOrigins) > 0 {
		cfg.SinkAllowedOrigins = strings.Join(k.CORSOrigins, ",")
	}
	setDuration(&cfg.SinkStatsInterval, k.StatsInterval)
	setDuration(&cfg.SinkStatsWindow, k.StatsWindow)
	setString(&cfg.SinkDuplicateMode, k.Duplicates.Mode)
	if k.Duplicates.ExpectedItems > 0 {
		cfg.SinkDuplicateExpected = k.Duplicates.ExpectedItems
	}
	if k.Duplicates.FalsePositiveRate > 0 {
		cfg.SinkDuplicateFPRate = k.Duplicates.FalsePositiveRate
	}
	if k.TLS.Enabled {
		cfg.SinkTLSEnabled = true
		cfg.SinkTLSCertFile = k.TLS.CertFile
		cfg.SinkTLSKeyFile = k.TLS.KeyFile
		cfg.SinkTLSCAFile = k.TLS.CAFile
		cfg.SinkTLSClientAuth = k.TLS.ClientAuth
	}
	if k.Auth.Enabled {
		cfg.SinkAuthEnabled = true
		cfg.SinkAuthBearerToken = k.Auth.BearerToken
		cfg.SinkAuthBasicUsername = k.Auth.BasicUsername
		cfg.SinkAuthBasicPassword = k.Auth.BasicPassword
	}

	t := &y.Telemetry
	setString(&cfg.TelemetryEndpoint, t.Endpoint)
	setString(&cfg.TelemetryProtocol, t.Protocol)
	if t.Insecure != nil {
		cfg.TelemetryInsecure = *t.Insecure
	}
	setDuration(&cfg.TelemetryPushInterval, t.PushInterval)
	setString(&cfg.TelemetryCompression, t.Compression)
	setDuration(&cfg.TelemetryShutdownTimeout, t.ShutdownTimeout)
	if len(t.Headers) > 0 {
		cfg.TelemetryHeaders = headersMapToString(t.Headers)
	}
	if t.Retry != nil {
		cfg.TelemetryRetryEnabled = *t.Retry
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v Duration) {
	if v != 0 {
		*dst = time.Duration(v)
	}
}

// headersMapToString renders headers in the k=v,k2=v2 flag format, sorted
// by key.
func headersMapToString(headers map[string]string) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+headers[k])
	}
	return strings.Join(parts, ",")
}
