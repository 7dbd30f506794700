package receiver

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/szibis/otlp-shipper/internal/auth"
	"github.com/szibis/otlp-shipper/internal/compression"
	"github.com/szibis/otlp-shipper/internal/logging"
	"github.com/szibis/otlp-shipper/internal/otlpwire"
	tlspkg "github.com/szibis/otlp-shipper/internal/tls"
)

// Default paths of the HTTP export endpoints.
const (
	TracesPath  = "/v1/traces"
	MetricsPath = "/v1/metrics"
)

// HTTPServerConfig holds HTTP server settings.
type HTTPServerConfig struct {
	// MaxRequestBodySize limits the compressed request body. Zero means no limit.
	MaxRequestBodySize int64
	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body. Zero means no timeout.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the maximum duration for reading request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	IdleTimeout time.Duration
}

// HTTPConfig holds the HTTP receiver configuration.
type HTTPConfig struct {
	// Addr is the listen address.
	Addr string
	// TLS configuration for secure connections.
	TLS tlspkg.ServerConfig
	// Auth configuration for authentication.
	Auth auth.ServerConfig
	// Server configuration for HTTP server settings.
	Server HTTPServerConfig
	// AllowedOrigins enables CORS for browser exporters. "*" allows any origin.
	AllowedOrigins []string
}

// HTTPReceiver serves the OTLP/HTTP export endpoints with JSON and
// protobuf bodies.
type HTTPReceiver struct {
	server             *http.Server
	handler            http.Handler
	consumer           Consumer
	addr               string
	tlsConfig          *tls.Config
	maxRequestBodySize int64
	allowedOrigins     []string
	log                logging.Component

	mu  sync.Mutex
	lis net.Listener
}

// NewHTTP creates an HTTP receiver delivering to c.
func NewHTTP(cfg HTTPConfig, c Consumer) (*HTTPReceiver, error) {
	tlsConfig, err := tlspkg.NewServerTLSConfig(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("http receiver TLS: %w", err)
	}

	r := &HTTPReceiver{
		consumer:           c,
		addr:               cfg.Addr,
		tlsConfig:          tlsConfig,
		maxRequestBodySize: cfg.Server.MaxRequestBodySize,
		allowedOrigins:     cfg.AllowedOrigins,
		log:                logging.Named("receiver").With("protocol", "http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(TracesPath, r.handleTraces)
	mux.HandleFunc(MetricsPath, r.handleMetrics)

	var handler http.Handler = mux
	if cfg.Auth.Enabled {
		handler = auth.HTTPMiddleware(cfg.Auth, mux)
	}
	// CORS wraps auth so preflight requests, which carry no credentials, succeed.
	r.handler = r.cors(handler)

	readHeaderTimeout := cfg.Server.ReadHeaderTimeout
	if readHeaderTimeout == 0 {
		readHeaderTimeout = 1 * time.Minute
	}
	writeTimeout := cfg.Server.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}
	idleTimeout := cfg.Server.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 1 * time.Minute
	}

	r.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r.handler,
		TLSConfig:         tlsConfig,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return r, nil
}

// Handler returns the receiver's routes with auth and CORS applied.
func (r *HTTPReceiver) Handler() http.Handler {
	return r.handler
}

func (r *HTTPReceiver) cors(next http.Handler) http.Handler {
	if len(r.allowedOrigins) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		origin := req.Header.Get("Origin")
		if origin != "" && r.originAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if req.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Encoding, Authorization, X-Opentelemetry-Outgoing-Request")
				h.Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, req)
	})
}

func (r *HTTPReceiver) originAllowed(origin string) bool {
	for _, o := range r.allowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (r *HTTPReceiver) handleTraces(w http.ResponseWriter, req *http.Request) {
	var exportReq otlpwire.ExportTraceServiceRequest
	if !r.decode(w, req, "traces", &exportReq) {
		return
	}
	recordTraces("http", &exportReq)
	r.consumer.ConsumeTraces(&exportReq)
}

func (r *HTTPReceiver) handleMetrics(w http.ResponseWriter, req *http.Request) {
	var exportReq otlpwire.ExportMetricsServiceRequest
	if !r.decode(w, req, "metrics", &exportReq) {
		return
	}
	recordMetrics("http", &exportReq)
	r.consumer.ConsumeMetrics(&exportReq)
}

// decode reads, decompresses and unmarshals the body into dst, answering
// the request itself. It reports whether dst holds a valid request.
func (r *HTTPReceiver) decode(w http.ResponseWriter, req *http.Request, signal string, dst otlpwire.Message) bool {
	if req.Method != http.MethodPost {
		incrementError("method")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}

	isJSON, ok := parseContentType(req.Header.Get("Content-Type"))
	if !ok {
		incrementError("content_type")
		http.Error(w, "Unsupported content type, expected application/json or application/x-protobuf", http.StatusUnsupportedMediaType)
		return false
	}

	var bodyReader io.Reader = req.Body
	if r.maxRequestBodySize > 0 {
		bodyReader = http.MaxBytesReader(w, req.Body, r.maxRequestBodySize)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(bodyReader); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			incrementError("too_large")
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		incrementError("read")
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return false
	}
	req.Body.Close()
	wireLen := buf.Len()

	body := buf.Bytes()
	if ce := req.Header.Get("Content-Encoding"); ce != "" {
		t := compression.ParseContentEncoding(ce)
		decoded, err := compression.Decompress(body, t)
		if err != nil {
			if errors.Is(err, compression.ErrTooLarge) {
				incrementError("too_large")
				http.Error(w, "Decompressed body too large", http.StatusRequestEntityTooLarge)
				return false
			}
			incrementError("decompress")
			r.log.Warn("failed to decompress request body", logging.F(
				"signal", signal,
				"encoding", ce,
				"error", err.Error(),
			))
			http.Error(w, "Failed to decompress body", http.StatusBadRequest)
			return false
		}
		body = decoded
	}

	encoding := "protobuf"
	var err error
	if isJSON {
		encoding = "json"
		err = json.Unmarshal(body, dst)
	} else {
		err = dst.UnmarshalProto(body)
	}
	r.consumer.RecordRequest("http", encoding, wireLen, len(body))
	if err != nil {
		incrementError("decode")
		r.log.Warn("failed to decode export request", logging.F(
			"signal", signal,
			"encoding", encoding,
			"error", err.Error(),
		))
		http.Error(w, "Failed to decode "+encoding+" body", http.StatusBadRequest)
		return false
	}

	if isJSON {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	} else {
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.WriteHeader(http.StatusOK)
	}
	return true
}

// parseContentType reports whether ct selects JSON, and whether it is
// supported at all. Beacons posting strings arrive as text/plain JSON.
func parseContentType(ct string) (isJSON, ok bool) {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false, false
	}
	switch mt {
	case "application/json", "text/plain":
		return true, true
	case "application/x-protobuf", "application/protobuf":
		return false, true
	default:
		return false, false
	}
}

// Start listens on the configured address and serves until Stop.
func (r *HTTPReceiver) Start() error {
	lis, err := net.Listen("tcp", r.addr)
	if err != nil {
		return err
	}
	return r.Serve(lis)
}

// Serve serves on lis until Stop. It returns nil after a graceful stop.
func (r *HTTPReceiver) Serve(lis net.Listener) error {
	r.mu.Lock()
	r.lis = lis
	r.mu.Unlock()
	r.log.Info("HTTP receiver started", logging.F(
		"addr", lis.Addr().String(),
		"tls", r.tlsConfig != nil,
	))

	var err error
	if r.tlsConfig != nil {
		// Certificates are already in the server's TLSConfig.
		err = r.server.ServeTLS(lis, "", "")
	} else {
		err = r.server.Serve(lis)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the bound address once serving, else the configured one.
func (r *HTTPReceiver) Addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lis != nil {
		return r.lis.Addr().String()
	}
	return r.addr
}

// Stop gracefully stops the HTTP server.
func (r *HTTPReceiver) Stop(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}

// HealthCheck returns nil if the receiver port is accepting connections.
func (r *HTTPReceiver) HealthCheck() error {
	return healthCheck("HTTP", r.Addr())
}
