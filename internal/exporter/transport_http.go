package exporter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"

	"github.com/szibis/otlp-shipper/internal/auth"
	"github.com/szibis/otlp-shipper/internal/compression"
	"github.com/szibis/otlp-shipper/internal/logging"
	tlspkg "github.com/szibis/otlp-shipper/internal/tls"
)

// maxErrorBody bounds how much of a failed response is kept.
const maxErrorBody = 4 << 10

// httpTransport POSTs encoded bodies over a pooled keep-alive client.
// Concurrent sends are independent requests with no ordering between them.
type httpTransport struct {
	signal      Signal
	endpoint    string
	env         map[string]string
	headers     map[string]string
	compression compression.Config
	client      *http.Client
	log         logging.Component

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func newHTTPTransport(signal Signal, cfg Config, env map[string]string) (*httpTransport, error) {
	endpoint, err := httpEndpoint(cfg.Endpoint, cfg.Path, signal, cfg.Insecure)
	if err != nil {
		return nil, err
	}
	rt, err := newRoundTripper(cfg)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{
		Transport: rt,
		Timeout:   timeout,

		// A followed redirect turns the POST into a bodyless GET, so the
		// 3xx itself is the outcome.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &httpTransport{
		signal:      signal,
		endpoint:    endpoint,
		env:         env,
		headers:     cfg.Headers,
		compression: cfg.Compression,
		client:      client,
		log:         logging.Named("http-transport").With("signal", string(signal), "endpoint", endpoint),
	}, nil
}

// newRoundTripper builds the pooled transport with TLS, HTTP/2 health
// checks and authentication.
func newRoundTripper(cfg Config) (http.RoundTripper, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     cfg.HTTPClient.ForceAttemptHTTP2,
		MaxIdleConns:          cfg.HTTPClient.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.HTTPClient.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.HTTPClient.MaxConnsPerHost,
		IdleConnTimeout:       cfg.HTTPClient.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if transport.MaxIdleConns == 0 {
		transport.MaxIdleConns = 100
	}
	if transport.MaxIdleConnsPerHost == 0 {
		transport.MaxIdleConnsPerHost = 100
	}
	if transport.IdleConnTimeout == 0 {
		transport.IdleConnTimeout = 90 * time.Second
	}

	if !cfg.Insecure {
		tc, err := tlspkg.NewClientTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		transport.TLSClientConfig = tc
	}

	if cfg.HTTPClient.ForceAttemptHTTP2 || transport.TLSClientConfig != nil {
		h2, err := http2.ConfigureTransports(transport)
		if err == nil && h2 != nil {
			if cfg.HTTPClient.HTTP2ReadIdleTimeout > 0 {
				h2.ReadIdleTimeout = cfg.HTTPClient.HTTP2ReadIdleTimeout
			}
			if cfg.HTTPClient.HTTP2PingTimeout > 0 {
				h2.PingTimeout = cfg.HTTPClient.HTTP2PingTimeout
			}
		}
	}

	var rt http.RoundTripper = transport
	if cfg.Auth.Enabled() {
		rt = auth.HTTPTransport(cfg.Auth, rt)
	}
	return rt, nil
}

// httpEndpoint completes endpoint with a scheme and, when it has no path,
// the configured or signal default path.
func httpEndpoint(endpoint, path string, signal Signal, insecure bool) (string, error) {
	if endpoint == "" {
		endpoint = "localhost:4318"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		scheme := "https"
		if insecure {
			scheme = "http"
		}
		endpoint = scheme + "://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	if u.Path == "" || u.Path == "/" {
		if path == "" {
			path = signal.Path()
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		u.Path = path
	}
	return u.String(), nil
}

// Send implements Transport.
func (t *httpTransport) Send(msg *WireMessage, done func(error)) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		done(ErrShutdown)
		return
	}
	t.inflight.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.inflight.Done()
		done(t.post(msg))
	}()
}

// post performs one request. The client timeout bounds the whole exchange.
func (t *httpTransport) post(msg *WireMessage) error {
	body := msg.Body
	if t.compression.Enabled() {
		var err error
		if body, err = compression.Compress(body, t.compression); err != nil {
			return encodingError(err)
		}
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return &ExportError{Err: fmt.Errorf("failed to create request: %w", err), Type: ErrorTypeClientError}
	}
	req.Header = overlayHeaders(msg.ContentType, t.env, t.headers)
	if enc := t.compression.Type.ContentEncoding(); enc != "" {
		req.Header.Set("Content-Encoding", enc)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return noResponseError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_, _ = io.Copy(io.Discard, resp.Body)
	return statusError(resp.StatusCode, string(snippet))
}

// Ready implements Transport. HTTP has no setup phase.
func (t *httpTransport) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// Guarantee implements Transport.
func (t *httpTransport) Guarantee() Guarantee { return GuaranteeDelivery }

// Shutdown waits for in-flight requests, bounded by ctx, and closes idle
// connections.
func (t *httpTransport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		t.inflight.Wait()
		close(waited)
	}()
	var err error
	select {
	case <-waited:
	case <-ctx.Done():
		err = ctx.Err()
		t.log.Warn("shutdown deadline reached with requests in flight")
	}
	t.client.CloseIdleConnections()
	return err
}
