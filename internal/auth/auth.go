// Package auth attaches and verifies bearer or basic credentials on the
// shipper's outbound exports and on the sink's inbound endpoints.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var (
	errMissingHeader = errors.New("missing authorization header")
	errBadFormat     = errors.New("invalid authorization header format")
	errBadToken      = errors.New("invalid bearer token")
	errBadBasic      = errors.New("invalid basic auth credentials")
)

// ServerConfig holds authentication configuration for the sink.
type ServerConfig struct {
	// Enabled enables authentication for the server.
	Enabled bool
	// BearerToken is the expected bearer token.
	BearerToken string
	// BasicAuthUsername is the username for basic authentication.
	BasicAuthUsername string
	// BasicAuthPassword is the password for basic authentication.
	BasicAuthPassword string
}

// ClientConfig holds the credentials an exporter presents.
type ClientConfig struct {
	// BearerToken is sent as "Authorization: Bearer <token>".
	BearerToken string
	// BasicAuthUsername and BasicAuthPassword are sent as basic auth when
	// no bearer token is set.
	BasicAuthUsername string
	BasicAuthPassword string
}

// Enabled reports whether any credential is configured.
func (c ClientConfig) Enabled() bool {
	return c.BearerToken != "" || (c.BasicAuthUsername != "" && c.BasicAuthPassword != "")
}

// Authorization returns the Authorization header value, or "" when no
// credential is configured. A bearer token wins over basic auth.
func (c ClientConfig) Authorization() string {
	switch {
	case c.BearerToken != "":
		return "Bearer " + c.BearerToken
	case c.BasicAuthUsername != "" && c.BasicAuthPassword != "":
		return "Basic " + basicAuthEncoded(c.BasicAuthUsername, c.BasicAuthPassword)
	default:
		return ""
	}
}

// Verify checks an Authorization header value against the configuration.
func (c ServerConfig) Verify(header string) error {
	if !c.Enabled {
		return nil
	}
	switch {
	case c.BearerToken != "":
		if header == "" {
			return errMissingHeader
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return errBadFormat
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(c.BearerToken)) != 1 {
			return errBadToken
		}
	case c.BasicAuthUsername != "" && c.BasicAuthPassword != "":
		if header == "" {
			return errMissingHeader
		}
		expected := "Basic " + basicAuthEncoded(c.BasicAuthUsername, c.BasicAuthPassword)
		if subtle.ConstantTimeCompare([]byte(header), []byte(expected)) != 1 {
			return errBadBasic
		}
	}
	return nil
}

// GRPCServerInterceptor rejects unauthenticated unary calls with
// codes.Unauthenticated.
func GRPCServerInterceptor(cfg ServerConfig) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !cfg.Enabled {
			return handler(ctx, req)
		}
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		var header string
		if v := md.Get("authorization"); len(v) > 0 {
			header = v[0]
		}
		if err := cfg.Verify(header); err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(ctx, req)
	}
}

// HTTPMiddleware rejects unauthenticated requests with 401.
func HTTPMiddleware(cfg ServerConfig, next http.Handler) http.Handler {
	if !cfg.Enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Verify(r.Header.Get("Authorization")); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GRPCClientInterceptor appends the Authorization metadata to outgoing
// unary calls, keeping metadata the caller already attached.
func GRPCClientInterceptor(cfg ClientConfig) grpc.UnaryClientInterceptor {
	value := cfg.Authorization()
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if value != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", value)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// HTTPTransport wraps base so that every request carries the configured
// Authorization header, overriding any header set earlier.
func HTTPTransport(cfg ClientConfig, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{base: base, value: cfg.Authorization()}
}

type authTransport struct {
	base  http.RoundTripper
	value string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.value == "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", t.value)
	return t.base.RoundTrip(clone)
}

// CloseIdleConnections forwards to the wrapped transport so that
// http.Client.CloseIdleConnections reaches the connection pool.
func (t *authTransport) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	if c, ok := t.base.(closeIdler); ok {
		c.CloseIdleConnections()
	}
}

func basicAuthEncoded(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
