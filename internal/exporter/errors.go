package exporter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorType is a low-cardinality classification of an export failure. It
// is used as a metric label and drives IsRetryable.
type ErrorType string

const (
	// ErrorTypeEncoding: a record could not be represented on the wire.
	ErrorTypeEncoding ErrorType = "encoding"
	// ErrorTypeConcurrencyLimit: admission rejected by the limiter.
	ErrorTypeConcurrencyLimit ErrorType = "concurrency_limit"
	// ErrorTypeShutdown: export attempted after, or discarded by, shutdown.
	ErrorTypeShutdown ErrorType = "shutdown"
	// ErrorTypeNetwork: no response at all (DNS, refused, reset, unavailable).
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeTimeout: the per-call deadline expired.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeServerError: HTTP 5xx or a server-side gRPC code.
	ErrorTypeServerError ErrorType = "server_error"
	// ErrorTypeClientError: HTTP 4xx or a client-side gRPC code.
	ErrorTypeClientError ErrorType = "client_error"
	// ErrorTypeAuth: HTTP 401/403, gRPC Unauthenticated/PermissionDenied.
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeRateLimit: HTTP 429, gRPC ResourceExhausted.
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeBeaconRejected: the beacon refused the payload at submission.
	ErrorTypeBeaconRejected ErrorType = "beacon_rejected"
	// ErrorTypeUnknown: anything else.
	ErrorTypeUnknown ErrorType = "unknown"
)

// ExportError is the single failure type delivered through a PendingExport.
type ExportError struct {
	// Err is the underlying error.
	Err error
	// Type is the classified error type.
	Type ErrorType
	// StatusCode is the HTTP status code, 0 when there was no HTTP response.
	StatusCode int
	// GRPCCode is the gRPC status code, codes.OK when not a gRPC failure.
	GRPCCode codes.Code
	// Message is the (bounded) response body or status message.
	Message string
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("export error: type=%s status=%d", e.Type, e.StatusCode)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ExportError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the same request may succeed later: the
// server failed or never answered. Everything the client caused, and every
// local rejection, is final.
func (e *ExportError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeServerError, ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err carries a retryable ExportError.
func IsRetryable(err error) bool {
	var ee *ExportError
	return errors.As(err, &ee) && ee.IsRetryable()
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var ee *ExportError
	if errors.As(err, &ee) {
		return ee.Type
	}
	return ErrorTypeUnknown
}

var (
	// ErrShutdown rejects exports issued after Shutdown.
	ErrShutdown = &ExportError{Err: errors.New("exporter is shut down"), Type: ErrorTypeShutdown}
	// ErrConcurrencyLimit rejects exports beyond the in-flight limit.
	ErrConcurrencyLimit = &ExportError{Err: errors.New("Concurrent export limit reached"), Type: ErrorTypeConcurrencyLimit}

	errQueueDiscarded = &ExportError{
		Err:  errors.New("export discarded: transport shut down before it was ready"),
		Type: ErrorTypeShutdown,
	}
)

func encodingError(err error) *ExportError {
	return &ExportError{Err: fmt.Errorf("encode: %w", err), Type: ErrorTypeEncoding}
}

// statusError classifies a non-2xx HTTP response.
func statusError(code int, body string) *ExportError {
	return &ExportError{
		Err:        fmt.Errorf("unexpected status code: %d", code),
		Type:       classifyHTTPStatusCode(code),
		StatusCode: code,
		Message:    body,
	}
}

// noResponseError classifies a request that never produced a response.
// It is always retryable.
func noResponseError(err error) *ExportError {
	t := ErrorTypeNetwork
	if isTimeoutError(err) {
		t = ErrorTypeTimeout
	}
	return &ExportError{Err: fmt.Errorf("failed to send request: %w", err), Type: t}
}

// grpcError classifies a failed RPC.
func grpcError(err error) *ExportError {
	st, _ := status.FromError(err)
	return &ExportError{
		Err:      err,
		Type:     classifyGRPCError(err),
		GRPCCode: st.Code(),
		Message:  st.Message(),
	}
}

// classifyGRPCError categorizes a gRPC error into an error type.
func classifyGRPCError(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.DeadlineExceeded:
			return ErrorTypeTimeout
		case codes.Unavailable:
			return ErrorTypeNetwork
		case codes.Unauthenticated, codes.PermissionDenied:
			return ErrorTypeAuth
		case codes.ResourceExhausted:
			return ErrorTypeRateLimit
		case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange,
			codes.NotFound, codes.AlreadyExists, codes.Unimplemented:
			return ErrorTypeClientError
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Aborted:
			return ErrorTypeServerError
		case codes.Canceled:
			return ErrorTypeUnknown
		}
	}
	switch {
	case isTimeoutError(err):
		return ErrorTypeTimeout
	case isNetworkError(err):
		return ErrorTypeNetwork
	}
	return ErrorTypeUnknown
}

// classifyHTTPStatusCode categorizes a non-2xx HTTP status code.
func classifyHTTPStatusCode(statusCode int) ErrorType {
	switch {
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorTypeClientError
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetworkError(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{"connection refused", "no such host", "network is unreachable", "connection reset", "broken pipe"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
