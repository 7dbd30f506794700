package receiver

import (
	"context"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	grpcstats "google.golang.org/grpc/stats"

	"github.com/szibis/otlp-shipper/internal/auth"
	_ "github.com/szibis/otlp-shipper/internal/compression" // registers the zstd gRPC compressor
	"github.com/szibis/otlp-shipper/internal/logging"
	"github.com/szibis/otlp-shipper/internal/otlpwire"
	tlspkg "github.com/szibis/otlp-shipper/internal/tls"
)

// DefaultMaxRecvMsgSize bounds a single gRPC export request.
const DefaultMaxRecvMsgSize = 64 << 20

// GRPCConfig holds the gRPC receiver configuration.
type GRPCConfig struct {
	// Addr is the listen address.
	Addr string
	// TLS configuration for secure connections.
	TLS tlspkg.ServerConfig
	// Auth configuration for authentication.
	Auth auth.ServerConfig
	// MaxRecvMsgSize overrides DefaultMaxRecvMsgSize.
	MaxRecvMsgSize int
}

// GRPCReceiver serves TraceService/Export and MetricsService/Export.
type GRPCReceiver struct {
	server   *grpc.Server
	consumer Consumer
	addr     string
	log      logging.Component

	mu  sync.Mutex
	lis net.Listener
}

// NewGRPC creates a gRPC receiver delivering to c.
func NewGRPC(cfg GRPCConfig, c Consumer) (*GRPCReceiver, error) {
	maxMsgSize := cfg.MaxRecvMsgSize
	if maxMsgSize <= 0 {
		maxMsgSize = DefaultMaxRecvMsgSize
	}
	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(otlpwire.Codec{}),
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.StatsHandler(payloadRecorder{consumer: c}),
	}

	creds, err := tlspkg.ServerCredentials(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("grpc receiver TLS: %w", err)
	}
	if creds != nil {
		opts = append(opts, grpc.Creds(creds))
	}
	if cfg.Auth.Enabled {
		opts = append(opts, grpc.UnaryInterceptor(auth.GRPCServerInterceptor(cfg.Auth)))
	}

	r := &GRPCReceiver{
		server:   grpc.NewServer(opts...),
		consumer: c,
		addr:     cfg.Addr,
		log:      logging.Named("receiver").With("protocol", "grpc"),
	}
	otlpwire.RegisterTraceServiceServer(r.server, traceService{r})
	otlpwire.RegisterMetricsServiceServer(r.server, metricsService{r})
	return r, nil
}

type traceService struct{ r *GRPCReceiver }

func (s traceService) Export(_ context.Context, req *otlpwire.ExportTraceServiceRequest) (*otlpwire.ExportTraceServiceResponse, error) {
	recordTraces("grpc", req)
	s.r.consumer.ConsumeTraces(req)
	return &otlpwire.ExportTraceServiceResponse{}, nil
}

type metricsService struct{ r *GRPCReceiver }

func (s metricsService) Export(_ context.Context, req *otlpwire.ExportMetricsServiceRequest) (*otlpwire.ExportMetricsServiceResponse, error) {
	recordMetrics("grpc", req)
	s.r.consumer.ConsumeMetrics(req)
	return &otlpwire.ExportMetricsServiceResponse{}, nil
}

// Start listens on the configured address and serves until Stop.
func (r *GRPCReceiver) Start() error {
	lis, err := net.Listen("tcp", r.addr)
	if err != nil {
		return err
	}
	return r.Serve(lis)
}

// Serve serves on lis until Stop.
func (r *GRPCReceiver) Serve(lis net.Listener) error {
	r.mu.Lock()
	r.lis = lis
	r.mu.Unlock()
	r.log.Info("gRPC receiver started", logging.F("addr", lis.Addr().String()))
	return r.server.Serve(lis)
}

// Addr returns the bound address once serving, else the configured one.
func (r *GRPCReceiver) Addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lis != nil {
		return r.lis.Addr().String()
	}
	return r.addr
}

// Stop gracefully stops the gRPC server.
func (r *GRPCReceiver) Stop() {
	r.server.GracefulStop()
}

// HealthCheck returns nil if the receiver port is accepting connections.
func (r *GRPCReceiver) HealthCheck() error {
	return healthCheck("gRPC", r.Addr())
}

// payloadRecorder reports the size of each inbound message on the wire and
// after decompression.
type payloadRecorder struct {
	consumer Consumer
}

func (p payloadRecorder) TagRPC(ctx context.Context, _ *grpcstats.RPCTagInfo) context.Context {
	return ctx
}

func (p payloadRecorder) HandleRPC(_ context.Context, s grpcstats.RPCStats) {
	if in, ok := s.(*grpcstats.InPayload); ok {
		p.consumer.RecordRequest("grpc", "native", in.WireLength, in.Length)
	}
}

func (p payloadRecorder) TagConn(ctx context.Context, _ *grpcstats.ConnTagInfo) context.Context {
	return ctx
}

func (p payloadRecorder) HandleConn(context.Context, grpcstats.ConnStats) {}
