package otlpwire

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// CodecName is the content-subtype the codec answers to. Collectors expect
// "application/grpc+proto", so the codec borrows the standard name.
const CodecName = "proto"

// Codec is a gRPC codec for the schema's messages. It is installed per
// connection with grpc.ForceCodec / grpc.ForceServerCodec rather than
// registered globally, so other gRPC users in the process keep the stock
// protobuf codec.
type Codec struct{}

// Marshal implements encoding.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("otlpwire: cannot marshal %T", v)
	}
	return m.AppendProto(nil), nil
}

// Unmarshal implements encoding.Codec.
func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("otlpwire: cannot unmarshal into %T", v)
	}
	return m.UnmarshalProto(data)
}

// Name implements encoding.Codec.
func (Codec) Name() string { return CodecName }

// Full method names of the collector export RPCs.
const (
	TraceExportMethod   = "/opentelemetry.proto.collector.trace.v1.TraceService/Export"
	MetricsExportMethod = "/opentelemetry.proto.collector.metrics.v1.MetricsService/Export"
)

// TraceServiceClient is the client API of TraceService.
type TraceServiceClient interface {
	Export(ctx context.Context, in *ExportTraceServiceRequest, opts ...grpc.CallOption) (*ExportTraceServiceResponse, error)
}

// MetricsServiceClient is the client API of MetricsService.
type MetricsServiceClient interface {
	Export(ctx context.Context, in *ExportMetricsServiceRequest, opts ...grpc.CallOption) (*ExportMetricsServiceResponse, error)
}

type traceServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTraceServiceClient returns a TraceService stub on cc.
func NewTraceServiceClient(cc grpc.ClientConnInterface) TraceServiceClient {
	return &traceServiceClient{cc: cc}
}

func (c *traceServiceClient) Export(ctx context.Context, in *ExportTraceServiceRequest, opts ...grpc.CallOption) (*ExportTraceServiceResponse, error) {
	out := new(ExportTraceServiceResponse)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := c.cc.Invoke(ctx, TraceExportMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type metricsServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMetricsServiceClient returns a MetricsService stub on cc.
func NewMetricsServiceClient(cc grpc.ClientConnInterface) MetricsServiceClient {
	return &metricsServiceClient{cc: cc}
}

func (c *metricsServiceClient) Export(ctx context.Context, in *ExportMetricsServiceRequest, opts ...grpc.CallOption) (*ExportMetricsServiceResponse, error) {
	out := new(ExportMetricsServiceResponse)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := c.cc.Invoke(ctx, MetricsExportMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// TraceServiceServer is the server API of TraceService.
type TraceServiceServer interface {
	Export(context.Context, *ExportTraceServiceRequest) (*ExportTraceServiceResponse, error)
}

// MetricsServiceServer is the server API of MetricsService.
type MetricsServiceServer interface {
	Export(context.Context, *ExportMetricsServiceRequest) (*ExportMetricsServiceResponse, error)
}

// RegisterTraceServiceServer registers srv on s. The server must be built
// with grpc.ForceServerCodec(Codec{}).
func RegisterTraceServiceServer(s grpc.ServiceRegistrar, srv TraceServiceServer) {
	s.RegisterService(&TraceServiceDesc, srv)
}

// RegisterMetricsServiceServer registers srv on s. The server must be built
// with grpc.ForceServerCodec(Codec{}).
func RegisterMetricsServiceServer(s grpc.ServiceRegistrar, srv MetricsServiceServer) {
	s.RegisterService(&MetricsServiceDesc, srv)
}

func traceExportHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ExportTraceServiceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TraceServiceServer).Export(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TraceExportMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TraceServiceServer).Export(ctx, req.(*ExportTraceServiceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func metricsExportHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ExportMetricsServiceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MetricsServiceServer).Export(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MetricsExportMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MetricsServiceServer).Export(ctx, req.(*ExportMetricsServiceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// TraceServiceDesc describes opentelemetry.proto.collector.trace.v1.TraceService.
var TraceServiceDesc = grpc.ServiceDesc{
	ServiceName: "opentelemetry.proto.collector.trace.v1.TraceService",
	HandlerType: (*TraceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Export", Handler: traceExportHandler},
	},
	Metadata: "opentelemetry/proto/collector/trace/v1/trace_service.proto",
}

// MetricsServiceDesc describes opentelemetry.proto.collector.metrics.v1.MetricsService.
var MetricsServiceDesc = grpc.ServiceDesc{
	ServiceName: "opentelemetry.proto.collector.metrics.v1.MetricsService",
	HandlerType: (*MetricsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Export", Handler: metricsExportHandler},
	},
	Metadata: "opentelemetry/proto/collector/metrics/v1/metrics_service.proto",
}
