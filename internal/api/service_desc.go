package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// TrendEngineServiceName is the fully-qualified gRPC service name.
const TrendEngineServiceName = "trendengine.v1.TrendEngine"

// TrendEngineServer is the gRPC surface. Every method exchanges google.protobuf.Struct
// messages whose fields mirror the JSON payloads of the HTTP routes.
type TrendEngineServer interface {
	ExplainTrend(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPeakSummaries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DetectPeaks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CalculateIntelPeak(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExtractExplanation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegenerateAll(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(TrendEngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call structMethod) grpc.MethodDesc {
	fullMethod := "/" + TrendEngineServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TrendEngineServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TrendEngineServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// TrendEngineServiceDesc describes the service for grpc.Server registration.
var TrendEngineServiceDesc = grpc.ServiceDesc{
	ServiceName: TrendEngineServiceName,
	HandlerType: (*TrendEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("ExplainTrend", TrendEngineServer.ExplainTrend),
		unaryMethod("GetPeakSummaries", TrendEngineServer.GetPeakSummaries),
		unaryMethod("DetectPeaks", TrendEngineServer.DetectPeaks),
		unaryMethod("CalculateIntelPeak", TrendEngineServer.CalculateIntelPeak),
		unaryMethod("ExtractExplanation", TrendEngineServer.ExtractExplanation),
		unaryMethod("RegenerateAll", TrendEngineServer.RegenerateAll),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "trendengine/v1/trend_engine.proto",
}

// RegisterTrendEngineServer attaches srv to s.
func RegisterTrendEngineServer(s grpc.ServiceRegistrar, srv TrendEngineServer) {
	s.RegisterService(&TrendEngineServiceDesc, srv)
}

// TrendEngineClient calls the service by method name.
type TrendEngineClient struct {
	cc grpc.ClientConnInterface
}

// NewTrendEngineClient wraps an established connection.
func NewTrendEngineClient(cc grpc.ClientConnInterface) *TrendEngineClient {
	return &TrendEngineClient{cc: cc}
}

// Call invokes method with req and returns the decoded reply.
func (c *TrendEngineClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+TrendEngineServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
