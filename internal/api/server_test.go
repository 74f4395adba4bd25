package api

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/config"
)

type echoServer struct{}

func (echoServer) ExplainTrend(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return in, nil
}

func (echoServer) GetPeakSummaries(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"peakSummaries": []any{}})
}

func (echoServer) DetectPeaks(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.InvalidArgument, "keyword or series is required")
}

func (echoServer) CalculateIntelPeak(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return &structpb.Struct{}, nil
}

func (echoServer) ExtractExplanation(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return &structpb.Struct{}, nil
}

func (echoServer) RegenerateAll(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"count": 0})
}

func TestServerServesTrendEngine(t *testing.T) {
	server, err := NewServer(config.ServerConfig{Address: "127.0.0.1:0", GracefulTimeout: time.Second}, echoServer{})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	go func() { _ = server.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	conn, err := grpc.NewClient(server.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewTrendEngineClient(conn)
	req, _ := structpb.NewStruct(map[string]any{"keywords": []any{"budget"}})
	reply, err := client.Call(ctx, "ExplainTrend", req)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got := reply.Fields["keywords"].GetListValue().GetValues()[0].GetStringValue(); got != "budget" {
		t.Fatalf("unexpected echo: %v", reply)
	}

	if _, err := client.Call(ctx, "DetectPeaks", nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if _, err := client.Call(ctx, "NoSuchMethod", nil); status.Code(err) != codes.Unimplemented {
		t.Fatalf("expected unimplemented, got %v", err)
	}

	health, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: TrendEngineServiceName})
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("unexpected health status %v", health.GetStatus())
	}
	if server.GracefulTimeout() != time.Second {
		t.Fatalf("unexpected graceful timeout %v", server.GracefulTimeout())
	}
}
