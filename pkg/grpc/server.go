package grpc

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Server 包裝 grpc.Server，預設註冊 health service 與 logging 攔截器
type Server struct {
	addr   string
	lis    net.Listener
	health *health.Server
	Server *grpc.Server
}

// NewServer 建立 gRPC Server
//
// 參數:
//
//	addr: 監聽地址 (e.g., ":50051")
//	log: 用於記錄每個請求的 logger
//	opts: 額外的 grpc.ServerOption
func NewServer(addr string, log zerolog.Logger, opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(LoggingInterceptor(log))}, opts...)
	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	return &Server{
		addr:   addr,
		health: hs,
		Server: s,
	}
}

// Start 開始監聽並阻塞直到 Server 停止
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve 使用既有的 listener (測試時可傳入 bufconn)
func (s *Server) Serve(lis net.Listener) error {
	s.lis = lis
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return s.Server.Serve(lis)
}

// Stop 優雅關閉：先將 health 標記為 NOT_SERVING，再等待進行中的請求結束
func (s *Server) Stop() {
	s.health.Shutdown()
	s.Server.GracefulStop()
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// LoggingInterceptor 記錄每個 unary 請求的方法、耗時與狀態碼
func LoggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		ev := log.Info()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("latency", time.Since(start)).
			Msg("grpc request")
		return resp, err
	}
}
