package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Server hosts the auth gRPC API and its health service.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
}

func NewServer(auth AuthCore) *Server {
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(recoverInterceptor, logInterceptor))
	healthServer := health.NewServer()

	grpcServer.RegisterService(&ServiceDesc, NewService(auth))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{grpcServer: grpcServer, health: healthServer}
}

// Serve blocks until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	slog.Info("grpc server listening", "addr", lis.Addr().String())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.Stop()
}

func logInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)

	level := slog.LevelInfo
	if code == codes.Internal {
		level = slog.LevelError
	}
	slog.Log(ctx, level, "grpc request",
		"method", info.FullMethod,
		"code", code.String(),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return resp, err
}

func recoverInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("grpc handler panic", "method", info.FullMethod, "panic", fmt.Sprint(r))
			sentry.CurrentHub().Recover(r)
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}
