package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	worklogv1 "github.com/ogurasousui/worklog-review/internal/adapters/grpc/api/worklog/v1"
	"github.com/ogurasousui/worklog-review/internal/adapters/grpc/handler"
	"github.com/ogurasousui/worklog-review/internal/core/workentry"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server は gRPC サーバーのライフサイクルを管理します。
type Server struct {
	listenAddr string
	grpcServer *grpc.Server
	health     *health.Server
}

// New は指定されたアドレスで待ち受ける gRPC サーバーを構築します。
func New(listenAddr string, workEntries workentry.UseCase, logger *logrus.Entry, opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(handler.UnaryLoggingInterceptor(logger)),
	}, opts...)
	srv := grpc.NewServer(opts...)

	worklogv1.RegisterWorkEntryServiceServer(srv, handler.NewWorkEntryGrpcHandler(workEntries))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	healthSrv.SetServingStatus(worklogv1.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{
		listenAddr: listenAddr,
		grpcServer: srv,
		health:     healthSrv,
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると GracefulStop します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	return s.Serve(lis)
}

// Serve は与えられたリスナーで待ち受けます。
func (s *Server) Serve(lis net.Listener) error {
	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}
	return nil
}

// GracefulStop はヘルスチェックを NOT_SERVING にしてからサーバーを安全に停止します。
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
