package server

import (
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// CycleService is the health service name that reports NOT_SERVING while a cycle runs
const CycleService = "autotrack.Cycle"

// GRPCServer exposes the standard gRPC health service
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func NewGRPCServer(logger *slog.Logger) *GRPCServer {
	if logger == nil {
		logger = slog.Default()
	}

	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(CycleService, healthpb.HealthCheckResponse_SERVING)

	return &GRPCServer{server: s, health: hs, logger: logger.With("component", "grpc")}
}

// Listen binds the port and serves until Stop
func (s *GRPCServer) Listen(port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

func (s *GRPCServer) Serve(lis net.Listener) error {
	s.logger.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// SetCycleRunning flips the cycle service to NOT_SERVING while a cycle is in progress
func (s *GRPCServer) SetCycleRunning(running bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if running {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(CycleService, status)
}

// Stop marks every service NOT_SERVING and stops gracefully
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
