package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/tembichat/internal/config"
)

// HealthServicePrefix namespaces per-registrar health entries.
const HealthServicePrefix = "tembichat."

// GRPCServer serves the standard health protocol and reflection so
// orchestrators and grpcurl can probe the process.
type GRPCServer struct {
	server *grpc.Server
	health *grpchealth.Server
	lis    net.Listener
}

// NewGRPCServer listens on the configured address and marks the overall
// service and one entry per registrar as SERVING.
func NewGRPCServer(cfg *config.Config, registrars ...Registrar) (*GRPCServer, error) {
	addr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	healthServer := grpchealth.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, r := range registrars {
		healthServer.SetServingStatus(HealthServicePrefix+r.Name(), healthpb.HealthCheckResponse_SERVING)
	}

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return &GRPCServer{server: grpcServer, health: healthServer, lis: lis}, nil
}

func (s *GRPCServer) Addr() string { return s.lis.Addr().String() }

// Serve blocks until the server stops.
func (s *GRPCServer) Serve() error {
	if err := s.server.Serve(s.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Shutdown flips health to NOT_SERVING and drains in-flight calls, forcing
// a hard stop when ctx ends first.
func (s *GRPCServer) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
	}
}
