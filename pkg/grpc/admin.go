package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the storefront.
const ServiceName = "storefront"

// Pinger is a dependency whose reachability decides the serving status.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AdminServer exposes grpc.health.v1.Health and server reflection.
type AdminServer struct {
	server   *grpc.Server
	health   *health.Server
	deps     map[string]Pinger
	interval time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	done     chan struct{}
}

func NewAdminServer(deps map[string]Pinger, interval time.Duration, logger *zap.Logger) *AdminServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &AdminServer{
		server:   srv,
		health:   hs,
		deps:     deps,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// CheckDependencies pings every dependency and updates the serving status.
// It returns the first failure.
func (s *AdminServer) CheckDependencies(ctx context.Context) error {
	status := healthpb.HealthCheckResponse_SERVING
	var firstErr error
	for name, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			s.logger.Warn("Dependency check failed", zap.String("dependency", name), zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return firstErr
}

func (s *AdminServer) watch() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			_ = s.CheckDependencies(ctx)
			cancel()
		case <-s.done:
			return
		}
	}
}

// Serve blocks until the listener fails or Stop is called.
func (s *AdminServer) Serve(lis net.Listener) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = s.CheckDependencies(ctx)
	cancel()

	if s.interval > 0 {
		go s.watch()
	}

	s.logger.Info("gRPC admin server starting", zap.String("address", lis.Addr().String()))
	return s.server.Serve(lis)
}

func (s *AdminServer) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

func (s *AdminServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.health.Shutdown()
		s.server.GracefulStop()
	})
}
