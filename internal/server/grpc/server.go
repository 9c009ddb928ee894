package grpcserver

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rzbill/inferq/internal/runtime"
	"github.com/rzbill/inferq/pkg/log"
)

// Server owns the gRPC server instance and runtime.
type Server struct {
	rt       *runtime.Runtime
	grpc     *grpc.Server
	health   *health.Server
	lis      net.Listener
	logger   log.Logger
	interval time.Duration
}

// New constructs a gRPC server and registers the health service. Every
// service reports NOT_SERVING until the worker is running.
func New(rt *runtime.Runtime, logger log.Logger, opts ...grpc.ServerOption) *Server {
	s := &Server{
		rt:       rt,
		grpc:     grpc.NewServer(opts...),
		health:   health.NewServer(),
		logger:   logger.WithComponent("grpc"),
		interval: time.Second,
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s
}

// ListenAndServe binds to addr and serves until ctx is done. The health
// status follows the runtime while serving.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("grpc listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()

	tick := time.NewTicker(s.interval)
	defer tick.Stop()
	s.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpc.GracefulStop()
			return nil
		case err := <-errCh:
			return err
		case <-tick.C:
			s.refresh(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING. Later status updates are ignored.
func (s *Server) Shutdown() { s.health.Shutdown() }

// Close stops the server and closes the listener.
func (s *Server) Close() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	if s.lis != nil {
		_ = s.lis.Close()
	}
}
