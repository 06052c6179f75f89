package healthcheck

import (
	"context"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"net"
)

// ServiceName is the name reported next to the overall ("") status.
const ServiceName = "iris.PredictionService"

type Server struct {
	addr   string
	grpc   *grpc.Server
	health *health.Server
	logger *zap.Logger
}

func NewServer(addr string, logger *zap.Logger) *Server {
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		addr:   addr,
		grpc:   gs,
		health: hs,
		logger: logger.Named("grpc-health"),
	}
}

// Serve marks the service SERVING and blocks until lis is closed.
func (s *Server) Serve(lis net.Listener) error {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	s.logger.Info("grpc health server listening", zap.String("addr", lis.Addr().String()))

	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return errors.Wrap(err, "grpc.Serve")
	}

	return nil
}

var ErrNoAddress = errors.New("grpc health server address is empty")

func (s *Server) Run(ctx context.Context) error {
	if s.addr == "" {
		return ErrNoAddress
	}

	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrap(err, "net.Listen")
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(lis)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown reports NOT_SERVING and stops accepting calls.
func (s *Server) Shutdown(_ context.Context) error {
	s.health.Shutdown()
	s.grpc.GracefulStop()
	return nil
}
