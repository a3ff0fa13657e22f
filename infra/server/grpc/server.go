// Package grpc runs the standard health service. Every source connector
// appears as its own service name so probes can tell which feed went dark.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/streamcue/relay-service/config"
	"github.com/streamcue/relay-service/infra/server/grpc/interceptors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ConnectorServicePrefix prefixes the per-connector health service names.
const ConnectorServicePrefix = "relay.source."

type Server struct {
	addr   string
	srv    *grpc.Server
	health *health.Server
	logger *slog.Logger

	lis net.Listener
}

func New(cfg *config.Config, tp trace.TracerProvider, logger *slog.Logger) *Server {
	l := logger.With("component", "grpc_server")
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler(otelgrpc.WithTracerProvider(tp))),
		grpc.ChainUnaryInterceptor(interceptors.Unary(l)...),
		grpc.ChainStreamInterceptor(interceptors.Stream(l)...),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &Server{addr: cfg.GRPC.Address, srv: srv, health: hs, logger: l}
}

// SetConnectorState reports a connector as SERVING while it is connected.
func (s *Server) SetConnectorState(name string, connected bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if connected {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ConnectorServicePrefix+name, st)
}

// Addr is the bound address once Start returned.
func (s *Server) Addr() string {
	if s.lis == nil {
		return s.addr
	}
	return s.lis.Addr().String()
}

func (s *Server) Start(context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", s.addr, err)
	}
	s.lis = lis

	go func() {
		if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("GRPC_SERVE_FAILED", "err", err)
		}
	}()
	s.logger.Info("GRPC_LISTENING", "addr", lis.Addr().String())
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.srv.Stop()
	}
	return nil
}
