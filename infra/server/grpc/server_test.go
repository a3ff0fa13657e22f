package grpc_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/streamcue/relay-service/config"
	grpcsrv "github.com/streamcue/relay-service/infra/server/grpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthReflectsConnectorState(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := grpcsrv.New(&config.Config{GRPC: config.GRPCConfig{Address: "127.0.0.1:0"}}, noop.NewTracerProvider(), logger)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	conn, err := grpc.NewClient(srv.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(""))

	srv.SetConnectorState("chat", false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(grpcsrv.ConnectorServicePrefix+"chat"))

	srv.SetConnectorState("chat", true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(grpcsrv.ConnectorServicePrefix+"chat"))
}
