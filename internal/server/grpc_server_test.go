package server_test

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oggyb/tembichat/internal/config"
	"github.com/oggyb/tembichat/internal/server"
)

type namedRegistrar string

func (n namedRegistrar) Name() string { return string(n) }
func (n namedRegistrar) Register(_, _ *gin.RouterGroup) {}

func TestGRPCHealth(t *testing.T) {
	cfg := &config.Config{}
	cfg.GRPC.Host = "127.0.0.1"
	cfg.GRPC.Port = "0"

	srv, err := server.NewGRPCServer(cfg, namedRegistrar("match"), namedRegistrar("chat"))
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()

	conn, err := grpc.NewClient(srv.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, svc := range []string{"", "tembichat.match", "tembichat.chat"} {
		res, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
		require.NoError(t, err, svc)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, res.GetStatus(), svc)
	}

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "tembichat.unknown"})
	assert.Error(t, err)

	srv.Shutdown(ctx)
}
