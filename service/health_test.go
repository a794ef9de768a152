package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func checkHealth(t *testing.T, server *health.Server, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := server.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.Status
}

func TestHealthReporter(t *testing.T) {
	server := health.NewServer()
	r := NewHealthReporter(server)

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, checkHealth(t, server, ""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, checkHealth(t, server, HealthServiceName))

	r.SetReady(true)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, checkHealth(t, server, HealthServiceName))

	r.SetReady(false)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, checkHealth(t, server, HealthServiceName))

	r.Shutdown()
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, checkHealth(t, server, ""))
}

func TestNewHealthReporter_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "service.health.go: health server is required", func() {
		NewHealthReporter(nil)
	})
}
