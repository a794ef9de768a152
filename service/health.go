package service

import (
	"myinstanceserver/helpers"

	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the gRPC health service reporting instance readiness. The empty service
// name reports process liveness.
const HealthServiceName = "instanceserver"

// HealthReporter publishes instance readiness to the gRPC health service.
type HealthReporter struct {
	server *health.Server
}

// NewHealthReporter marks the process serving and the instance not ready.
func NewHealthReporter(server *health.Server) *HealthReporter {
	r := &HealthReporter{server: helpers.NilPanic(server, "service.health.go: health server is required")}
	r.server.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	r.server.SetServingStatus(HealthServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return r
}

// SetReady reports the instance as ready (SERVING) or not (NOT_SERVING).
func (r *HealthReporter) SetReady(ready bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if ready {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	r.server.SetServingStatus(HealthServiceName, status)
}

// Shutdown marks every service NOT_SERVING for good.
func (r *HealthReporter) Shutdown() {
	r.server.Shutdown()
}
