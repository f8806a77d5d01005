package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// CheckoutServiceName is the health service name reported next to the
// overall ("") status.
const CheckoutServiceName = "market.checkout.v1.Checkout"

// HealthReporter mirrors the backend circuit state into the standard gRPC
// health service.
type HealthReporter struct {
	server  *health.Server
	checker HealthChecker
	logger  *zap.Logger
}

func NewHealthReporter(server *health.Server, checker HealthChecker, logger *zap.Logger) *HealthReporter {
	return &HealthReporter{server: server, checker: checker, logger: logger}
}

// Update sets the serving status once from the current checker result.
func (h *HealthReporter) Update() grpc_health_v1.HealthCheckResponse_ServingStatus {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if h.checker != nil && !h.checker.Healthy() {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	h.server.SetServingStatus(CheckoutServiceName, status)
	return status
}

// Run refreshes the status every interval until ctx is done, then marks
// every service as not serving.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := h.Update()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			if status := h.Update(); status != last {
				h.logger.Info("checkout health changed",
					zap.String("status", status.String()))
				last = status
			}
		}
	}
}
