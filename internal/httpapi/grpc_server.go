package httpapi

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"vpfs.org/internal/obs"
)

type readinessChecker interface {
	Check(ctx context.Context) error
}

// HealthServer publishes the readiness of the API over the standard gRPC
// health protocol. The overall ("") and serviceName entries track the
// database ping.
type HealthServer struct {
	srv       *health.Server
	readiness readinessChecker
	serving   bool
}

// NewHealthServer starts in NOT_SERVING until the first Refresh succeeds.
func NewHealthServer(r readinessChecker) *HealthServer {
	h := &HealthServer{srv: health.NewServer(), readiness: r}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register attaches the health service to s.
func (h *HealthServer) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Refresh probes readiness once and updates the published status.
func (h *HealthServer) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := h.readiness.Check(ctx)
	if err != nil {
		if h.serving {
			obs.Logger().WithField("error", err.Error()).Warn("readiness check failed")
		}
		h.serving = false
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return err
	}
	if !h.serving {
		obs.Logger().WithFields(logrus.Fields{"service": serviceName}).Info("serving")
	}
	h.serving = true
	h.set(healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Run refreshes every interval until ctx ends.
func (h *HealthServer) Run(ctx context.Context, interval time.Duration) {
	_ = h.Refresh(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = h.Refresh(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING ahead of a graceful stop.
func (h *HealthServer) Shutdown() {
	h.srv.Shutdown()
}

func (h *HealthServer) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(serviceName, status)
}
