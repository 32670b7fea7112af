package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// LedgerServiceName is the health service name probed for the ledger API.
const LedgerServiceName = "giftledger.v1.Ledger"

// ReadinessProbe reports whether the ledger's backing stores answer.
type ReadinessProbe func(ctx context.Context) error

type HealthReporter struct {
	server   *health.Server
	probe    ReadinessProbe
	logger   *slog.Logger
	interval time.Duration
}

// RegisterHealth installs the standard health service on server. Both the
// overall status and LedgerServiceName start out SERVING.
func RegisterHealth(server grpc.ServiceRegistrar, probe ReadinessProbe, logger *slog.Logger, interval time.Duration) *HealthReporter {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	srv := health.NewServer()
	healthpb.RegisterHealthServer(server, srv)
	srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	srv.SetServingStatus(LedgerServiceName, healthpb.HealthCheckResponse_SERVING)
	return &HealthReporter{server: srv, probe: probe, logger: logger, interval: interval}
}

// Run re-probes readiness until ctx is done and flips the ledger service
// status to match.
func (h *HealthReporter) Run(ctx context.Context) {
	if h.probe == nil {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		h.Check(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if h.probe != nil {
		probeCtx, cancel := context.WithTimeout(ctx, h.interval/2)
		err := h.probe(probeCtx)
		cancel()
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			h.logger.WarnContext(ctx, "readiness probe failed",
				"module", "adapters.grpc",
				"layer", "adapter",
				"operation", "health_check",
				"outcome", "failure",
				"error", err,
			)
		}
	}
	h.server.SetServingStatus(LedgerServiceName, status)
	return status
}

// Shutdown marks every service NOT_SERVING so load balancers drain first.
func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}
