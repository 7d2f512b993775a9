// Package grpchealth serves the standard gRPC health protocol backed by a store ping.
package grpchealth

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall "" entry.
const ServiceName = "rental.BookingService"

const (
	defaultProbeInterval = 5 * time.Second
	probeTimeout         = 2 * time.Second
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker keeps a health.Server in sync with store reachability.
type Checker struct {
	pinger   Pinger
	server   *health.Server
	interval time.Duration
	logger   *zap.Logger
}

// NewChecker builds a Checker; the initial status is NOT_SERVING until the first probe.
func NewChecker(pinger Pinger, interval time.Duration, logger *zap.Logger) *Checker {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	checker := &Checker{pinger: pinger, server: health.NewServer(), interval: interval, logger: logger}
	checker.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return checker
}

// Register attaches the health service to grpcServer.
func (checker *Checker) Register(grpcServer *grpc.Server) {
	healthpb.RegisterHealthServer(grpcServer, checker.server)
}

// Probe pings the store once and updates the reported status.
func (checker *Checker) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	status := healthpb.HealthCheckResponse_SERVING
	if err := checker.pinger.Ping(probeCtx); err != nil {
		checker.logger.Warn("store ping failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	checker.setStatus(status)
	return status
}

// Run probes until ctx is done, then marks the service as shutting down.
func (checker *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(checker.interval)
	defer ticker.Stop()
	checker.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			checker.server.Shutdown()
			return
		case <-ticker.C:
			checker.Probe(ctx)
		}
	}
}

func (checker *Checker) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	checker.server.SetServingStatus("", status)
	checker.server.SetServingStatus(ServiceName, status)
}
