package healthcheck

import (
	"context"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"scamlens/pkg/logger"
)

// ServiceName is the service reported alongside the overall ("") status
const ServiceName = "scamlens.v1.ScanService"

// Pinger is a dependency probed by the monitor
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor keeps the gRPC health status in line with its dependencies
type Monitor struct {
	server   *health.Server
	checks   map[string]Pinger
	interval time.Duration
	logger   *logger.Logger
}

// Register registers the gRPC health check service and returns the monitor
// driving it. Call Run to start probing.
func Register(grpcServer *grpc.Server, checks map[string]Pinger, interval time.Duration, log *logger.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	m := &Monitor{
		server:   health.NewServer(),
		checks:   checks,
		interval: interval,
		logger:   log.WithComponent("grpc-health"),
	}
	m.set(grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, m.server)
	return m
}

// Run probes the dependencies every interval until ctx is done, then
// marks the service as not serving.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			m.server.Shutdown()
			return
		case <-ticker.C:
			m.CheckOnce(ctx)
		}
	}
}

// CheckOnce probes every dependency and updates the serving status.
// It reports whether all of them are healthy.
func (m *Monitor) CheckOnce(ctx context.Context) bool {
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	for _, name := range names {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := m.checks[name].Ping(pctx)
		cancel()
		if err != nil {
			m.logger.Warn().Err(err).Str("dependency", name).Msg("health probe failed")
			healthy = false
		}
	}

	if healthy {
		m.set(grpc_health_v1.HealthCheckResponse_SERVING)
	} else {
		m.set(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	return healthy
}

// Server exposes the underlying health server
func (m *Monitor) Server() *health.Server { return m.server }

func (m *Monitor) set(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	m.server.SetServingStatus("", status)
	m.server.SetServingStatus(ServiceName, status)
}
