package healthcheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"scamlens/pkg/logger"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func status(t *testing.T, m *Monitor, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := m.Server().Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.Status
}

func TestMonitor_CheckOnce(t *testing.T) {
	var down bool
	checks := map[string]Pinger{
		"redis": pingFunc(func(context.Context) error {
			if down {
				return errors.New("connection refused")
			}
			return nil
		}),
	}
	m := Register(grpc.NewServer(), checks, time.Minute, logger.NewNop())

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, status(t, m, ""))

	down = true
	assert.False(t, m.CheckOnce(context.Background()))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(t, m, ""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(t, m, ServiceName))

	down = false
	assert.True(t, m.CheckOnce(context.Background()))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, status(t, m, ServiceName))
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	m := Register(grpc.NewServer(), nil, 10*time.Millisecond, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(t, m, ""))
}
