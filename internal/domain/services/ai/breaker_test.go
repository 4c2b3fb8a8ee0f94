package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scamlens/internal/config"
	"scamlens/pkg/logger"
)

func TestBreakerOracle_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &fakeOracle{err: errors.New("503 from provider")}
	b := NewBreakerOracle(inner, config.BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute}, logger.NewNop())

	for i := 0; i < 2; i++ {
		_, err := b.Complete(context.Background(), "p")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrOracleUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	assert.Len(t, inner.prompts, 2, "open breaker must not reach the provider")
}

func TestBreakerOracle_PassesThrough(t *testing.T) {
	inner := &fakeOracle{reply: "42"}
	b := NewBreakerOracle(inner, config.BreakerConfig{}, logger.NewNop())

	out, err := b.Complete(context.Background(), "score this")
	require.NoError(t, err)
	assert.Equal(t, "42", out)
	assert.Equal(t, "fake", b.Name())
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerOracle_CanceledCallerDoesNotTrip(t *testing.T) {
	inner := &fakeOracle{delay: time.Second}
	b := NewBreakerOracle(inner, config.BreakerConfig{FailureThreshold: 1}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Complete(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
