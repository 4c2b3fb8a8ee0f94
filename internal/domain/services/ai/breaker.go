package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"scamlens/internal/config"
	"scamlens/internal/metrics"
	"scamlens/pkg/logger"
)

// BreakerOracle stops calling a failing provider for a while so scans degrade
// immediately instead of waiting out the timeout on every request.
type BreakerOracle struct {
	next   Oracle
	cb     *gobreaker.CircuitBreaker
	logger *logger.Logger
}

// NewBreakerOracle wraps next with a circuit breaker
func NewBreakerOracle(next Oracle, cfg config.BreakerConfig, log *logger.Logger) *BreakerOracle {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	b := &BreakerOracle{
		next:   next,
		logger: log.WithComponent("oracle-breaker"),
	}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		// a caller giving up is not the provider's fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("oracle circuit breaker state changed")
			metrics.SetBreakerState(name, breakerStateValue(to))
		},
	})
	metrics.SetBreakerState(next.Name(), 0)
	return b
}

// Name identifies the wrapped provider
func (b *BreakerOracle) Name() string { return b.next.Name() }

// Complete calls the provider unless the breaker is open
func (b *BreakerOracle) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
		}
		return "", err
	}
	return out.(string), nil
}

// State reports the breaker state
func (b *BreakerOracle) State() gobreaker.State { return b.cb.State() }

// Close closes the wrapped provider
func (b *BreakerOracle) Close() error { return b.next.Close() }

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 0.5
	case gobreaker.StateOpen:
		return 1
	default:
		return -1
	}
}
