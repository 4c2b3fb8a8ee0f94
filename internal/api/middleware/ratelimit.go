package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"scamlens/internal/config"
	"scamlens/pkg/logger"
)

// Limiter counts requests per key in fixed windows
type Limiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration, now time.Time) (bool, int64, time.Time, error)
}

// RateLimiter returns middleware that limits requests per client identity
func RateLimiter(l Limiter, cfg config.RateLimitConfig, log *logger.Logger) func(next http.Handler) http.Handler {
	log = log.WithComponent("rate-limit")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			allowed, remaining, resetTime, err := l.CheckRateLimit(
				r.Context(),
				ClientID(r.Context()),
				int64(cfg.Requests),
				cfg.Window,
				now,
			)
			if err != nil {
				log.Warn().Err(err).Msg("rate limit check failed, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(resetTime.Sub(now))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Rate limit exceeded."}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter rounds the wait up to whole seconds, never below one
func retryAfter(wait time.Duration) int {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
