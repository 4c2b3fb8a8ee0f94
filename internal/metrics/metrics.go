package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"scamlens/internal/domain/models"
)

const namespace = "scamlens"

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Total number of completed scans",
		},
		[]string{"kind", "tier", "scoring_mode", "degraded"},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Scan duration in seconds, oracle calls included",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"kind"},
	)

	fraudScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fraud_score",
			Help:      "Distribution of computed fraud scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"kind"},
	)

	quotaDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_denied_total",
			Help:      "Scans rejected because the daily quota was exhausted",
		},
		[]string{"kind", "tier"},
	)

	oracleFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_failures_total",
			Help:      "Oracle calls that failed or timed out",
		},
		[]string{"provider", "kind"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "oracle_breaker_state",
			Help:      "Oracle circuit breaker state (0=closed, 0.5=half-open, 1=open)",
		},
		[]string{"provider"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveScan records a finished scan
func ObserveScan(kind models.ScanKind, tier models.Tier, mode models.ScoringMode, score models.FraudScore, degraded bool, took time.Duration) {
	scansTotal.WithLabelValues(string(kind), string(tier), string(mode), strconv.FormatBool(degraded)).Inc()
	scanDuration.WithLabelValues(string(kind)).Observe(took.Seconds())
	if v, ok := score.Value(); ok {
		fraudScores.WithLabelValues(string(kind)).Observe(float64(v))
	}
}

// ObserveQuotaDenied records a rejected scan
func ObserveQuotaDenied(kind models.ScanKind, tier models.Tier) {
	quotaDenied.WithLabelValues(string(kind), string(tier)).Inc()
}

// ObserveOracleFailure records a failed oracle call
func ObserveOracleFailure(provider string, kind models.ScanKind) {
	oracleFailures.WithLabelValues(provider, string(kind)).Inc()
}

// SetBreakerState publishes the breaker state for a provider
func SetBreakerState(provider string, value float64) {
	breakerState.WithLabelValues(provider).Set(value)
}

// ObserveHTTP records one HTTP request
func ObserveHTTP(method, route string, status int, took time.Duration) {
	if route == "" {
		route = "not_found"
	}
	s := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, s).Inc()
	httpRequestDuration.WithLabelValues(method, route, s).Observe(took.Seconds())
}
