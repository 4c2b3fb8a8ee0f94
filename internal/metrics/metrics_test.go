package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"scamlens/internal/domain/models"
)

func TestObserveScan(t *testing.T) {
	c := scansTotal.WithLabelValues("email", "free", "rule_based", "false")
	before := testutil.ToFloat64(c)

	ObserveScan(models.ScanKindEmail, models.TierFree, models.ScoringRuleBased, models.NewFraudScore(55), false, 20*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestObserveQuotaDenied(t *testing.T) {
	c := quotaDenied.WithLabelValues("job_listing", "anonymous")
	before := testutil.ToFloat64(c)

	ObserveQuotaDenied(models.ScanKindJobListing, models.TierAnonymous)
	ObserveQuotaDenied(models.ScanKindJobListing, models.TierAnonymous)

	assert.Equal(t, before+2, testutil.ToFloat64(c))
}

func TestObserveHTTP_EmptyRoute(t *testing.T) {
	c := httpRequestsTotal.WithLabelValues("GET", "not_found", "404")
	before := testutil.ToFloat64(c)

	ObserveHTTP("GET", "", 404, time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestSetBreakerState(t *testing.T) {
	SetBreakerState("openai", 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(breakerState.WithLabelValues("openai")))
}
