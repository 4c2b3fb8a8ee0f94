package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scamlens/internal/api/handlers"
	"scamlens/internal/config"
	"scamlens/internal/domain/services"
	"scamlens/internal/domain/services/ai"
	"scamlens/internal/domain/services/policy"
	"scamlens/internal/infrastructure/memstore"
	"scamlens/internal/streaming"
	"scamlens/pkg/logger"
)

type stubOracle struct {
	reply string
	err   error
}

func (s stubOracle) Name() string { return "stub" }
func (s stubOracle) Close() error { return nil }
func (s stubOracle) Complete(context.Context, string) (string, error) {
	return s.reply, s.err
}

const stubReply = "1. Scam Likelihood: Yes\n2. Keywords or Phrases: urgent, prize\n3. Detailed Analysis: Classic advance-fee pattern."

func newTestServer(t *testing.T, oracle ai.Oracle, checks map[string]handlers.Pinger) *httptest.Server {
	t.Helper()
	log := logger.NewNop()
	users := memstore.NewUsers()
	flagged := memstore.NewFlaggedEmails()
	gate := policy.NewGate(policy.DefaultLimits(), users, policy.NewMemoryStore(), log)
	analyst := ai.NewAnalyst(oracle, time.Second, log)

	bus := streaming.NewEventBus(nil, nil, log)
	recent := streaming.NewRecent(10)
	feed, unsubscribe := bus.Subscribe(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		unsubscribe()
	})
	go recent.Run(ctx, feed)

	h := handlers.NewHandlers(handlers.Dependencies{
		Version:  "test",
		Scans:    services.NewScanService(users, gate, analyst, bus, log),
		Accounts: services.NewAccountService(users, flagged, log),
		Checks:   checks,
		EventBus: bus,
		Recent:   recent,
		Logger:   log,
	})
	srv := httptest.NewServer(NewRouter(config.Config{}, h, nil, log).Setup())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, clientID string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if clientID != "" {
		req.Header.Set("X-Client-ID", clientID)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp.StatusCode, out
}

func TestAnalyzeEmail_Anonymous(t *testing.T) {
	srv := newTestServer(t, stubOracle{reply: stubReply}, nil)

	status, body := do(t, srv, http.MethodPost, "/api/analyze-email", "c1", map[string]string{
		"text":  "URGENT: you won a prize, send money",
		"email": "claims@prize.click",
	})
	require.Equal(t, http.StatusOK, status)

	result := body["result"].(map[string]any)
	assert.Equal(t, "Yes", result["scamLikelihood"])
	assert.Equal(t, []any{"urgent", "prize"}, result["suspiciousKeywords"])
	assert.Equal(t, "rule_based", result["scoringMode"])
	// keywords 35 + invalid domain 25 + formatting 20
	assert.Equal(t, float64(80), result["fraudScore"])
}

func TestAnalyzeEmail_MissingFields(t *testing.T) {
	srv := newTestServer(t, stubOracle{reply: stubReply}, nil)

	status, body := do(t, srv, http.MethodPost, "/api/analyze-email", "c1", map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email text and sender email are required.", body["error"])
}

func TestAnalyzeEmail_QuotaExhausted(t *testing.T) {
	srv := newTestServer(t, stubOracle{reply: stubReply}, nil)
	req := map[string]string{"text": "hello", "email": "a@b.com"}

	for i := 0; i < 3; i++ {
		status, _ := do(t, srv, http.MethodPost, "/api/analyze-email", "c-quota", req)
		require.Equal(t, http.StatusOK, status, "scan %d", i+1)
	}
	status, body := do(t, srv, http.MethodPost, "/api/analyze-email", "c-quota", req)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "You have reached your daily limit of 3 scans.", body["error"])

	// another client is unaffected
	status, _ = do(t, srv, http.MethodPost, "/api/analyze-email", "c-other", req)
	assert.Equal(t, http.StatusOK, status)
}

func TestAnalyzeEmail_UnknownUser(t *testing.T) {
	srv := newTestServer(t, stubOracle{reply: stubReply}, nil)

	status, body := do(t, srv, http.MethodPost, "/api/analyze-email", "", map[string]string{
		"userId": "ghost", "text": "hello", "email": "a@b.com",
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found.", body["error"])
}

func TestAnalyzeEmail_OracleDownIsDegraded(t *testing.T) {
	srv := newTestServer(t, ai.NopOracle{}, nil)

	status, body := do(t, srv, http.MethodPost, "/api/analyze-email", "c1", map[string]string{"text": "hello", "email": "a@b.com"})
	require.Equal(t, http.StatusOK, status)

	result := body["result"].(map[string]any)
	assert.Equal(t, "Unknown", result["scamLikelihood"])
	assert.Equal(t, "Unavailable", result["fraudScore"])
	assert.Equal(t, true, result["degraded"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, stubOracle{reply: stubReply}, nil)

	status, body := do(t, srv, http.MethodGet, "/api/analyze-email", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "Method not allowed", body["error"])
}

func TestJobListingAndAddress(t *testing.T) {
	srv := newTestServer(t, stubOracle{reply: stubReply}, nil)

	status, body := do(t, srv, http.MethodPost, "/api/analyze-job-listing", "c1", map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Job listing text is required.", body["error"])

	status, body = do(t, srv, http.MethodPost, "/api/analyze-job-listing", "c1", map[string]string{"text": "Remote role, no experience required"})
	require.Equal(t, http.StatusOK, status)
	result := body["result"].(map[string]any)
	assert.Equal(t, true, result["isScam"])
	// oracle keywords 35 + risky phrase 20
	assert.Equal(t, float64(55), result["fraudScore"])

	status, body = do(t, srv, http.MethodPost, "/api/verify-address-domain", "c1", map[string]string{"address": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Address is required.", body["error"])

	status, body = do(t, srv, http.MethodPost, "/api/verify-address-domain", "c1", map[string]string{"address": "1 Main St"})
	require.Equal(t, http.StatusOK, status)
	result = body["result"].(map[string]any)
	assert.Equal(t, "Unable to determine.", result["addressValidity"])
	assert.Equal(t, float64(0), result["fraudScore"])
}

func TestCalculateFraudScoreAndRedFlags(t *testing.T) {
	srv := newTestServer(t, stubOracle{reply: stubReply}, nil)

	status, body := do(t, srv, http.MethodPost, "/api/calculate-fraud-score", "", map[string]any{
		"factors": map[string]any{
			"suspiciousKeywords": []string{"urgent"},
			"domainValidity":     "Invalid",
			"urgency":            true,
			"formattingIssues":   true,
		},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(100), body["score"])

	status, body = do(t, srv, http.MethodPost, "/api/calculate-fraud-score", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Factors are required.", body["error"])

	status, body = do(t, srv, http.MethodPost, "/api/detect-red-flags", "", map[string]string{
		"text": "URGENT: wire transfer needed, reply to John at gmail.com http://evil.test",
		"tier": "free",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["redFlags"], 2)
	assert.Equal(t, "Low", body["riskLevel"])

	// empty text is a clean report, not a validation error
	status, body = do(t, srv, http.MethodPost, "/api/detect-red-flags", "", map[string]string{"text": ""})
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["redFlags"])
	assert.Equal(t, "None", body["riskLevel"])
}

func TestQuotaEndpoint(t *testing.T) {
	srv := newTestServer(t, stubOracle{reply: stubReply}, nil)

	_, _ = do(t, srv, http.MethodPost, "/api/analyze-email", "c-q", map[string]string{"text": "hello", "email": "a@b.com"})
	status, body := do(t, srv, http.MethodGet, "/api/quota", "c-q", nil)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "anonymous", body["tier"])
	quotas := body["quotas"].([]any)
	require.Len(t, quotas, 3)
	email := quotas[0].(map[string]any)
	assert.Equal(t, "email", email["kind"])
	assert.Equal(t, float64(1), email["used"])
	assert.Equal(t, float64(2), email["remaining"])
}

func TestUsersCRUD(t *testing.T) {
	srv := newTestServer(t, stubOracle{reply: stubReply}, nil)

	status, body := do(t, srv, http.MethodPost, "/api/users", "", map[string]string{"id": "u1", "email": "u1@example.com"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "free", body["tier"])

	status, _ = do(t, srv, http.MethodPost, "/api/users", "", map[string]string{"id": "u1", "email": "u1@example.com"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = do(t, srv, http.MethodPut, "/api/users/u1", "", map[string]string{"tier": "paid"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "paid", body["tier"])

	// a paid user now gets AI-assisted scoring
	status, body = do(t, srv, http.MethodPost, "/api/analyze-email", "", map[string]string{"userId": "u1", "text": "hello", "email": "a@b.com"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ai_assisted", body["result"].(map[string]any)["scoringMode"])

	status, _ = do(t, srv, http.MethodDelete, "/api/users/u1", "", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = do(t, srv, http.MethodGet, "/api/users/u1", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found.", body["error"])
}

func TestFlaggedEmails(t *testing.T) {
	srv := newTestServer(t, stubOracle{reply: stubReply}, nil)

	status, body := do(t, srv, http.MethodPost, "/api/flagged-emails", "", map[string]string{
		"sender": "prize@win.xyz", "content": "urgent wire transfer",
	})
	require.Equal(t, http.StatusCreated, status)
	id := body["id"].(string)
	assert.Equal(t, "Low", body["riskLevel"])

	status, body = do(t, srv, http.MethodPut, "/api/flagged-emails/"+id, "", map[string]string{"notes": "reported"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "reported", body["notes"])

	status, _ = do(t, srv, http.MethodPut, "/api/flagged-emails/not-a-uuid", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, srv, http.MethodDelete, "/api/flagged-emails/"+id, "", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = do(t, srv, http.MethodDelete, "/api/flagged-emails/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, stubOracle{reply: stubReply}, map[string]handlers.Pinger{
		"redis":    handlers.PingFunc(func(context.Context) error { return nil }),
		"postgres": handlers.PingFunc(func(context.Context) error { return errors.New("refused") }),
	})

	status, body := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, body = do(t, srv, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["redis"])
	assert.Equal(t, "unhealthy: refused", checks["postgres"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, stubOracle{reply: stubReply}, nil)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRecentEvents(t *testing.T) {
	srv := newTestServer(t, stubOracle{reply: stubReply}, nil)

	status, _ := do(t, srv, http.MethodPost, "/api/analyze-email", "c1", map[string]string{"text": "Claim your prize", "email": "a@b.com"})
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, srv, http.MethodPost, "/api/verify-address-domain", "c1", map[string]string{"address": "1 Main St"})
	require.Equal(t, http.StatusOK, status)

	require.Eventually(t, func() bool {
		_, body := do(t, srv, http.MethodGet, "/api/stream/recent", "", nil)
		return body["count"] == float64(2)
	}, time.Second, 10*time.Millisecond)

	status, body := do(t, srv, http.MethodGet, "/api/stream/recent?kind=email", "", nil)
	require.Equal(t, http.StatusOK, status)
	events := body["events"].([]any)
	require.Len(t, events, 1)
	assert.Equal(t, "email", events[0].(map[string]any)["kind"])

	status, _ = do(t, srv, http.MethodGet, "/api/stream/recent?minScore=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
