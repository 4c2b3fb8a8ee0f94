package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"scamlens/internal/domain/models"
	"scamlens/internal/domain/services"
	"scamlens/internal/domain/services/policy"
	"scamlens/pkg/logger"
)

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"quota", &policy.QuotaExhaustedError{Limit: 5}, http.StatusForbidden, "You have reached your daily limit of 5 scans."},
		{"wrapped quota", fmt.Errorf("acquire: %w", &policy.QuotaExhaustedError{Limit: 30}), http.StatusForbidden, "You have reached your daily limit of 30 scans."},
		{"validation", &services.ValidationError{Message: "Address is required."}, http.StatusBadRequest, "Address is required."},
		{"unknown user", models.ErrUserNotFound, http.StatusNotFound, "User not found."},
		{"duplicate user", models.ErrUserExists, http.StatusConflict, "User already exists."},
		{"flagged missing", models.ErrFlaggedEmailNotFound, http.StatusNotFound, "Flagged email not found."},
		{"persistence", errors.New("connection refused"), http.StatusInternalServerError, "Internal server error."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			respondServiceError(w, logger.NewNop(), tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.message), w.Body.String())
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		var dst CreateUserRequest
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
		assert.False(t, decode(w, r, &dst))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), msgInvalidBody)
	})

	t.Run("validation uses json names", func(t *testing.T) {
		var dst CreateUserRequest
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","tier":"gold"}`))
		assert.False(t, decode(w, r, &dst))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "email must be a valid email address")
		assert.Contains(t, w.Body.String(), "tier must be one of: free basic paid")
	})

	t.Run("valid", func(t *testing.T) {
		var dst DetectRedFlagsRequest
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"hello","tier":"paid"}`))
		assert.True(t, decode(w, r, &dst))
		assert.Equal(t, "paid", dst.Tier)
	})
}
