package handlers

import (
	"net/http"
	"time"

	"scamlens/internal/api/middleware"
	"scamlens/internal/domain/models"
	"scamlens/internal/domain/services"
	"scamlens/pkg/logger"
)

// ScansHandler serves the scan endpoints
type ScansHandler struct {
	scans  *services.ScanService
	logger *logger.Logger
}

// NewScansHandler creates a new ScansHandler
func NewScansHandler(scans *services.ScanService, log *logger.Logger) *ScansHandler {
	return &ScansHandler{
		scans:  scans,
		logger: log.WithComponent("scans-handler"),
	}
}

// AnalyzeEmailRequest is the body of POST /api/analyze-email
type AnalyzeEmailRequest struct {
	UserID string `json:"userId,omitempty" validate:"max=128"`
	Text   string `json:"text" validate:"max=50000"`
	Email  string `json:"email" validate:"max=320"`
}

// AnalyzeJobListingRequest is the body of POST /api/analyze-job-listing
type AnalyzeJobListingRequest struct {
	UserID string `json:"userId,omitempty" validate:"max=128"`
	Text   string `json:"text" validate:"max=50000"`
}

// VerifyAddressRequest is the body of POST /api/verify-address-domain
type VerifyAddressRequest struct {
	UserID  string `json:"userId,omitempty" validate:"max=128"`
	Address string `json:"address" validate:"max=1000"`
	Domain  string `json:"domain,omitempty" validate:"max=253"`
}

// FraudScoreRequest is the body of POST /api/calculate-fraud-score
type FraudScoreRequest struct {
	Factors *models.FactorSet `json:"factors"`
}

// DetectRedFlagsRequest is the body of POST /api/detect-red-flags
type DetectRedFlagsRequest struct {
	Text string `json:"text" validate:"max=50000"`
	Tier string `json:"tier,omitempty" validate:"omitempty,oneof=anonymous free basic paid"`
}

// AnalyzeEmail handles POST /api/analyze-email
func (h *ScansHandler) AnalyzeEmail(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeEmailRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.scans.AnalyzeEmail(r.Context(), models.ScanRequest{
		UserID:           req.UserID,
		ClientID:         middleware.ClientID(r.Context()),
		SubjectText:      req.Text,
		SenderIdentifier: req.Email,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"result": result})
}

// AnalyzeJobListing handles POST /api/analyze-job-listing
func (h *ScansHandler) AnalyzeJobListing(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeJobListingRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.scans.AnalyzeJobListing(r.Context(), models.ScanRequest{
		UserID:      req.UserID,
		ClientID:    middleware.ClientID(r.Context()),
		SubjectText: req.Text,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"result": result})
}

// VerifyAddressDomain handles POST /api/verify-address-domain
func (h *ScansHandler) VerifyAddressDomain(w http.ResponseWriter, r *http.Request) {
	var req VerifyAddressRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.scans.VerifyAddressDomain(r.Context(), models.ScanRequest{
		UserID:           req.UserID,
		ClientID:         middleware.ClientID(r.Context()),
		SubjectText:      req.Address,
		SenderIdentifier: req.Domain,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"result": result})
}

// CalculateFraudScore handles POST /api/calculate-fraud-score
func (h *ScansHandler) CalculateFraudScore(w http.ResponseWriter, r *http.Request) {
	var req FraudScoreRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Factors == nil {
		respondError(w, http.StatusBadRequest, "Factors are required.")
		return
	}
	score, parts := h.scans.CalculateFraudScore(*req.Factors)
	respondJSON(w, http.StatusOK, map[string]any{
		"score":         score,
		"contributions": parts,
	})
}

// DetectRedFlags handles POST /api/detect-red-flags
func (h *ScansHandler) DetectRedFlags(w http.ResponseWriter, r *http.Request) {
	var req DetectRedFlagsRequest
	if !decode(w, r, &req) {
		return
	}
	tier, _ := models.ParseTier(req.Tier)
	respondJSON(w, http.StatusOK, h.scans.DetectRedFlags(req.Text, tier))
}

// QuotaView is one scan kind's window as shown to clients
type QuotaView struct {
	Kind       models.ScanKind `json:"kind"`
	DailyLimit int             `json:"dailyLimit"`
	Used       int             `json:"used"`
	Remaining  int             `json:"remaining"`
	ResetAt    time.Time       `json:"resetAt"`
}

// Quota handles GET /api/quota?userId=
func (h *ScansHandler) Quota(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	quotas, err := h.scans.QuotaStatus(r.Context(), userID, middleware.ClientID(r.Context()))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	tier := models.TierAnonymous
	views := make([]QuotaView, 0, len(quotas))
	for _, q := range quotas {
		tier = q.Tier
		views = append(views, QuotaView{
			Kind:       q.Kind,
			DailyLimit: q.DailyLimit,
			Used:       q.Used,
			Remaining:  q.Remaining(),
			ResetAt:    q.ResetAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tier":   tier,
		"quotas": views,
	})
}
