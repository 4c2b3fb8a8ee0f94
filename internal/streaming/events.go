package streaming

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"scamlens/internal/domain/models"
)

// EventType identifies a scan event
type EventType string

const (
	EventTypeScanCompleted EventType = "scan.completed"
	EventTypeScanDenied    EventType = "scan.denied"
)

// ScanEvent describes a finished (or denied) scan. It never carries the
// submitted text.
type ScanEvent struct {
	ID           string             `json:"id"`
	Type         EventType          `json:"type"`
	Timestamp    time.Time          `json:"timestamp"`
	ScanID       uuid.UUID          `json:"scan_id"`
	Kind         models.ScanKind    `json:"kind"`
	Tier         models.Tier        `json:"tier"`
	Anonymous    bool               `json:"anonymous"`
	ScoringMode  models.ScoringMode `json:"scoring_mode,omitempty"`
	FraudScore   models.FraudScore  `json:"fraud_score"`
	RiskLevel    models.RiskLevel   `json:"risk_level,omitempty"`
	RedFlagCount int                `json:"red_flag_count"`
	Degraded     bool               `json:"degraded"`
	Provider     string             `json:"provider,omitempty"`
	Duration     time.Duration      `json:"duration_ns"`
}

// NewScanEvent creates an event stamped with a fresh ID
func NewScanEvent(t EventType, req models.ScanRequest) *ScanEvent {
	return &ScanEvent{
		ID:         uuid.New().String(),
		Type:       t,
		Timestamp:  time.Now().UTC(),
		ScanID:     req.ID,
		Kind:       req.Kind,
		Tier:       req.Tier,
		Anonymous:  req.UserID == "",
		FraudScore: models.UnavailableScore(),
	}
}

// Subscription filters events for a subscriber
type Subscription struct {
	Kinds        []models.ScanKind `json:"kinds,omitempty"`
	MinScore     int               `json:"min_score,omitempty"`
	OnlyDegraded bool              `json:"only_degraded,omitempty"`
}

// Matches reports whether the event passes the filter
func (s *Subscription) Matches(e *ScanEvent) bool {
	if len(s.Kinds) > 0 && !slices.Contains(s.Kinds, e.Kind) {
		return false
	}
	if s.MinScore > 0 {
		v, ok := e.FraudScore.Value()
		if !ok || v < s.MinScore {
			return false
		}
	}
	if s.OnlyDegraded && !e.Degraded {
		return false
	}
	return true
}
