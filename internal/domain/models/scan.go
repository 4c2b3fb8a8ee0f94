package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScanKind is the category of submitted content; each kind has its own daily quota
type ScanKind string

const (
	ScanKindEmail         ScanKind = "email"
	ScanKindJobListing    ScanKind = "job_listing"
	ScanKindAddressDomain ScanKind = "address_domain"
)

// AllScanKinds lists every kind in display order
var AllScanKinds = []ScanKind{ScanKindEmail, ScanKindJobListing, ScanKindAddressDomain}

// Valid reports whether k is a known scan kind
func (k ScanKind) Valid() bool {
	switch k {
	case ScanKindEmail, ScanKindJobListing, ScanKindAddressDomain:
		return true
	}
	return false
}

// Tier is the subscription level of the submitter
type Tier string

const (
	TierAnonymous Tier = "anonymous"
	TierFree      Tier = "free"
	TierPaid      Tier = "paid"
)

// ParseTier maps a stored tier string to a Tier. "basic" is the tier
// assigned to new sign-ups and behaves like free.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid":
		return TierPaid, true
	case "free", "basic":
		return TierFree, true
	case "anonymous", "":
		return TierAnonymous, true
	}
	return TierFree, false
}

// ScanRequest is a single submission. For address/domain scans SubjectText
// holds the address and SenderIdentifier the domain.
type ScanRequest struct {
	ID               uuid.UUID `json:"id"`
	Kind             ScanKind  `json:"kind"`
	SubjectText      string    `json:"subject_text"`
	SenderIdentifier string    `json:"sender_identifier,omitempty"`
	UserID           string    `json:"user_id,omitempty"`
	ClientID         string    `json:"client_id,omitempty"`
	Tier             Tier      `json:"tier"`
}

// DomainValidity is the verdict on a sender or submitted domain
type DomainValidity string

const (
	DomainValid   DomainValidity = "Valid"
	DomainInvalid DomainValidity = "Invalid"
	DomainUnknown DomainValidity = "Unknown"
)

// AddressFormat is the verdict on a submitted postal address
type AddressFormat string

const (
	AddressValid   AddressFormat = "Valid"
	AddressInvalid AddressFormat = "Invalid"
)

// FactorSet holds the signals fed into the fraud score aggregator.
// Zero values are neutral and contribute nothing.
type FactorSet struct {
	SuspiciousKeywords   []string       `json:"suspiciousKeywords,omitempty"`
	DomainValidity       DomainValidity `json:"domainValidity,omitempty"`
	SenderDomain         string         `json:"senderDomain,omitempty"`
	Urgency              bool           `json:"urgency,omitempty"`
	FormattingIssues     bool           `json:"formattingIssues,omitempty"`
	AddressFormat        AddressFormat  `json:"addressFormat,omitempty"`
	JobDescriptionIssues bool           `json:"jobDescriptionIssues,omitempty"`
}

// RiskLevel is the coarse bucket derived from the number of red flags
type RiskLevel string

const (
	RiskLevelNone   RiskLevel = "None"
	RiskLevelLow    RiskLevel = "Low"
	RiskLevelMedium RiskLevel = "Medium"
	RiskLevelHigh   RiskLevel = "High"
)

// RiskLevelFor buckets a red flag count: 0 None, 1-2 Low, 3 Medium, 4+ High
func RiskLevelFor(flags int) RiskLevel {
	switch {
	case flags >= 4:
		return RiskLevelHigh
	case flags == 3:
		return RiskLevelMedium
	case flags > 0:
		return RiskLevelLow
	default:
		return RiskLevelNone
	}
}

// RedFlagReport is the outcome of the rule-based detector
type RedFlagReport struct {
	RedFlags  []string  `json:"redFlags"`
	RiskLevel RiskLevel `json:"riskLevel"`
}

// NewRedFlagReport builds a report whose risk level follows from the flag count
func NewRedFlagReport(flags []string) RedFlagReport {
	if flags == nil {
		flags = []string{}
	}
	return RedFlagReport{RedFlags: flags, RiskLevel: RiskLevelFor(len(flags))}
}

// FraudScoreUnavailable is the JSON form of a score that could not be computed
const FraudScoreUnavailable = "Unavailable"

// FraudScore is an integer in [0,100] or the Unavailable sentinel
type FraudScore struct {
	value     int
	available bool
}

// NewFraudScore returns an available score clamped to [0,100]
func NewFraudScore(v int) FraudScore {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return FraudScore{value: v, available: true}
}

// UnavailableScore returns the sentinel used when the oracle could not score
func UnavailableScore() FraudScore {
	return FraudScore{}
}

// Value returns the score and whether it is available
func (s FraudScore) Value() (int, bool) {
	return s.value, s.available
}

// Available reports whether the score was computed
func (s FraudScore) Available() bool {
	return s.available
}

func (s FraudScore) String() string {
	if !s.available {
		return FraudScoreUnavailable
	}
	return strconv.Itoa(s.value)
}

// MarshalJSON encodes an available score as a number, otherwise "Unavailable"
func (s FraudScore) MarshalJSON() ([]byte, error) {
	if !s.available {
		return json.Marshal(FraudScoreUnavailable)
	}
	return []byte(strconv.Itoa(s.value)), nil
}

// UnmarshalJSON accepts a number, "Unavailable" or the legacy "N/A"
func (s *FraudScore) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		switch str {
		case FraudScoreUnavailable, "N/A", "":
			*s = UnavailableScore()
			return nil
		}
		return fmt.Errorf("invalid fraud score %q", str)
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid fraud score: %w", err)
	}
	*s = NewFraudScore(v)
	return nil
}

// ScoringMode selects how the fraud score is produced
type ScoringMode string

const (
	ScoringRuleBased  ScoringMode = "rule_based"
	ScoringAIAssisted ScoringMode = "ai_assisted"
)

// ScanQuota is the daily usage window for one identity and scan kind
type ScanQuota struct {
	Tier       Tier      `json:"tier"`
	Kind       ScanKind  `json:"kind"`
	DailyLimit int       `json:"dailyLimit"`
	Used       int       `json:"used"`
	ResetAt    time.Time `json:"resetAt"`
}

// Remaining returns how many scans are left in the window
func (q ScanQuota) Remaining() int {
	if r := q.DailyLimit - q.Used; r > 0 {
		return r
	}
	return 0
}

// Exhausted reports whether no scans are left
func (q ScanQuota) Exhausted() bool {
	return q.Used >= q.DailyLimit
}

// NextResetAt returns the first UTC midnight strictly after now
func NextResetAt(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day()+1, 0, 0, 0, 0, time.UTC)
}

// EmailAnalysis is the result of an email scan
type EmailAnalysis struct {
	ScanID             uuid.UUID     `json:"scanId"`
	ScamLikelihood     string        `json:"scamLikelihood"`
	SuspiciousKeywords []string      `json:"suspiciousKeywords"`
	DetailedAnalysis   string        `json:"detailedAnalysis"`
	RecommendedAction  string        `json:"recommendedAction"`
	RedFlags           RedFlagReport `json:"redFlags"`
	Factors            FactorSet     `json:"factors"`
	FraudScore         FraudScore    `json:"fraudScore"`
	ScoringMode        ScoringMode   `json:"scoringMode"`
	Degraded           bool          `json:"degraded"`
}

// JobListingAnalysis is the result of a job listing scan
type JobListingAnalysis struct {
	ScanID             uuid.UUID   `json:"scanId"`
	IsScam             bool        `json:"isScam"`
	RiskyPatterns      []string    `json:"riskyPatterns"`
	ScamLikelihood     string      `json:"scamLikelihood"`
	SuspiciousKeywords []string    `json:"suspiciousKeywords"`
	DetailedAnalysis   string      `json:"detailedAnalysis"`
	Message            string      `json:"message"`
	Factors            FactorSet   `json:"factors"`
	FraudScore         FraudScore  `json:"fraudScore"`
	ScoringMode        ScoringMode `json:"scoringMode"`
	Degraded           bool        `json:"degraded"`
}

// AddressAnalysis is the result of an address/domain scan
type AddressAnalysis struct {
	ScanID           uuid.UUID   `json:"scanId"`
	AddressValidity  string      `json:"addressValidity"`
	DomainStatus     string      `json:"domainStatus"`
	DetailedAnalysis string      `json:"detailedAnalysis"`
	Message          string      `json:"message"`
	Factors          FactorSet   `json:"factors"`
	FraudScore       FraudScore  `json:"fraudScore"`
	ScoringMode      ScoringMode `json:"scoringMode"`
	Degraded         bool        `json:"degraded"`
}
