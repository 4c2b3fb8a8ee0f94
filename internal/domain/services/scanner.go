package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"scamlens/internal/domain/models"
	"scamlens/internal/domain/services/ai"
	"scamlens/internal/domain/services/policy"
	"scamlens/internal/domain/services/rules"
	"scamlens/internal/domain/services/scoring"
	"scamlens/internal/metrics"
	"scamlens/internal/streaming"
	"scamlens/pkg/logger"
)

// ErrInvalidInput is matched by every ValidationError
var ErrInvalidInput = errors.New("invalid input")

// ValidationError is returned before any quota is consumed
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrInvalidInput) work
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// Fallback values for results produced without the oracle
const (
	degradedLikelihood      = "Unknown"
	degradedEmailAnalysis   = "Failed to perform analysis."
	degradedDetailed        = "Failed to perform detailed analysis."
	degradedMessage         = "Failed to perform AI analysis. Please try again later."
	degradedAction          = "None"
	degradedAddressValidity = "Unable to validate address."
	degradedDomainStatus    = "Unable to check domain."
)

// UserStore persists registered users
type UserStore interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// Analyzer is the oracle-backed half of a scan
type Analyzer interface {
	Provider() string
	AnalyzeEmail(ctx context.Context, text, sender string) (ai.EmailSections, string, error)
	AnalyzeJobListing(ctx context.Context, text string) (ai.JobListingSections, string, error)
	VerifyAddress(ctx context.Context, address, domain string) (ai.AddressSections, string, error)
	Score(ctx context.Context, kind models.ScanKind, analysis string) (models.FraudScore, error)
}

var _ Analyzer = (*ai.Analyst)(nil)

// ScanService runs the three scan kinds end to end
type ScanService struct {
	users    UserStore
	gate     *policy.Gate
	analyst  Analyzer
	detector *rules.Detector
	events   streaming.Publisher
	logger   *logger.Logger
}

// NewScanService creates a scan service. events may be nil.
func NewScanService(users UserStore, gate *policy.Gate, analyst Analyzer, events streaming.Publisher, log *logger.Logger) *ScanService {
	if events == nil {
		events = streaming.NopPublisher{}
	}
	return &ScanService{
		users:    users,
		gate:     gate,
		analyst:  analyst,
		detector: rules.NewDetector(),
		events:   events,
		logger:   log.WithComponent("scan-service"),
	}
}

// AnalyzeEmail scans an email body. SubjectText is the body and
// SenderIdentifier the sender address; both are required.
func (s *ScanService) AnalyzeEmail(ctx context.Context, req models.ScanRequest) (*models.EmailAnalysis, error) {
	req.Kind = models.ScanKindEmail
	if isBlank(req.SubjectText) || isBlank(req.SenderIdentifier) {
		return nil, &ValidationError{Message: "Email text and sender email are required."}
	}

	start := time.Now()
	sub, err := s.begin(ctx, &req)
	if err != nil {
		return nil, err
	}
	mode := s.gate.ScoringMode(req.Tier)

	result := &models.EmailAnalysis{
		ScanID:      req.ID,
		RedFlags:    s.detector.Detect(req.SubjectText, req.Tier),
		Factors:     rules.EmailFactors(req.SubjectText, req.SenderIdentifier),
		ScoringMode: mode,
	}

	sections, raw, err := s.analyst.AnalyzeEmail(ctx, req.SubjectText, req.SenderIdentifier)
	if err != nil {
		s.degrade(ctx, req.ID, sub, err)
		result.ScamLikelihood = degradedLikelihood
		result.SuspiciousKeywords = []string{}
		result.DetailedAnalysis = degradedEmailAnalysis
		result.RecommendedAction = degradedAction
		result.FraudScore = models.UnavailableScore()
		result.Degraded = true
	} else {
		result.ScamLikelihood = sections.ScamLikelihood
		result.SuspiciousKeywords = sections.SuspiciousKeywords
		result.DetailedAnalysis = sections.DetailedAnalysis
		result.RecommendedAction = sections.RecommendedAction
		result.FraudScore, result.Degraded = s.score(ctx, mode, req.Kind, result.Factors, raw)
	}

	s.finish(ctx, req, mode, result.FraudScore, result.RedFlags, result.Degraded, start)
	return result, nil
}

// AnalyzeJobListing scans a job listing held in SubjectText
func (s *ScanService) AnalyzeJobListing(ctx context.Context, req models.ScanRequest) (*models.JobListingAnalysis, error) {
	req.Kind = models.ScanKindJobListing
	if isBlank(req.SubjectText) {
		return nil, &ValidationError{Message: "Job listing text is required."}
	}

	start := time.Now()
	sub, err := s.begin(ctx, &req)
	if err != nil {
		return nil, err
	}
	mode := s.gate.ScoringMode(req.Tier)
	result := &models.JobListingAnalysis{ScanID: req.ID, ScoringMode: mode}

	sections, raw, err := s.analyst.AnalyzeJobListing(ctx, req.SubjectText)
	if err != nil {
		s.degrade(ctx, req.ID, sub, err)
		result.Factors, _ = rules.JobListingFactors(req.SubjectText, nil, "", "")
		result.RiskyPatterns = []string{}
		result.ScamLikelihood = degradedLikelihood
		result.SuspiciousKeywords = []string{}
		result.DetailedAnalysis = degradedDetailed
		result.Message = degradedMessage
		result.FraudScore = models.UnavailableScore()
		result.Degraded = true
	} else {
		factors, patterns := rules.JobListingFactors(req.SubjectText, sections.SuspiciousKeywords, sections.DetailedAnalysis, raw)
		if patterns == nil {
			patterns = []string{}
		}
		result.Factors = factors
		result.RiskyPatterns = patterns
		result.IsScam = len(patterns) > 0
		result.ScamLikelihood = sections.ScamLikelihood
		result.SuspiciousKeywords = sections.SuspiciousKeywords
		result.DetailedAnalysis = sections.DetailedAnalysis
		result.Message = raw
		result.FraudScore, result.Degraded = s.score(ctx, mode, req.Kind, factors, raw)
	}

	s.finish(ctx, req, mode, result.FraudScore, models.NewRedFlagReport(result.RiskyPatterns), result.Degraded, start)
	return result, nil
}

// VerifyAddressDomain checks a postal address (SubjectText) and an optional
// domain (SenderIdentifier)
func (s *ScanService) VerifyAddressDomain(ctx context.Context, req models.ScanRequest) (*models.AddressAnalysis, error) {
	req.Kind = models.ScanKindAddressDomain
	if isBlank(req.SubjectText) {
		return nil, &ValidationError{Message: "Address is required."}
	}

	start := time.Now()
	sub, err := s.begin(ctx, &req)
	if err != nil {
		return nil, err
	}
	mode := s.gate.ScoringMode(req.Tier)
	result := &models.AddressAnalysis{ScanID: req.ID, ScoringMode: mode}

	sections, raw, err := s.analyst.VerifyAddress(ctx, req.SubjectText, req.SenderIdentifier)
	if err != nil {
		s.degrade(ctx, req.ID, sub, err)
		result.AddressValidity = degradedAddressValidity
		result.DomainStatus = degradedDomainStatus
		result.DetailedAnalysis = degradedDetailed
		result.Message = degradedMessage
		result.FraudScore = models.UnavailableScore()
		result.Degraded = true
	} else {
		result.AddressValidity = sections.AddressValidity
		result.DomainStatus = sections.DomainStatus
		result.DetailedAnalysis = sections.DetailedAnalysis
		result.Message = raw
		result.Factors = sections.AddressFactors()
		result.FraudScore, result.Degraded = s.score(ctx, mode, req.Kind, result.Factors, raw)
	}

	s.finish(ctx, req, mode, result.FraudScore, models.RedFlagReport{}, result.Degraded, start)
	return result, nil
}

// DetectRedFlags runs the detector alone, without quota or oracle
func (s *ScanService) DetectRedFlags(text string, tier models.Tier) models.RedFlagReport {
	return s.detector.Detect(text, tier)
}

// CalculateFraudScore runs the aggregator alone
func (s *ScanService) CalculateFraudScore(f models.FactorSet) (models.FraudScore, []scoring.Contribution) {
	return scoring.FraudScore(f), scoring.Explain(f)
}

// QuotaStatus lists the window of every scan kind for a user or an
// anonymous client
func (s *ScanService) QuotaStatus(ctx context.Context, userID, clientID string) ([]models.ScanQuota, error) {
	tier, err := s.tierFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ScanQuota, 0, len(models.AllScanKinds))
	for _, kind := range models.AllScanKinds {
		q, err := s.gate.Status(ctx, policy.Subject{UserID: userID, ClientID: clientID, Kind: kind}, tier)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// begin resolves the tier and consumes one quota unit. It fills in the
// request ID and tier.
func (s *ScanService) begin(ctx context.Context, req *models.ScanRequest) (policy.Subject, error) {
	tier, err := s.tierFor(ctx, req.UserID)
	if err != nil {
		return policy.Subject{}, err
	}
	req.ID = uuid.New()
	req.Tier = tier

	sub := policy.Subject{UserID: req.UserID, ClientID: req.ClientID, Kind: req.Kind}
	if _, err := s.gate.Acquire(ctx, sub, tier); err != nil {
		if errors.Is(err, policy.ErrQuotaExhausted) {
			metrics.ObserveQuotaDenied(req.Kind, tier)
			_ = s.events.PublishScan(ctx, streaming.NewScanEvent(streaming.EventTypeScanDenied, *req))
		}
		return sub, err
	}
	return sub, nil
}

func (s *ScanService) tierFor(ctx context.Context, userID string) (models.Tier, error) {
	if userID == "" {
		return models.TierAnonymous, nil
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	tier, ok := models.ParseTier(u.Tier)
	if !ok {
		s.logger.Warn().Str("user_id", userID).Str("tier", u.Tier).Msg("unknown stored tier, treating as free")
	}
	return tier, nil
}

// score returns the fraud score and whether it had to be degraded. An
// unparseable scoring reply counts as degraded.
func (s *ScanService) score(ctx context.Context, mode models.ScoringMode, kind models.ScanKind, f models.FactorSet, analysis string) (models.FraudScore, bool) {
	if mode != models.ScoringAIAssisted {
		return scoring.FraudScore(f), false
	}
	score, err := s.analyst.Score(ctx, kind, analysis)
	if err != nil {
		metrics.ObserveOracleFailure(s.analyst.Provider(), kind)
		s.logger.Warn().Err(err).Str("kind", string(kind)).Msg("AI scoring failed, score unavailable")
		return models.UnavailableScore(), true
	}
	if !score.Available() {
		metrics.ObserveOracleFailure(s.analyst.Provider(), kind)
		return score, true
	}
	return score, false
}

// degrade handles an oracle failure: the scan still succeeds, and the quota
// unit is given back when the policy says so.
func (s *ScanService) degrade(ctx context.Context, scanID uuid.UUID, sub policy.Subject, err error) {
	metrics.ObserveOracleFailure(s.analyst.Provider(), sub.Kind)
	log := s.logger.WithScanID(scanID.String())
	log.WithError(err).Warn().
		Str("kind", string(sub.Kind)).
		Str("provider", s.analyst.Provider()).
		Msg("oracle failed, returning degraded result")

	released, rerr := s.gate.Release(context.WithoutCancel(ctx), sub)
	if rerr != nil {
		log.Error().Err(rerr).Str("kind", string(sub.Kind)).Msg("failed to release quota after oracle failure")
		return
	}
	if released {
		log.Debug().Str("kind", string(sub.Kind)).Msg("quota unit released after oracle failure")
	}
}

func (s *ScanService) finish(ctx context.Context, req models.ScanRequest, mode models.ScoringMode, score models.FraudScore, flags models.RedFlagReport, degraded bool, start time.Time) {
	took := time.Since(start)
	metrics.ObserveScan(req.Kind, req.Tier, mode, score, degraded, took)

	e := streaming.NewScanEvent(streaming.EventTypeScanCompleted, req)
	e.ScoringMode = mode
	e.FraudScore = score
	e.RiskLevel = flags.RiskLevel
	e.RedFlagCount = len(flags.RedFlags)
	e.Degraded = degraded
	e.Provider = s.analyst.Provider()
	e.Duration = took
	_ = s.events.PublishScan(ctx, e)

	s.logger.WithScanID(req.ID.String()).Info().
		Str("kind", string(req.Kind)).
		Str("tier", string(req.Tier)).
		Str("fraud_score", score.String()).
		Bool("degraded", degraded).
		Dur("duration", took).
		Msg("scan completed")
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
