package policy

import (
	"context"
	"fmt"
	"time"

	"scamlens/internal/config"
	"scamlens/internal/domain/models"
	"scamlens/pkg/logger"
)

// Limits is the tier x kind daily limit table
type Limits map[models.Tier]map[models.ScanKind]int

// DefaultLimits returns the built-in limits table
func DefaultLimits() Limits {
	return Limits{
		models.TierAnonymous: {models.ScanKindEmail: 3, models.ScanKindJobListing: 1, models.ScanKindAddressDomain: 1},
		models.TierFree:      {models.ScanKindEmail: 5, models.ScanKindJobListing: 5, models.ScanKindAddressDomain: 3},
		models.TierPaid:      {models.ScanKindEmail: 30, models.ScanKindJobListing: 30, models.ScanKindAddressDomain: 30},
	}
}

// LimitsFromConfig converts the configuration table
func LimitsFromConfig(cfg config.LimitsConfig) Limits {
	row := func(k config.KindLimits) map[models.ScanKind]int {
		return map[models.ScanKind]int{
			models.ScanKindEmail:         k.Email,
			models.ScanKindJobListing:    k.JobListing,
			models.ScanKindAddressDomain: k.AddressDomain,
		}
	}
	return Limits{
		models.TierAnonymous: row(cfg.Anonymous),
		models.TierFree:      row(cfg.Free),
		models.TierPaid:      row(cfg.Paid),
	}
}

// For returns the daily limit; unknown tiers get the anonymous row
func (l Limits) For(tier models.Tier, kind models.ScanKind) int {
	row, ok := l[tier]
	if !ok {
		row = l[models.TierAnonymous]
	}
	return row[kind]
}

// Option configures a Gate
type Option func(*Gate)

// WithNow replaces the clock
func WithNow(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithAIScoringTiers sets which tiers get AI-assisted scoring
func WithAIScoringTiers(tiers ...models.Tier) Option {
	return func(g *Gate) {
		g.aiTiers = make(map[models.Tier]bool, len(tiers))
		for _, t := range tiers {
			g.aiTiers[t] = true
		}
	}
}

// WithChargeOnOracleFailure controls whether a failed oracle call keeps the
// consumed quota unit
func WithChargeOnOracleFailure(charge bool) Option {
	return func(g *Gate) { g.chargeOnFailure = charge }
}

// Gate decides whether a scan may run and which scoring mode it uses
type Gate struct {
	limits          Limits
	users           QuotaStore
	anonymous       QuotaStore
	aiTiers         map[models.Tier]bool
	chargeOnFailure bool
	now             func() time.Time
	logger          *logger.Logger
}

// NewGate creates a gate. users backs registered identities and anonymous
// backs client-keyed quotas; they may be the same store.
func NewGate(limits Limits, users, anonymous QuotaStore, log *logger.Logger, opts ...Option) *Gate {
	g := &Gate{
		limits:          limits,
		users:           users,
		anonymous:       anonymous,
		aiTiers:         map[models.Tier]bool{models.TierPaid: true},
		chargeOnFailure: true,
		now:             time.Now,
		logger:          log.WithComponent("policy-gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewGateFromConfig builds a gate from the policy section
func NewGateFromConfig(cfg config.PolicyConfig, users, anonymous QuotaStore, log *logger.Logger, opts ...Option) *Gate {
	tiers := make([]models.Tier, 0, len(cfg.AIScoringTiers))
	for _, t := range cfg.AIScoringTiers {
		if tier, ok := models.ParseTier(t); ok {
			tiers = append(tiers, tier)
		}
	}
	base := []Option{
		WithAIScoringTiers(tiers...),
		WithChargeOnOracleFailure(cfg.ChargeOnOracleFailure),
	}
	return NewGate(LimitsFromConfig(cfg.Limits), users, anonymous, log, append(base, opts...)...)
}

func (g *Gate) store(sub Subject) QuotaStore {
	if sub.Anonymous() {
		return g.anonymous
	}
	return g.users
}

// Acquire grants one scan or returns a *QuotaExhaustedError. The returned
// quota reflects the state after the grant.
func (g *Gate) Acquire(ctx context.Context, sub Subject, tier models.Tier) (models.ScanQuota, error) {
	limit := g.limits.For(tier, sub.Kind)
	rec, granted, err := g.store(sub).Acquire(ctx, sub, limit, g.now())
	if err != nil {
		return models.ScanQuota{}, fmt.Errorf("acquire quota: %w", err)
	}

	quota := models.ScanQuota{
		Tier:       tier,
		Kind:       sub.Kind,
		DailyLimit: limit,
		Used:       rec.Used,
		ResetAt:    rec.ResetAt,
	}
	if !granted {
		g.logger.Info().
			Str("kind", string(sub.Kind)).
			Str("tier", string(tier)).
			Int("limit", limit).
			Bool("anonymous", sub.Anonymous()).
			Msg("scan denied, quota exhausted")
		return quota, &QuotaExhaustedError{Limit: limit, Kind: sub.Kind, ResetAt: rec.ResetAt}
	}
	return quota, nil
}

// Release gives back a unit after a failed oracle call, unless the policy
// charges for failures. It reports whether a unit was released.
func (g *Gate) Release(ctx context.Context, sub Subject) (bool, error) {
	if g.chargeOnFailure {
		return false, nil
	}
	if err := g.store(sub).Release(ctx, sub, g.now()); err != nil {
		return false, fmt.Errorf("release quota: %w", err)
	}
	return true, nil
}

// Status returns the current window without consuming anything
func (g *Gate) Status(ctx context.Context, sub Subject, tier models.Tier) (models.ScanQuota, error) {
	rec, err := g.store(sub).Status(ctx, sub, g.now())
	if err != nil {
		return models.ScanQuota{}, fmt.Errorf("quota status: %w", err)
	}
	return models.ScanQuota{
		Tier:       tier,
		Kind:       sub.Kind,
		DailyLimit: g.limits.For(tier, sub.Kind),
		Used:       rec.Used,
		ResetAt:    rec.ResetAt,
	}, nil
}

// ScoringMode selects rule-based or AI-assisted scoring, the same for every kind
func (g *Gate) ScoringMode(tier models.Tier) models.ScoringMode {
	if g.aiTiers[tier] {
		return models.ScoringAIAssisted
	}
	return models.ScoringRuleBased
}

// Limit exposes the configured limit
func (g *Gate) Limit(tier models.Tier, kind models.ScanKind) int {
	return g.limits.For(tier, kind)
}
