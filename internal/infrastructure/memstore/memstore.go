// Package memstore holds in-process user and flagged email stores used when
// PostgreSQL is disabled.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"scamlens/internal/domain/models"
	"scamlens/internal/domain/services/policy"
)

// Users is an in-memory user store that also tracks the per-user quota
// counters with the same shared-window rule as the database.
type Users struct {
	mu    sync.Mutex
	users map[string]*models.User
	now   func() time.Time
}

// NewUsers creates an empty user store
func NewUsers() *Users {
	return &Users{users: make(map[string]*models.User), now: time.Now}
}

var _ policy.QuotaStore = (*Users)(nil)

func (s *Users) Create(_ context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return nil, models.ErrUserExists
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return nil, models.ErrUserExists
		}
	}
	cp := *u
	if cp.Tier == "" {
		cp.Tier = string(models.TierFree)
	}
	now := s.now().UTC()
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Users) GetByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (s *Users) List(_ context.Context) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.User) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *Users) Update(_ context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Tier != nil {
		u.Tier = *upd.Tier
	}
	u.UpdatedAt = s.now().UTC()
	out := *u
	return &out, nil
}

func (s *Users) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return models.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

// counter returns a pointer to the stored counter for kind
func counter(u *models.User, kind models.ScanKind) *int {
	switch kind {
	case models.ScanKindJobListing:
		return &u.JobListingScanCount
	case models.ScanKindAddressDomain:
		return &u.AddressScanCount
	default:
		return &u.ScanCount
	}
}

// rollover resets every counter once the shared window has ended
func rollover(u *models.User, now time.Time) {
	rec := policy.Rollover(policy.Record{ResetAt: u.ResetAt}, now)
	if !rec.ResetAt.Equal(u.ResetAt) {
		u.ScanCount, u.JobListingScanCount, u.AddressScanCount = 0, 0, 0
		u.ResetAt = rec.ResetAt
	}
}

func (s *Users) Acquire(_ context.Context, sub policy.Subject, limit int, now time.Time) (policy.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[sub.UserID]
	if !ok {
		return policy.Record{}, false, models.ErrUserNotFound
	}
	rollover(u, now)
	c := counter(u, sub.Kind)
	rec, granted := policy.Advance(policy.Record{Used: *c, ResetAt: u.ResetAt}, limit, now)
	*c = rec.Used
	return rec, granted, nil
}

func (s *Users) Release(_ context.Context, sub policy.Subject, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[sub.UserID]
	if !ok {
		return models.ErrUserNotFound
	}
	rollover(u, now)
	c := counter(u, sub.Kind)
	*c = policy.Retreat(policy.Record{Used: *c, ResetAt: u.ResetAt}, now).Used
	return nil
}

func (s *Users) Status(_ context.Context, sub policy.Subject, now time.Time) (policy.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[sub.UserID]
	if !ok {
		return policy.Record{}, models.ErrUserNotFound
	}
	return policy.Rollover(policy.Record{Used: *counter(u, sub.Kind), ResetAt: u.ResetAt}, now), nil
}

// FlaggedEmails is an in-memory flagged email store
type FlaggedEmails struct {
	mu     sync.Mutex
	emails map[uuid.UUID]*models.FlaggedEmail
	now    func() time.Time
}

// NewFlaggedEmails creates an empty flagged email store
func NewFlaggedEmails() *FlaggedEmails {
	return &FlaggedEmails{emails: make(map[uuid.UUID]*models.FlaggedEmail), now: time.Now}
}

func (s *FlaggedEmails) Create(_ context.Context, e *models.FlaggedEmail) (*models.FlaggedEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.RedFlags == nil {
		cp.RedFlags = []string{}
	}
	if cp.RiskLevel == "" {
		cp.RiskLevel = models.RiskLevelFor(len(cp.RedFlags))
	}
	now := s.now().UTC()
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.emails[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *FlaggedEmails) List(_ context.Context, userID string) ([]*models.FlaggedEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.FlaggedEmail{}
	for _, e := range s.emails {
		if userID != "" && e.UserID != userID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.FlaggedEmail) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *FlaggedEmails) GetByID(_ context.Context, id uuid.UUID) (*models.FlaggedEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.emails[id]
	if !ok {
		return nil, models.ErrFlaggedEmailNotFound
	}
	out := *e
	return &out, nil
}

func (s *FlaggedEmails) Update(_ context.Context, e *models.FlaggedEmail) (*models.FlaggedEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.emails[e.ID]
	if !ok {
		return nil, models.ErrFlaggedEmailNotFound
	}
	cur.Sender = e.Sender
	cur.Subject = e.Subject
	cur.Content = e.Content
	cur.RiskLevel = e.RiskLevel
	cur.RedFlags = e.RedFlags
	if cur.RedFlags == nil {
		cur.RedFlags = []string{}
	}
	cur.Notes = e.Notes
	cur.UpdatedAt = s.now().UTC()
	out := *cur
	return &out, nil
}

func (s *FlaggedEmails) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emails[id]; !ok {
		return models.ErrFlaggedEmailNotFound
	}
	delete(s.emails, id)
	return nil
}
