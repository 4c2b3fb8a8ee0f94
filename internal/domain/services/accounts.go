package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"scamlens/internal/domain/models"
	"scamlens/internal/domain/services/rules"
	"scamlens/pkg/logger"
)

// FlaggedEmailStore persists emails users saved for review
type FlaggedEmailStore interface {
	Create(ctx context.Context, e *models.FlaggedEmail) (*models.FlaggedEmail, error)
	List(ctx context.Context, userID string) ([]*models.FlaggedEmail, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.FlaggedEmail, error)
	Update(ctx context.Context, e *models.FlaggedEmail) (*models.FlaggedEmail, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AccountService manages users and their flagged emails
type AccountService struct {
	users    UserStore
	flagged  FlaggedEmailStore
	detector *rules.Detector
	logger   *logger.Logger
}

// NewAccountService creates an account service
func NewAccountService(users UserStore, flagged FlaggedEmailStore, log *logger.Logger) *AccountService {
	return &AccountService{
		users:    users,
		flagged:  flagged,
		detector: rules.NewDetector(),
		logger:   log.WithComponent("account-service"),
	}
}

// CreateUser registers a user. A missing ID is generated and a missing
// tier becomes free.
func (s *AccountService) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	if isBlank(u.Email) {
		return nil, &ValidationError{Message: "Email is required."}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Tier == "" {
		u.Tier = string(models.TierFree)
	} else if err := validateTier(u.Tier); err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", created.ID).Str("tier", created.Tier).Msg("user created")
	return created, nil
}

// GetUser returns a user or models.ErrUserNotFound
func (s *AccountService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListUsers returns every user
func (s *AccountService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

// UpdateUser changes the email or tier of a user
func (s *AccountService) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	if upd.Email != nil && isBlank(*upd.Email) {
		return nil, &ValidationError{Message: "Email must not be empty."}
	}
	if upd.Tier != nil {
		if err := validateTier(*upd.Tier); err != nil {
			return nil, err
		}
	}
	return s.users.Update(ctx, id, upd)
}

// DeleteUser removes a user and, through the store, their flagged emails
func (s *AccountService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", id).Msg("user deleted")
	return nil
}

// FlagEmail saves an email. When no red flags are supplied the detector
// fills them in at the user's tier.
func (s *AccountService) FlagEmail(ctx context.Context, e *models.FlaggedEmail) (*models.FlaggedEmail, error) {
	if isBlank(e.Content) || isBlank(e.Sender) {
		return nil, &ValidationError{Message: "Sender and content are required."}
	}
	tier := models.TierAnonymous
	if e.UserID != "" {
		u, err := s.users.GetByID(ctx, e.UserID)
		if err != nil {
			return nil, err
		}
		tier, _ = models.ParseTier(u.Tier)
	}
	if len(e.RedFlags) == 0 {
		report := s.detector.Detect(e.Content, tier)
		e.RedFlags = report.RedFlags
		e.RiskLevel = report.RiskLevel
	}
	return s.flagged.Create(ctx, e)
}

// ListFlaggedEmails returns the flagged emails of a user, or all when
// userID is empty
func (s *AccountService) ListFlaggedEmails(ctx context.Context, userID string) ([]*models.FlaggedEmail, error) {
	return s.flagged.List(ctx, userID)
}

// UpdateFlaggedEmail replaces the editable fields of a flagged email
func (s *AccountService) UpdateFlaggedEmail(ctx context.Context, e *models.FlaggedEmail) (*models.FlaggedEmail, error) {
	cur, err := s.flagged.GetByID(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	if e.Sender == "" {
		e.Sender = cur.Sender
	}
	if e.Content == "" {
		e.Content = cur.Content
	}
	if e.RedFlags == nil {
		e.RedFlags = cur.RedFlags
	}
	if e.RiskLevel == "" {
		e.RiskLevel = models.RiskLevelFor(len(e.RedFlags))
	}
	return s.flagged.Update(ctx, e)
}

// DeleteFlaggedEmail removes a flagged email
func (s *AccountService) DeleteFlaggedEmail(ctx context.Context, id uuid.UUID) error {
	return s.flagged.Delete(ctx, id)
}

func validateTier(t string) error {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "free", "basic", "paid":
		return nil
	}
	return &ValidationError{Message: "Tier must be one of free, basic or paid."}
}
