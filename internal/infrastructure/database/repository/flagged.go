package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"scamlens/internal/domain/models"
	"scamlens/internal/infrastructure/database"
)

const flaggedColumns = `id, user_id, sender, subject, content, risk_level, red_flags, notes, created_at, updated_at`

// FlaggedEmailRepository handles flagged email persistence
type FlaggedEmailRepository struct {
	db database.DBTX
}

// NewFlaggedEmailRepository creates a new flagged email repository
func NewFlaggedEmailRepository(db database.DBTX) *FlaggedEmailRepository {
	return &FlaggedEmailRepository{db: db}
}

// Create inserts a flagged email
func (r *FlaggedEmailRepository) Create(ctx context.Context, e *models.FlaggedEmail) (*models.FlaggedEmail, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.RiskLevel == "" {
		e.RiskLevel = models.RiskLevelFor(len(e.RedFlags))
	}
	if e.RedFlags == nil {
		e.RedFlags = []string{}
	}

	query := `
		INSERT INTO flagged_emails (id, user_id, sender, subject, content, risk_level, red_flags, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + flaggedColumns

	out, err := scanFlagged(r.db.QueryRow(ctx, query,
		e.ID, textOrNull(e.UserID), e.Sender, e.Subject, e.Content,
		string(e.RiskLevel), e.RedFlags, e.Notes,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create flagged email: %w", err)
	}
	return out, nil
}

// List returns flagged emails, optionally only those of one user
func (r *FlaggedEmailRepository) List(ctx context.Context, userID string) ([]*models.FlaggedEmail, error) {
	query := `SELECT ` + flaggedColumns + ` FROM flagged_emails`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list flagged emails: %w", err)
	}
	defer rows.Close()

	out := []*models.FlaggedEmail{}
	for rows.Next() {
		e, err := scanFlagged(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flagged email: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetByID retrieves a flagged email
func (r *FlaggedEmailRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FlaggedEmail, error) {
	e, err := scanFlagged(r.db.QueryRow(ctx, `SELECT `+flaggedColumns+` FROM flagged_emails WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrFlaggedEmailNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flagged email: %w", err)
	}
	return e, nil
}

// Update replaces the editable fields of a flagged email
func (r *FlaggedEmailRepository) Update(ctx context.Context, e *models.FlaggedEmail) (*models.FlaggedEmail, error) {
	if e.RedFlags == nil {
		e.RedFlags = []string{}
	}
	query := `
		UPDATE flagged_emails SET
			sender = $2,
			subject = $3,
			content = $4,
			risk_level = $5,
			red_flags = $6,
			notes = $7,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + flaggedColumns

	out, err := scanFlagged(r.db.QueryRow(ctx, query,
		e.ID, e.Sender, e.Subject, e.Content, string(e.RiskLevel), e.RedFlags, e.Notes,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrFlaggedEmailNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update flagged email: %w", err)
	}
	return out, nil
}

// Delete removes a flagged email
func (r *FlaggedEmailRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM flagged_emails WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flagged email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrFlaggedEmailNotFound
	}
	return nil
}

func scanFlagged(row pgx.Row) (*models.FlaggedEmail, error) {
	var (
		e      models.FlaggedEmail
		userID pgtype.Text
		risk   string
	)
	err := row.Scan(
		&e.ID, &userID, &e.Sender, &e.Subject, &e.Content,
		&risk, &e.RedFlags, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.UserID = nullTextToString(userID)
	e.RiskLevel = models.RiskLevel(risk)
	return &e, nil
}
