package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"scamlens/internal/domain/models"
	"scamlens/internal/domain/services/policy"
	"scamlens/internal/infrastructure/database"
)

const userColumns = `id, email, name, image, tier, scan_count, job_listing_scan_count,
	address_scan_count, reset_at, created_at, updated_at`

// UserRepository handles user persistence and the per-user quota counters
type UserRepository struct {
	db *database.PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

var _ policy.QuotaStore = (*UserRepository)(nil)

// Create inserts a user. ErrUserExists is returned when the id or email is taken.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if u.Tier == "" {
		u.Tier = string(models.TierFree)
	}
	query := `
		INSERT INTO users (id, email, name, image, tier)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	out, err := scanUser(r.db.Pool().QueryRow(ctx, query, u.ID, u.Email, u.Name, textOrNull(u.Image), u.Tier))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return out, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.Pool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// List retrieves all users, newest first
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update applies the non-nil fields of upd
func (r *UserRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	query := `
		UPDATE users SET
			email = COALESCE($2, email),
			tier = COALESCE($3, tier),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(r.db.Pool().QueryRow(ctx, query, id, upd.Email, upd.Tier))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// quotaRow is the locked quota state of one user
type quotaRow struct {
	counters map[models.ScanKind]int
	resetAt  time.Time
}

func lockQuota(ctx context.Context, tx database.DBTX, userID string) (*quotaRow, error) {
	var (
		email, job, addr int
		resetAt          pgtype.Timestamptz
	)
	err := tx.QueryRow(ctx, `
		SELECT scan_count, job_listing_scan_count, address_scan_count, reset_at
		FROM users WHERE id = $1
		FOR UPDATE`, userID,
	).Scan(&email, &job, &addr, &resetAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock quota row: %w", err)
	}
	return &quotaRow{
		counters: map[models.ScanKind]int{
			models.ScanKindEmail:         email,
			models.ScanKindJobListing:    job,
			models.ScanKindAddressDomain: addr,
		},
		resetAt: timestamptzToTime(resetAt),
	}, nil
}

// rollover resets every counter when the shared window has ended
func (q *quotaRow) rollover(now time.Time) {
	if rec := policy.Rollover(policy.Record{ResetAt: q.resetAt}, now); !rec.ResetAt.Equal(q.resetAt) {
		for k := range q.counters {
			q.counters[k] = 0
		}
		q.resetAt = rec.ResetAt
	}
}

func (q *quotaRow) save(ctx context.Context, tx database.DBTX, userID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET
			scan_count = $2,
			job_listing_scan_count = $3,
			address_scan_count = $4,
			reset_at = $5,
			updated_at = now()
		WHERE id = $1`,
		userID,
		q.counters[models.ScanKindEmail],
		q.counters[models.ScanKindJobListing],
		q.counters[models.ScanKindAddressDomain],
		q.resetAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save quota: %w", err)
	}
	return nil
}

// Acquire locks the user row and applies the grant transition
func (r *UserRepository) Acquire(ctx context.Context, sub policy.Subject, limit int, now time.Time) (policy.Record, bool, error) {
	var (
		rec     policy.Record
		granted bool
	)
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		q, err := lockQuota(ctx, tx, sub.UserID)
		if err != nil {
			return err
		}
		q.rollover(now)

		rec, granted = policy.Advance(policy.Record{Used: q.counters[sub.Kind], ResetAt: q.resetAt}, limit, now)
		q.counters[sub.Kind] = rec.Used
		return q.save(ctx, tx, sub.UserID)
	})
	if err != nil {
		return policy.Record{}, false, err
	}
	return rec, granted, nil
}

// Release gives back one unit of the kind inside the current window
func (r *UserRepository) Release(ctx context.Context, sub policy.Subject, now time.Time) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		q, err := lockQuota(ctx, tx, sub.UserID)
		if err != nil {
			return err
		}
		q.rollover(now)
		q.counters[sub.Kind] = policy.Retreat(policy.Record{Used: q.counters[sub.Kind], ResetAt: q.resetAt}, now).Used
		return q.save(ctx, tx, sub.UserID)
	})
}

// Status reads the window for one kind without locking
func (r *UserRepository) Status(ctx context.Context, sub policy.Subject, now time.Time) (policy.Record, error) {
	u, err := r.GetByID(ctx, sub.UserID)
	if err != nil {
		return policy.Record{}, err
	}
	return policy.Rollover(policy.Record{Used: u.Counter(sub.Kind), ResetAt: u.ResetAt}, now), nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u       models.User
		image   pgtype.Text
		resetAt pgtype.Timestamptz
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &image, &u.Tier,
		&u.ScanCount, &u.JobListingScanCount, &u.AddressScanCount,
		&resetAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Image = nullTextToString(image)
	u.ResetAt = timestamptzToTime(resetAt)
	return &u, nil
}
