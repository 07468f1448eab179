// internal/dates/repository.go
// PostgreSQL persistence for date proposals and feedback

package dates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/daymatch/daymatch-backend/internal/common/database"
)

// Repository defines date proposal data access. Every method participates in
// a context-carried transaction when one is present.
type Repository interface {
	CreateDateEntry(ctx context.Context, d *DateProposal) error
	GetDateEntryByID(ctx context.Context, dateID int64) (*DateProposal, error)
	GetDateEntryByUsersAndDate(ctx context.Context, user1, user2, date string) (*DateProposal, error)
	GetDateEntryByIDWithUserDetails(ctx context.Context, dateID int64) (*DateWithUsers, error)
	GetUpcomingDatesByUserID(ctx context.Context, userID string) ([]UpcomingDate, error)
	UpdateDateEntry(ctx context.Context, dateID int64, patch *ProposalPatch) (*DateProposal, error)
	UpsertFeedback(ctx context.Context, fb *DateFeedback) error
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewRepository creates a new dates repository
func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateDateEntry(ctx context.Context, d *DateProposal) error {
	ex := database.Executor(ctx, r.db)

	query := `
		INSERT INTO dates (date, time, user_from, user_to, user_from_approved, user_to_approved, location_metadata, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING date_id, created_at`

	err := ex.QueryRowxContext(ctx, query,
		d.Date, d.Time, d.UserFrom, d.UserTo,
		d.UserFromApproved, d.UserToApproved, d.LocationMetadata, d.Status,
	).Scan(&d.DateID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create date entry: %w", err)
	}
	return nil
}

// GetDateEntryByID returns nil without an error when the proposal is missing.
func (r *postgresRepository) GetDateEntryByID(ctx context.Context, dateID int64) (*DateProposal, error) {
	ex := database.Executor(ctx, r.db)

	var d DateProposal
	err := sqlx.GetContext(ctx, ex, &d,
		`SELECT * FROM dates WHERE date_id = $1`, dateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get date entry: %w", err)
	}
	return &d, nil
}

// GetDateEntryByUsersAndDate finds a proposal involving user1 on the given
// day. Only user1 and the date constrain the query; user2 is accepted for
// the call shape but an entry user1 has with a third user on that day will
// match too. Callers depend on this broad day-level check.
func (r *postgresRepository) GetDateEntryByUsersAndDate(ctx context.Context, user1, user2, date string) (*DateProposal, error) {
	ex := database.Executor(ctx, r.db)
	_ = user2

	var d DateProposal
	err := sqlx.GetContext(ctx, ex, &d,
		`SELECT * FROM dates WHERE (user_from = $1 OR user_to = $1) AND date = $2 LIMIT 1`,
		user1, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get date entry by users and date: %w", err)
	}
	return &d, nil
}

func (r *postgresRepository) GetDateEntryByIDWithUserDetails(ctx context.Context, dateID int64) (*DateWithUsers, error) {
	ex := database.Executor(ctx, r.db)

	query := `
		SELECT
			d.*,
			json_build_object('userId', uf.user_id, 'firstName', uf.first_name, 'profilePictureUrl', uf.profile_picture_url, 'videoUrl', uf.video_url) AS user_from_details,
			json_build_object('userId', ut.user_id, 'firstName', ut.first_name, 'profilePictureUrl', ut.profile_picture_url) AS user_to_details
		FROM dates d
		JOIN users uf ON d.user_from = uf.user_id
		JOIN users ut ON d.user_to = ut.user_id
		WHERE d.date_id = $1`

	var d DateWithUsers
	err := sqlx.GetContext(ctx, ex, &d, query, dateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get date entry with user details: %w", err)
	}
	return &d, nil
}

func (r *postgresRepository) GetUpcomingDatesByUserID(ctx context.Context, userID string) ([]UpcomingDate, error) {
	ex := database.Executor(ctx, r.db)

	query := `
		SELECT
			d.date_id,
			d.date,
			d.time,
			d.status,
			d.updated_at,
			d.location_metadata,
			d.user_from,
			d.user_to,
			feedback.outcome AS my_outcome,
			feedback.notes AS my_notes,
			CASE
				WHEN d.user_from = $1 THEN
					json_build_object('userId', ut.user_id, 'firstName', ut.first_name, 'profilePictureUrl', ut.profile_picture_url)
				ELSE
					json_build_object('userId', uf.user_id, 'firstName', uf.first_name, 'profilePictureUrl', uf.profile_picture_url)
			END AS other_user
		FROM dates d
		JOIN users uf ON d.user_from = uf.user_id
		JOIN users ut ON d.user_to = ut.user_id
		LEFT JOIN date_feedback AS feedback ON feedback.date_id = d.date_id AND feedback.user_id = $1
		WHERE (d.user_from = $1 OR d.user_to = $1)
		AND d.status IN ('approved', 'pending')
		ORDER BY d.date DESC, d.time DESC`

	var items []UpcomingDate
	if err := sqlx.SelectContext(ctx, ex, &items, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list upcoming dates: %w", err)
	}
	return items, nil
}

// UpdateDateEntry applies a sparse patch and always bumps updated_at. An
// empty patch returns the row unchanged.
func (r *postgresRepository) UpdateDateEntry(ctx context.Context, dateID int64, patch *ProposalPatch) (*DateProposal, error) {
	if patch.IsEmpty() {
		return r.GetDateEntryByID(ctx, dateID)
	}

	ex := database.Executor(ctx, r.db)

	sets := []string{}
	args := []interface{}{}
	idx := 1

	addSet := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}

	if patch.Date != nil {
		addSet("date", *patch.Date)
	}
	if patch.Time != nil {
		addSet("time", *patch.Time)
	}
	if patch.LocationMetadata != nil {
		addSet("location_metadata", *patch.LocationMetadata)
	}
	if patch.Status != nil {
		addSet("status", *patch.Status)
	}
	if patch.UserFromApproved != nil {
		addSet("user_from_approved", *patch.UserFromApproved)
	}
	if patch.UserToApproved != nil {
		addSet("user_to_approved", *patch.UserToApproved)
	}

	query := fmt.Sprintf(`UPDATE dates SET %s, updated_at = NOW() WHERE date_id = $%d RETURNING *`,
		strings.Join(sets, ", "), idx)
	args = append(args, dateID)

	var d DateProposal
	err := sqlx.GetContext(ctx, ex, &d, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update date entry: %w", err)
	}
	return &d, nil
}

func (r *postgresRepository) UpsertFeedback(ctx context.Context, fb *DateFeedback) error {
	ex := database.Executor(ctx, r.db)

	query := `
		INSERT INTO date_feedback (date_id, user_id, outcome, notes, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (date_id, user_id)
		DO UPDATE SET outcome = EXCLUDED.outcome, notes = EXCLUDED.notes, created_at = NOW()
		RETURNING created_at`

	err := ex.QueryRowxContext(ctx, query,
		fb.DateID, fb.UserID, fb.Outcome, fb.Notes,
	).Scan(&fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert date feedback: %w", err)
	}
	return nil
}
