// internal/calendar/repository.go
// PostgreSQL persistence for calendar-day stories

package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/daymatch/daymatch-backend/internal/common/database"
)

// ErrDayExists is returned when the user already has a story for the day
var ErrDayExists = errors.New("a story already exists for this day")

// Repository defines calendar data access
type Repository interface {
	CreateCalendarDay(ctx context.Context, cd *CalendarDay) error
	GetCalendarDayByID(ctx context.Context, calendarID int64) (*CalendarDay, error)
	GetCalendarDaysByUserID(ctx context.Context, userID string) ([]CalendarDay, error)
	GetCalendarDayByUserIDAndDate(ctx context.Context, userID, date string) (*CalendarDay, error)
	UpdateCalendarDay(ctx context.Context, calendarID int64, patch *CalendarDayPatch) (*CalendarDay, error)
	DeleteCalendarDay(ctx context.Context, calendarID int64) error

	FindStoriesByDate(ctx context.Context, date, viewerID string) ([]Story, error)
	FindStoriesByDateAndZipcodes(ctx context.Context, date string, zipcodes []string, viewerID, viewerZipcode string) ([]Story, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewRepository creates a new calendar repository
func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateCalendarDay(ctx context.Context, cd *CalendarDay) error {
	ex := database.Executor(ctx, r.db)

	query := `
		INSERT INTO calendar_day (user_id, date, user_video_url, video_uri, processing_status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING calendar_id, created_at`

	err := ex.QueryRowxContext(ctx, query,
		cd.UserID, cd.Date, cd.UserVideoURL, cd.VideoURI, cd.ProcessingStatus,
	).Scan(&cd.CalendarID, &cd.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDayExists
		}
		return fmt.Errorf("failed to create calendar day: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetCalendarDayByID(ctx context.Context, calendarID int64) (*CalendarDay, error) {
	ex := database.Executor(ctx, r.db)

	var cd CalendarDay
	err := sqlx.GetContext(ctx, ex, &cd,
		`SELECT * FROM calendar_day WHERE calendar_id = $1`, calendarID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get calendar day: %w", err)
	}
	return &cd, nil
}

func (r *postgresRepository) GetCalendarDaysByUserID(ctx context.Context, userID string) ([]CalendarDay, error) {
	ex := database.Executor(ctx, r.db)

	var items []CalendarDay
	err := sqlx.SelectContext(ctx, ex, &items,
		`SELECT * FROM calendar_day WHERE user_id = $1 ORDER BY date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar days: %w", err)
	}
	return items, nil
}

func (r *postgresRepository) GetCalendarDayByUserIDAndDate(ctx context.Context, userID, date string) (*CalendarDay, error) {
	ex := database.Executor(ctx, r.db)

	var cd CalendarDay
	err := sqlx.GetContext(ctx, ex, &cd,
		`SELECT * FROM calendar_day WHERE user_id = $1 AND date = $2`, userID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get calendar day by user and date: %w", err)
	}
	return &cd, nil
}

func (r *postgresRepository) UpdateCalendarDay(ctx context.Context, calendarID int64, patch *CalendarDayPatch) (*CalendarDay, error) {
	if patch.IsEmpty() {
		return r.GetCalendarDayByID(ctx, calendarID)
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

	if patch.UserVideoURL != nil {
		addSet("user_video_url", *patch.UserVideoURL)
	}
	if patch.VideoURI != nil {
		addSet("video_uri", *patch.VideoURI)
	}
	if patch.ProcessingStatus != nil {
		addSet("processing_status", *patch.ProcessingStatus)
	}

	query := fmt.Sprintf(`UPDATE calendar_day SET %s, updated_at = NOW() WHERE calendar_id = $%d RETURNING *`,
		strings.Join(sets, ", "), idx)
	args = append(args, calendarID)

	var cd CalendarDay
	err := sqlx.GetContext(ctx, ex, &cd, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update calendar day: %w", err)
	}
	return &cd, nil
}

func (r *postgresRepository) DeleteCalendarDay(ctx context.Context, calendarID int64) error {
	ex := database.Executor(ctx, r.db)

	if _, err := ex.ExecContext(ctx,
		`DELETE FROM calendar_day WHERE calendar_id = $1`, calendarID); err != nil {
		return fmt.Errorf("failed to delete calendar day: %w", err)
	}
	return nil
}

// FindStoriesByDate returns every completed story for the day except the
// viewer's own. Stories from blocked users are flagged, not filtered.
func (r *postgresRepository) FindStoriesByDate(ctx context.Context, date, viewerID string) ([]Story, error) {
	ex := database.Executor(ctx, r.db)

	query := `
		SELECT
			cd.calendar_id,
			cd.user_id,
			cd.date,
			cd.user_video_url,
			cd.video_uri,
			cd.processing_status,
			TRIM(u.first_name || ' ' || u.last_name) AS user_name,
			u.profile_picture_url,
			u.zipcode,
			(ub.blocker_id IS NOT NULL) AS is_blocked
		FROM calendar_day cd
		JOIN users u ON cd.user_id = u.user_id
		LEFT JOIN user_blocks ub ON u.user_id = ub.blocked_id AND ub.blocker_id = $2
		WHERE cd.date::date = $1::date
		AND cd.video_uri IS NOT NULL
		AND cd.processing_status = 'complete'
		AND u.user_id != $2`

	var items []Story
	if err := sqlx.SelectContext(ctx, ex, &items, query, date, viewerID); err != nil {
		return nil, fmt.Errorf("failed to find stories by date: %w", err)
	}
	return items, nil
}

// FindStoriesByDateAndZipcodes narrows the feed to the given zipcodes,
// closest bucket first (the viewer's own zipcode sorts to the top).
func (r *postgresRepository) FindStoriesByDateAndZipcodes(ctx context.Context, date string, zipcodes []string, viewerID, viewerZipcode string) ([]Story, error) {
	ex := database.Executor(ctx, r.db)

	query := `
		SELECT
			cd.calendar_id,
			cd.user_id,
			cd.date,
			cd.user_video_url,
			cd.video_uri,
			cd.processing_status,
			TRIM(u.first_name || ' ' || u.last_name) AS user_name,
			u.profile_picture_url,
			u.zipcode,
			(ub.blocker_id IS NOT NULL) AS is_blocked
		FROM calendar_day cd
		JOIN users u ON cd.user_id = u.user_id
		LEFT JOIN user_blocks ub ON u.user_id = ub.blocked_id AND ub.blocker_id = $3
		WHERE cd.date::date = $1::date
		AND u.zipcode = ANY($2::text[])
		AND cd.video_uri IS NOT NULL
		AND cd.processing_status = 'complete'
		AND u.user_id != $3
		ORDER BY
			CASE WHEN u.zipcode = $4 THEN 0 ELSE 1 END,
			u.zipcode ASC`

	var items []Story
	if err := sqlx.SelectContext(ctx, ex, &items, query, date, pq.Array(zipcodes), viewerID, viewerZipcode); err != nil {
		return nil, fmt.Errorf("failed to find stories by date and zipcodes: %w", err)
	}
	return items, nil
}
