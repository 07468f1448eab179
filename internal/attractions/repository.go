// internal/attractions/repository.go
// PostgreSQL persistence for attractions

package attractions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/daymatch/daymatch-backend/internal/common/database"
)

// Repository defines attraction data access. Methods participate in a
// context-carried transaction.
type Repository interface {
	GetAttraction(ctx context.Context, userFrom, userTo, date string) (*Attraction, error)
	UpsertAttraction(ctx context.Context, a *Attraction) error
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewRepository creates a new attractions repository
func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// GetAttraction returns nil without an error when no expression exists.
func (r *postgresRepository) GetAttraction(ctx context.Context, userFrom, userTo, date string) (*Attraction, error) {
	ex := database.Executor(ctx, r.db)

	var a Attraction
	err := sqlx.GetContext(ctx, ex, &a,
		`SELECT * FROM attractions WHERE user_from = $1 AND user_to = $2 AND date = $3`,
		userFrom, userTo, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attraction: %w", err)
	}
	return &a, nil
}

// UpsertAttraction inserts or replaces the expression for (user_from,
// user_to, date).
func (r *postgresRepository) UpsertAttraction(ctx context.Context, a *Attraction) error {
	ex := database.Executor(ctx, r.db)

	query := `
		INSERT INTO attractions (user_from, user_to, date, romantic_rating, sexual_rating, friendship_rating, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_from, user_to, date)
		DO UPDATE SET romantic_rating = EXCLUDED.romantic_rating,
		              sexual_rating = EXCLUDED.sexual_rating,
		              friendship_rating = EXCLUDED.friendship_rating,
		              result = EXCLUDED.result,
		              updated_at = NOW()
		RETURNING attraction_id, created_at`

	err := ex.QueryRowxContext(ctx, query,
		a.UserFrom, a.UserTo, a.Date,
		a.RomanticRating, a.SexualRating, a.FriendshipRating, a.Result,
	).Scan(&a.AttractionID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert attraction: %w", err)
	}
	return nil
}
