// internal/users/repository.go
// PostgreSQL persistence for users, token balances and blocks

package users

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

var (
	// ErrUserNotFound is returned when a user does not exist
	ErrUserNotFound = errors.New("user not found")
	// ErrInsufficientTokens is returned when a spend exceeds the balance
	ErrInsufficientTokens = errors.New("insufficient tokens")
)

// Repository defines user data access
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, userID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, userID string, patch *UserPatch) (*User, error)
	DeleteUser(ctx context.Context, userID string) error

	SpendTokens(ctx context.Context, userID string, amount int) (int, error)
	GrantTokens(ctx context.Context, userID string, amount int) (int, error)
	ReplenishAllTokens(ctx context.Context, amount int) (int64, error)

	SetPushToken(ctx context.Context, userID, token string) error
	ClearPushTokenFromOthers(ctx context.Context, userID, token string) error

	BlockUser(ctx context.Context, blockerID, blockedID string) error
	UnblockUser(ctx context.Context, blockerID, blockedID string) error
	GetBlockedUserIDs(ctx context.Context, userID string) ([]string, error)
	GetBlockedProfiles(ctx context.Context, userID string) ([]PublicProfile, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewRepository creates a new users repository
func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateUser(ctx context.Context, user *User) error {
	ex := database.Executor(ctx, r.db)

	query := `
		INSERT INTO users (user_id, email, first_name, last_name, zipcode,
		                   tokens, enable_notifications, referral_source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at`

	err := ex.QueryRowxContext(ctx, query,
		user.UserID, user.Email, user.FirstName, user.LastName, user.Zipcode,
		user.Tokens, user.EnableNotifications, user.ReferralSource,
	).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetUserByID(ctx context.Context, userID string) (*User, error) {
	ex := database.Executor(ctx, r.db)

	var user User
	err := sqlx.GetContext(ctx, ex, &user, `SELECT * FROM users WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *postgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	ex := database.Executor(ctx, r.db)

	var user User
	err := sqlx.GetContext(ctx, ex, &user, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// UpdateUser applies a sparse patch; nil fields are left untouched.
func (r *postgresRepository) UpdateUser(ctx context.Context, userID string, patch *UserPatch) (*User, error) {
	if patch.IsEmpty() {
		return r.GetUserByID(ctx, userID)
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

	if patch.FirstName != nil {
		addSet("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		addSet("last_name", *patch.LastName)
	}
	if patch.ProfilePictureURL != nil {
		addSet("profile_picture_url", *patch.ProfilePictureURL)
	}
	if patch.VideoURL != nil {
		addSet("video_url", *patch.VideoURL)
	}
	if patch.Zipcode != nil {
		addSet("zipcode", *patch.Zipcode)
	}
	if patch.Stickers != nil {
		addSet("stickers", *patch.Stickers)
	}
	if patch.EnableNotifications != nil {
		addSet("enable_notifications", *patch.EnableNotifications)
	}
	if patch.IsProfileComplete != nil {
		addSet("is_profile_complete", *patch.IsProfileComplete)
	}
	if patch.ReferralSource != nil {
		addSet("referral_source", *patch.ReferralSource)
	}

	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = NOW() WHERE user_id = $%d RETURNING *`,
		strings.Join(sets, ", "), idx)
	args = append(args, userID)

	var user User
	err := sqlx.GetContext(ctx, ex, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

func (r *postgresRepository) DeleteUser(ctx context.Context, userID string) error {
	ex := database.Executor(ctx, r.db)

	result, err := ex.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SpendTokens deducts amount from the user's balance under a row lock.
// The row is locked before the balance is read so concurrent spends
// serialize; callers compose this with their own transaction through the
// context. Returns the new balance.
func (r *postgresRepository) SpendTokens(ctx context.Context, userID string, amount int) (int, error) {
	ex := database.Executor(ctx, r.db)

	var balance int
	err := ex.QueryRowxContext(ctx,
		`SELECT tokens FROM users WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to lock token balance: %w", err)
	}

	if balance < amount {
		return balance, ErrInsufficientTokens
	}

	newBalance := balance - amount
	if _, err := ex.ExecContext(ctx,
		`UPDATE users SET tokens = $1, updated_at = NOW() WHERE user_id = $2`,
		newBalance, userID); err != nil {
		return 0, fmt.Errorf("failed to update token balance: %w", err)
	}
	return newBalance, nil
}

// GrantTokens adds amount to the user's balance. Returns the new balance.
func (r *postgresRepository) GrantTokens(ctx context.Context, userID string, amount int) (int, error) {
	ex := database.Executor(ctx, r.db)

	var balance int
	err := ex.QueryRowxContext(ctx,
		`UPDATE users SET tokens = tokens + $1, updated_at = NOW()
		 WHERE user_id = $2 RETURNING tokens`,
		amount, userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to grant tokens: %w", err)
	}
	return balance, nil
}

// ReplenishAllTokens tops every user up to at least amount. Returns the
// number of users touched.
func (r *postgresRepository) ReplenishAllTokens(ctx context.Context, amount int) (int64, error) {
	ex := database.Executor(ctx, r.db)

	result, err := ex.ExecContext(ctx,
		`UPDATE users SET tokens = $1, updated_at = NOW() WHERE tokens < $1`, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to replenish tokens: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

func (r *postgresRepository) SetPushToken(ctx context.Context, userID, token string) error {
	ex := database.Executor(ctx, r.db)

	result, err := ex.ExecContext(ctx,
		`UPDATE users SET fcm_token = $1, updated_at = NOW() WHERE user_id = $2`,
		token, userID)
	if err != nil {
		return fmt.Errorf("failed to set push token: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ClearPushTokenFromOthers removes the token from any other account holding
// it. A device re-registering under a new login must not keep receiving the
// previous user's pushes.
func (r *postgresRepository) ClearPushTokenFromOthers(ctx context.Context, userID, token string) error {
	ex := database.Executor(ctx, r.db)

	if _, err := ex.ExecContext(ctx,
		`UPDATE users SET fcm_token = NULL, updated_at = NOW()
		 WHERE fcm_token = $1 AND user_id <> $2`,
		token, userID); err != nil {
		return fmt.Errorf("failed to clear push token: %w", err)
	}
	return nil
}

func (r *postgresRepository) BlockUser(ctx context.Context, blockerID, blockedID string) error {
	ex := database.Executor(ctx, r.db)

	_, err := ex.ExecContext(ctx,
		`INSERT INTO user_blocks (blocker_id, blocked_id, created_at) VALUES ($1, $2, NOW())`,
		blockerID, blockedID)
	if err != nil {
		// Blocking an already-blocked user is a no-op
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil
		}
		return fmt.Errorf("failed to block user: %w", err)
	}
	return nil
}

func (r *postgresRepository) UnblockUser(ctx context.Context, blockerID, blockedID string) error {
	ex := database.Executor(ctx, r.db)

	if _, err := ex.ExecContext(ctx,
		`DELETE FROM user_blocks WHERE blocker_id = $1 AND blocked_id = $2`,
		blockerID, blockedID); err != nil {
		return fmt.Errorf("failed to unblock user: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetBlockedUserIDs(ctx context.Context, userID string) ([]string, error) {
	ex := database.Executor(ctx, r.db)

	var ids []string
	err := sqlx.SelectContext(ctx, ex, &ids,
		`SELECT blocked_id FROM user_blocks WHERE blocker_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked users: %w", err)
	}
	return ids, nil
}

func (r *postgresRepository) GetBlockedProfiles(ctx context.Context, userID string) ([]PublicProfile, error) {
	ex := database.Executor(ctx, r.db)

	var profiles []PublicProfile
	err := sqlx.SelectContext(ctx, ex, &profiles,
		`SELECT u.user_id, u.first_name, u.last_name, u.profile_picture_url, u.zipcode, u.stickers
		 FROM user_blocks b
		 JOIN users u ON u.user_id = b.blocked_id
		 WHERE b.blocker_id = $1
		 ORDER BY b.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked profiles: %w", err)
	}
	return profiles, nil
}
