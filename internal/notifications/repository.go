// internal/notifications/repository.go
// PostgreSQL persistence for in-app notifications

package notifications

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/daymatch/daymatch-backend/internal/common/database"
)

// Repository defines notification data access
type Repository interface {
	// CreateNotification participates in a context-carried transaction so a
	// proposal row and its notification commit or roll back together.
	CreateNotification(ctx context.Context, n *Notification) error
	GetUserNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error)
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewRepository creates a new notifications repository
func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateNotification(ctx context.Context, n *Notification) error {
	ex := database.Executor(ctx, r.db)

	query := `
		INSERT INTO notifications (user_id, message, type, status, related_entity_id, proposing_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING notification_id, created_at`

	if n.Status == "" {
		n.Status = StatusUnread
	}

	err := ex.QueryRowxContext(ctx, query,
		n.UserID, n.Message, n.Type, n.Status, n.RelatedEntityID, n.ProposingUserID,
	).Scan(&n.NotificationID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetUserNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	ex := database.Executor(ctx, r.db)

	var items []Notification
	err := sqlx.SelectContext(ctx, ex, &items,
		`SELECT * FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, nil
}

func (r *postgresRepository) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	ex := database.Executor(ctx, r.db)

	result, err := ex.ExecContext(ctx,
		`UPDATE notifications SET status = $1 WHERE user_id = $2 AND status = $3`,
		StatusRead, userID, StatusUnread)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

func (r *postgresRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	ex := database.Executor(ctx, r.db)

	var count int
	err := ex.QueryRowxContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND status = $2`,
		userID, StatusUnread,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
