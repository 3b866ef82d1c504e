package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications
			(id, task_id, recipient_id, actor_id, actor_name, actor_email, actor_role,
			 type, text, redirect_url, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.pool.Exec(ctx, query,
		n.ID, n.TaskID, n.RecipientID,
		n.Actor.ID, n.Actor.DisplayName, n.Actor.Email, n.Actor.Role,
		n.Type, n.Text, n.RedirectURL, n.Meta, n.CreatedAt,
	)
	return err
}

func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]domain.Notification, error) {
	query := fmt.Sprintf(`
		SELECT id, task_id, recipient_id, actor_id, actor_name, actor_email, actor_role,
			type, text, redirect_url, meta, read_at, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID, &n.TaskID, &n.RecipientID,
			&n.Actor.ID, &n.Actor.DisplayName, &n.Actor.Email, &n.Actor.Role,
			&n.Type, &n.Text, &n.RedirectURL, &n.Meta, &n.ReadAt, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead batch-marks every unread notification in the
// (recipient, task, type) scope.
func (r *NotificationRepo) MarkRead(ctx context.Context, recipientID, taskID uuid.UUID, notifType string, readAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read_at = $1
		WHERE recipient_id = $2 AND task_id = $3 AND type = $4 AND read_at IS NULL`,
		readAt, recipientID, taskID, notifType,
	)
	return err
}

func (r *NotificationRepo) Delete(ctx context.Context, id, recipientID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`,
		id, recipientID,
	)
	return err
}

func (r *NotificationRepo) CountUnread(ctx context.Context, recipientID, taskID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND task_id = $2 AND read_at IS NULL`,
		recipientID, taskID,
	).Scan(&count)
	return count, err
}
