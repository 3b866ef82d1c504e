package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const messageColumns = `
	m.id, m.task_id, m.author_id, m.kind, m.text, m.reply_to_id,
	m.due_proposed, m.due_reason, m.due_status, m.due_decided_by, m.due_decided_at,
	m.edited_at, m.deleted_at, m.created_at, COALESCE(u.display_name, '')`

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	var dueProposed *time.Time
	var dueReason, dueStatus *string
	var dueDecidedBy *uuid.UUID
	var dueDecidedAt *time.Time

	err := row.Scan(
		&msg.ID, &msg.TaskID, &msg.AuthorID, &msg.Kind, &msg.Text, &msg.ReplyToID,
		&dueProposed, &dueReason, &dueStatus, &dueDecidedBy, &dueDecidedAt,
		&msg.EditedAt, &msg.DeletedAt, &msg.CreatedAt, &msg.AuthorName,
	)
	if err != nil {
		return nil, err
	}

	if msg.Kind == domain.MessageKindDueDateRequest && dueProposed != nil && dueStatus != nil {
		reason := ""
		if dueReason != nil {
			reason = *dueReason
		}
		msg.DueDate = &domain.DueDateRequest{
			ProposedDueDate: *dueProposed,
			Reason:          reason,
			Status:          domain.DueDateStatus(*dueStatus),
			DecidedBy:       dueDecidedBy,
			DecidedAt:       dueDecidedAt,
		}
	}
	return &msg, nil
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO channel_messages
			(id, task_id, author_id, kind, text, reply_to_id, due_proposed, due_reason, due_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var dueProposed *time.Time
	var dueReason, dueStatus *string
	if msg.DueDate != nil {
		dueProposed = &msg.DueDate.ProposedDueDate
		dueReason = &msg.DueDate.Reason
		status := string(msg.DueDate.Status)
		dueStatus = &status
	}

	_, err = tx.Exec(ctx, query,
		msg.ID, msg.TaskID, msg.AuthorID, msg.Kind, msg.Text, msg.ReplyToID,
		dueProposed, dueReason, dueStatus, msg.CreatedAt,
	)
	if err != nil {
		return err
	}

	// Author sees their own message immediately.
	for _, seen := range msg.SeenBy {
		_, err = tx.Exec(ctx,
			`INSERT INTO message_seen (message_id, user_id, seen_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			msg.ID, seen.UserID, seen.SeenAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM channel_messages m
		LEFT JOIN users u ON m.author_id = u.id
		WHERE m.id = $1`

	msg, err := scanMessage(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	seen, err := r.loadSeen(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	msg.SeenBy = seen[id]
	return msg, nil
}

func (r *MessageRepo) ListByTask(ctx context.Context, taskID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM channel_messages m
		LEFT JOIN users u ON m.author_id = u.id
		WHERE m.task_id = $1`
	args := []any{taskID}

	if before != nil {
		query += ` AND m.created_at < (SELECT created_at FROM channel_messages WHERE id = $2)`
		args = append(args, *before)
	}
	query += fmt.Sprintf(` ORDER BY m.created_at DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	var ids []uuid.UUID
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
		ids = append(ids, msg.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	seen, err := r.loadSeen(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].SeenBy = seen[messages[i].ID]
	}

	// Query returns newest first; reverse to chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepo) UpdateText(ctx context.Context, id uuid.UUID, text string, editedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE channel_messages SET text = $1, edited_at = $2 WHERE id = $3`,
		text, editedAt, id,
	)
	return err
}

func (r *MessageRepo) SoftDelete(ctx context.Context, id uuid.UUID, deletedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE channel_messages SET text = NULL, deleted_at = $1 WHERE id = $2`,
		deletedAt, id,
	)
	return err
}

// MarkSeen is an atomic insert-if-absent; concurrent calls for the same
// (message, user) pair produce exactly one row.
func (r *MessageRepo) MarkSeen(ctx context.Context, messageID, userID uuid.UUID, seenAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO message_seen (message_id, user_id, seen_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		messageID, userID, seenAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DecideDueDate performs the check-and-set on the request status. The
// task's due date update and reminder reset ride in the same transaction
// so an approved request and a stale task date can never coexist.
func (r *MessageRepo) DecideDueDate(ctx context.Context, messageID uuid.UUID, status domain.DueDateStatus, deciderID uuid.UUID, decidedAt time.Time, newTaskDue *time.Time) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var taskID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE channel_messages
		SET due_status = $2, due_decided_by = $3, due_decided_at = $4
		WHERE id = $1 AND kind = 'due_date_request' AND due_status = 'pending'
		RETURNING task_id`,
		messageID, string(status), deciderID, decidedAt,
	).Scan(&taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if newTaskDue != nil {
		_, err = tx.Exec(ctx,
			`UPDATE tasks SET due_date = $1, reminder_sent_at = NULL WHERE id = $2`,
			*newTaskDue, taskID,
		)
		if err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *MessageRepo) loadSeen(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.SeenEntry, error) {
	out := make(map[uuid.UUID][]domain.SeenEntry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT message_id, user_id, seen_at FROM message_seen WHERE message_id = ANY($1) ORDER BY seen_at`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msgID uuid.UUID
		var entry domain.SeenEntry
		if err := rows.Scan(&msgID, &entry.UserID, &entry.SeenAt); err != nil {
			return nil, err
		}
		out[msgID] = append(out[msgID], entry)
	}
	return out, rows.Err()
}
