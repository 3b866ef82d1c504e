package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT t.id, t.title, t.is_personal, t.owner_id, t.due_date, t.reminder_sent_at, t.created_at,
			COALESCE(array_agg(a.user_id) FILTER (WHERE a.user_id IS NOT NULL), '{}')
		FROM tasks t
		LEFT JOIN task_assignees a ON a.task_id = t.id
		WHERE t.id = $1
		GROUP BY t.id`

	var task domain.Task
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&task.ID, &task.Title, &task.IsPersonal, &task.OwnerID,
		&task.DueDate, &task.ReminderSentAt, &task.CreatedAt,
		&task.AssignedUserIDs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepo) SetDueDate(ctx context.Context, id uuid.UUID, due time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tasks SET due_date = $1, reminder_sent_at = NULL WHERE id = $2`,
		due, id,
	)
	return err
}
