package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListPrivileged(ctx context.Context) ([]domain.User, error)
}

type TaskRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	SetDueDate(ctx context.Context, id uuid.UUID, due time.Time) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListByTask(ctx context.Context, taskID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error)
	UpdateText(ctx context.Context, id uuid.UUID, text string, editedAt time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID, deletedAt time.Time) error
	// MarkSeen appends a seenBy entry if the user has none yet for this
	// message. Returns whether an insert actually happened.
	MarkSeen(ctx context.Context, messageID, userID uuid.UUID, seenAt time.Time) (bool, error)
	// DecideDueDate flips a pending request's status with a conditional
	// update; when newTaskDue is non-nil the owning task's due date is
	// set and its reminder marker cleared inside the same transaction.
	// Returns false when the request already left pending.
	DecideDueDate(ctx context.Context, messageID uuid.UUID, status domain.DueDateStatus, deciderID uuid.UUID, decidedAt time.Time, newTaskDue *time.Time) (bool, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, recipientID, taskID uuid.UUID, notifType string, readAt time.Time) error
	Delete(ctx context.Context, id, recipientID uuid.UUID) error
	CountUnread(ctx context.Context, recipientID, taskID uuid.UUID) (int, error)
}
