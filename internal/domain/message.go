package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	MessageKindPlain          MessageKind = "plain"
	MessageKindSystem         MessageKind = "system"
	MessageKindDueDateRequest MessageKind = "due_date_request"
)

type DueDateStatus string

const (
	DueDateStatusPending  DueDateStatus = "pending"
	DueDateStatusApproved DueDateStatus = "approved"
	DueDateStatusRejected DueDateStatus = "rejected"
)

// DueDateRequest is the approval sub-state embedded in a due_date_request
// message. Status only ever leaves pending once.
type DueDateRequest struct {
	ProposedDueDate time.Time     `json:"proposed_due_date"`
	Reason          string        `json:"reason"`
	Status          DueDateStatus `json:"status"`
	DecidedBy       *uuid.UUID    `json:"decided_by,omitempty"`
	DecidedAt       *time.Time    `json:"decided_at,omitempty"`
}

type SeenEntry struct {
	UserID uuid.UUID `json:"user_id"`
	SeenAt time.Time `json:"seen_at"`
}

// Message is the tagged union stored in a task channel. DueDate is
// non-nil iff Kind is due_date_request; Text is nil for deleted messages.
type Message struct {
	ID        uuid.UUID       `json:"id"`
	TaskID    uuid.UUID       `json:"task_id"`
	AuthorID  *uuid.UUID      `json:"author_id,omitempty"`
	Kind      MessageKind     `json:"kind"`
	Text      *string         `json:"text,omitempty"`
	ReplyToID *uuid.UUID      `json:"reply_to_id,omitempty"`
	DueDate   *DueDateRequest `json:"due_date_request,omitempty"`
	SeenBy    []SeenEntry     `json:"seen_by,omitempty"`
	EditedAt  *time.Time      `json:"edited_at,omitempty"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	// Joined fields
	AuthorName string `json:"author_name,omitempty"`
}

func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}
