package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification types fanned out by the dispatcher.
const (
	NotificationTypeChannelMessage  = "channel_message"
	NotificationTypeDueDateRequest  = "due_date_request"
	NotificationTypeDueDateDecision = "due_date_decision"
)

// ActorSnapshot is a denormalized copy of the actor's display fields at
// creation time, so old notifications stay stable if the profile changes.
type ActorSnapshot struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
}

type Notification struct {
	ID          uuid.UUID      `json:"id"`
	TaskID      uuid.UUID      `json:"task_id"`
	RecipientID uuid.UUID      `json:"recipient_id"`
	Actor       ActorSnapshot  `json:"actor"`
	Type        string         `json:"type"`
	Text        string         `json:"text"`
	RedirectURL string         `json:"redirect_url,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
