package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task is the membership snapshot this core reads on every authorization
// check. Assignment can change between checks, so it is always fetched
// fresh and never cached.
type Task struct {
	ID              uuid.UUID   `json:"id"`
	Title           string      `json:"title"`
	AssignedUserIDs []uuid.UUID `json:"assigned_user_ids"`
	IsPersonal      bool        `json:"is_personal"`
	OwnerID         *uuid.UUID  `json:"owner_id,omitempty"`
	DueDate         *time.Time  `json:"due_date,omitempty"`
	ReminderSentAt  *time.Time  `json:"-"`
	CreatedAt       time.Time   `json:"created_at"`
}

func (t *Task) IsAssigned(userID uuid.UUID) bool {
	for _, id := range t.AssignedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
