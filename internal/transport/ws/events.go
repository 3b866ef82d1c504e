package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeJoinTaskRoom  = "join-task-room"
	EventTypeLeaveTaskRoom = "leave-task-room"
	EventTypeHeartbeat     = "presence-heartbeat"
	EventTypeMarkTaskSeen  = "mark-task-seen"
	EventTypePing          = "ping"
)

// Event types - Server → Client
const (
	EventTypeNewMessage       = "new-message"
	EventTypeMessageUpdated   = "message-updated"
	EventTypeMessageDeleted   = "message-deleted"
	EventTypeDueDateRequested = "due-date-requested"
	EventTypeDueDateApproved  = "due-date-approved"
	EventTypeDueDateRejected  = "due-date-rejected"
	EventTypeTaskSeen         = "task-seen"
	EventTypeTaskNotification = "task-notification"
	EventTypeRoomError        = "room-error"
	EventTypePong             = "pong"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	TaskID    *uuid.UUID      `json:"task_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type TaskRoomPayload struct {
	TaskID uuid.UUID `json:"task_id"`
}

type MarkSeenPayload struct {
	TaskID    uuid.UUID `json:"task_id"`
	MessageID uuid.UUID `json:"message_id"`
}

// --- Server → Client payloads ---

type MessagePayload struct {
	domain.Message
}

type MessageDeletedPayload struct {
	ID uuid.UUID `json:"id"`
}

type TaskSeenPayload struct {
	TaskID    uuid.UUID `json:"task_id"`
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
}

type NotificationPayload struct {
	Notification domain.Notification `json:"notification"`
	UnreadCount  int                 `json:"unread_count"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, taskID *uuid.UUID, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		TaskID:    taskID,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
