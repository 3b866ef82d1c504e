package ws

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
)

// HubNotifier implements service.Notifier using the WebSocket Hub.
// Room members always get the live event; notification suppression for
// active watchers happens upstream in the dispatcher.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyNewMessage(msg *domain.Message) {
	n.broadcast(EventTypeNewMessage, msg)
}

func (n *HubNotifier) NotifyEditedMessage(msg *domain.Message) {
	n.broadcast(EventTypeMessageUpdated, msg)
}

func (n *HubNotifier) NotifyDeletedMessage(taskID, messageID uuid.UUID) {
	evt, err := NewEvent(EventTypeMessageDeleted, &taskID, MessageDeletedPayload{ID: messageID})
	if err != nil {
		log.Warn().Err(err).Msg("ws notifier: marshal error")
		return
	}
	n.hub.BroadcastToRoom(taskID, evt)
}

func (n *HubNotifier) NotifyTaskSeen(taskID, messageID, userID uuid.UUID) {
	evt, err := NewEvent(EventTypeTaskSeen, &taskID, TaskSeenPayload{
		TaskID:    taskID,
		MessageID: messageID,
		UserID:    userID,
	})
	if err != nil {
		log.Warn().Err(err).Msg("ws notifier: marshal error")
		return
	}
	n.hub.BroadcastToRoom(taskID, evt)
}

func (n *HubNotifier) NotifyDueDateRequested(msg *domain.Message) {
	n.broadcast(EventTypeDueDateRequested, msg)
}

func (n *HubNotifier) NotifyDueDateDecided(msg *domain.Message) {
	eventType := EventTypeDueDateRejected
	if msg.DueDate != nil && msg.DueDate.Status == domain.DueDateStatusApproved {
		eventType = EventTypeDueDateApproved
	}
	n.broadcast(eventType, msg)
}

func (n *HubNotifier) NotifyTaskNotification(userID uuid.UUID, notification *domain.Notification, unread int) {
	evt, err := NewEvent(EventTypeTaskNotification, &notification.TaskID, NotificationPayload{
		Notification: *notification,
		UnreadCount:  unread,
	})
	if err != nil {
		log.Warn().Err(err).Msg("ws notifier: marshal error")
		return
	}
	n.hub.SendToUser(userID, evt)
}

func (n *HubNotifier) broadcast(eventType string, msg *domain.Message) {
	evt, err := NewEvent(eventType, &msg.TaskID, MessagePayload{Message: *msg})
	if err != nil {
		log.Warn().Err(err).Msg("ws notifier: marshal error")
		return
	}
	n.hub.BroadcastToRoom(msg.TaskID, evt)
}
