package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
	sendBufSize    = 256
	callTimeout    = 5 * time.Second
)

// Client represents a single WebSocket connection. One user may hold
// several clients at once.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	ident domain.Identity

	// rooms tracks which task rooms this connection has joined, for
	// routing broadcasts and for presence cleanup on disconnect.
	rooms map[uuid.UUID]struct{}
	mu    sync.RWMutex

	send chan []byte
	done chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, ident domain.Identity) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		ident: ident,
		rooms: make(map[uuid.UUID]struct{}),
		send:  make(chan []byte, sendBufSize),
		done:  make(chan struct{}),
	}
}

// InRoom checks if this connection has joined a task room.
func (c *Client) InRoom(taskID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[taskID]
	return ok
}

func (c *Client) joinRoom(taskID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[taskID] = struct{}{}
}

func (c *Client) leaveRoom(taskID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, taskID)
}

func (c *Client) roomList() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}

// ReadPump reads events from the WebSocket and routes them.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Debug().Str("user_id", c.ident.UserID.String()).Msg("ws: client closed")
			} else {
				log.Warn().Err(err).Str("user_id", c.ident.UserID.String()).Msg("ws: read error")
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes events from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				log.Warn().Err(err).Str("user_id", c.ident.UserID.String()).Msg("ws: write error")
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleEvent routes an incoming client event. Room joins are
// fail-closed: any authorization failure emits a room-error and
// terminates the session rather than leaving it in limbo. Routine races
// on mark-task-seen are ignored silently.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeJoinTaskRoom:
		var p TaskRoomPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid join-task-room payload")
			return
		}
		c.handleJoin(p.TaskID)

	case EventTypeLeaveTaskRoom:
		var p TaskRoomPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid leave-task-room payload")
			return
		}
		c.leaveRoom(p.TaskID)
		c.hub.tracker.LeaveTask(p.TaskID, c.ident.UserID)

	case EventTypeHeartbeat:
		c.hub.tracker.Heartbeat(c.ident.UserID)

	case EventTypeMarkTaskSeen:
		var p MarkSeenPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid mark-task-seen payload")
			return
		}
		c.handleMarkSeen(p)

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) handleJoin(taskID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	if err := c.hub.rooms.AuthorizeJoin(ctx, taskID, c.ident); err != nil {
		log.Info().
			Str("user_id", c.ident.UserID.String()).
			Str("task_id", taskID.String()).
			Msg("ws: room join refused")
		c.sendError("ROOM_FORBIDDEN", "no access to this task room")
		c.conn.Close(websocket.StatusPolicyViolation, "room join refused")
		return
	}

	c.joinRoom(taskID)
	c.hub.tracker.JoinTask(taskID, c.ident.UserID)
}

func (c *Client) handleMarkSeen(p MarkSeenPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	_, err := c.hub.rooms.MarkSeen(ctx, c.ident, p.TaskID, p.MessageID)
	switch {
	case err == nil:
		// Seen broadcast, when one is due, comes from the service.
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotAssignee):
		c.sendError("ROOM_FORBIDDEN", "no access to this task room")
		c.conn.Close(websocket.StatusPolicyViolation, "room access refused")
	default:
		// Unknown message, deleted message, stale task: routine races
		// on a live channel, not worth closing the connection over.
		log.Debug().Err(err).Str("user_id", c.ident.UserID.String()).Msg("ws: mark seen ignored")
	}
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong})
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(code, message string) {
	evt, err := NewEvent(EventTypeRoomError, nil, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
