package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/presence"
)

// RoomService is the slice of the channel service the hub needs:
// authorization for room joins and the seen-marking write path.
type RoomService interface {
	AuthorizeJoin(ctx context.Context, taskID uuid.UUID, ident domain.Identity) error
	MarkSeen(ctx context.Context, ident domain.Identity, taskID, messageID uuid.UUID) (bool, error)
}

// Hub manages all active WebSocket clients and routes events. A single
// logical user may hold several connections at once (tabs, devices), so
// clients are indexed both as a set and per user.
type Hub struct {
	clients map[*Client]struct{}
	byUser  map[uuid.UUID]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
	direct     chan *directMsg

	tracker *presence.Tracker
	rooms   RoomService
}

type broadcastMsg struct {
	taskID uuid.UUID
	data   []byte
}

type directMsg struct {
	userID uuid.UUID
	data   []byte
}

func NewHub(tracker *presence.Tracker, rooms RoomService) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		byUser:     make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		direct:     make(chan *directMsg, 256),
		tracker:    tracker,
		rooms:      rooms,
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			set, ok := h.byUser[client.ident.UserID]
			if !ok {
				set = make(map[*Client]struct{})
				h.byUser[client.ident.UserID] = set
			}
			set[client] = struct{}{}
			h.tracker.Connect(client.ident.UserID)
			log.Info().
				Str("user_id", client.ident.UserID.String()).
				Int("connections", len(h.clients)).
				Msg("ws: connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().
					Str("user_id", client.ident.UserID.String()).
					Int("connections", len(h.clients)).
					Msg("ws: disconnected")
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if !client.InRoom(msg.taskID) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Buffer full, the client is not draining.
					h.drop(client)
				}
			}

		case msg := <-h.direct:
			for client := range h.byUser[msg.userID] {
				select {
				case client.send <- msg.data:
				default:
					h.drop(client)
				}
			}
		}
	}
}

// drop removes a client and unwinds its presence state synchronously:
// deferred cleanup would leave stale "watching" entries that suppress
// notifications to a user who has in fact left.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	if set, ok := h.byUser[client.ident.UserID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.byUser, client.ident.UserID)
		}
	}
	close(client.send)
	close(client.done)

	h.tracker.Disconnect(client.ident.UserID)
	for _, taskID := range client.roomList() {
		h.tracker.LeaveTask(taskID, client.ident.UserID)
	}
}

// BroadcastToRoom sends an event to every connection in a task room.
// Fire-and-forget: marshal failures are logged and swallowed.
func (h *Hub) BroadcastToRoom(taskID uuid.UUID, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Msg("ws: broadcast marshal failed")
		return
	}
	h.broadcast <- &broadcastMsg{taskID: taskID, data: data}
}

// SendToUser delivers an event to every connection a user holds.
func (h *Hub) SendToUser(userID uuid.UUID, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Msg("ws: direct marshal failed")
		return
	}
	h.direct <- &directMsg{userID: userID, data: data}
}
