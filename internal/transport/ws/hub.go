package ws

import (
	"log/slog"
	"sync"

	"github.com/andersCTO/monstrens-natt/internal/model"
)

// Hub tracks every live connection and the room each one currently sits in.
// Rooms are keyed by session code; a connection is in at most one room.
type Hub struct {
	mu      sync.RWMutex
	clients map[model.ConnectionID]*Client
	rooms   map[string]map[model.ConnectionID]*Client
	inRoom  map[model.ConnectionID]string
	logger  *slog.Logger
}

// NewHub creates an empty Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[model.ConnectionID]*Client),
		rooms:   make(map[string]map[model.ConnectionID]*Client),
		inRoom:  make(map[model.ConnectionID]string),
		logger:  logger.With(slog.String("component", "ws_hub")),
	}
}

// Register adds a connected client
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client registered",
		slog.String("connection_id", string(client.id)),
		slog.Int("total_clients", total))
}

// Unregister drops a client and removes it from its room
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	h.removeFromRoomLocked(client.id)
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client unregistered",
		slog.String("connection_id", string(client.id)),
		slog.Int("total_clients", total))
}

// JoinRoom moves a connection into a room, leaving any previous one
func (h *Hub) JoinRoom(conn model.ConnectionID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[conn]
	if !ok {
		return
	}

	h.removeFromRoomLocked(conn)

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[model.ConnectionID]*Client)
		h.rooms[room] = members
	}
	members[conn] = client
	h.inRoom[conn] = room
}

// LeaveRoom removes a connection from its current room
func (h *Hub) LeaveRoom(conn model.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(conn)
}

// CloseRoom removes every member of a room without disconnecting them
func (h *Hub) CloseRoom(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.rooms[room] {
		delete(h.inRoom, conn)
	}
	delete(h.rooms, room)
}

// SendTo delivers a message to one connection, if it is still around
func (h *Hub) SendTo(conn model.ConnectionID, event Event, payload any) {
	h.mu.RLock()
	client, ok := h.clients[conn]
	h.mu.RUnlock()

	if ok {
		client.SendEvent(event, payload)
	}
}

// BroadcastRoom delivers a message to every member of a room
func (h *Hub) BroadcastRoom(room string, event Event, payload any) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for _, client := range h.rooms[room] {
		members = append(members, client)
	}
	h.mu.RUnlock()

	for _, client := range members {
		client.SendEvent(event, payload)
	}
}

// BroadcastAll delivers a message to every connected client
func (h *Hub) BroadcastAll(event Event, payload any) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.SendEvent(event, payload)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) removeFromRoomLocked(conn model.ConnectionID) {
	room, ok := h.inRoom[conn]
	if !ok {
		return
	}
	delete(h.inRoom, conn)
	if members, ok := h.rooms[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}
