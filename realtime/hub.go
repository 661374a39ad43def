package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FiveEightyEight/scripturequest/models"
)

// Hub fans events out to the clients subscribed to a room. Publishing never
// blocks on a client: a full send queue drops the event for that client.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]map[string]struct{}

	dropped atomic.Int64
	now     func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]map[string]struct{}),
		now:     time.Now,
	}
}

// Register tracks a connected client before it joins any room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		h.clients[c] = make(map[string]struct{})
	}
}

func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}

	joined, ok := h.clients[c]
	if !ok {
		joined = make(map[string]struct{})
		h.clients[c] = joined
	}
	joined[room] = struct{}{}
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(c, room)
}

// Remove unsubscribes c from every room and returns the rooms it was in.
func (h *Hub) Remove(c *Client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var rooms []string
	for room := range h.clients[c] {
		rooms = append(rooms, room)
		h.leave(c, room)
	}
	delete(h.clients, c)
	return rooms
}

func (h *Hub) leave(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if joined, ok := h.clients[c]; ok {
		delete(joined, room)
	}
}

// Publish implements the coordinator's broadcaster. It returns how many
// clients the event was queued for.
func (h *Hub) Publish(room, eventType string, payload interface{}) int {
	data, err := json.Marshal(models.Event{
		Type:      eventType,
		Room:      room,
		Payload:   payload,
		Timestamp: h.now(),
	})
	if err != nil {
		log.Printf("realtime: failed to encode %s event for %s: %v", eventType, room, err)
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	queued := 0
	for _, c := range targets {
		if c.enqueue(data) {
			queued++
		} else {
			h.dropped.Add(1)
		}
	}
	return queued
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) InRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[c][room]
	return ok
}

// Connected reports whether playerID still has any open connection.
func (h *Hub) Connected(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.PlayerID() == playerID {
			return true
		}
	}
	return false
}

func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
