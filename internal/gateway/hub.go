package gateway

import (
	"sync"
)

// Session is one connected client as seen by the hub. The websocket
// transport implements it; tests substitute fakes.
type Session interface {
	// Send delivers a single event to this session. Best effort: the
	// gateway never retries and ignores delivery errors.
	Send(event string, data any) error
}

// Hub tracks room membership and fans events out to room members. The
// mutex guards membership against concurrent joins and broadcasts;
// delivery order across broadcasts is the caller's concern.
type Hub struct {
	mu      sync.Mutex
	rooms   map[string]map[Session]struct{}
	members map[Session]string
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[Session]struct{}),
		members: make(map[Session]string),
	}
}

// Join subscribes a session to a conversation room, leaving any previous
// room first. One room per session.
func (h *Hub) Join(s Session, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(s)
	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[Session]struct{})
		h.rooms[conversationID] = room
	}
	room[s] = struct{}{}
	h.members[s] = conversationID
}

// Leave removes a session from its room. No departure event is sent.
func (h *Hub) Leave(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(s)
}

func (h *Hub) leaveLocked(s Session) {
	conversationID, ok := h.members[s]
	if !ok {
		return
	}
	delete(h.members, s)
	if room, ok := h.rooms[conversationID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// Room returns the number of sessions joined to a conversation.
func (h *Hub) Room(conversationID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[conversationID])
}

// Broadcast sends an event to every session joined to the conversation,
// including the originator.
func (h *Hub) Broadcast(conversationID, event string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.rooms[conversationID] {
		_ = s.Send(event, data)
	}
}
