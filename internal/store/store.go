// Package store provides the in-memory conversation store.
package store

import (
	"sync"

	"github.com/byom-labs/byom-chat/internal/model"
	"github.com/byom-labs/byom-chat/pkg/metrics"
)

// HistoryLimit is the maximum number of messages retained per conversation.
// Older entries are evicted FIFO on overflow.
const HistoryLimit = 1000

// Store is the conversation log contract consumed by the gateway.
// Conversations are created lazily and never removed.
type Store interface {
	// Ensure returns the conversation log, creating an empty one if
	// absent. Idempotent.
	Ensure(conversationID string) []model.Message

	// Append adds a message to the conversation log, evicting the oldest
	// entries beyond HistoryLimit. Never fails for valid inputs.
	Append(conversationID string, msg model.Message)

	// Read returns the retained log in insertion order. Unknown
	// conversations yield an empty slice.
	Read(conversationID string) []model.Message
}

// MemoryStore is a mutex-guarded in-memory Store.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]model.Message
	limit         int
}

// NewMemoryStore creates an empty store with the default history limit.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string][]model.Message),
		limit:         HistoryLimit,
	}
}

// Ensure returns the conversation log, creating an empty one if absent.
func (s *MemoryStore) Ensure(conversationID string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, exists := s.conversations[conversationID]
	if !exists {
		s.conversations[conversationID] = []model.Message{}
		metrics.ConversationsTotal.Inc()
		return []model.Message{}
	}

	out := make([]model.Message, len(log))
	copy(out, log)
	return out
}

// Append adds a message and truncates the log to the most recent entries.
func (s *MemoryStore) Append(conversationID string, msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := append(s.conversations[conversationID], msg)
	if len(log) > s.limit {
		log = log[len(log)-s.limit:]
	}
	s.conversations[conversationID] = log
}

// Read returns a copy of the retained log in insertion order.
func (s *MemoryStore) Read(conversationID string) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.conversations[conversationID]
	out := make([]model.Message, len(log))
	copy(out, log)
	return out
}
