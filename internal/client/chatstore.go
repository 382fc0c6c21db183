// Package client implements the client side of the chat service: the
// websocket session, the reactive local message log and the auth and
// provider stores backing the bring-your-own-model widget.
package client

import (
	"sync"

	"github.com/byom-labs/byom-chat/internal/model"
)

// ChatStore is the reactive per-conversation message log. It holds both
// server-confirmed messages and local-only state: optimistic copies of
// in-flight sends and ephemeral AI-turn messages.
type ChatStore struct {
	mu        sync.RWMutex
	logs      map[string][]model.Message
	listeners map[int]func()
	nextID    int
}

// NewChatStore creates an empty store.
func NewChatStore() *ChatStore {
	return &ChatStore{
		logs:      make(map[string][]model.Message),
		listeners: make(map[int]func()),
	}
}

// Messages returns a snapshot of the conversation's local log.
func (s *ChatStore) Messages(conversationID string) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[conversationID]
	out := make([]model.Message, len(log))
	copy(out, log)
	return out
}

// Snapshot returns the most recent messages trimmed to identity fields,
// the shape forwarded to the AI provider as conversation context.
func (s *ChatStore) Snapshot(conversationID string, limit int) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[conversationID]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}

	out := make([]model.Message, len(log))
	for i, msg := range log {
		out[i] = model.Message{
			Author: msg.Author,
			Role:   msg.Role,
			Text:   msg.Text,
			TS:     msg.TS,
		}
	}
	return out
}

// Set replaces the conversation's log, as on a fresh history.
func (s *ChatStore) Set(conversationID string, msgs []model.Message) {
	s.mu.Lock()
	log := make([]model.Message, len(msgs))
	copy(log, msgs)
	s.logs[conversationID] = log
	s.mu.Unlock()

	s.notify()
}

// Add upserts a message. A message with a known ID replaces the existing
// entry in place, which is how the broadcast echo of an optimistic send
// confirms it instead of duplicating it.
func (s *ChatStore) Add(conversationID string, msg model.Message) {
	s.mu.Lock()
	log := s.logs[conversationID]
	replaced := false
	if msg.ID != "" {
		for i := range log {
			if log[i].ID == msg.ID {
				log[i] = msg
				replaced = true
				break
			}
		}
	}
	if !replaced {
		log = append(log, msg)
	}
	s.logs[conversationID] = log
	s.mu.Unlock()

	s.notify()
}

// Subscribe registers a change listener and returns its cancel func.
// Listeners are invoked after every mutation, snapshot-then-notify.
func (s *ChatStore) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *ChatStore) notify() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
