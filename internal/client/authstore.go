package client

import (
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// AuthStore holds the bearer credential and the unauthorized flag raised
// when the provider backend rejects it. Reactive, same listener contract
// as the ChatStore.
type AuthStore struct {
	mu           sync.RWMutex
	token        string
	unauthorized bool
	listeners    map[int]func()
	nextID       int
}

// NewAuthStore creates an empty store.
func NewAuthStore() *AuthStore {
	return &AuthStore{listeners: make(map[int]func())}
}

// SetToken stores a fresh credential and clears the unauthorized flag.
func (s *AuthStore) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.unauthorized = false
	s.mu.Unlock()

	s.notify()
}

// Token returns the current credential, empty when signed out.
func (s *AuthStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// UserID returns the token subject without verifying the signature; the
// server is the authority, this is display identity only.
func (s *AuthStore) UserID() string {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// HandleUnauthorized clears the credential and raises the re-auth flag.
// Called by the API client on any 401.
func (s *AuthStore) HandleUnauthorized() {
	s.mu.Lock()
	s.token = ""
	s.unauthorized = true
	s.mu.Unlock()

	s.notify()
}

// Unauthorized reports whether a re-authentication prompt is pending.
func (s *AuthStore) Unauthorized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unauthorized
}

// ConsumeUnauthorized clears the pending re-auth flag.
func (s *AuthStore) ConsumeUnauthorized() {
	s.mu.Lock()
	changed := s.unauthorized
	s.unauthorized = false
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Subscribe registers a change listener and returns its cancel func.
func (s *AuthStore) Subscribe(fn func()) func() {
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

func (s *AuthStore) notify() {
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
