package client

import (
	"context"
	"errors"
	"sync"

	"github.com/byom-labs/byom-chat/internal/model"
)

// ProviderState is a snapshot of the provider store.
type ProviderState struct {
	Connected    bool
	Provider     model.ProviderName
	MaskedConfig *model.ProviderConfig
	Err          string
}

// ProviderStore tracks the account's registered model provider. Reactive,
// same listener contract as the ChatStore.
type ProviderStore struct {
	mu        sync.RWMutex
	state     ProviderState
	listeners map[int]func()
	nextID    int

	api *API
}

// NewProviderStore creates a store backed by the given API client.
func NewProviderStore(api *API) *ProviderStore {
	return &ProviderStore{
		api:       api,
		listeners: make(map[int]func()),
	}
}

// State returns a snapshot.
func (s *ProviderStore) State() ProviderState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Bootstrap loads the current registration. A 404 means no provider is
// connected and is not an error.
func (s *ProviderStore) Bootstrap(ctx context.Context) error {
	resp, err := s.api.GetProvider(ctx)
	if errors.Is(err, ErrNotFound) {
		s.setState(ProviderState{})
		return nil
	}
	if err != nil {
		s.setError(err)
		return err
	}

	s.apply(resp)
	return nil
}

// Register submits a registration and reads it back to pick up masked
// values.
func (s *ProviderStore) Register(ctx context.Context, reg model.ProviderRegistration) error {
	if err := s.api.RegisterProvider(ctx, reg); err != nil {
		s.setError(err)
		return err
	}

	resp, err := s.api.GetProvider(ctx)
	if err != nil {
		s.setError(err)
		return err
	}

	s.apply(resp)
	return nil
}

// Disconnect removes the registration.
func (s *ProviderStore) Disconnect(ctx context.Context) error {
	if err := s.api.DeleteProvider(ctx); err != nil && !errors.Is(err, ErrNotFound) {
		s.setError(err)
		return err
	}

	s.setState(ProviderState{})
	return nil
}

// Subscribe registers a change listener and returns its cancel func.
func (s *ProviderStore) Subscribe(fn func()) func() {
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

func (s *ProviderStore) apply(resp *model.ProviderResponse) {
	if resp == nil || resp.Provider == nil {
		s.setState(ProviderState{})
		return
	}
	cfg := resp.Provider.Config
	s.setState(ProviderState{
		Connected:    true,
		Provider:     resp.Provider.Provider,
		MaskedConfig: &cfg,
	})
}

func (s *ProviderStore) setError(err error) {
	s.mu.Lock()
	s.state.Err = err.Error()
	s.mu.Unlock()
	s.notify()
}

func (s *ProviderStore) setState(state ProviderState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.notify()
}

func (s *ProviderStore) notify() {
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
