// Package provider implements the provider registration backend: one
// bring-your-own-model registration per account, with secrets masked on
// every read-back.
package provider

import (
	"fmt"
	"strings"
	"sync"

	"github.com/byom-labs/byom-chat/internal/llm"
	"github.com/byom-labs/byom-chat/internal/model"
)

// ClientFactory builds an LLM client for a registration. Injected so tests
// can substitute fakes.
type ClientFactory func(reg model.ProviderRegistration) (llm.Client, error)

// DefaultClientFactory dispatches on the registered provider name.
func DefaultClientFactory(reg model.ProviderRegistration) (llm.Client, error) {
	switch reg.Provider {
	case model.ProviderOpenAI:
		return llm.NewOpenAIClient(reg.Config.APIKey)
	case model.ProviderAnthropic:
		return llm.NewAnthropicClient(reg.Config.APIKey)
	case model.ProviderHTTP:
		return llm.NewHTTPClient(reg.Config.Endpoint, reg.Config.APIKey)
	default:
		return nil, fmt.Errorf("unknown provider %q", reg.Provider)
	}
}

// Registry holds provider registrations keyed by account. Plaintext
// secrets never leave the registry; Get returns a masked copy.
type Registry struct {
	mu       sync.RWMutex
	accounts map[string]model.ProviderRegistration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{accounts: make(map[string]model.ProviderRegistration)}
}

// Register validates and stores a registration, replacing any previous one
// for the account.
func (r *Registry) Register(account string, reg model.ProviderRegistration) error {
	if err := validate(reg); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account] = reg
	return nil
}

// Get returns the account's registration with secrets masked.
func (r *Registry) Get(account string) (model.ProviderRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.accounts[account]
	if !ok {
		return model.ProviderRegistration{}, false
	}
	reg.Config.APIKey = maskSecret(reg.Config.APIKey)
	return reg, true
}

// Resolve returns the unmasked registration for dispatching a chat call.
func (r *Registry) Resolve(account string) (model.ProviderRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.accounts[account]
	return reg, ok
}

// Delete removes the account's registration.
func (r *Registry) Delete(account string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.accounts[account]
	delete(r.accounts, account)
	return ok
}

func validate(reg model.ProviderRegistration) error {
	switch reg.Provider {
	case model.ProviderOpenAI, model.ProviderAnthropic:
		if reg.Config.APIKey == "" {
			return fmt.Errorf("provider %s requires an API key", reg.Provider)
		}
	case model.ProviderHTTP:
		if reg.Config.Endpoint == "" {
			return fmt.Errorf("provider %s requires an endpoint", reg.Provider)
		}
	default:
		return fmt.Errorf("unknown provider %q", reg.Provider)
	}
	return nil
}

// maskSecret obscures a secret, keeping the last four characters for
// display. Short secrets are fully masked.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("•", 8)
	}
	return strings.Repeat("•", 8) + s[len(s)-4:]
}
