package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/byom-labs/byom-chat/internal/model"
)

// ErrUnauthorized is returned after a 401; the credential has already
// been cleared and the re-auth flag raised. Never retried automatically.
var ErrUnauthorized = errors.New("unauthorized: please sign in again")

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// API is the HTTP client for the provider backend under /api.
type API struct {
	baseURL string
	auth    *AuthStore
	http    *http.Client
}

// NewAPI creates an API client rooted at baseURL (e.g. "http://host/api").
func NewAPI(baseURL string, auth *AuthStore) *API {
	return &API{
		baseURL: baseURL,
		auth:    auth,
		http:    &http.Client{Timeout: 90 * time.Second},
	}
}

// GetProvider fetches the current registration with masked config.
func (a *API) GetProvider(ctx context.Context) (*model.ProviderResponse, error) {
	var resp model.ProviderResponse
	if err := a.do(ctx, http.MethodGet, "/provider", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterProvider submits a registration.
func (a *API) RegisterProvider(ctx context.Context, reg model.ProviderRegistration) error {
	return a.do(ctx, http.MethodPost, "/register-provider", reg, nil)
}

// DeleteProvider removes the registration.
func (a *API) DeleteProvider(ctx context.Context) error {
	return a.do(ctx, http.MethodDelete, "/provider", nil, nil)
}

// Chat invokes the registered model with a prompt and context snapshot.
func (a *API) Chat(ctx context.Context, prompt string, conversation []model.Message) (*model.ChatResponse, error) {
	var resp model.ChatResponse
	err := a.do(ctx, http.MethodPost, "/chat", model.ChatRequest{
		Prompt:       prompt,
		Conversation: conversation,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := a.auth.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Force sign-out; the UI shows the login prompt.
		a.auth.HandleUnauthorized()
		return ErrUnauthorized
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("api error (%d): %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("api error: status %d", resp.StatusCode)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
