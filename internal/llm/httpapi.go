package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient calls a user-supplied chat completion endpoint. The endpoint
// receives {model, system, messages} and must answer {reply, modelId?}.
type HTTPClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewHTTPClient creates a client for a custom HTTP endpoint.
func NewHTTPClient(endpoint, apiKey string) (*HTTPClient, error) {
	if endpoint == "" {
		return nil, errors.New("HTTP endpoint is required")
	}

	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Name returns the provider name.
func (c *HTTPClient) Name() string {
	return "http"
}

type httpCompletionRequest struct {
	Model    string        `json:"model,omitempty"`
	System   string        `json:"system,omitempty"`
	Messages []ChatMessage `json:"messages"`
}

type httpCompletionResponse struct {
	Reply   string `json:"reply"`
	ModelID string `json:"modelId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Complete sends a completion request.
func (c *HTTPClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	body, err := json.Marshal(httpCompletionRequest{
		Model:    req.Model,
		System:   req.System,
		Messages: req.Messages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("endpoint request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoint response: %w", err)
	}

	var parsed httpCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("endpoint returned invalid JSON: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != "" {
			return nil, fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, parsed.Error)
		}
		return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	modelID := parsed.ModelID
	if modelID == "" {
		modelID = req.Model
	}

	return &CompletionResponse{
		Content:   parsed.Reply,
		Model:     modelID,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}
