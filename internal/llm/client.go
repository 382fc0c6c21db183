// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model     string
	System    string
	Messages  []ChatMessage
	MaxTokens int
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content   string
	Model     string
	LatencyMs int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}
