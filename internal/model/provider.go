package model

// ProviderName identifies a registered model provider.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderHTTP      ProviderName = "http"
)

// ProviderConfig holds the credentials and settings for a registered
// provider. Secrets are masked before the config leaves the server.
type ProviderConfig struct {
	APIKey       string `json:"apiKey,omitempty"`
	Model        string `json:"model,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// ProviderRegistration is a provider plus its configuration.
type ProviderRegistration struct {
	Provider ProviderName   `json:"provider"`
	Config   ProviderConfig `json:"config"`
}

// ProviderResponse is the read-back envelope for GET /provider.
type ProviderResponse struct {
	OK       bool                  `json:"ok"`
	Provider *ProviderRegistration `json:"provider,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// ChatRequest is the payload for POST /chat.
type ChatRequest struct {
	Prompt       string    `json:"prompt"`
	Conversation []Message `json:"conversation,omitempty"`
}

// ChatResponse is the reply for POST /chat.
type ChatResponse struct {
	Reply string `json:"reply"`
	Meta  *Meta  `json:"meta,omitempty"`
}
