// Package model defines data structures shared by the chat service.
package model

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AssistantAuthor is the author recorded for all assistant-role messages.
const AssistantAuthor = "assistant"

// Meta carries optional message metadata.
type Meta struct {
	ModelID  string `json:"modelId,omitempty"`
	SentToAI bool   `json:"sentToAI,omitempty"`
}

// Message is a single conversation entry. The wire format matches the
// event protocol: authors supply ts in milliseconds and the server keeps
// insertion order, not ts order.
type Message struct {
	ID        string `json:"id,omitempty"`
	Author    string `json:"author"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	TS        int64  `json:"ts"`
	Meta      *Meta  `json:"meta,omitempty"`
	Ephemeral bool   `json:"ephemeral,omitempty"`
}
