package gateway

import (
	"encoding/json"

	"github.com/byom-labs/byom-chat/internal/model"
)

// Event names of the real-time protocol.
const (
	EventJoin      = "join"
	EventHistory   = "history"
	EventMessage   = "message"
	EventAssistant = "assistant"
)

// Envelope is the wire frame carrying every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an event into its wire frame.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// JoinPayload is the client request to enter a conversation room.
type JoinPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

// Valid reports whether the join carries both required fields.
func (p *JoinPayload) Valid() bool {
	return p.ConversationID != "" && p.UserID != ""
}

// MessagePayload is an inbound user message. Text and TS are pointers so
// absent fields are distinguishable from zero values; both are required.
type MessagePayload struct {
	ConversationID string      `json:"conversationId"`
	Author         string      `json:"author"`
	Text           *string     `json:"text"`
	TS             *int64      `json:"ts"`
	Meta           *model.Meta `json:"meta,omitempty"`
	ID             string      `json:"id,omitempty"`
}

// Valid reports whether the payload satisfies the protocol contract.
// Empty text is accepted; only presence and type are checked.
func (p *MessagePayload) Valid() bool {
	return p.ConversationID != "" && p.Author != "" && p.Text != nil && p.TS != nil
}

// AssistantPayload is an inbound published assistant message. No author:
// assistant messages are always attributed to the assistant itself.
type AssistantPayload struct {
	ConversationID string      `json:"conversationId"`
	Text           *string     `json:"text"`
	TS             *int64      `json:"ts"`
	Meta           *model.Meta `json:"meta,omitempty"`
	ID             string      `json:"id,omitempty"`
}

// Valid reports whether the payload satisfies the protocol contract.
func (p *AssistantPayload) Valid() bool {
	return p.ConversationID != "" && p.Text != nil && p.TS != nil
}
