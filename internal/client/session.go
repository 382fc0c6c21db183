package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/byom-labs/byom-chat/internal/gateway"
	"github.com/byom-labs/byom-chat/internal/model"
	"github.com/byom-labs/byom-chat/pkg/logger"
)

// ErrConversationFull is returned when a conversation's history already
// names two human participants and the joiner is not one of them.
var ErrConversationFull = errors.New("conversation already has two participants")

const historyWait = 10 * time.Second

// Session is one joined conversation over a live websocket. Incoming
// message and assistant events feed the ChatStore; sends are optimistic.
type Session struct {
	conversationID string
	userID         string

	conn  *websocket.Conn
	store *ChatStore
	api   *API
	log   *logger.Logger

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

// Join dials the gateway, enters the conversation and waits for history.
// The two-participant admission rule is applied to the received history:
// if the joiner is not among the existing user authors and two already
// exist, the session refuses to proceed and disconnects.
func Join(ctx context.Context, wsURL, conversationID, userID string, store *ChatStore, api *API, log *logger.Logger) (*Session, error) {
	if conversationID == "" || userID == "" {
		return nil, errors.New("conversationId and userId are required")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial gateway: %w", err)
	}

	s := &Session{
		conversationID: conversationID,
		userID:         userID,
		conn:           conn,
		store:          store,
		api:            api,
		log:            log.WithComponent("session"),
		done:           make(chan struct{}),
	}

	if err := s.emit(gateway.EventJoin, gateway.JoinPayload{
		ConversationID: conversationID,
		UserID:         userID,
	}); err != nil {
		conn.Close()
		return nil, err
	}

	history, err := s.awaitHistory(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}

	participants := make(map[string]struct{})
	for _, msg := range history {
		if msg.Role == model.RoleUser {
			participants[msg.Author] = struct{}{}
		}
	}
	if _, member := participants[userID]; !member && len(participants) >= 2 {
		conn.Close()
		return nil, ErrConversationFull
	}

	store.Set(conversationID, history)
	go s.readLoop()
	return s, nil
}

// UserID returns the identity this session joined with.
func (s *Session) UserID() string {
	return s.userID
}

// Send appends an optimistic local copy and emits the message event. The
// broadcast echo carries the same ID and confirms the copy in place.
func (s *Session) Send(text string) error {
	ts := time.Now().UnixMilli()
	msg := model.Message{
		ID:     uuid.NewString(),
		Author: s.userID,
		Role:   model.RoleUser,
		Text:   text,
		TS:     ts,
	}
	s.store.Add(s.conversationID, msg)

	return s.emit(gateway.EventMessage, gateway.MessagePayload{
		ConversationID: s.conversationID,
		Author:         s.userID,
		Text:           &msg.Text,
		TS:             &msg.TS,
		ID:             msg.ID,
	})
}

// AskAI runs an ephemeral AI turn: the prompt and the reply land in the
// local log only, flagged ephemeral, and nothing reaches the gateway
// until one of them is published. A provider failure surfaces once as an
// inline ephemeral assistant message.
func (s *Session) AskAI(ctx context.Context, prompt string) error {
	s.store.Add(s.conversationID, model.Message{
		ID:        uuid.NewString(),
		Author:    s.userID,
		Role:      model.RoleUser,
		Text:      prompt,
		TS:        time.Now().UnixMilli(),
		Meta:      &model.Meta{SentToAI: true},
		Ephemeral: true,
	})

	resp, err := s.api.Chat(ctx, prompt, s.store.Snapshot(s.conversationID, snapshotLimit))
	if err != nil {
		s.store.Add(s.conversationID, model.Message{
			ID:        uuid.NewString(),
			Author:    model.AssistantAuthor,
			Role:      model.RoleAssistant,
			Text:      err.Error(),
			TS:        time.Now().UnixMilli(),
			Ephemeral: true,
		})
		return err
	}

	s.store.Add(s.conversationID, model.Message{
		ID:        uuid.NewString(),
		Author:    model.AssistantAuthor,
		Role:      model.RoleAssistant,
		Text:      resp.Reply,
		TS:        time.Now().UnixMilli(),
		Meta:      resp.Meta,
		Ephemeral: true,
	})
	return nil
}

// snapshotLimit caps the conversation context sent to the provider.
const snapshotLimit = 50

// Publish promotes an ephemeral message into the shared log: the local
// copy flips to non-ephemeral and exactly one corresponding event is
// emitted. Published messages cannot be retracted.
func (s *Session) Publish(msg model.Message) error {
	msg.Ephemeral = false
	s.store.Add(s.conversationID, msg)

	switch msg.Role {
	case model.RoleAssistant:
		return s.emit(gateway.EventAssistant, gateway.AssistantPayload{
			ConversationID: s.conversationID,
			Text:           &msg.Text,
			TS:             &msg.TS,
			Meta:           msg.Meta,
			ID:             msg.ID,
		})
	case model.RoleUser:
		return s.emit(gateway.EventMessage, gateway.MessagePayload{
			ConversationID: s.conversationID,
			Author:         s.userID,
			Text:           &msg.Text,
			TS:             &msg.TS,
			Meta:           msg.Meta,
			ID:             msg.ID,
		})
	default:
		return fmt.Errorf("cannot publish role %q", msg.Role)
	}
}

// Close tears down the connection. The server performs no cleanup beyond
// dropping the session from its room.
func (s *Session) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.conn.Close()
}

// Done is closed once the read loop exits.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) emit(event string, payload any) error {
	frame, err := gateway.Encode(event, payload)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Session) awaitHistory(ctx context.Context) ([]model.Message, error) {
	deadline := time.Now().Add(historyWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	s.conn.SetReadDeadline(deadline)
	defer s.conn.SetReadDeadline(time.Time{})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("no history received: %w", err)
		}

		var env gateway.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		if env.Event != gateway.EventHistory {
			continue
		}

		var history []model.Message
		if err := json.Unmarshal(env.Data, &history); err != nil {
			return nil, fmt.Errorf("malformed history: %w", err)
		}
		return history, nil
	}
}

func (s *Session) readLoop() {
	defer s.once.Do(func() { close(s.done) })

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Debug("connection closed", zap.Error(err))
			return
		}

		var env gateway.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}

		switch env.Event {
		case gateway.EventMessage, gateway.EventAssistant:
			var msg model.Message
			if err := json.Unmarshal(env.Data, &msg); err != nil {
				continue
			}
			s.store.Add(s.conversationID, msg)
		}
	}
}
