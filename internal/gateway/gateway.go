// Package gateway implements the session gateway: room membership, the
// real-time event protocol and broadcast fan-out over the conversation
// store.
package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/byom-labs/byom-chat/internal/model"
	"github.com/byom-labs/byom-chat/internal/store"
	"github.com/byom-labs/byom-chat/pkg/logger"
	"github.com/byom-labs/byom-chat/pkg/metrics"
)

// Sink receives a copy of every message appended to the store. Optional;
// used to mirror the conversation log to an external stream.
type Sink interface {
	PublishMessage(ctx context.Context, conversationID string, msg model.Message) error
}

// Gateway validates inbound events, persists messages and rebroadcasts
// them to the conversation room. Malformed payloads are dropped without a
// response; the protocol has no acknowledgement channel.
type Gateway struct {
	store store.Store
	hub   *Hub
	sink  Sink
	log   *logger.Logger

	// commitMu serializes append+broadcast so room members observe
	// messages in store insertion order.
	commitMu sync.Mutex
}

// New creates a gateway over the given store. sink may be nil.
func New(st store.Store, sink Sink, log *logger.Logger) *Gateway {
	return &Gateway{
		store: st,
		hub:   NewHub(),
		sink:  sink,
		log:   log.WithComponent("gateway"),
	}
}

// Hub exposes the room hub, mainly for tests and diagnostics.
func (g *Gateway) Hub() *Hub {
	return g.hub
}

// Dispatch handles one inbound frame from a session.
func (g *Gateway) Dispatch(ctx context.Context, sess Session, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		g.drop("frame", err)
		return
	}

	switch env.Event {
	case EventJoin:
		g.handleJoin(sess, env.Data)
	case EventMessage:
		g.handleMessage(ctx, env.Data)
	case EventAssistant:
		g.handleAssistant(ctx, env.Data)
	default:
		g.drop(env.Event, nil)
	}
}

// Disconnect removes a session from its room. No cleanup beyond that and
// no departure broadcast.
func (g *Gateway) Disconnect(sess Session, reason string) {
	g.hub.Leave(sess)
	g.log.Debug("session disconnected", zap.String("reason", reason))
}

func (g *Gateway) handleJoin(sess Session, data json.RawMessage) {
	var p JoinPayload
	if err := json.Unmarshal(data, &p); err != nil || !p.Valid() {
		g.drop(EventJoin, err)
		return
	}

	g.hub.Join(sess, p.ConversationID)
	history := g.store.Ensure(p.ConversationID)

	// History goes to the joining session only, never to the room.
	if err := sess.Send(EventHistory, history); err != nil {
		g.log.Warn("failed to send history",
			zap.String("conversation_id", p.ConversationID),
			zap.Error(err),
		)
		return
	}

	g.log.Info("client joined",
		zap.String("conversation_id", p.ConversationID),
		zap.String("user_id", p.UserID),
		zap.Int("history_len", len(history)),
	)
}

func (g *Gateway) handleMessage(ctx context.Context, data json.RawMessage) {
	var p MessagePayload
	if err := json.Unmarshal(data, &p); err != nil || !p.Valid() {
		g.drop(EventMessage, err)
		return
	}

	msg := model.Message{
		ID:     p.ID,
		Author: p.Author,
		Role:   model.RoleUser,
		Text:   *p.Text,
		TS:     *p.TS,
		Meta:   p.Meta,
	}
	g.commit(ctx, p.ConversationID, EventMessage, msg)
}

func (g *Gateway) handleAssistant(ctx context.Context, data json.RawMessage) {
	var p AssistantPayload
	if err := json.Unmarshal(data, &p); err != nil || !p.Valid() {
		g.drop(EventAssistant, err)
		return
	}

	msg := model.Message{
		ID:     p.ID,
		Author: model.AssistantAuthor,
		Role:   model.RoleAssistant,
		Text:   *p.Text,
		TS:     *p.TS,
		Meta:   p.Meta,
	}
	g.commit(ctx, p.ConversationID, EventAssistant, msg)
}

// commit appends a validated message and echoes it to the room. Client
// message IDs are preserved so senders can reconcile the echo with their
// optimistic copy; the ephemeral flag never survives publication. The
// whole append+mirror+broadcast sequence runs under commitMu so two
// concurrent commits cannot interleave between a message's append and
// its fan-out.
func (g *Gateway) commit(ctx context.Context, conversationID, event string, msg model.Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Ephemeral = false

	g.commitMu.Lock()
	defer g.commitMu.Unlock()

	g.store.Append(conversationID, msg)
	metrics.MessagesTotal.WithLabelValues(string(msg.Role)).Inc()

	if g.sink != nil {
		if err := g.sink.PublishMessage(ctx, conversationID, msg); err != nil {
			g.log.Warn("sink publish failed",
				zap.String("conversation_id", conversationID),
				zap.Error(err),
			)
		}
	}

	g.hub.Broadcast(conversationID, event, msg)
}

func (g *Gateway) drop(event string, err error) {
	metrics.EventsDropped.WithLabelValues(event).Inc()
	g.log.Debug("dropped malformed event", zap.String("event", event), zap.Error(err))
}
