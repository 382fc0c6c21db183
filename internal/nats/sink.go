// Package nats mirrors published conversation messages to a JetStream
// stream, for archiving and offline consumers. The mirror is best effort:
// the gateway never blocks or fails a broadcast on sink errors.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/byom-labs/byom-chat/internal/model"
	"github.com/byom-labs/byom-chat/pkg/logger"
)

const (
	// StreamName is the name of the chat mirror stream.
	StreamName = "BYOM_CHAT"

	// SubjectPrefix is the prefix for all mirrored message subjects.
	SubjectPrefix = "chat"
)

// Config holds NATS connection configuration.
type Config struct {
	URL   string
	Token string
}

// Sink publishes conversation messages to JetStream.
type Sink struct {
	conn *nats.Conn
	js   jetstream.JetStream
	log  *logger.Logger
}

// Connect establishes a connection and ensures the mirror stream exists.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Sink, error) {
	slog := log.WithComponent("nats")

	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	s := &Sink{conn: nc, js: js, log: slog}
	if err := s.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureStream(ctx context.Context) error {
	if _, err := s.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := s.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Mirror of published chat messages",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// MessageSubject returns the subject a message is mirrored to.
func MessageSubject(conversationID string, role model.Role) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, conversationID, role)
}

// PublishMessage mirrors one published message.
func (s *Sink) PublishMessage(ctx context.Context, conversationID string, msg model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := s.js.Publish(ctx, MessageSubject(conversationID, msg.Role), data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close closes the NATS connection.
func (s *Sink) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

// IsConnected returns true if connected to NATS.
func (s *Sink) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}
