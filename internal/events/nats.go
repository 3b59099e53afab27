package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

const (
	subjectPrefix = "docs"
	// QueueGroup spreads changes across worker replicas, one delivery each
	QueueGroup = "triggers"
)

// Subject returns the subject a change is published on, e.g. docs.likes.created
func Subject(change Change) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, change.Collection, change.Kind())
}

// NATSBus publishes changes as JSON messages and feeds subscribed ones to a
// handler
type NATSBus struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewNATSBus(conn *nats.Conn, logger *slog.Logger) *NATSBus {
	return &NATSBus{conn: conn, logger: logger}
}

// ConnectNATS dials the server with reconnects enabled
func ConnectNATS(url string, logger *slog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("socialape"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	logger.Info("nats connected", "url", conn.ConnectedUrl())
	return conn, nil
}

func (b *NATSBus) Publish(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if err := b.conn.Publish(Subject(change), payload); err != nil {
		return fmt.Errorf("publish %s: %w", Subject(change), err)
	}
	return nil
}

// Subscribe delivers every change to h. Handler errors are logged; the
// message is not redelivered.
func (b *NATSBus) Subscribe(ctx context.Context, h Handler) (*nats.Subscription, error) {
	return b.conn.QueueSubscribe(subjectPrefix+".>", QueueGroup, func(msg *nats.Msg) {
		var change Change
		if err := json.Unmarshal(msg.Data, &change); err != nil {
			b.logger.Error("malformed change message", "subject", msg.Subject, "error", err)
			return
		}
		if err := h.Handle(ctx, change); err != nil {
			b.logger.Error("change handler failed",
				"subject", msg.Subject, "documentId", change.ID, "error", err)
		}
	})
}
