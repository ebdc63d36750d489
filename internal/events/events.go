// Package events publishes order and payment lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Event subjects, relative to the configured prefix.
const (
	OrderCreated       = "order.created"
	OrderPaid          = "order.paid"
	OrderDelivered     = "order.delivered"
	OrderStatusChanged = "order.status_changed"
	PaymentInitiated   = "payment.initiated"
	PaymentCompleted   = "payment.completed"
	PaymentFailed      = "payment.failed"
)

// Event is the envelope published for every lifecycle change.
type Event struct {
	ID         uuid.UUID        `json:"id"`
	Type       string           `json:"type"`
	OccurredAt time.Time        `json:"occurredAt"`
	UserID     uuid.UUID        `json:"userId"`
	OrderID    uuid.UUID        `json:"orderId"`
	PaymentID  *uuid.UUID       `json:"paymentId,omitempty"`
	Status     string           `json:"status,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
}

// Publisher delivers events. Publishing happens after the state change has
// committed, so implementations report failures but never roll anything back.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop discards events. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// NATSPublisher publishes events as JSON on "<prefix>.<type>".
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, prefix string, logger zerolog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("basket"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

// Subject returns the full subject for an event type.
func (p *NATSPublisher) Subject(eventType string) string {
	return subject(p.prefix, eventType)
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(event.Type), data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

func subject(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

// New builds an event with a fresh id.
func New(eventType string, at time.Time, userID, orderID uuid.UUID) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: at.UTC(),
		UserID:     userID,
		OrderID:    orderID,
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	Events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	types := make([]string, len(r.Events))
	for i, e := range r.Events {
		types[i] = e.Type
	}
	return types
}

var (
	_ Publisher = Noop{}
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = (*Recorder)(nil)
)
