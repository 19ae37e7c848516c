package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Topics published by the domain services.
const (
	TopicOrderCreated  = "order.created"
	TopicOrderPaid     = "order.paid"
	TopicOrderCanceled = "order.canceled"
	TopicPaymentFailed = "payment.failed"
)

// DomainEvent is an immutable record of something that happened. Events are
// persisted before fan-out, so a crashed notifier never loses history.
type DomainEvent struct {
	ID          uuid.UUID       `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID uuid.UUID       `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// Store persists domain events.
type Store interface {
	InsertDomainEvent(ctx context.Context, ev DomainEvent) error
}

// Notifier reacts to a persisted event. Notifier failures are logged, never
// propagated: the event is already durable and the caller's transaction has
// committed.
type Notifier interface {
	Notify(ctx context.Context, ev DomainEvent) error
}

// Bus persists an event and then hands it to every notifier.
type Bus struct {
	Store     Store
	Notifiers []Notifier
	Logger    zerolog.Logger
}

func NewBus(store Store, logger zerolog.Logger, notifiers ...Notifier) *Bus {
	return &Bus{Store: store, Notifiers: notifiers, Logger: logger}
}

func (b *Bus) Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload json.RawMessage) error {
	ev := DomainEvent{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
	}
	if b.Store != nil {
		if err := b.Store.InsertDomainEvent(ctx, ev); err != nil {
			return err
		}
	}
	for _, n := range b.Notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			b.Logger.Error().Err(err).Str("topic", ev.Topic).Stringer("event_id", ev.ID).Msg("notifier failed")
		}
	}
	return nil
}
