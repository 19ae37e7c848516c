package events

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore writes domain events to the domain_events table.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s *PGStore) InsertDomainEvent(ctx context.Context, ev DomainEvent) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		ev.ID, ev.Topic, ev.AggregateID, ev.Payload, ev.OccurredAt)
	return err
}
