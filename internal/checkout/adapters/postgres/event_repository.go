package postgres

import (
	"context"
	"fmt"
)

// EventRepository records processed webhook event ids so redeliveries are
// detected inside the same transaction that applies the event.
type EventRepository struct {
	db DBTX
}

func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// MarkProcessed inserts the event id and reports whether this was the first
// time it was seen.
func (r *EventRepository) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	result, err := r.db.Exec(ctx, `
		INSERT INTO processed_events (event_id)
		VALUES ($1)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID)
	if err != nil {
		return false, fmt.Errorf("insert processed event: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
