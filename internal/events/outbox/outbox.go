// Package outbox persists intake events in the same transaction as the
// state change they describe. A relay worker drains the table into Kafka,
// so the stream never contains events for writes that rolled back.
package outbox

import (
	"context"
	"time"

	"formgate/internal/events"
)

// Entry is one row of the outbox.
type Entry struct {
	ID        int64
	Event     events.Event
	CreatedAt time.Time
}

// Store is the outbox persistence surface. Record runs inside the intake
// transaction; FetchPending and MarkPublished are the relay worker's side.
type Store interface {
	Record(ctx context.Context, event events.Event) error
	FetchPending(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids ...int64) error
}
