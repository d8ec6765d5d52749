// Package worker relays outbox entries to the event publisher.
package worker

import (
	"context"
	"log/slog"
	"time"

	"formgate/internal/events"
	"formgate/internal/events/outbox"
)

// Publisher is the downstream sink, satisfied by the Kafka publisher.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Worker drains the outbox into the publisher. Entries are published in id
// order and marked only after the publisher accepts them, so a crash
// between publish and mark re-delivers rather than drops.
type Worker struct {
	store     outbox.Store
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func New(store outbox.Store, publisher Publisher, logger *slog.Logger) *Worker {
	return &Worker{
		store:     store,
		publisher: publisher,
		logger:    logger,
		interval:  time.Second,
		batchSize: 100,
	}
}

// Run polls until the context is canceled. Publish failures back off until
// the next tick; the outbox keeps the events meanwhile.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err.Error())
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	for {
		entries, err := w.store.FetchPending(ctx, w.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		published := make([]int64, 0, len(entries))
		for _, entry := range entries {
			if err := w.publisher.Publish(ctx, entry.Event); err != nil {
				// Mark what made it through, retry the rest next tick.
				if markErr := w.store.MarkPublished(ctx, published...); markErr != nil {
					return markErr
				}
				return err
			}
			published = append(published, entry.ID)
		}
		if err := w.store.MarkPublished(ctx, published...); err != nil {
			return err
		}
		if len(entries) < w.batchSize {
			return nil
		}
	}
}
