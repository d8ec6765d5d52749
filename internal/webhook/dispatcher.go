package webhook

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Dispatcher fans one event out to every subscribed destination of an
// account, one enqueued job per destination.
type Dispatcher struct {
	registry Registry
	queue    Enqueuer
	logger   *slog.Logger
}

func NewDispatcher(registry Registry, queue Enqueuer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, queue: queue, logger: logger}
}

// SubmissionCreated enqueues one submission.created job per registered
// destination and returns how many were enqueued. Destinations are enqueued
// concurrently; the first enqueue error is returned after the rest finish.
func (d *Dispatcher) SubmissionCreated(ctx context.Context, accountID, submissionID int64) (int, error) {
	urls, err := d.registry.ForAccount(ctx, accountID, EventSubmissionCreated)
	if err != nil {
		return 0, err
	}
	if len(urls) == 0 {
		return 0, nil
	}

	now := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, url := range urls {
		job := Job{
			Event:        EventSubmissionCreated,
			SubmissionID: submissionID,
			WebhookURLID: url.ID,
			EnqueuedAt:   now,
		}
		g.Go(func() error {
			return d.queue.Enqueue(gctx, job)
		})
	}
	if err := g.Wait(); err != nil {
		return len(urls), err
	}

	d.logger.DebugContext(ctx, "webhook jobs enqueued",
		"event", EventSubmissionCreated,
		"submission_id", submissionID,
		"count", len(urls),
	)
	return len(urls), nil
}
