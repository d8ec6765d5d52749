package queue

import (
	"context"
	"log/slog"

	"formgate/internal/webhook"
)

// Logging is the enqueuer used when no redis is configured: jobs are logged
// and dropped. Keeps local development working without a queue.
type Logging struct {
	logger *slog.Logger
}

func NewLogging(logger *slog.Logger) *Logging {
	return &Logging{logger: logger}
}

func (q *Logging) Enqueue(ctx context.Context, job webhook.Job) error {
	q.logger.InfoContext(ctx, "webhook job dropped, no queue configured",
		"event", job.Event,
		"submission_id", job.SubmissionID,
		"webhook_url_id", job.WebhookURLID,
	)
	return nil
}
