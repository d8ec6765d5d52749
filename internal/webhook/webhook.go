// Package webhook holds the per-account webhook destination registry and
// the dispatcher that fans submission events out to it. The service only
// enqueues delivery jobs; actually calling the destination URLs is the job
// consumer's concern.
package webhook

import (
	"context"
	"time"
)

// EventSubmissionCreated is the only event the intake flow dispatches:
// fired exactly once per submission created through the link flow.
const EventSubmissionCreated = "submission.created"

// URL is a registered webhook destination for an account.
type URL struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subscribes reports whether the destination wants the given event.
func (u *URL) Subscribes(event string) bool {
	for _, e := range u.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Registry is the destination lookup surface.
type Registry interface {
	// ForAccount returns the destinations of an account subscribed to the
	// given event.
	ForAccount(ctx context.Context, accountID int64, event string) ([]*URL, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*URL, error)
	Create(ctx context.Context, url *URL) error
}

// Job is one pending delivery, addressed by submission and destination so
// the consumer can rebuild the payload from current state.
type Job struct {
	Event        string    `json:"event"`
	SubmissionID int64     `json:"submission_id"`
	WebhookURLID int64     `json:"webhook_url_id"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// Enqueuer hands jobs to the asynchronous delivery mechanism.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}
