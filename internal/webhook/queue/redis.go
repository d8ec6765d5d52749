// Package queue provides the asynchronous job hand-off for webhook
// delivery. The intake flow pushes jobs; a separate consumer pops and
// delivers them.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"formgate/internal/webhook"
)

// WebhookJobsKey is the redis list delivery consumers pop from.
const WebhookJobsKey = "formgate:jobs:webhooks"

// Redis enqueues webhook jobs onto a redis list. Fire-and-forget from the
// intake flow's perspective: a full or slow queue never rolls back an
// intake that already committed.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (q *Redis) Enqueue(ctx context.Context, job webhook.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode webhook job: %w", err)
	}
	if err := q.client.LPush(ctx, WebhookJobsKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue webhook job: %w", err)
	}
	return nil
}

// Len reports the queue depth, used by health checks and tests.
func (q *Redis) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, WebhookJobsKey).Result()
}
