package webhook

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestDispatcherSubmissionCreated(t *testing.T) {
	ctx := context.Background()

	t.Run("one job per subscribed destination", func(t *testing.T) {
		registry := NewInMemoryRegistry()
		require.NoError(t, registry.Create(ctx, &URL{AccountID: 1, URL: "https://a.example.com", Events: []string{EventSubmissionCreated}}))
		require.NoError(t, registry.Create(ctx, &URL{AccountID: 1, URL: "https://b.example.com", Events: []string{EventSubmissionCreated}}))
		require.NoError(t, registry.Create(ctx, &URL{AccountID: 2, URL: "https://other.example.com", Events: []string{EventSubmissionCreated}}))

		queue := &recordingQueue{}
		d := NewDispatcher(registry, queue, slog.Default())

		n, err := d.SubmissionCreated(ctx, 1, 77)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Len(t, queue.jobs, 2)
		for _, job := range queue.jobs {
			assert.Equal(t, EventSubmissionCreated, job.Event)
			assert.Equal(t, int64(77), job.SubmissionID)
		}
	})

	t.Run("no destinations enqueues nothing", func(t *testing.T) {
		queue := &recordingQueue{}
		d := NewDispatcher(NewInMemoryRegistry(), queue, slog.Default())

		n, err := d.SubmissionCreated(ctx, 1, 77)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, queue.jobs)
	})

	t.Run("unsubscribed destinations are skipped", func(t *testing.T) {
		registry := NewInMemoryRegistry()
		require.NoError(t, registry.Create(ctx, &URL{AccountID: 1, URL: "https://a.example.com", Events: []string{"submitter.completed"}}))

		queue := &recordingQueue{}
		d := NewDispatcher(registry, queue, slog.Default())

		n, err := d.SubmissionCreated(ctx, 1, 77)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("enqueue failure surfaces after the fan-out", func(t *testing.T) {
		registry := NewInMemoryRegistry()
		require.NoError(t, registry.Create(ctx, &URL{AccountID: 1, URL: "https://a.example.com", Events: []string{EventSubmissionCreated}}))

		queue := &recordingQueue{err: errors.New("queue full")}
		d := NewDispatcher(registry, queue, slog.Default())

		_, err := d.SubmissionCreated(ctx, 1, 77)
		assert.ErrorContains(t, err, "queue full")
	})
}
