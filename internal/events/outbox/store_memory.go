package outbox

import (
	"context"
	"sync"
	"time"

	"formgate/internal/events"
)

// InMemory keeps outbox entries in a slice. Used by tests and runs without
// a database.
type InMemory struct {
	mu        sync.Mutex
	entries   []Entry
	published map[int64]struct{}
	nextID    int64
}

func NewInMemory() *InMemory {
	return &InMemory{published: make(map[int64]struct{})}
}

func (s *InMemory) Record(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.entries = append(s.entries, Entry{ID: s.nextID, Event: event, CreatedAt: time.Now()})
	return nil
}

func (s *InMemory) FetchPending(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry
	for _, e := range s.entries {
		if _, ok := s.published[e.ID]; ok {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemory) MarkPublished(_ context.Context, ids ...int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.published[id] = struct{}{}
	}
	return nil
}

// Events returns all recorded events in order, for test assertions.
func (s *InMemory) Events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Event, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Event
	}
	return out
}
