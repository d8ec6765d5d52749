package webhook

import (
	"context"
	"sort"
	"sync"

	"formgate/pkg/platform/sentinel"
)

// InMemoryRegistry is the map-backed Registry used by tests and
// dependency-free dev runs.
type InMemoryRegistry struct {
	mu     sync.RWMutex
	urls   map[int64]*URL
	nextID int64
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{urls: make(map[int64]*URL)}
}

func (r *InMemoryRegistry) Create(_ context.Context, url *URL) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if url.ID == 0 {
		r.nextID++
		url.ID = r.nextID
	}
	r.urls[url.ID] = url
	return nil
}

func (r *InMemoryRegistry) ForAccount(_ context.Context, accountID int64, event string) ([]*URL, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*URL
	for _, u := range r.urls {
		if u.AccountID == accountID && u.Subscribes(event) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRegistry) ListByAccount(_ context.Context, accountID int64) ([]*URL, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*URL
	for _, u := range r.urls {
		if u.AccountID == accountID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns a destination by id, for test assertions.
func (r *InMemoryRegistry) Get(id int64) (*URL, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.urls[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return u, nil
}
