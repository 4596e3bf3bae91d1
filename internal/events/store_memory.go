package events

import (
	"context"
	"sync"

	"luckdraw/pkg/domain"
)

// InMemoryStore buffers events in memory. It is the default sink for tests
// and single-process runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewInMemoryStore constructs an empty in-memory event sink.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Write appends the event.
func (s *InMemoryStore) Write(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByActivity returns events for one activity in emission order.
func (s *InMemoryStore) ListByActivity(_ context.Context, activityID domain.ActivityID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.ActivityID == activityID {
			out = append(out, e)
		}
	}
	return out, nil
}
