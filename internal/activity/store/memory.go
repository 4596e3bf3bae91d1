package store

import (
	"context"
	"sort"
	"sync"

	"luckdraw/internal/activity/models"
	"luckdraw/pkg/domain"
	"luckdraw/pkg/platform/sentinel"
)

// InMemory keeps activities in a map. It backs unit tests and local runs
// without PostgreSQL.
type InMemory struct {
	mu         sync.RWMutex
	activities map[domain.ActivityID]models.Activity
}

// NewInMemory constructs an empty in-memory activity store.
func NewInMemory() *InMemory {
	return &InMemory{activities: make(map[domain.ActivityID]models.Activity)}
}

func (s *InMemory) Create(_ context.Context, activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[activity.ID]; ok {
		return sentinel.ErrConflict
	}
	s.activities[activity.ID] = *activity
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.ActivityID) (*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.activities[id]; ok {
		copy := a
		return &copy, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context, publishedOnly bool) ([]*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		if publishedOnly && !a.IsPublished {
			continue
		}
		copy := a
		out = append(out, &copy)
	}
	// Newest first, stable for handler pagination.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[activity.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.activities[activity.ID] = *activity
	return nil
}

// Delete removes an activity. Deleting a missing id is not an error.
func (s *InMemory) Delete(_ context.Context, id domain.ActivityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activities, id)
	return nil
}

// IncrementRegistrationCount adjusts the denormalized back-reference.
func (s *InMemory) IncrementRegistrationCount(_ context.Context, id domain.ActivityID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	a.RegistrationCount += delta
	if a.RegistrationCount < 0 {
		a.RegistrationCount = 0
	}
	s.activities[id] = a
	return nil
}
