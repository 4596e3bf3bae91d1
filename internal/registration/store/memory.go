package store

import (
	"context"
	"sort"
	"sync"

	"luckdraw/internal/registration/models"
	"luckdraw/pkg/domain"
	"luckdraw/pkg/platform/sentinel"
)

// InMemory keeps registrations in a map and mirrors the store-level
// uniqueness constraint on (activity, phone) that PostgreSQL enforces with
// a unique index.
type InMemory struct {
	mu            sync.RWMutex
	registrations map[domain.RegistrationID]models.Registration
	byPhone       map[phoneKey]domain.RegistrationID
}

type phoneKey struct {
	activity domain.ActivityID
	phone    string
}

// NewInMemory constructs an empty in-memory registration store.
func NewInMemory() *InMemory {
	return &InMemory{
		registrations: make(map[domain.RegistrationID]models.Registration),
		byPhone:       make(map[phoneKey]domain.RegistrationID),
	}
}

func (s *InMemory) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := phoneKey{activity: reg.ActivityID, phone: reg.Phone}
	if _, ok := s.byPhone[key]; ok {
		return sentinel.ErrConflict
	}
	s.registrations[reg.ID] = *reg
	s.byPhone[key] = reg.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.registrations[id]; ok {
		copy := r
		return &copy, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByActivity(_ context.Context, activityID domain.ActivityID) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Registration
	for _, r := range s.registrations {
		if r.ActivityID == activityID {
			copy := r
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) CountByActivity(_ context.Context, activityID domain.ActivityID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.registrations {
		if r.ActivityID == activityID {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) CountByActivityAndPhone(_ context.Context, activityID domain.ActivityID, phone string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byPhone[phoneKey{activity: activityID, phone: phone}]; ok {
		return 1, nil
	}
	return 0, nil
}

// SetWinner flips the winner flag on a single registration.
func (s *InMemory) SetWinner(_ context.Context, id domain.RegistrationID, isWinner bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.IsWinner = isWinner
	s.registrations[id] = r
	return nil
}

// DeleteByActivity removes every registration of an activity and returns how
// many were deleted.
func (s *InMemory) DeleteByActivity(_ context.Context, activityID domain.ActivityID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.registrations {
		if r.ActivityID == activityID {
			delete(s.registrations, id)
			delete(s.byPhone, phoneKey{activity: activityID, phone: r.Phone})
			n++
		}
	}
	return n, nil
}
