// Package service implements registration admission control: the ordered
// checks that gate entry into an activity's lottery pool, and the commit of
// an admitted registration.
package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	activitymodels "luckdraw/internal/activity/models"
	"luckdraw/internal/events"
	"luckdraw/internal/platform/metrics"
	"luckdraw/internal/registration/models"
	"luckdraw/pkg/domain"
	dErrors "luckdraw/pkg/domain-errors"
	"luckdraw/pkg/platform/sentinel"
	"luckdraw/pkg/requestcontext"
)

// ActivityStore is the slice of the activity store admission needs.
type ActivityStore interface {
	FindByID(ctx context.Context, id domain.ActivityID) (*activitymodels.Activity, error)
	IncrementRegistrationCount(ctx context.Context, id domain.ActivityID, delta int) error
}

// RegistrationStore is the slice of the registration store admission needs.
type RegistrationStore interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id domain.RegistrationID) (*models.Registration, error)
	ListByActivity(ctx context.Context, activityID domain.ActivityID) ([]*models.Registration, error)
	CountByActivity(ctx context.Context, activityID domain.ActivityID) (int, error)
	CountByActivityAndPhone(ctx context.Context, activityID domain.ActivityID, phone string) (int, error)
}

// EventPublisher is the changed-signal hook.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service gates creation of registrations under activity-level constraints.
type Service struct {
	activities    ActivityStore
	registrations RegistrationStore
	logger        *slog.Logger
	metrics       *metrics.Metrics
	events        EventPublisher
}

// Option configures a Service.
type Option func(s *Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches admission metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithEventPublisher attaches the changed-signal publisher.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// New constructs a Service.
func New(activities ActivityStore, registrations RegistrationStore, opts ...Option) *Service {
	s := &Service{activities: activities, registrations: registrations}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and commits one registration. Checks run in precondition
// order, each with a distinct failure mode:
//
//  1. name/phone well-formed (validation)
//  2. activity exists (not_found)
//  3. activity is published (rejected: not_published)
//  4. deadline has not passed (rejected: registration_closed)
//  5. phone not already registered (rejected: duplicate_registration)
//  6. registrant count below max (rejected: registration_full)
//
// Checks 5 and 6 are count queries against a store without compare-and-swap,
// so two concurrent submissions can both pass before either commits. They
// are fast-reject optimizations only: the store's unique index on
// (activity, phone) is the authoritative duplicate constraint, surfaced
// here as a conflict on Create and mapped to the same duplicate rejection.
// The capacity check has no store-level backstop; the small overshoot
// window is an accepted property of the design.
func (s *Service) Submit(ctx context.Context, activityID domain.ActivityID, name, phone string) (*models.Registration, error) {
	now := requestcontext.Now(ctx)

	reg, err := models.NewRegistration(domain.NewRegistrationID(), activityID, name, phone, now)
	if err != nil {
		return nil, err
	}

	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "activity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load activity")
	}
	if !activity.IsPublished {
		return nil, s.reject(models.ReasonNotPublished, "activity is not open for registration")
	}
	if !activity.IsOpen(now) {
		return nil, s.reject(models.ReasonRegistrationClosed, "registration closed")
	}

	// Both counts are independent reads; fetch them in parallel and keep the
	// precondition order by evaluating duplicate before capacity.
	var dupCount, totalCount int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dupCount, err = s.registrations.CountByActivityAndPhone(gctx, activityID, reg.Phone)
		return err
	})
	g.Go(func() error {
		var err error
		totalCount, err = s.registrations.CountByActivity(gctx, activityID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to check registration constraints")
	}
	if dupCount > 0 {
		return nil, s.reject(models.ReasonDuplicateRegistration, "phone already registered for this activity")
	}
	if totalCount >= activity.MaxRegistrants {
		return nil, s.reject(models.ReasonRegistrationFull, "registration full")
	}

	reg.ClientIP = requestcontext.ClientIP(ctx)
	reg.Device = requestcontext.Device(ctx)

	if err := s.registrations.Create(ctx, reg); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// The unique index caught a duplicate that slipped past the
			// fast-reject check.
			return nil, s.reject(models.ReasonDuplicateRegistration, "phone already registered for this activity")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create registration")
	}

	// The back-reference update is a second, non-atomic write. The
	// registration already exists, so a failure here is a consistency-repair
	// concern, never a submission failure.
	if err := s.activities.IncrementRegistrationCount(ctx, activityID, 1); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "registration count back-reference update failed",
				"activity_id", activityID,
				"registration_id", reg.ID,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		if s.metrics != nil {
			s.metrics.LinkRepairConcerns.Inc()
		}
	}

	if s.metrics != nil {
		s.metrics.RegistrationsCreated.Inc()
	}
	s.emit(ctx, events.Event{
		Type:           events.TypeRegistrationCreated,
		OccurredAt:     now,
		ActivityID:     activityID,
		RegistrationID: reg.ID,
		RequestID:      requestcontext.RequestID(ctx),
		ClientIP:       reg.ClientIP,
		Device:         reg.Device,
	})
	return reg, nil
}

// ListByActivity returns every registration of an activity, oldest first.
func (s *Service) ListByActivity(ctx context.Context, activityID domain.ActivityID) ([]*models.Registration, error) {
	if _, err := s.activities.FindByID(ctx, activityID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "activity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load activity")
	}
	regs, err := s.registrations.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list registrations")
	}
	return regs, nil
}

// Winners returns the current winner set of an activity.
func (s *Service) Winners(ctx context.Context, activityID domain.ActivityID) ([]models.Winner, error) {
	regs, err := s.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	var winners []models.Winner
	for _, reg := range regs {
		if reg.IsWinner {
			winners = append(winners, models.Winner{ID: reg.ID, Name: reg.Name, Phone: reg.Phone})
		}
	}
	return winners, nil
}

func (s *Service) reject(reason dErrors.Reason, message string) error {
	if s.metrics != nil {
		s.metrics.IncrementRejected(string(reason))
	}
	return dErrors.Reject(reason, message)
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	_ = s.events.Emit(ctx, event)
}
