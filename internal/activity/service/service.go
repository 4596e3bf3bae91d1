// Package service orchestrates the activity lifecycle: CRUD, publish
// toggling, cascade deletion, and the two draw entry points. It owns the
// per-activity draw serialization the engine itself does not provide.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"luckdraw/internal/activity/models"
	"luckdraw/internal/events"
	"luckdraw/internal/platform/metrics"
	regmodels "luckdraw/internal/registration/models"
	"luckdraw/pkg/domain"
	dErrors "luckdraw/pkg/domain-errors"
	"luckdraw/pkg/platform/sentinel"
	"luckdraw/pkg/requestcontext"
)

// ActivityStore is the full activity store surface the lifecycle needs.
type ActivityStore interface {
	Create(ctx context.Context, activity *models.Activity) error
	FindByID(ctx context.Context, id domain.ActivityID) (*models.Activity, error)
	List(ctx context.Context, publishedOnly bool) ([]*models.Activity, error)
	Update(ctx context.Context, activity *models.Activity) error
	Delete(ctx context.Context, id domain.ActivityID) error
}

// RegistrationStore is the slice needed for cascade deletion.
type RegistrationStore interface {
	DeleteByActivity(ctx context.Context, activityID domain.ActivityID) (int, error)
}

// DrawEngine runs the lottery for a closed activity.
type DrawEngine interface {
	Draw(ctx context.Context, activityID domain.ActivityID) ([]regmodels.Winner, error)
}

// EventPublisher is the changed-signal hook.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service orchestrates activity management.
type Service struct {
	activities    ActivityStore
	registrations RegistrationStore
	engine        DrawEngine
	logger        *slog.Logger
	metrics       *metrics.Metrics
	events        EventPublisher

	// draws coalesces concurrent draw requests per activity id. The engine's
	// passes are not transactional, so two interleaved draws could commit a
	// mixed winner set; single-flighting them makes that impossible within
	// one process.
	draws singleflight.Group
}

// Option configures a Service.
type Option func(s *Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches lifecycle metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithEventPublisher attaches the changed-signal publisher.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// New constructs a Service.
func New(activities ActivityStore, registrations RegistrationStore, engine DrawEngine, opts ...Option) *Service {
	s := &Service{activities: activities, registrations: registrations, engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new activity owned by the authenticated principal.
func (s *Service) Create(ctx context.Context, title, content string, deadline time.Time, winnersCount, maxRegistrants int) (*models.Activity, error) {
	now := requestcontext.Now(ctx)
	creator := requestcontext.PrincipalID(ctx)
	if creator.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	activity, err := models.NewActivity(domain.NewActivityID(), creator, title, content, deadline, winnersCount, maxRegistrants, now)
	if err != nil {
		return nil, err
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create activity")
	}

	if s.metrics != nil {
		s.metrics.ActivitiesCreated.Inc()
	}
	s.emit(ctx, events.TypeActivityCreated, activity.ID, 0)
	return activity, nil
}

// Get returns one activity.
func (s *Service) Get(ctx context.Context, id domain.ActivityID) (*models.Activity, error) {
	return s.load(ctx, id)
}

// List returns activities, optionally restricted to published ones.
func (s *Service) List(ctx context.Context, publishedOnly bool) ([]*models.Activity, error) {
	out, err := s.activities.List(ctx, publishedOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list activities")
	}
	return out, nil
}

// Update applies a partial edit and re-validates every invariant. Closed and
// drawn activities stay editable; there is no terminal state.
func (s *Service) Update(ctx context.Context, id domain.ActivityID, req *models.UpdateActivityRequest) (*models.Activity, error) {
	activity, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Normalize()
	if err := activity.Apply(req, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.activities.Update(ctx, activity); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update activity")
	}
	s.emit(ctx, events.TypeActivityUpdated, activity.ID, 0)
	return activity, nil
}

// TogglePublish flips visibility. No side effects on registrations.
func (s *Service) TogglePublish(ctx context.Context, id domain.ActivityID) (*models.Activity, error) {
	activity, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	activity.IsPublished = !activity.IsPublished
	activity.UpdatedAt = requestcontext.Now(ctx)
	if err := s.activities.Update(ctx, activity); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update activity")
	}
	eventType := events.TypeActivityUnpublished
	if activity.IsPublished {
		eventType = events.TypeActivityPublished
	}
	s.emit(ctx, eventType, activity.ID, 0)
	return activity, nil
}

// Draw runs the lottery for a closed activity. Concurrent calls for the
// same activity share one run and one result.
func (s *Service) Draw(ctx context.Context, id domain.ActivityID) ([]regmodels.Winner, error) {
	winners, err, _ := s.draws.Do(id.String(), func() (any, error) {
		return s.engine.Draw(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	result := winners.([]regmodels.Winner)
	s.emit(ctx, events.TypeDrawCompleted, id, len(result))
	return result, nil
}

// ForceDrawNow rewrites the deadline into the past and immediately draws.
// If the draw fails the deadline rewrite is NOT reverted: the activity stays
// closed so a retry of just the draw is possible without re-closing.
func (s *Service) ForceDrawNow(ctx context.Context, id domain.ActivityID) ([]regmodels.Winner, error) {
	activity, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if activity.IsOpen(now) {
		activity.Deadline = now.Add(-time.Second)
		activity.UpdatedAt = now
		if err := s.activities.Update(ctx, activity); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to close activity")
		}
		s.emit(ctx, events.TypeActivityUpdated, activity.ID, 0)
	}
	return s.Draw(ctx, id)
}

// Delete removes an activity and all its registrations. The store has no
// automatic cascade, so registrations go first; an interrupted delete leaves
// a childless activity rather than orphaned registrations. Deleting a
// missing activity succeeds.
func (s *Service) Delete(ctx context.Context, id domain.ActivityID) error {
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load activity")
	}
	if err := s.checkOwnership(ctx, activity); err != nil {
		return err
	}

	deleted, err := s.registrations.DeleteByActivity(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to delete registrations")
	}
	if err := s.activities.Delete(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to delete activity")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "activity deleted",
			"activity_id", id,
			"registrations_deleted", deleted,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	s.emit(ctx, events.TypeActivityDeleted, id, 0)
	return nil
}

func (s *Service) load(ctx context.Context, id domain.ActivityID) (*models.Activity, error) {
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "activity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load activity")
	}
	return activity, nil
}

func (s *Service) loadOwned(ctx context.Context, id domain.ActivityID) (*models.Activity, error) {
	activity, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

func (s *Service) checkOwnership(ctx context.Context, activity *models.Activity) error {
	principal := requestcontext.PrincipalID(ctx)
	if principal.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if principal != activity.CreatorID {
		return dErrors.New(dErrors.CodeUnauthorized, "not the activity owner")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, eventType events.Type, id domain.ActivityID, winners int) {
	if s.events == nil {
		return
	}
	_ = s.events.Emit(ctx, events.Event{
		Type:       eventType,
		OccurredAt: requestcontext.Now(ctx),
		ActivityID: id,
		Actor:      requestcontext.PrincipalID(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		Winners:    winners,
	})
}
