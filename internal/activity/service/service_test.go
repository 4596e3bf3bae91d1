package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckdraw/internal/activity/models"
	activitystore "luckdraw/internal/activity/store"
	"luckdraw/internal/draw"
	"luckdraw/internal/events"
	regmodels "luckdraw/internal/registration/models"
	registrationstore "luckdraw/internal/registration/store"
	"luckdraw/pkg/domain"
	dErrors "luckdraw/pkg/domain-errors"
	"luckdraw/pkg/requestcontext"
)

type fixture struct {
	activities    *activitystore.InMemory
	registrations *registrationstore.InMemory
	sink          *events.InMemoryStore
	service       *Service
	organizer     domain.PrincipalID
	now           time.Time
	ctx           context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	organizer := domain.PrincipalID(uuid.New())

	activities := activitystore.NewInMemory()
	registrations := registrationstore.NewInMemory()
	sink := events.NewInMemoryStore()
	publisher := events.NewPublisher([]events.Sink{sink})
	engine := draw.New(activities, registrations)

	svc := New(activities, registrations, engine, WithEventPublisher(publisher))

	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithPrincipalID(ctx, organizer)

	return &fixture{
		activities:    activities,
		registrations: registrations,
		sink:          sink,
		service:       svc,
		organizer:     organizer,
		now:           now,
		ctx:           ctx,
	}
}

func (f *fixture) createActivity(t *testing.T) *models.Activity {
	t.Helper()
	activity, err := f.service.Create(f.ctx, "Activity", "content", f.now.Add(time.Hour), 2, 100)
	require.NoError(t, err)
	return activity
}

func (f *fixture) register(t *testing.T, activityID domain.ActivityID, phone string) *regmodels.Registration {
	t.Helper()
	reg := &regmodels.Registration{
		ID:         domain.RegistrationID(uuid.New()),
		ActivityID: activityID,
		Name:       "User",
		Phone:      phone,
		CreatedAt:  f.now,
	}
	require.NoError(t, f.registrations.Create(context.Background(), reg))
	return reg
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	activity := f.createActivity(t)
	assert.Equal(t, f.organizer, activity.CreatorID)
	assert.False(t, activity.IsPublished)

	emitted, err := f.sink.ListByActivity(context.Background(), activity.ID)
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, events.TypeActivityCreated, emitted[0].Type)

	t.Run("requires a principal", func(t *testing.T) {
		anon := requestcontext.WithTime(context.Background(), f.now)
		_, err := f.service.Create(anon, "Activity", "content", f.now.Add(time.Hour), 2, 100)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := f.service.Create(f.ctx, "", "content", f.now.Add(time.Hour), 2, 100)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestUpdateAndOwnership(t *testing.T) {
	f := newFixture(t)
	activity := f.createActivity(t)

	t.Run("owner can update", func(t *testing.T) {
		title := "Renamed"
		updated, err := f.service.Update(f.ctx, activity.ID, &models.UpdateActivityRequest{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
	})

	t.Run("another principal cannot", func(t *testing.T) {
		stranger := requestcontext.WithPrincipalID(
			requestcontext.WithTime(context.Background(), f.now),
			domain.PrincipalID(uuid.New()),
		)
		title := "Hijacked"
		_, err := f.service.Update(stranger, activity.ID, &models.UpdateActivityRequest{Title: &title})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("unknown activity is not_found", func(t *testing.T) {
		title := "x"
		_, err := f.service.Update(f.ctx, domain.ActivityID(uuid.New()), &models.UpdateActivityRequest{Title: &title})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestTogglePublish(t *testing.T) {
	f := newFixture(t)
	activity := f.createActivity(t)

	published, err := f.service.TogglePublish(f.ctx, activity.ID)
	require.NoError(t, err)
	assert.True(t, published.IsPublished)

	unpublished, err := f.service.TogglePublish(f.ctx, activity.ID)
	require.NoError(t, err)
	assert.False(t, unpublished.IsPublished)

	emitted, err := f.sink.ListByActivity(context.Background(), activity.ID)
	require.NoError(t, err)
	require.Len(t, emitted, 3)
	assert.Equal(t, events.TypeActivityPublished, emitted[1].Type)
	assert.Equal(t, events.TypeActivityUnpublished, emitted[2].Type)
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	activity := f.createActivity(t)
	f.register(t, activity.ID, "13800138001")
	f.register(t, activity.ID, "13800138002")

	require.NoError(t, f.service.Delete(f.ctx, activity.ID))

	_, err := f.service.Get(f.ctx, activity.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	regs, err := f.registrations.ListByActivity(context.Background(), activity.ID)
	require.NoError(t, err)
	assert.Empty(t, regs)

	t.Run("deleting a missing activity succeeds", func(t *testing.T) {
		require.NoError(t, f.service.Delete(f.ctx, domain.ActivityID(uuid.New())))
	})
}

func TestDrawThroughService(t *testing.T) {
	f := newFixture(t)
	activity := f.createActivity(t)
	f.register(t, activity.ID, "13800138001")
	f.register(t, activity.ID, "13800138002")
	f.register(t, activity.ID, "13800138003")

	t.Run("open activity cannot be drawn", func(t *testing.T) {
		_, err := f.service.Draw(f.ctx, activity.ID)
		assert.Equal(t, draw.ReasonDrawBeforeDeadline, dErrors.ReasonOf(err))
	})

	t.Run("closed activity draws and emits", func(t *testing.T) {
		past := f.now.Add(-time.Minute)
		_, err := f.service.Update(f.ctx, activity.ID, &models.UpdateActivityRequest{Deadline: &past})
		require.NoError(t, err)

		winners, err := f.service.Draw(f.ctx, activity.ID)
		require.NoError(t, err)
		assert.Len(t, winners, 2)

		emitted, err := f.sink.ListByActivity(context.Background(), activity.ID)
		require.NoError(t, err)
		last := emitted[len(emitted)-1]
		assert.Equal(t, events.TypeDrawCompleted, last.Type)
		assert.Equal(t, 2, last.Winners)
	})
}

func TestForceDrawNow(t *testing.T) {
	t.Run("closes and draws in one call", func(t *testing.T) {
		f := newFixture(t)
		activity := f.createActivity(t)
		f.register(t, activity.ID, "13800138001")

		winners, err := f.service.ForceDrawNow(f.ctx, activity.ID)
		require.NoError(t, err)
		assert.Len(t, winners, 1)

		closed, err := f.service.Get(f.ctx, activity.ID)
		require.NoError(t, err)
		assert.False(t, closed.IsOpen(f.now))
	})

	t.Run("deadline stays in the past when the draw fails", func(t *testing.T) {
		f := newFixture(t)
		// No registrations: the draw leg must fail after the close.
		activity := f.createActivity(t)

		_, err := f.service.ForceDrawNow(f.ctx, activity.ID)
		require.Error(t, err)
		assert.Equal(t, draw.ReasonNoRegistrations, dErrors.ReasonOf(err))

		closed, err := f.service.Get(f.ctx, activity.ID)
		require.NoError(t, err)
		assert.False(t, closed.IsOpen(f.now), "failed draw must not reopen the activity")
	})
}

func TestListVisibility(t *testing.T) {
	f := newFixture(t)
	a := f.createActivity(t)
	f.createActivity(t)
	_, err := f.service.TogglePublish(f.ctx, a.ID)
	require.NoError(t, err)

	all, err := f.service.List(f.ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	published, err := f.service.List(f.ctx, true)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, a.ID, published[0].ID)
}

// failingEngine lets tests observe that Draw propagates engine errors
// without emitting a completion event.
type failingEngine struct{ err error }

func (e *failingEngine) Draw(context.Context, domain.ActivityID) ([]regmodels.Winner, error) {
	return nil, e.err
}

func TestDrawDoesNotEmitOnFailure(t *testing.T) {
	f := newFixture(t)
	activity := f.createActivity(t)

	engineErr := errors.New("boom")
	svc := New(f.activities, f.registrations, &failingEngine{err: engineErr},
		WithEventPublisher(events.NewPublisher([]events.Sink{f.sink})))

	_, err := svc.Draw(f.ctx, activity.ID)
	require.ErrorIs(t, err, engineErr)

	emitted, err := f.sink.ListByActivity(context.Background(), activity.ID)
	require.NoError(t, err)
	for _, e := range emitted {
		assert.NotEqual(t, events.TypeDrawCompleted, e.Type)
	}
}
