// Package draw implements winner selection for closed activities.
//
// A draw is three passes over the registration set: reset every winner flag,
// pick k registrations with an unbiased shuffle, and commit the k flags. The
// store gives per-record atomicity only, so the passes are not a transaction;
// the reset pass is what makes re-running a partially failed draw converge
// instead of accumulating stale winners.
//
// The engine takes no locks. Callers must serialize draws per activity; the
// activity service does this with singleflight.
package draw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	activitymodels "luckdraw/internal/activity/models"
	"luckdraw/internal/platform/metrics"
	"luckdraw/internal/registration/models"
	"luckdraw/pkg/domain"
	dErrors "luckdraw/pkg/domain-errors"
	"luckdraw/pkg/platform/sentinel"
	"luckdraw/pkg/requestcontext"
)

// Rejection reasons produced by the draw engine.
const (
	ReasonDrawBeforeDeadline dErrors.Reason = "draw_before_deadline"
	ReasonNoRegistrations    dErrors.Reason = "no_registrations"
)

//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks

// ActivityStore is the slice of the activity store the engine needs.
type ActivityStore interface {
	FindByID(ctx context.Context, id domain.ActivityID) (*activitymodels.Activity, error)
}

// RegistrationStore is the slice of the registration store the engine needs.
type RegistrationStore interface {
	ListByActivity(ctx context.Context, activityID domain.ActivityID) ([]*models.Registration, error)
	SetWinner(ctx context.Context, id domain.RegistrationID, isWinner bool) error
}

// Engine selects winners uniformly at random and persists the outcome.
type Engine struct {
	activities    ActivityStore
	registrations RegistrationStore
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	shuffle       func(n int, swap func(i, j int))
}

// Option configures an Engine.
type Option func(e *Engine)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics attaches draw metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithShuffle replaces the shuffle function. Tests inject a seeded source to
// make selection reproducible.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(e *Engine) { e.shuffle = shuffle }
}

// New constructs an Engine. The default shuffle is math/rand/v2's
// Fisher-Yates, which gives every permutation equal probability.
func New(activities ActivityStore, registrations RegistrationStore, opts ...Option) *Engine {
	e := &Engine{
		activities:    activities,
		registrations: registrations,
		tracer:        otel.Tracer("luckdraw/draw"),
		shuffle:       rand.Shuffle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Draw selects min(winnersCount, registrationCount) winners for a closed
// activity and persists the winner flags.
//
// Re-running a draw on the same registration set always ends with exactly k
// winners marked, though which k may differ between runs: each run
// re-randomizes, and that is the supported "redo the lottery" behavior.
//
// Any per-record write failure during the reset or commit pass is returned
// as a PartialCommitError naming the records that succeeded and failed.
// Nothing is rolled back; the caller re-runs the draw to converge.
func (e *Engine) Draw(ctx context.Context, activityID domain.ActivityID) ([]models.Winner, error) {
	start := time.Now()
	now := requestcontext.Now(ctx)

	ctx, span := e.tracer.Start(ctx, "draw",
		trace.WithAttributes(attribute.String("activity_id", activityID.String())))
	defer span.End()

	activity, err := e.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "activity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load activity")
	}
	if activity.IsOpen(now) {
		return nil, dErrors.Reject(ReasonDrawBeforeDeadline, "draw not allowed before deadline")
	}

	regs, err := e.registrations.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load registrations")
	}
	if len(regs) == 0 {
		return nil, dErrors.Reject(ReasonNoRegistrations, "no registrations to draw from")
	}

	k := min(activity.WinnersCount, len(regs))
	span.SetAttributes(
		attribute.Int("registrations", len(regs)),
		attribute.Int("winners", k),
	)

	if err := e.resetPass(ctx, activityID, regs); err != nil {
		return nil, err
	}

	selected := e.selectPass(regs, k)

	if err := e.commitPass(ctx, activityID, selected); err != nil {
		return nil, err
	}

	winners := make([]models.Winner, 0, k)
	for _, reg := range selected {
		winners = append(winners, models.Winner{ID: reg.ID, Name: reg.Name, Phone: reg.Phone})
	}

	if e.logger != nil {
		e.logger.InfoContext(ctx, "draw completed",
			"activity_id", activityID,
			"registrations", len(regs),
			"winners", k,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if e.metrics != nil {
		e.metrics.DrawsCompleted.Inc()
		e.metrics.DrawWinnersSelected.Add(float64(k))
		e.metrics.ObserveDraw(time.Since(start))
	}
	return winners, nil
}

// resetPass clears stale winner flags from any prior run. Skipping records
// already false keeps re-runs cheap without changing the outcome.
func (e *Engine) resetPass(ctx context.Context, activityID domain.ActivityID, regs []*models.Registration) error {
	ctx, span := e.tracer.Start(ctx, "draw.reset")
	defer span.End()

	var succeeded []domain.RegistrationID
	var failed []RecordFailure
	for _, reg := range regs {
		if !reg.IsWinner {
			continue
		}
		if err := e.registrations.SetWinner(ctx, reg.ID, false); err != nil {
			failed = append(failed, RecordFailure{ID: reg.ID, Err: err})
			continue
		}
		reg.IsWinner = false
		succeeded = append(succeeded, reg.ID)
	}
	if len(failed) > 0 {
		return partialCommit(activityID, "reset", succeeded, failed)
	}
	return nil
}

// selectPass produces a uniformly random permutation and takes the first k.
// Selection is without replacement and every registration has probability
// k/n of winning.
func (e *Engine) selectPass(regs []*models.Registration, k int) []*models.Registration {
	shuffled := make([]*models.Registration, len(regs))
	copy(shuffled, regs)
	e.shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:k]
}

func (e *Engine) commitPass(ctx context.Context, activityID domain.ActivityID, selected []*models.Registration) error {
	ctx, span := e.tracer.Start(ctx, "draw.commit")
	defer span.End()

	var succeeded []domain.RegistrationID
	var failed []RecordFailure
	for _, reg := range selected {
		if err := e.registrations.SetWinner(ctx, reg.ID, true); err != nil {
			failed = append(failed, RecordFailure{ID: reg.ID, Err: err})
			continue
		}
		succeeded = append(succeeded, reg.ID)
	}
	if len(failed) > 0 {
		return partialCommit(activityID, "commit", succeeded, failed)
	}
	return nil
}

// RecordFailure names one registration whose write failed.
type RecordFailure struct {
	ID  domain.RegistrationID
	Err error
}

// PartialCommitError reports a draw pass that applied only partially. The
// winner set may be inconsistent until the draw is re-run; the reset pass
// makes the re-run converge.
type PartialCommitError struct {
	ActivityID domain.ActivityID
	Pass       string
	Succeeded  []domain.RegistrationID
	Failed     []RecordFailure
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("draw %s pass for activity %s applied partially: %d succeeded, %d failed",
		e.Pass, e.ActivityID, len(e.Succeeded), len(e.Failed))
}

func partialCommit(activityID domain.ActivityID, pass string, succeeded []domain.RegistrationID, failed []RecordFailure) error {
	pce := &PartialCommitError{
		ActivityID: activityID,
		Pass:       pass,
		Succeeded:  succeeded,
		Failed:     failed,
	}
	return dErrors.Wrap(pce, dErrors.CodePartialCommit,
		"draw applied partially; re-run the draw to converge")
}
