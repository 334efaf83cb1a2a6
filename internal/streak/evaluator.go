package streak

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/observability"
	"github.com/julianstephens/streaks/internal/storage"
)

// Evaluator applies the weekly streak policy to one habit at a time:
//
//   - a habit still flagged in grace is handed to the GraceEvaluator and its
//     streak and counts are left alone for that cycle;
//   - the first time a week reaches cadence the streak goes up by exactly one
//     and the week is recorded in CreditedWeek;
//   - a sweep that finds an uncredited week short of cadence resets the streak
//     to zero. An ingest never resets, since the week is still in progress, and
//     a credited week is never reset, so deleting proofs does not rewind it.
//
// Credited weeks are stored as exact UTC intervals. When the configured zone
// changes, the days an earlier credit already covered are settled and only
// proofs after it count toward the new week.
//
// Every write is a single conditional update on the revision that was read.
type Evaluator struct {
	habits  storage.HabitStore
	counter *ProofCounter
	grace   *GraceEvaluator
	clock   Clock
	loc     *time.Location
	metrics *observability.Metrics
	tracer  trace.Tracer
	log     *log.Logger
}

type Option func(*Evaluator)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(e *Evaluator) { e.clock = c }
}

// WithLocation sets the zone week boundaries are computed in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(e *Evaluator) { e.loc = loc }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

func NewEvaluator(habits storage.HabitStore, proofs storage.ProofStore, opts ...Option) *Evaluator {
	e := &Evaluator{
		habits:  habits,
		counter: NewProofCounter(proofs),
		clock:   SystemClock,
		loc:     time.UTC,
		tracer:  observability.Tracer(),
		log:     logger.With("component", "evaluator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	e.grace = NewGraceEvaluator(habits, e.clock)
	return e
}

// Location is the zone week boundaries are computed in.
func (e *Evaluator) Location() *time.Location {
	return e.loc
}

// CurrentWeek is the week containing now in the evaluator's zone.
func (e *Evaluator) CurrentWeek() Window {
	return WeekOf(e.clock.Now().In(e.loc))
}

// EvaluateHabit reads the habit and applies the policy. A missing habit is
// reported as OutcomeSkipped, not as an error.
func (e *Evaluator) EvaluateHabit(ctx context.Context, ownerID, habitID string, trigger Trigger) (Result, error) {
	h, err := e.habits.GetHabit(ctx, ownerID, habitID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.metrics.ObserveEvaluation(string(trigger), string(OutcomeSkipped))
			return Result{Outcome: OutcomeSkipped, Habit: models.Habit{OwnerID: ownerID, HabitID: habitID}, Week: e.CurrentWeek()}, nil
		}
		e.metrics.ObserveEvaluationError(string(trigger))
		return Result{}, err
	}
	return e.Apply(ctx, h, trigger)
}

// Apply evaluates an already-loaded habit. The sweep calls it with the scanned
// snapshot; a stale snapshot is caught by the revision precondition.
func (e *Evaluator) Apply(ctx context.Context, h models.Habit, trigger Trigger) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "streak.evaluate", trace.WithAttributes(
		attribute.String("habit.owner_id", h.OwnerID),
		attribute.String("habit.id", h.HabitID),
		attribute.String("trigger", string(trigger)),
	))
	defer span.End()

	res, err := e.apply(ctx, h, trigger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.metrics.ObserveEvaluationError(string(trigger))
		return res, err
	}
	span.SetAttributes(attribute.String("outcome", string(res.Outcome)), attribute.Int("posts", res.Posts))
	e.metrics.ObserveEvaluation(string(trigger), string(res.Outcome))
	return res, nil
}

func (e *Evaluator) apply(ctx context.Context, h models.Habit, trigger Trigger) (Result, error) {
	now := e.clock.Now().In(e.loc)
	week := WeekOf(now)

	if h.IsInGracePeriod {
		outcome, after, err := e.grace.evaluate(ctx, h, now)
		if err != nil {
			return Result{Habit: h, Week: week}, err
		}
		return Result{Outcome: outcome, Habit: after, Week: week}, nil
	}

	posts, err := e.counter.Count(ctx, h.OwnerID, h.HabitID, week)
	if err != nil {
		return Result{Habit: h, Week: week}, err
	}
	qualifying := posts
	if open, touched := openSpan(h.CreditedWeek, week); touched && open.Start.Before(open.End) {
		// part of this week was credited under another zone
		if qualifying, err = e.counter.Count(ctx, h.OwnerID, h.HabitID, open); err != nil {
			return Result{Habit: h, Posts: posts, Week: week}, err
		}
	}

	outcome, u := decide(h, qualifying, week, now, trigger)
	e.log.Debug("Evaluated habit",
		"habit", h.Key(), "trigger", trigger, "week", week.Key(),
		"posts", posts, "cadence", h.Cadence, "streak", h.Streak, "action", outcome)

	if u == nil {
		return Result{Outcome: outcome, Habit: h, Posts: posts, Week: week}, nil
	}
	outcome, after, err := commit(ctx, e.habits, h, *u, outcome)
	if err != nil {
		return Result{Habit: h, Posts: posts, Week: week}, err
	}
	return Result{Outcome: outcome, Habit: after, Posts: posts, Week: week}, nil
}

// decide computes the transition for an active habit. posts counts only the
// part of week not already covered by the credited marker. A nil update means
// nothing needs writing.
func decide(h models.Habit, posts int, week Window, now time.Time, trigger Trigger) (Outcome, *models.HabitUpdate) {
	open, touched := openSpan(h.CreditedWeek, week)
	if touched && !open.Start.Before(open.End) {
		// settled: neither a later proof nor a later deletion moves the streak
		return OutcomeUnchanged, nil
	}

	if posts >= h.Cadence {
		u := models.UpdateFrom(h)
		u.Streak = h.Streak + 1
		u.CreditedWeek = week.Marker()
		u.LastWeekPosts = posts
		u.LastWeekUpdated = &now
		return OutcomeStreakIncremented, &u
	}

	if trigger != TriggerSweep || touched {
		return OutcomeUnchanged, nil
	}
	if h.Streak == 0 && h.LastWeekPosts == posts && h.LastWeekUpdated != nil && week.Contains(h.LastWeekUpdated.In(now.Location())) {
		// this week's reset is already on record
		return OutcomeUnchanged, nil
	}
	u := models.UpdateFrom(h)
	u.Streak = 0
	u.LastWeekPosts = posts
	u.LastWeekUpdated = &now
	return OutcomeStreakReset, &u
}

// openSpan compares week with a credited week marker. It returns the part of
// week still open for credit and whether any of week was already credited.
// After a timezone change the credited window can cover the start of week;
// only the instants after it may earn a new credit, so the same days are never
// credited twice.
func openSpan(marker string, week Window) (open Window, touched bool) {
	if marker == "" {
		return week, false
	}
	credited, ok := ParseMarker(marker)
	if !ok {
		if marker == week.Key() {
			return Window{Start: week.End, End: week.End}, true
		}
		return week, false
	}
	if !credited.Overlaps(week) {
		return week, false
	}
	if !credited.End.Before(week.End) {
		return Window{Start: week.End, End: week.End}, true
	}
	if credited.End.After(week.Start) {
		week.Start = credited.End
	}
	return week, true
}

// commit writes u conditionally on h's revision. Losing the race to another
// evaluation is reported as unchanged; a habit deleted underneath us is
// skipped. Anything else is a store failure.
func commit(ctx context.Context, habits storage.HabitStore, h models.Habit, u models.HabitUpdate, success Outcome) (Outcome, models.Habit, error) {
	err := habits.ConditionalUpdate(ctx, h.OwnerID, h.HabitID, u, h.Revision)
	switch {
	case err == nil:
		return success, h.ApplyUpdate(u), nil
	case errors.Is(err, storage.ErrPreconditionFailed):
		return OutcomeUnchanged, h, nil
	case errors.Is(err, storage.ErrNotFound):
		return OutcomeSkipped, h, nil
	default:
		return "", h, err
	}
}
