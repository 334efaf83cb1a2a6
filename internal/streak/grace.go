package streak

import (
	"context"
	"time"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/storage"
)

// InGracePeriod reports whether now is still inside the fixed window after
// createdAt. The window closes only when now is strictly after its end.
func InGracePeriod(createdAt, now time.Time) bool {
	return !now.After(createdAt.Add(constants.GracePeriod))
}

// GraceEvaluator moves habits out of their onboarding window. It only ever
// writes is_in_grace_period, and only from true to false.
type GraceEvaluator struct {
	habits storage.HabitStore
	clock  Clock
}

func NewGraceEvaluator(habits storage.HabitStore, clock Clock) *GraceEvaluator {
	if clock == nil {
		clock = SystemClock
	}
	return &GraceEvaluator{habits: habits, clock: clock}
}

// Evaluate returns the outcome and the habit as it stands afterwards.
func (g *GraceEvaluator) Evaluate(ctx context.Context, h models.Habit) (Outcome, models.Habit, error) {
	return g.evaluate(ctx, h, g.clock.Now())
}

func (g *GraceEvaluator) evaluate(ctx context.Context, h models.Habit, now time.Time) (Outcome, models.Habit, error) {
	if !h.IsInGracePeriod {
		return OutcomeUnchanged, h, nil
	}
	if InGracePeriod(h.CreatedAt, now) {
		return OutcomeGraceContinues, h, nil
	}

	u := models.UpdateFrom(h)
	u.IsInGracePeriod = false
	return commit(ctx, g.habits, h, u, OutcomeGraceEnded)
}
