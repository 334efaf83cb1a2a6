package streak

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInGracePeriod(t *testing.T) {
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := created.Add(7 * 24 * time.Hour)

	assert.True(t, InGracePeriod(created, created))
	assert.True(t, InGracePeriod(created, end.Add(-time.Second)))
	assert.True(t, InGracePeriod(created, end), "window end itself is still grace")
	assert.False(t, InGracePeriod(created, end.Add(time.Nanosecond)))
}

// Scenario C
func TestGrace_StillInWindow(t *testing.T) {
	f := newFixture(t)
	f.habit("young", 3, 3, true, 0)

	res, err := f.eval.EvaluateHabit(context.Background(), "owner", "young", TriggerSweep)
	require.NoError(t, err)
	assert.Equal(t, OutcomeGraceContinues, res.Outcome)

	h := f.get("young")
	assert.True(t, h.IsInGracePeriod)
	assert.Equal(t, int64(0), h.Revision, "grace continuation writes nothing")
}

// Scenario D
func TestGrace_WindowElapsed(t *testing.T) {
	f := newFixture(t)
	f.habit("old", 3, 14, true, 0)

	res, err := f.eval.EvaluateHabit(context.Background(), "owner", "old", TriggerSweep)
	require.NoError(t, err)
	assert.Equal(t, OutcomeGraceEnded, res.Outcome)
	assert.False(t, f.get("old").IsInGracePeriod)
}

func TestGrace_NeverTouchesStreakOrCounts(t *testing.T) {
	f := newFixture(t)
	f.habit("g", 2, 14, true, 5)
	f.proofs("g", 0)

	_, err := f.eval.EvaluateHabit(context.Background(), "owner", "g", TriggerSweep)
	require.NoError(t, err)

	h := f.get("g")
	assert.Equal(t, 5, h.Streak)
	assert.Equal(t, 0, h.LastWeekPosts)
	assert.Nil(t, h.LastWeekUpdated)
	assert.Empty(t, h.CreditedWeek)
}

func TestGrace_Monotonic(t *testing.T) {
	f := newFixture(t)
	f.habit("m", 1, 8, true, 0)
	ctx := context.Background()

	res, err := f.eval.EvaluateHabit(ctx, "owner", "m", TriggerSweep)
	require.NoError(t, err)
	require.Equal(t, OutcomeGraceEnded, res.Outcome)

	// Moving the clock back inside the window must not restore grace.
	f.now = f.now.AddDate(0, 0, -5)
	for i := 0; i < 3; i++ {
		_, err := f.eval.EvaluateHabit(ctx, "owner", "m", TriggerSweep)
		require.NoError(t, err)
		assert.False(t, f.get("m").IsInGracePeriod)
	}
}

func TestGraceEvaluator_ActiveHabitUnchanged(t *testing.T) {
	f := newFixture(t)
	h := f.habit("active", 1, 30, false, 2)

	g := NewGraceEvaluator(f.store, ClockFunc(func() time.Time { return f.now }))
	outcome, after, err := g.Evaluate(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Equal(t, h, after)
}

func TestGraceEvaluator_LostRace(t *testing.T) {
	f := newFixture(t)
	stale := f.habit("race", 1, 10, true, 0)
	g := NewGraceEvaluator(f.store, ClockFunc(func() time.Time { return f.now }))
	ctx := context.Background()

	outcome, _, err := g.Evaluate(ctx, stale)
	require.NoError(t, err)
	require.Equal(t, OutcomeGraceEnded, outcome)

	outcome, _, err = g.Evaluate(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
}
