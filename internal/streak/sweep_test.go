package streak

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/observability"
	"github.com/julianstephens/streaks/internal/storage"
)

func TestRunSweep_Outcomes(t *testing.T) {
	f := newFixture(t)
	f.habit("missed", 3, 14, false, 4)
	f.proofs("missed", 2)
	f.habit("met", 2, 14, false, 4)
	f.proofs("met", 2)
	f.habit("young", 3, 3, true, 0)
	f.habit("graduating", 3, 14, true, 0)

	sweeper := NewSweeper(f.store, f.eval, SweepConfig{Workers: 2})
	sum, err := sweeper.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, sum.HabitsProcessed)
	assert.Equal(t, 0, sum.Failures)
	assert.Equal(t, 1, sum.Outcomes[OutcomeStreakReset])
	assert.Equal(t, 1, sum.Outcomes[OutcomeStreakIncremented])
	assert.Equal(t, 1, sum.Outcomes[OutcomeGraceContinues])
	assert.Equal(t, 1, sum.Outcomes[OutcomeGraceEnded])
	assert.Equal(t, testNow, sum.StartedAt)

	assert.Equal(t, 0, f.get("missed").Streak)
	assert.Equal(t, 5, f.get("met").Streak)
	assert.True(t, f.get("young").IsInGracePeriod)
	assert.False(t, f.get("graduating").IsInGracePeriod)
}

func TestRunSweep_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.habit("met", 1, 14, false, 0)
	f.proofs("met", 1)
	f.habit("missed", 1, 14, false, 2)
	sweeper := NewSweeper(f.store, f.eval, SweepConfig{})
	ctx := context.Background()

	_, err := sweeper.RunSweep(ctx)
	require.NoError(t, err)
	before := []models.Habit{f.get("met"), f.get("missed")}

	sum, err := sweeper.RunSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Outcomes[OutcomeUnchanged])
	assert.Equal(t, before, []models.Habit{f.get("met"), f.get("missed")})
}

func TestRunSweep_FailureIsolated(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"a", "bad", "c"} {
		f.habit(id, 1, 14, false, 3)
	}
	f.store.FailWith = func(op string, key models.HabitKey) error {
		if op == "count proofs" && key.HabitID == "bad" {
			return errors.New("throttled")
		}
		return nil
	}

	sum, err := NewSweeper(f.store, f.eval, SweepConfig{Workers: 3}).RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.HabitsProcessed)
	assert.Equal(t, 1, sum.Failures)
	assert.Equal(t, 2, sum.Outcomes[OutcomeStreakReset])

	f.store.FailWith = nil
	assert.Equal(t, 3, f.get("bad").Streak)
	assert.Equal(t, 0, f.get("a").Streak)
}

func TestRunSweep_ScanFailureFailsRun(t *testing.T) {
	f := newFixture(t)
	f.store.FailWith = func(op string, key models.HabitKey) error {
		if op == "scan habits" {
			return errors.New("down")
		}
		return nil
	}

	_, err := NewSweeper(f.store, f.eval, SweepConfig{}).RunSweep(context.Background())
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestRunSweep_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.habit("a", 1, 14, false, 3)
	f.habit("b", 1, 14, false, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := NewSweeper(f.store, f.eval, SweepConfig{}).RunSweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, sum.HabitsProcessed)
	assert.Equal(t, 3, f.get("a").Streak)
}

func TestRunSweep_RateLimited(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"a", "b", "c"} {
		f.habit(id, 1, 14, false, 0)
		f.proofs(id, 1)
	}

	sum, err := NewSweeper(f.store, f.eval, SweepConfig{Workers: 1, RatePerSecond: 1000}).RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Outcomes[OutcomeStreakIncremented])
}

func TestRunSweep_Metrics(t *testing.T) {
	f := newFixture(t)
	reg := prometheus.NewRegistry()
	f.eval = NewEvaluator(f.store, f.store, WithClock(ClockFunc(func() time.Time { return f.now })), WithMetrics(observability.NewMetrics(reg)))
	f.habit("a", 1, 14, false, 0)

	_, err := NewSweeper(f.store, f.eval, SweepConfig{}).RunSweep(context.Background())
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["streaks_evaluations_total"])
	assert.True(t, names["streaks_sweep_duration_seconds"])
}
