package streak

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/storage/memory"
)

// Wednesday; the enclosing week starts Monday 2024-01-15.
var testNow = time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)

func init() {
	logger.Discard()
}

type fixture struct {
	t     *testing.T
	store *memory.Store
	now   time.Time
	eval  *Evaluator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, store: memory.New(), now: testNow}
	f.eval = NewEvaluator(f.store, f.store, WithClock(ClockFunc(func() time.Time { return f.now })))
	return f
}

// habit stores a habit created daysAgo days before now.
func (f *fixture) habit(id string, cadence int, daysAgo int, grace bool, streak int) models.Habit {
	f.t.Helper()
	h := models.Habit{
		OwnerID:         "owner",
		HabitID:         id,
		Name:            id,
		Cadence:         cadence,
		Streak:          streak,
		CreatedAt:       f.now.AddDate(0, 0, -daysAgo),
		IsInGracePeriod: grace,
	}
	require.NoError(f.t, f.store.PutHabit(context.Background(), h))
	return h
}

// proofs adds n proofs for habit id inside the current week.
func (f *fixture) proofs(id string, n int) {
	f.t.Helper()
	week := WeekOf(f.now)
	for i := 0; i < n; i++ {
		f.proofAt(id, week.Start.Add(time.Duration(i)*time.Hour))
	}
}

func (f *fixture) proofAt(id string, at time.Time) {
	f.t.Helper()
	p := models.Proof{
		OwnerID:    "owner",
		ProofID:    fmt.Sprintf("%s-%d", id, at.UnixNano()),
		HabitID:    id,
		OccurredAt: at,
		CreatedAt:  at,
	}
	require.NoError(f.t, f.store.AddProof(context.Background(), p))
}

func (f *fixture) get(id string) models.Habit {
	f.t.Helper()
	h, err := f.store.GetHabit(context.Background(), "owner", id)
	require.NoError(f.t, err)
	return h
}
