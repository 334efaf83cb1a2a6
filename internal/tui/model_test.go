package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/storage/memory"
	"github.com/julianstephens/streaks/internal/streak"
	"github.com/julianstephens/streaks/internal/tui/components/habitlist"
)

// Wednesday of the week starting 2024-01-15.
var testNow = time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)

func init() {
	logger.Discard()
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T) (Model, *memory.Store) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	old := testNow.AddDate(0, 0, -30)

	for _, h := range []models.Habit{
		{OwnerID: "alice", HabitID: "met", Name: "Run", Cadence: 2, Streak: 3, CreatedAt: old},
		{OwnerID: "alice", HabitID: "short", Name: "Read", Cadence: 3, Streak: 5, CreatedAt: old},
	} {
		require.NoError(t, store.PutHabit(ctx, h))
	}
	for i, id := range []string{"p1", "p2"} {
		require.NoError(t, store.AddProof(ctx, models.Proof{
			OwnerID:    "alice",
			ProofID:    id,
			HabitID:    "met",
			Caption:    "5k",
			OccurredAt: testNow.Add(-time.Duration(i+1) * time.Hour),
			CreatedAt:  testNow,
		}))
	}

	eval := streak.NewEvaluator(store, store, streak.WithClock(streak.ClockFunc(func() time.Time { return testNow })))
	m := NewModel(ctx, Deps{
		Store:     store,
		Evaluator: eval,
		Sweeper:   streak.NewSweeper(store, eval, streak.SweepConfig{Workers: 2}),
		Owner:     "alice",
	})

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = next.(Model)
	next, _ = m.Update(m.Init()())
	return next.(Model), store
}

// step feeds msg to the model and runs the returned command once.
func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	if cmd == nil {
		return next.(Model), nil
	}
	return next.(Model), cmd()
}

func TestInitLoadsHabits(t *testing.T) {
	m, _ := newTestModel(t)

	require.NoError(t, m.err)
	assert.Equal(t, 2, m.habitList.Len())
	assert.Equal(t, "2024-01-15", m.window.Key())

	it, ok := m.habitList.Selected()
	require.True(t, ok)
	assert.Equal(t, "met", it.Habit.HabitID)
	assert.Equal(t, 2, it.Posts)
	assert.Contains(t, m.View(), "Week of 2024-01-15")
}

func TestEvaluateSelectedHabit(t *testing.T) {
	m, store := newTestModel(t)

	m, msg := step(t, m, keyPress("e"))
	require.IsType(t, habitlist.EvaluateMsg{}, msg)

	m, msg = step(t, m, msg)
	require.IsType(t, evaluatedMsg{}, msg)

	m, msg = step(t, m, msg)
	assert.Contains(t, m.status, string(streak.OutcomeStreakIncremented))
	require.IsType(t, habitsLoadedMsg{}, msg)

	h, err := store.GetHabit(context.Background(), "alice", "met")
	require.NoError(t, err)
	assert.Equal(t, 4, h.Streak)
}

func TestSweepNeedsConfirmation(t *testing.T) {
	m, store := newTestModel(t)

	m, _ = step(t, m, keyPress("s"))
	assert.Equal(t, StateConfirmSweep, m.state)
	assert.Contains(t, m.View(), "Run a sweep now?")

	m, _ = step(t, m, keyPress("n"))
	assert.Equal(t, StateHabits, m.state)
	h, err := store.GetHabit(context.Background(), "alice", "short")
	require.NoError(t, err)
	assert.Equal(t, 5, h.Streak, "cancelled sweep must not touch habits")

	m, _ = step(t, m, keyPress("s"))
	m, msg := step(t, m, keyPress("y"))
	require.IsType(t, sweptMsg{}, msg)

	m, _ = step(t, m, msg)
	assert.Equal(t, StateSweep, m.state)
	require.NotNil(t, m.lastSweep)
	assert.Equal(t, 2, m.lastSweep.HabitsProcessed)
	assert.Contains(t, m.View(), "Habits processed")

	h, err = store.GetHabit(context.Background(), "alice", "short")
	require.NoError(t, err)
	assert.Equal(t, 0, h.Streak)
}

func TestWeekTabShowsProofs(t *testing.T) {
	m, _ := newTestModel(t)

	m, msg := step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, StateWeek, m.state)
	require.IsType(t, proofsLoadedMsg{}, msg)

	m, _ = step(t, m, msg)
	assert.Equal(t, 2, m.weekModel.Count())
	view := m.View()
	assert.Contains(t, view, "Run, week of 2024-01-15")
	assert.Contains(t, view, "2/2 met")
}

func TestLoadErrorIsShown(t *testing.T) {
	m, store := newTestModel(t)
	store.FailWith = func(op string, key models.HabitKey) error {
		if op == "list habits" {
			return errors.New("store offline")
		}
		return nil
	}

	m, msg := step(t, m, keyPress("r"))
	require.IsType(t, habitsLoadedMsg{}, msg)

	m, _ = step(t, m, msg)
	assert.Contains(t, m.View(), "Error: list habits")
	assert.Contains(t, m.View(), "store offline")
	assert.Equal(t, 2, m.habitList.Len(), "a failed reload keeps the last list")
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)

	next, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, "", next.(Model).View())
}
