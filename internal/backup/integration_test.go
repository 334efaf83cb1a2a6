package backup

import (
	"context"
	"testing"
	"time"

	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/streak"
)

// TestIntegrationSweepRollback snapshots before a sweep, lets the sweep reset
// a streak and restores the pre-sweep state.
func TestIntegrationSweepRollback(t *testing.T) {
	ctx := context.Background()
	store, dbPath := setupTestDB(t)
	now := time.Date(2024, 1, 21, 23, 55, 0, 0, time.UTC)

	habit := models.Habit{
		OwnerID:   "alice",
		HabitID:   "run",
		Name:      "Run",
		Cadence:   3,
		Streak:    6,
		CreatedAt: now.AddDate(0, -1, 0),
	}
	if err := store.PutHabit(ctx, habit); err != nil {
		t.Fatalf("PutHabit failed: %v", err)
	}

	mgr := NewManager(dbPath, 0)
	snap, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	eval := streak.NewEvaluator(store, store, streak.WithClock(streak.ClockFunc(func() time.Time { return now })))
	sum, err := streak.NewSweeper(store, eval, streak.SweepConfig{Workers: 1}).RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep failed: %v", err)
	}
	if sum.Outcomes[streak.OutcomeStreakReset] != 1 {
		t.Fatalf("expected one reset, got %+v", sum.Outcomes)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	undo, err := mgr.Restore(ctx, snap.Path)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if undo.Path == "" || undo.Path == snap.Path {
		t.Errorf("restore should snapshot the current database first, got %+v", undo)
	}

	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load after restore failed: %v", err)
	}
	got, err := store.GetHabit(ctx, "alice", "run")
	if err != nil {
		t.Fatalf("GetHabit failed: %v", err)
	}
	if got.Streak != 6 || got.Revision != 0 {
		t.Errorf("restored habit has streak %d revision %d, want 6 and 0", got.Streak, got.Revision)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 2 {
		t.Errorf("expected the snapshot and the undo point, got %d", len(backups))
	}
}
