package habits

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/streaks/internal/cli"
	"github.com/julianstephens/streaks/internal/config"
	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/storage"
	"github.com/julianstephens/streaks/internal/storage/memory"
	"github.com/julianstephens/streaks/internal/validation"
)

func init() {
	logger.Discard()
}

func setupTestContext(t *testing.T) (*cli.Context, *memory.Store, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Apply(config.Overrides{Driver: constants.DriverMemory})

	store := memory.New()
	ctx, err := cli.NewContext(cfg, store)
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	out := &bytes.Buffer{}
	ctx.Out = out
	ctx.Interactive = false
	return ctx, store, out
}

func TestHabitAddCmd(t *testing.T) {
	ctx, store, out := setupTestContext(t)

	before := time.Now().UTC()
	cmd := &HabitAddCmd{Owner: "alice", Name: "Morning run", Cadence: 3, Color: "#ff8800", ID: "run"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("habit add failed: %v", err)
	}

	h, err := store.GetHabit(context.Background(), "alice", "run")
	if err != nil {
		t.Fatalf("GetHabit failed: %v", err)
	}
	if h.Name != "Morning run" || h.Cadence != 3 || h.Color != "#ff8800" {
		t.Errorf("unexpected habit %+v", h)
	}
	if h.Streak != 0 || !h.IsInGracePeriod {
		t.Errorf("new habits start at streak 0 in grace, got streak %d grace %v", h.Streak, h.IsInGracePeriod)
	}
	if h.CreatedAt.Before(before) || h.CreatedAt.After(time.Now().UTC()) {
		t.Errorf("CreatedAt %v not in [%v, now]", h.CreatedAt, before)
	}
	if !strings.Contains(out.String(), "Added habit: Morning run (alice/run)") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestHabitAddCmd_GeneratesID(t *testing.T) {
	ctx, store, _ := setupTestContext(t)

	if err := (&HabitAddCmd{Owner: "alice", Name: "Read", Cadence: 7}).Run(ctx); err != nil {
		t.Fatalf("habit add failed: %v", err)
	}
	habits, err := store.ListHabits(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListHabits failed: %v", err)
	}
	if len(habits) != 1 || len(habits[0].HabitID) != 36 {
		t.Fatalf("expected one habit with a uuid id, got %+v", habits)
	}
}

func TestHabitAddCmd_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cmd     HabitAddCmd
		wantErr error
	}{
		{name: "missing flags without a terminal", cmd: HabitAddCmd{Owner: "alice"}, wantErr: validation.ErrInvalidInput},
		{name: "cadence too high", cmd: HabitAddCmd{Owner: "alice", Name: "x", Cadence: 8}, wantErr: validation.ErrInvalidCadence},
		{name: "cadence negative", cmd: HabitAddCmd{Owner: "alice", Name: "x", Cadence: -1}, wantErr: validation.ErrInvalidCadence},
		{name: "bad colour", cmd: HabitAddCmd{Owner: "alice", Name: "x", Cadence: 2, Color: "orange"}, wantErr: validation.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, store, _ := setupTestContext(t)
			err := tt.cmd.Run(ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			habits, _ := store.ScanHabits(context.Background())
			if len(habits) != 0 {
				t.Errorf("invalid habit was stored: %+v", habits)
			}
		})
	}
}

func TestHabitAddCmd_Duplicate(t *testing.T) {
	ctx, _, _ := setupTestContext(t)
	cmd := HabitAddCmd{Owner: "alice", Name: "Run", Cadence: 2, ID: "run"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := cmd.Run(ctx); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("second add error = %v, want ErrConflict", err)
	}
}

func TestHabitListCmd(t *testing.T) {
	ctx, _, out := setupTestContext(t)

	if err := (&HabitListCmd{}).Run(ctx); err != nil {
		t.Fatalf("habit list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No habits found.") {
		t.Errorf("unexpected output: %q", out.String())
	}

	for _, c := range []HabitAddCmd{
		{Owner: "alice", Name: "Run", Cadence: 3, ID: "run"},
		{Owner: "bob", Name: "Swim", Cadence: 1, ID: "swim"},
	} {
		if err := c.Run(ctx); err != nil {
			t.Fatalf("habit add failed: %v", err)
		}
	}

	out.Reset()
	if err := (&HabitListCmd{Owner: "alice"}).Run(ctx); err != nil {
		t.Fatalf("habit list failed: %v", err)
	}
	if !strings.Contains(out.String(), "alice/run") || strings.Contains(out.String(), "bob/swim") {
		t.Errorf("owner filter not applied:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "[GRACE]") {
		t.Errorf("new habits should be marked as in grace:\n%s", out.String())
	}

	out.Reset()
	if err := (&HabitListCmd{}).Run(ctx); err != nil {
		t.Fatalf("habit list failed: %v", err)
	}
	if !strings.Contains(out.String(), "alice/run") || !strings.Contains(out.String(), "bob/swim") {
		t.Errorf("expected every habit:\n%s", out.String())
	}
}

func TestHabitShowCmd(t *testing.T) {
	ctx, store, out := setupTestContext(t)
	if err := (&HabitAddCmd{Owner: "alice", Name: "Run", Cadence: 3, ID: "run"}).Run(ctx); err != nil {
		t.Fatalf("habit add failed: %v", err)
	}
	err := store.AddProof(context.Background(), models.Proof{
		OwnerID: "alice", ProofID: "p1", HabitID: "run", OccurredAt: time.Now().UTC(), CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("AddProof failed: %v", err)
	}
	out.Reset()

	if err := (&HabitShowCmd{Owner: "alice", Habit: "run"}).Run(ctx); err != nil {
		t.Fatalf("habit show failed: %v", err)
	}
	if !strings.Contains(out.String(), "1/3 proofs") {
		t.Errorf("expected this week's count:\n%s", out.String())
	}

	if err := (&HabitShowCmd{Owner: "alice", Habit: "nope"}).Run(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestHabitDeleteCmd_KeepsProofs(t *testing.T) {
	ctx, store, out := setupTestContext(t)
	if err := (&HabitAddCmd{Owner: "alice", Name: "Run", Cadence: 3, ID: "run"}).Run(ctx); err != nil {
		t.Fatalf("habit add failed: %v", err)
	}
	err := store.AddProof(context.Background(), models.Proof{
		OwnerID: "alice", ProofID: "p1", HabitID: "run", OccurredAt: time.Now().UTC(), CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("AddProof failed: %v", err)
	}

	if err := (&HabitDeleteCmd{Owner: "alice", Habit: "run"}).Run(ctx); err != nil {
		t.Fatalf("habit delete failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted habit: alice/run") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if _, err := store.GetHabit(context.Background(), "alice", "run"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("habit still present: %v", err)
	}
	proofs, _ := store.ListProofs(context.Background(), "alice", "run")
	if len(proofs) != 1 {
		t.Errorf("proofs should survive habit deletion, got %d", len(proofs))
	}

	if err := (&HabitDeleteCmd{Owner: "alice", Habit: "run"}).Run(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}
