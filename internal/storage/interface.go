package storage

import (
	"context"
	"time"

	"github.com/julianstephens/streaks/internal/models"
)

// HabitStore persists habits. Implementations must apply ConditionalUpdate
// atomically: either every field of the update becomes visible or none does.
type HabitStore interface {
	// GetHabit returns ErrNotFound when the habit does not exist.
	GetHabit(ctx context.Context, ownerID, habitID string) (models.Habit, error)
	PutHabit(ctx context.Context, habit models.Habit) error
	// ConditionalUpdate writes the evaluator-owned fields only if the stored
	// revision still equals expectedRevision, and bumps the revision. It returns
	// ErrNotFound if the habit is gone and ErrPreconditionFailed if the revision moved.
	ConditionalUpdate(ctx context.Context, ownerID, habitID string, update models.HabitUpdate, expectedRevision int64) error
	// ScanHabits returns a full, unordered snapshot of every habit.
	ScanHabits(ctx context.Context) ([]models.Habit, error)
	ListHabits(ctx context.Context, ownerID string) ([]models.Habit, error)
	DeleteHabit(ctx context.Context, ownerID, habitID string) error
}

// ProofStore persists proof events.
type ProofStore interface {
	AddProof(ctx context.Context, proof models.Proof) error
	// CountInWindow counts the owner's proofs for habitID with start <= occurred_at < end.
	CountInWindow(ctx context.Context, ownerID, habitID string, start, end time.Time) (int, error)
	ListProofs(ctx context.Context, ownerID, habitID string) ([]models.Proof, error)
	DeleteProof(ctx context.Context, ownerID, proofID string) error
}

type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Load(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	HabitStore
	ProofStore

	// Utils
	GetConfigPath() string
}
