package streak

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/validation"
)

// Hook re-evaluates a habit right after one of its proofs is stored.
type Hook struct {
	eval *Evaluator
	log  *log.Logger
}

func NewHook(eval *Evaluator) *Hook {
	return &Hook{eval: eval, log: logger.With("component", "ingest")}
}

// ProofRecorded runs an ingest evaluation for the current week. It never
// fails: store errors are logged and reported as OutcomeSkipped.
func (h *Hook) ProofRecorded(ctx context.Context, ownerID, habitID string) Outcome {
	res, err := h.eval.EvaluateHabit(ctx, ownerID, habitID, TriggerIngest)
	if err != nil {
		h.log.Warn("Streak update after proof failed", "owner", ownerID, "habit", habitID, "error", err)
		return OutcomeSkipped
	}
	if res.Outcome == OutcomeStreakIncremented {
		h.log.Info("Streak credited", "owner", ownerID, "habit", habitID, "streak", res.Habit.Streak, "week", res.Week.Key())
	}
	return res.Outcome
}

// Receipt is what RecordProof hands back to the caller.
type Receipt struct {
	Proof   models.Proof
	Outcome Outcome
}

type proofWriter interface {
	AddProof(ctx context.Context, p models.Proof) error
}

// Ingestor stores proofs and fires the hook. Only the proof write can fail a
// request.
type Ingestor struct {
	proofs proofWriter
	hook   *Hook
	clock  Clock
	newID  func() string
}

func NewIngestor(proofs proofWriter, hook *Hook) *Ingestor {
	return &Ingestor{
		proofs: proofs,
		hook:   hook,
		clock:  hook.eval.clock,
		newID:  uuid.NewString,
	}
}

// RecordProof validates in, assigns an id and, when missing, an occurred_at
// of now, stores the proof and then runs the hook.
func (i *Ingestor) RecordProof(ctx context.Context, in models.ProofInput) (Receipt, error) {
	if err := validation.ValidateProofInput(in); err != nil {
		return Receipt{}, err
	}

	now := i.clock.Now().UTC()
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}
	p := models.Proof{
		OwnerID:    in.OwnerID,
		ProofID:    i.newID(),
		HabitID:    in.HabitID,
		Caption:    in.Caption,
		OccurredAt: occurredAt.UTC(),
		CreatedAt:  now,
	}
	if err := i.proofs.AddProof(ctx, p); err != nil {
		return Receipt{}, fmt.Errorf("failed to record proof: %w", err)
	}
	i.hook.eval.metrics.ObserveProofRecorded()

	return Receipt{Proof: p, Outcome: i.hook.ProofRecorded(ctx, p.OwnerID, p.HabitID)}, nil
}
