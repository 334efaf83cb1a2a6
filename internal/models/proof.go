package models

import "time"

// Proof is one completion submission for a habit. HabitID is a weak reference:
// proofs are never checked against a live habit and may outlive it.
type Proof struct {
	OwnerID    string    `json:"owner_id"`
	ProofID    string    `json:"proof_id"`
	HabitID    string    `json:"habit_id"`
	Caption    string    `json:"caption,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProofInput is a proof submission before an id is assigned. A zero OccurredAt
// means "now".
type ProofInput struct {
	OwnerID    string    `json:"owner_id" binding:"required,max=128" validate:"required,max=128"`
	HabitID    string    `json:"habit_id" binding:"required,max=128" validate:"required,max=128"`
	Caption    string    `json:"caption,omitempty" binding:"max=2000" validate:"max=2000"`
	OccurredAt time.Time `json:"occurred_at,omitempty"`
}
