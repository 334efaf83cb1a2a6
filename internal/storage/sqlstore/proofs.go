package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/storage"
	"github.com/julianstephens/streaks/internal/utils"
)

type proofRow struct {
	OwnerID    string `db:"owner_id"`
	ProofID    string `db:"proof_id"`
	HabitID    string `db:"habit_id"`
	Caption    string `db:"caption"`
	OccurredAt string `db:"occurred_at"`
	CreatedAt  string `db:"created_at"`
}

func (s *Store) AddProof(ctx context.Context, p models.Proof) error {
	if s.db == nil {
		return storage.Unavailable("add proof", ErrNotInitialized)
	}
	query := s.db.Rebind(`INSERT INTO proofs (owner_id, proof_id, habit_id, caption, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, proof_id) DO NOTHING`)
	res, err := s.db.ExecContext(ctx, query,
		p.OwnerID, p.ProofID, p.HabitID, p.Caption,
		utils.FormatTimestamp(p.OccurredAt), utils.FormatTimestamp(p.CreatedAt),
	)
	if err != nil {
		return storage.Unavailable("add proof", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Unavailable("add proof", err)
	}
	if n == 0 {
		return fmt.Errorf("proof %s/%s: %w", p.OwnerID, p.ProofID, storage.ErrConflict)
	}
	return nil
}

// CountInWindow relies on the fixed-width UTC encoding of occurred_at, so the
// half-open time range is a plain string range.
func (s *Store) CountInWindow(ctx context.Context, ownerID, habitID string, start, end time.Time) (int, error) {
	if s.db == nil {
		return 0, storage.Unavailable("count proofs", ErrNotInitialized)
	}
	var n int
	query := s.db.Rebind(`SELECT COUNT(*) FROM proofs
		WHERE owner_id = ? AND habit_id = ? AND occurred_at >= ? AND occurred_at < ?`)
	if err := s.db.GetContext(ctx, &n, query, ownerID, habitID, utils.FormatTimestamp(start), utils.FormatTimestamp(end)); err != nil {
		return 0, storage.Unavailable("count proofs", err)
	}
	return n, nil
}

// ListProofs returns the owner's proofs, oldest first. An empty habitID lists
// every habit.
func (s *Store) ListProofs(ctx context.Context, ownerID, habitID string) ([]models.Proof, error) {
	if s.db == nil {
		return nil, storage.Unavailable("list proofs", ErrNotInitialized)
	}
	query := "SELECT owner_id, proof_id, habit_id, caption, occurred_at, created_at FROM proofs WHERE owner_id = ?"
	args := []interface{}{ownerID}
	if habitID != "" {
		query += " AND habit_id = ?"
		args = append(args, habitID)
	}
	query += " ORDER BY occurred_at, proof_id"

	var rows []proofRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, storage.Unavailable("list proofs", err)
	}

	proofs := make([]models.Proof, 0, len(rows))
	for _, r := range rows {
		occurredAt, err := utils.ParseTimestamp(r.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("proof %s/%s: bad occurred_at: %w", r.OwnerID, r.ProofID, err)
		}
		createdAt, err := utils.ParseTimestamp(r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("proof %s/%s: bad created_at: %w", r.OwnerID, r.ProofID, err)
		}
		proofs = append(proofs, models.Proof{
			OwnerID:    r.OwnerID,
			ProofID:    r.ProofID,
			HabitID:    r.HabitID,
			Caption:    r.Caption,
			OccurredAt: occurredAt,
			CreatedAt:  createdAt,
		})
	}
	return proofs, nil
}

func (s *Store) DeleteProof(ctx context.Context, ownerID, proofID string) error {
	if s.db == nil {
		return storage.Unavailable("delete proof", ErrNotInitialized)
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM proofs WHERE owner_id = ? AND proof_id = ?"), ownerID, proofID)
	if err != nil {
		return storage.Unavailable("delete proof", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("proof %s/%s: %w", ownerID, proofID, storage.ErrNotFound)
	}
	return nil
}
