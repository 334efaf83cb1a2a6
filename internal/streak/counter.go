package streak

import (
	"context"
	"errors"

	"github.com/julianstephens/streaks/internal/storage"
)

// ProofCounter counts qualifying proofs for one habit and week. It reads the
// store on every call.
type ProofCounter struct {
	proofs storage.ProofStore
}

func NewProofCounter(proofs storage.ProofStore) *ProofCounter {
	return &ProofCounter{proofs: proofs}
}

// Count returns how many of owner's proofs for habitID occurred inside w.
func (c *ProofCounter) Count(ctx context.Context, ownerID, habitID string, w Window) (int, error) {
	n, err := c.proofs.CountInWindow(ctx, ownerID, habitID, w.Start, w.End)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			return 0, err
		}
		return 0, storage.Unavailable("count proofs", err)
	}
	return n, nil
}
