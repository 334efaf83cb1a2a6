// Package memory is a process-local storage.Provider used by tests and by the
// "memory" database driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/storage"
)

type proofKey struct {
	ownerID string
	proofID string
}

type Store struct {
	mu     sync.RWMutex
	habits map[models.HabitKey]models.Habit
	proofs map[proofKey]models.Proof

	// FailWith, when set, is returned (wrapped as ErrUnavailable) by every
	// call whose operation name it accepts. Tests use it to inject outages.
	FailWith func(op string, key models.HabitKey) error
}

var _ storage.Provider = (*Store)(nil)

func New() *Store {
	return &Store{
		habits: make(map[models.HabitKey]models.Habit),
		proofs: make(map[proofKey]models.Proof),
	}
}

func (s *Store) fail(op string, key models.HabitKey) error {
	if s.FailWith == nil {
		return nil
	}
	return storage.Unavailable(op, s.FailWith(op, key))
}

func (s *Store) Init(ctx context.Context) error { return nil }
func (s *Store) Load(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }
func (s *Store) GetConfigPath() string          { return ":memory:" }

func (s *Store) Ping(ctx context.Context) error {
	return s.fail("ping", models.HabitKey{})
}

func (s *Store) GetHabit(ctx context.Context, ownerID, habitID string) (models.Habit, error) {
	key := models.HabitKey{OwnerID: ownerID, HabitID: habitID}
	if err := s.fail("get habit", key); err != nil {
		return models.Habit{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.habits[key]
	if !ok {
		return models.Habit{}, fmt.Errorf("habit %s: %w", key, storage.ErrNotFound)
	}
	return h, nil
}

func (s *Store) PutHabit(ctx context.Context, h models.Habit) error {
	if err := s.fail("put habit", h.Key()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.habits[h.Key()]; ok {
		return fmt.Errorf("habit %s: %w", h.Key(), storage.ErrConflict)
	}
	s.habits[h.Key()] = h
	return nil
}

func (s *Store) ConditionalUpdate(ctx context.Context, ownerID, habitID string, u models.HabitUpdate, expectedRevision int64) error {
	key := models.HabitKey{OwnerID: ownerID, HabitID: habitID}
	if err := s.fail("update habit", key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[key]
	if !ok {
		return fmt.Errorf("habit %s: %w", key, storage.ErrNotFound)
	}
	if h.Revision != expectedRevision {
		return fmt.Errorf("habit %s at revision %d, expected %d: %w", key, h.Revision, expectedRevision, storage.ErrPreconditionFailed)
	}
	s.habits[key] = h.ApplyUpdate(u)
	return nil
}

func (s *Store) ScanHabits(ctx context.Context) ([]models.Habit, error) {
	if err := s.fail("scan habits", models.HabitKey{}); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Habit, 0, len(s.habits))
	for _, h := range s.habits {
		out = append(out, h)
	}
	return out, nil
}

func (s *Store) ListHabits(ctx context.Context, ownerID string) ([]models.Habit, error) {
	if err := s.fail("list habits", models.HabitKey{OwnerID: ownerID}); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Habit
	for _, h := range s.habits {
		if h.OwnerID == ownerID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].HabitID < out[j].HabitID
	})
	return out, nil
}

func (s *Store) DeleteHabit(ctx context.Context, ownerID, habitID string) error {
	key := models.HabitKey{OwnerID: ownerID, HabitID: habitID}
	if err := s.fail("delete habit", key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.habits[key]; !ok {
		return fmt.Errorf("habit %s: %w", key, storage.ErrNotFound)
	}
	delete(s.habits, key)
	return nil
}

func (s *Store) AddProof(ctx context.Context, p models.Proof) error {
	if err := s.fail("add proof", models.HabitKey{OwnerID: p.OwnerID, HabitID: p.HabitID}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := proofKey{ownerID: p.OwnerID, proofID: p.ProofID}
	if _, ok := s.proofs[key]; ok {
		return fmt.Errorf("proof %s/%s: %w", p.OwnerID, p.ProofID, storage.ErrConflict)
	}
	p.OccurredAt = p.OccurredAt.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	s.proofs[key] = p
	return nil
}

func (s *Store) CountInWindow(ctx context.Context, ownerID, habitID string, start, end time.Time) (int, error) {
	if err := s.fail("count proofs", models.HabitKey{OwnerID: ownerID, HabitID: habitID}); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.proofs {
		if p.OwnerID != ownerID || p.HabitID != habitID {
			continue
		}
		if !p.OccurredAt.Before(start) && p.OccurredAt.Before(end) {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListProofs(ctx context.Context, ownerID, habitID string) ([]models.Proof, error) {
	if err := s.fail("list proofs", models.HabitKey{OwnerID: ownerID, HabitID: habitID}); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Proof
	for _, p := range s.proofs {
		if p.OwnerID == ownerID && (habitID == "" || p.HabitID == habitID) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].ProofID < out[j].ProofID
	})
	return out, nil
}

func (s *Store) DeleteProof(ctx context.Context, ownerID, proofID string) error {
	if err := s.fail("delete proof", models.HabitKey{OwnerID: ownerID}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := proofKey{ownerID: ownerID, proofID: proofID}
	if _, ok := s.proofs[key]; !ok {
		return fmt.Errorf("proof %s/%s: %w", ownerID, proofID, storage.ErrNotFound)
	}
	delete(s.proofs, key)
	return nil
}
