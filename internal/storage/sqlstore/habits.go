package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/storage"
	"github.com/julianstephens/streaks/internal/utils"
)

const habitColumns = `owner_id, habit_id, name, color, cadence, streak, created_at,
	is_in_grace_period, last_week_posts, last_week_updated, credited_week, revision`

type habitRow struct {
	OwnerID         string         `db:"owner_id"`
	HabitID         string         `db:"habit_id"`
	Name            string         `db:"name"`
	Color           string         `db:"color"`
	Cadence         int            `db:"cadence"`
	Streak          int            `db:"streak"`
	CreatedAt       string         `db:"created_at"`
	IsInGracePeriod bool           `db:"is_in_grace_period"`
	LastWeekPosts   int            `db:"last_week_posts"`
	LastWeekUpdated sql.NullString `db:"last_week_updated"`
	CreditedWeek    string         `db:"credited_week"`
	Revision        int64          `db:"revision"`
}

func (r habitRow) toModel() (models.Habit, error) {
	createdAt, err := utils.ParseTimestamp(r.CreatedAt)
	if err != nil {
		return models.Habit{}, fmt.Errorf("habit %s/%s: bad created_at: %w", r.OwnerID, r.HabitID, err)
	}
	h := models.Habit{
		OwnerID:         r.OwnerID,
		HabitID:         r.HabitID,
		Name:            r.Name,
		Color:           r.Color,
		Cadence:         r.Cadence,
		Streak:          r.Streak,
		CreatedAt:       createdAt,
		IsInGracePeriod: r.IsInGracePeriod,
		LastWeekPosts:   r.LastWeekPosts,
		CreditedWeek:    r.CreditedWeek,
		Revision:        r.Revision,
	}
	if r.LastWeekUpdated.Valid {
		t, err := utils.ParseTimestamp(r.LastWeekUpdated.String)
		if err != nil {
			return models.Habit{}, fmt.Errorf("habit %s/%s: bad last_week_updated: %w", r.OwnerID, r.HabitID, err)
		}
		h.LastWeekUpdated = &t
	}
	return h, nil
}

func nullTimestamp(t *models.Habit) sql.NullString {
	if t.LastWeekUpdated == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: utils.FormatTimestamp(*t.LastWeekUpdated), Valid: true}
}

func (s *Store) GetHabit(ctx context.Context, ownerID, habitID string) (models.Habit, error) {
	if s.db == nil {
		return models.Habit{}, storage.Unavailable("get habit", ErrNotInitialized)
	}
	var row habitRow
	query := s.db.Rebind("SELECT " + habitColumns + " FROM habits WHERE owner_id = ? AND habit_id = ?")
	if err := s.db.GetContext(ctx, &row, query, ownerID, habitID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Habit{}, fmt.Errorf("habit %s/%s: %w", ownerID, habitID, storage.ErrNotFound)
		}
		return models.Habit{}, storage.Unavailable("get habit", err)
	}
	return row.toModel()
}

// PutHabit inserts a new habit and returns ErrConflict if the key is taken.
func (s *Store) PutHabit(ctx context.Context, h models.Habit) error {
	if s.db == nil {
		return storage.Unavailable("put habit", ErrNotInitialized)
	}
	query := s.db.Rebind(`INSERT INTO habits (` + habitColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, habit_id) DO NOTHING`)
	res, err := s.db.ExecContext(ctx, query,
		h.OwnerID, h.HabitID, h.Name, h.Color, h.Cadence, h.Streak,
		utils.FormatTimestamp(h.CreatedAt), h.IsInGracePeriod, h.LastWeekPosts,
		nullTimestamp(&h), h.CreditedWeek, h.Revision,
	)
	if err != nil {
		return storage.Unavailable("put habit", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Unavailable("put habit", err)
	}
	if n == 0 {
		return fmt.Errorf("habit %s/%s: %w", h.OwnerID, h.HabitID, storage.ErrConflict)
	}
	return nil
}

func (s *Store) ConditionalUpdate(ctx context.Context, ownerID, habitID string, u models.HabitUpdate, expectedRevision int64) error {
	if s.db == nil {
		return storage.Unavailable("update habit", ErrNotInitialized)
	}
	var lastUpdated sql.NullString
	if u.LastWeekUpdated != nil {
		lastUpdated = sql.NullString{String: utils.FormatTimestamp(*u.LastWeekUpdated), Valid: true}
	}

	query := s.db.Rebind(`UPDATE habits SET
		streak = ?, is_in_grace_period = ?, last_week_posts = ?, last_week_updated = ?,
		credited_week = ?, revision = revision + 1
		WHERE owner_id = ? AND habit_id = ? AND revision = ?`)
	res, err := s.db.ExecContext(ctx, query,
		u.Streak, u.IsInGracePeriod, u.LastWeekPosts, lastUpdated, u.CreditedWeek,
		ownerID, habitID, expectedRevision,
	)
	if err != nil {
		return storage.Unavailable("update habit", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Unavailable("update habit", err)
	}
	if n == 1 {
		return nil
	}

	// Nothing matched: either the row is gone or its revision moved.
	var current int64
	err = s.db.GetContext(ctx, &current, s.db.Rebind("SELECT revision FROM habits WHERE owner_id = ? AND habit_id = ?"), ownerID, habitID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("habit %s/%s: %w", ownerID, habitID, storage.ErrNotFound)
	case err != nil:
		return storage.Unavailable("update habit", err)
	default:
		return fmt.Errorf("habit %s/%s at revision %d, expected %d: %w", ownerID, habitID, current, expectedRevision, storage.ErrPreconditionFailed)
	}
}

func (s *Store) ScanHabits(ctx context.Context) ([]models.Habit, error) {
	if s.db == nil {
		return nil, storage.Unavailable("scan habits", ErrNotInitialized)
	}
	var rows []habitRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT "+habitColumns+" FROM habits"); err != nil {
		return nil, storage.Unavailable("scan habits", err)
	}
	return toHabits(rows)
}

func (s *Store) ListHabits(ctx context.Context, ownerID string) ([]models.Habit, error) {
	if s.db == nil {
		return nil, storage.Unavailable("list habits", ErrNotInitialized)
	}
	var rows []habitRow
	query := s.db.Rebind("SELECT " + habitColumns + " FROM habits WHERE owner_id = ? ORDER BY created_at, habit_id")
	if err := s.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, storage.Unavailable("list habits", err)
	}
	return toHabits(rows)
}

// DeleteHabit removes the habit only. Its proofs stay behind as orphans.
func (s *Store) DeleteHabit(ctx context.Context, ownerID, habitID string) error {
	if s.db == nil {
		return storage.Unavailable("delete habit", ErrNotInitialized)
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM habits WHERE owner_id = ? AND habit_id = ?"), ownerID, habitID)
	if err != nil {
		return storage.Unavailable("delete habit", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("habit %s/%s: %w", ownerID, habitID, storage.ErrNotFound)
	}
	return nil
}

func toHabits(rows []habitRow) ([]models.Habit, error) {
	habits := make([]models.Habit, 0, len(rows))
	for _, r := range rows {
		h, err := r.toModel()
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, nil
}
