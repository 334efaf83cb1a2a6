package models

import "time"

// Habit is one tracked weekly commitment, identified by (OwnerID, HabitID).
type Habit struct {
	OwnerID   string    `json:"owner_id" validate:"required,max=128"`
	HabitID   string    `json:"habit_id" validate:"required,max=128"`
	Name      string    `json:"name" validate:"required,max=200"`
	Color     string    `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Cadence   int       `json:"cadence" validate:"min=1,max=7"`
	Streak    int       `json:"streak" validate:"min=0"`
	CreatedAt time.Time `json:"created_at"`

	IsInGracePeriod bool       `json:"is_in_grace_period"`
	LastWeekPosts   int        `json:"last_week_posts"`
	LastWeekUpdated *time.Time `json:"last_week_updated,omitempty"`

	// CreditedWeek marks the last week whose compliance was already added to
	// Streak, as an RFC 3339 start/end interval in UTC. Rows written by older
	// versions hold the Monday as YYYY-MM-DD. Empty when no week has been credited.
	CreditedWeek string `json:"credited_week,omitempty"`

	// Revision is bumped by every conditional update and is the optimistic
	// precondition for the next one.
	Revision int64 `json:"revision"`
}

// Key returns the composite identity of the habit.
func (h Habit) Key() HabitKey {
	return HabitKey{OwnerID: h.OwnerID, HabitID: h.HabitID}
}

// HabitKey identifies a habit.
type HabitKey struct {
	OwnerID string
	HabitID string
}

func (k HabitKey) String() string {
	return k.OwnerID + "/" + k.HabitID
}

// HabitUpdate is the full set of evaluator-owned fields written atomically by a
// conditional update.
type HabitUpdate struct {
	Streak          int
	IsInGracePeriod bool
	LastWeekPosts   int
	LastWeekUpdated *time.Time
	CreditedWeek    string
}

// UpdateFrom returns the evaluator-owned fields of h as an update.
func UpdateFrom(h Habit) HabitUpdate {
	return HabitUpdate{
		Streak:          h.Streak,
		IsInGracePeriod: h.IsInGracePeriod,
		LastWeekPosts:   h.LastWeekPosts,
		LastWeekUpdated: h.LastWeekUpdated,
		CreditedWeek:    h.CreditedWeek,
	}
}

// ApplyUpdate returns a copy of h with the update applied and the revision bumped.
func (h Habit) ApplyUpdate(u HabitUpdate) Habit {
	h.Streak = u.Streak
	h.IsInGracePeriod = u.IsInGracePeriod
	h.LastWeekPosts = u.LastWeekPosts
	h.LastWeekUpdated = u.LastWeekUpdated
	h.CreditedWeek = u.CreditedWeek
	h.Revision++
	return h
}
