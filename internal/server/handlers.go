package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/storage"
	"github.com/julianstephens/streaks/internal/streak"
	"github.com/julianstephens/streaks/internal/utils"
	"github.com/julianstephens/streaks/internal/validation"
)

type handlers struct {
	deps    Dependencies
	counter *streak.ProofCounter
}

type errorResponse struct {
	Error string `json:"error"`
}

type proofResponse struct {
	ProofID    string `json:"proof_id"`
	OccurredAt string `json:"occurred_at"`
	Outcome    string `json:"outcome"`
}

type sweepResponse struct {
	StartedAt       string         `json:"started_at"`
	DurationMs      int64          `json:"duration_ms"`
	HabitsProcessed int            `json:"habits_processed"`
	Failures        int            `json:"failures"`
	Skipped         int            `json:"skipped"`
	Outcomes        map[string]int `json:"outcomes"`
	Interrupted     bool           `json:"interrupted,omitempty"`
}

type healthResponse struct {
	Status    string         `json:"status"`
	NextSweep string         `json:"next_sweep,omitempty"`
	LastSweep *sweepResponse `json:"last_sweep,omitempty"`
}

type streakResponse struct {
	OwnerID         string  `json:"owner_id"`
	HabitID         string  `json:"habit_id"`
	Cadence         int     `json:"cadence"`
	Streak          int     `json:"streak"`
	IsInGracePeriod bool    `json:"is_in_grace_period"`
	LastWeekPosts   int     `json:"last_week_posts"`
	LastWeekUpdated *string `json:"last_week_updated"`
	CreditedWeek    string  `json:"credited_week,omitempty"`
	WeekStart       string  `json:"week_start"`
	PostsThisWeek   int     `json:"posts_this_week"`
}

func (h *handlers) health(c *gin.Context) {
	if err := h.deps.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	resp := healthResponse{Status: "ok"}
	if h.deps.Schedule != nil {
		if next := h.deps.Schedule.NextRun(); !next.IsZero() {
			resp.NextSweep = next.UTC().Format(time.RFC3339)
		}
		if sum, ok := h.deps.Schedule.LastSummary(); ok {
			last := newSweepResponse(sum)
			resp.LastSweep = &last
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) recordProof(c *gin.Context) {
	var in models.ProofInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	receipt, err := h.deps.Ingestor.RecordProof(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, validation.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		logger.Error("Failed to record proof", "owner", in.OwnerID, "habit", in.HabitID, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to record proof"})
		return
	}

	c.JSON(http.StatusCreated, proofResponse{
		ProofID:    receipt.Proof.ProofID,
		OccurredAt: receipt.Proof.OccurredAt.Format(time.RFC3339Nano),
		Outcome:    string(receipt.Outcome),
	})
}

func (h *handlers) runSweep(c *gin.Context) {
	sum, err := h.deps.Sweeper.RunSweep(c.Request.Context())
	resp := newSweepResponse(sum)
	if err != nil {
		if c.Request.Context().Err() != nil {
			resp.Interrupted = true
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		logger.Error("Manual sweep failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func newSweepResponse(sum streak.Summary) sweepResponse {
	resp := sweepResponse{
		StartedAt:       sum.StartedAt.Format(time.RFC3339),
		DurationMs:      sum.Duration.Milliseconds(),
		HabitsProcessed: sum.HabitsProcessed,
		Failures:        sum.Failures,
		Skipped:         sum.Skipped,
		Outcomes:        make(map[string]int, len(sum.Outcomes)),
	}
	for o, n := range sum.Outcomes {
		resp.Outcomes[string(o)] = n
	}
	return resp
}

func (h *handlers) habitStreak(c *gin.Context) {
	ctx := c.Request.Context()
	owner, id := c.Param("owner_id"), c.Param("habit_id")

	habit, err := h.deps.Store.GetHabit(ctx, owner, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: "habit not found"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	week := h.deps.Evaluator.CurrentWeek()
	posts, err := h.counter.Count(ctx, owner, id, week)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	resp := streakResponse{
		OwnerID:         habit.OwnerID,
		HabitID:         habit.HabitID,
		Cadence:         habit.Cadence,
		Streak:          habit.Streak,
		IsInGracePeriod: habit.IsInGracePeriod,
		LastWeekPosts:   habit.LastWeekPosts,
		CreditedWeek:    streak.CreditedWeekKey(habit.CreditedWeek, h.deps.Evaluator.Location()),
		WeekStart:       utils.FormatDate(week.Start),
		PostsThisWeek:   posts,
	}
	if habit.LastWeekUpdated != nil {
		ts := habit.LastWeekUpdated.Format(time.RFC3339Nano)
		resp.LastWeekUpdated = &ts
	}
	c.JSON(http.StatusOK, resp)
}
