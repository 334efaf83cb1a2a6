package streak

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/observability"
	"github.com/julianstephens/streaks/internal/storage"
)

// SweepConfig bounds the sweep's load on the stores.
type SweepConfig struct {
	// Workers is the number of habits evaluated concurrently.
	Workers int
	// RatePerSecond caps habit evaluations per second. Zero means unlimited.
	RatePerSecond float64
}

// Summary reports one sweep. HabitsProcessed counts every habit that was
// dispatched, including the ones that failed.
type Summary struct {
	StartedAt       time.Time
	Duration        time.Duration
	HabitsProcessed int
	Failures        int
	Skipped         int
	Outcomes        map[Outcome]int
}

// Sweeper evaluates every habit once per run.
type Sweeper struct {
	habits  storage.HabitStore
	eval    *Evaluator
	workers int
	limiter *rate.Limiter
	metrics *observability.Metrics
	tracer  trace.Tracer
	log     *log.Logger
}

func NewSweeper(habits storage.HabitStore, eval *Evaluator, cfg SweepConfig) *Sweeper {
	workers := cfg.Workers
	if workers < 1 {
		workers = constants.DefaultSweepWorkers
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &Sweeper{
		habits:  habits,
		eval:    eval,
		workers: workers,
		limiter: limiter,
		metrics: eval.metrics,
		tracer:  observability.Tracer(),
		log:     logger.With("component", "sweep"),
	}
}

// RunSweep takes a full snapshot of the habits and evaluates each one with
// TriggerSweep. Per-habit failures are counted in the summary and never fail
// the run; only a failed scan does. If ctx is cancelled no further habits are
// dispatched and the partial summary is returned with ctx.Err().
func (s *Sweeper) RunSweep(ctx context.Context) (Summary, error) {
	sum := Summary{StartedAt: s.eval.clock.Now(), Outcomes: make(map[Outcome]int)}
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "streak.sweep")
	defer span.End()

	habits, err := s.habits.ScanHabits(ctx)
	if err != nil {
		span.RecordError(err)
		return sum, fmt.Errorf("failed to scan habits: %w", err)
	}
	s.log.Info("Sweep started", "habits", len(habits), "workers", s.workers, "week", s.eval.CurrentWeek().Key())

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.workers)

	for _, h := range habits {
		if ctx.Err() != nil {
			break
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				break
			}
		}
		h := h
		g.Go(func() error {
			res, err := s.eval.Apply(ctx, h, TriggerSweep)
			s.record(&mu, &sum, h, res, err)
			return nil
		})
	}
	_ = g.Wait()

	sum.Duration = time.Since(start)
	s.metrics.ObserveSweep(sum.StartedAt, sum.Duration, sum.HabitsProcessed, sum.Failures)
	span.SetAttributes(
		attribute.Int("sweep.habits_processed", sum.HabitsProcessed),
		attribute.Int("sweep.failures", sum.Failures),
	)

	if err := ctx.Err(); err != nil {
		s.log.Warn("Sweep interrupted", "processed", sum.HabitsProcessed, "total", len(habits), "error", err)
		return sum, err
	}
	s.log.Info("Sweep finished", "processed", sum.HabitsProcessed, "failures", sum.Failures,
		"skipped", sum.Skipped, "duration", sum.Duration)
	return sum, nil
}

func (s *Sweeper) record(mu *sync.Mutex, sum *Summary, h models.Habit, res Result, err error) {
	mu.Lock()
	defer mu.Unlock()

	sum.HabitsProcessed++
	if err != nil {
		sum.Failures++
		s.log.Error("Habit evaluation failed", "habit", h.Key(), "error", err)
		return
	}
	sum.Outcomes[res.Outcome]++
	if res.Outcome == OutcomeSkipped {
		sum.Skipped++
	}
	s.log.Info("Swept habit", "habit", h.Key(), "posts", res.Posts, "cadence", h.Cadence,
		"week", res.Week.Key(), "action", res.Outcome, "streak", res.Habit.Streak)
}
