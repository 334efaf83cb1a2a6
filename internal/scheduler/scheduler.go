package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron"

	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/streak"
)

const sweepTag = "sweep"

// SweepRunner is the work the scheduler triggers.
type SweepRunner interface {
	RunSweep(ctx context.Context) (streak.Summary, error)
}

// Scheduler fires the sweep on a cron schedule. Runs never overlap: a tick
// that arrives while a sweep is still going is dropped.
type Scheduler struct {
	cron   *gocron.Scheduler
	runner SweepRunner
	log    *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	last *streak.Summary
	job  *gocron.Job
}

// New creates a scheduler whose cron expressions are read in loc.
func New(runner SweepRunner, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   gocron.NewScheduler(loc),
		runner: runner,
		log:    logger.With("component", "scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule registers the sweep with a five-field cron expression.
func (s *Scheduler) Schedule(expr string) error {
	job, err := s.cron.Cron(expr).Tag(sweepTag).SingletonMode().Do(s.run)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", expr, err)
	}
	s.mu.Lock()
	s.job = job
	s.mu.Unlock()
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.StartAsync()
	s.log.Info("Sweep scheduled", "next_run", s.NextRun())
}

// Stop cancels any sweep in flight and waits for the scheduler to halt.
func (s *Scheduler) Stop() {
	s.cancel()
	s.cron.Stop()
}

// NextRun returns the next scheduled sweep, or the zero time if none is
// scheduled.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return time.Time{}
	}
	return s.job.NextRun()
}

// LastSummary returns the summary of the most recent completed sweep.
func (s *Scheduler) LastSummary() (streak.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return streak.Summary{}, false
	}
	return *s.last, true
}

func (s *Scheduler) run() {
	sum, err := s.runner.RunSweep(s.ctx)
	if err != nil {
		s.log.Error("Scheduled sweep failed", "error", err, "processed", sum.HabitsProcessed)
	}
	s.mu.Lock()
	s.last = &sum
	s.mu.Unlock()
}
