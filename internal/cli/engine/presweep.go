package engine

import (
	"context"
	"fmt"

	"github.com/julianstephens/streaks/internal/backup"
	"github.com/julianstephens/streaks/internal/cli"
	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/scheduler"
	"github.com/julianstephens/streaks/internal/streak"
)

// snapshotFirst takes a SQLite snapshot before each sweep. A failed
// snapshot cancels that sweep; habits are left untouched until the next run.
type snapshotFirst struct {
	mgr  *backup.Manager
	next scheduler.SweepRunner
}

func (s snapshotFirst) RunSweep(ctx context.Context) (streak.Summary, error) {
	info, err := s.mgr.Create(ctx)
	if err != nil {
		return streak.Summary{}, fmt.Errorf("pre-sweep backup failed: %w", err)
	}
	logger.Info("Pre-sweep backup", "path", info.Path)
	return s.next.RunSweep(ctx)
}

// sweepRunner returns the sweeper, wrapped in a pre-sweep snapshot when
// requested.
func sweepRunner(ctx *cli.Context, snapshot bool) (scheduler.SweepRunner, error) {
	if !snapshot {
		return ctx.Sweeper, nil
	}
	if ctx.Config.Database.Driver != constants.DriverSQLite {
		return nil, fmt.Errorf("--backup requires SQLite storage (driver %q)", ctx.Config.Database.Driver)
	}
	return snapshotFirst{mgr: backup.NewManager(ctx.Store.GetConfigPath(), 0), next: ctx.Sweeper}, nil
}
