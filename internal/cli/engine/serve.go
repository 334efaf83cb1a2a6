package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/streaks/internal/cli"
	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/lockfile"
	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/observability"
	"github.com/julianstephens/streaks/internal/scheduler"
	"github.com/julianstephens/streaks/internal/server"
)

type ServeCmd struct {
	Listen  string `help:"Address to listen on (defaults to server.listen)."`
	NoSweep bool   `help:"Serve HTTP only, without the scheduled sweep."`
	Backup  bool   `help:"Snapshot the SQLite database before each scheduled sweep."`
}

func (cmd *ServeCmd) Run(ctx *cli.Context) error {
	listen := cmd.Listen
	if listen == "" {
		listen = ctx.Config.Server.Listen
	}
	runner, err := sweepRunner(ctx, cmd.Backup)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(ctx.Config.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	lock, err := lockfile.Acquire(filepath.Join(ctx.Config.DataDir, constants.ServeLockfileName), listen)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("Failed to release lockfile", "error", err)
		}
	}()

	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return err
	}
	defer ctx.Store.Close()

	var spanOut io.Writer
	if ctx.Config.Tracing.Stdout {
		spanOut = os.Stdout
	}
	shutdownTracing, err := observability.InitTracing(spanOut)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", "error", err)
		}
	}()

	var status server.SweepStatus
	if !cmd.NoSweep {
		sched := scheduler.New(runner, ctx.Location)
		if err := sched.Schedule(ctx.Config.Sweep.Schedule); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		status = sched
	}

	if !ctx.Config.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.Dependencies{
		Store:     ctx.Store,
		Evaluator: ctx.Evaluator,
		Ingestor:  ctx.Ingestor,
		Sweeper:   ctx.Sweeper,
		Metrics:   ctx.Metrics,
		Gatherer:  ctx.Registry,
		Schedule:  status,
	})

	logger.Info("Serving", "listen", listen, "store", ctx.Store.GetConfigPath(), "timezone", ctx.Location.String())
	return server.New(listen, router).Run(ctx.Ctx)
}
