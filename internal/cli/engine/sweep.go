package engine

import (
	"github.com/julianstephens/streaks/internal/cli"
)

type SweepCmd struct {
	Backup bool `help:"Snapshot the SQLite database before sweeping."`
}

func (cmd *SweepCmd) Run(ctx *cli.Context) error {
	runner, err := sweepRunner(ctx, cmd.Backup)
	if err != nil {
		return err
	}
	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return err
	}
	defer ctx.Store.Close()

	sum, err := runner.RunSweep(ctx.Ctx)
	// a cancelled sweep still has a partial summary worth showing
	if sum.HabitsProcessed > 0 || err == nil {
		ctx.Println(cli.RenderSummary(sum))
	}
	return err
}
