package engine

import (
	"fmt"

	"github.com/julianstephens/streaks/internal/cli"
	"github.com/julianstephens/streaks/internal/streak"
)

type EvaluateCmd struct {
	Owner   string `arg:"" help:"Owner id."`
	Habit   string `arg:"" help:"Habit id."`
	Trigger string `help:"Evaluation path: sweep may reset, ingest only credits." enum:"sweep,ingest" default:"sweep"`
}

func (cmd *EvaluateCmd) Run(ctx *cli.Context) error {
	trigger, ok := streak.ParseTrigger(cmd.Trigger)
	if !ok {
		return fmt.Errorf("unknown trigger %q", cmd.Trigger)
	}

	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return err
	}
	defer ctx.Store.Close()

	res, err := ctx.Evaluator.EvaluateHabit(ctx.Ctx, cmd.Owner, cmd.Habit, trigger)
	if err != nil {
		return err
	}

	ctx.Printf("Outcome: %s\n", cli.RenderOutcome(res.Outcome))
	if res.Outcome == streak.OutcomeSkipped {
		ctx.Printf("Habit %s/%s was not found.\n", cmd.Owner, cmd.Habit)
		return nil
	}
	ctx.Printf("Week of %s: %d/%d proofs\n", res.Week.Key(), res.Posts, res.Habit.Cadence)
	ctx.Println(cli.RenderHabit(res.Habit, ctx.Location))
	return nil
}
