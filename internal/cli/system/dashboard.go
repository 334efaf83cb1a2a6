package system

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/streaks/internal/cli"
	"github.com/julianstephens/streaks/internal/tui"
)

type DashboardCmd struct {
	Owner string `help:"Only show this owner's habits." short:"o"`
}

func (c *DashboardCmd) Run(ctx *cli.Context) error {
	if !ctx.Interactive {
		return fmt.Errorf("the dashboard needs an interactive terminal")
	}
	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return err
	}
	defer ctx.Store.Close()

	m := tui.NewModel(ctx.Ctx, tui.Deps{
		Store:     ctx.Store,
		Evaluator: ctx.Evaluator,
		Sweeper:   ctx.Sweeper,
		Location:  ctx.Location,
		Owner:     c.Owner,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx.Ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
