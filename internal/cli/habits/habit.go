package habits

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/julianstephens/streaks/internal/cli"
	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/streak"
	"github.com/julianstephens/streaks/internal/validation"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Add a new habit."`
	List   HabitListCmd   `cmd:"" help:"List habits."`
	Show   HabitShowCmd   `cmd:"" help:"Show a habit's streak state."`
	Delete HabitDeleteCmd `cmd:"" help:"Delete a habit. Its proofs are kept."`
}

type HabitAddCmd struct {
	Owner   string `help:"Owner id." short:"o"`
	Name    string `help:"Habit name." short:"n"`
	Cadence int    `help:"Proofs required per week (1-7)." short:"c"`
	Color   string `help:"Hex colour, e.g. #ff8800."`
	ID      string `help:"Habit id (defaults to a random uuid)."`
}

type habitForm struct {
	Owner   string
	Name    string
	Cadence string
	Color   string
}

func (c *HabitAddCmd) missing() bool {
	return c.Owner == "" || c.Name == "" || c.Cadence == 0
}

func (c *HabitAddCmd) prompt() error {
	fm := habitForm{Owner: c.Owner, Name: c.Name, Color: c.Color}
	if c.Cadence != 0 {
		fm.Cadence = strconv.Itoa(c.Cadence)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Owner").
				Value(&fm.Owner).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("owner is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Habit Name").
				Value(&fm.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Cadence (proofs per week)").
				Description("Between 1 and 7").
				Value(&fm.Cadence).
				Validate(func(s string) error {
					i, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil {
						return err
					}
					return validation.ValidateCadence(i)
				}),
			huh.NewInput().
				Title("Color").
				Description("Optional, e.g. #ff8800").
				Value(&fm.Color),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cadence, err := strconv.Atoi(strings.TrimSpace(fm.Cadence))
	if err != nil {
		return err
	}
	c.Owner = strings.TrimSpace(fm.Owner)
	c.Name = strings.TrimSpace(fm.Name)
	c.Cadence = cadence
	c.Color = strings.TrimSpace(fm.Color)
	return nil
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	if c.missing() {
		if !ctx.Interactive {
			return fmt.Errorf("%w: --owner, --name and --cadence are required", validation.ErrInvalidInput)
		}
		if err := c.prompt(); err != nil {
			return err
		}
	}

	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}

	habit := models.Habit{
		OwnerID:         c.Owner,
		HabitID:         id,
		Name:            c.Name,
		Color:           c.Color,
		Cadence:         c.Cadence,
		CreatedAt:       time.Now().UTC(),
		IsInGracePeriod: true,
	}
	if err := validation.ValidateHabit(habit); err != nil {
		return err
	}

	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return err
	}
	defer ctx.Store.Close()

	if err := ctx.Store.PutHabit(ctx.Ctx, habit); err != nil {
		return fmt.Errorf("failed to add habit: %w", err)
	}

	ctx.Printf("Added habit: %s (%s)\n", habit.Name, habit.Key())
	ctx.Printf("Cadence %d/week, grace period until %s\n", habit.Cadence,
		habit.CreatedAt.Add(constants.GracePeriod).In(ctx.Location).Format("2006-01-02 15:04 MST"))
	return nil
}

type HabitListCmd struct {
	Owner string `help:"Owner id. Lists every habit when empty." short:"o"`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return err
	}
	defer ctx.Store.Close()

	var (
		habits []models.Habit
		err    error
	)
	if c.Owner != "" {
		habits, err = ctx.Store.ListHabits(ctx.Ctx, c.Owner)
	} else {
		habits, err = ctx.Store.ScanHabits(ctx.Ctx)
	}
	if err != nil {
		return err
	}

	if len(habits) == 0 {
		ctx.Println("No habits found.")
		return nil
	}

	for _, h := range habits {
		status := ""
		if h.IsInGracePeriod {
			status = " [GRACE]"
		}
		ctx.Printf("%-36s  %-24s  %d/week  streak %d%s\n", h.Key(), h.Name, h.Cadence, h.Streak, status)
	}
	return nil
}

type HabitShowCmd struct {
	Owner string `arg:"" help:"Owner id."`
	Habit string `arg:"" help:"Habit id."`
}

func (c *HabitShowCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return err
	}
	defer ctx.Store.Close()

	h, err := ctx.Store.GetHabit(ctx.Ctx, c.Owner, c.Habit)
	if err != nil {
		return fmt.Errorf("habit %s/%s: %w", c.Owner, c.Habit, err)
	}
	week := ctx.Evaluator.CurrentWeek()
	posts, err := streak.NewProofCounter(ctx.Store).Count(ctx.Ctx, c.Owner, c.Habit, week)
	if err != nil {
		return err
	}

	ctx.Println(cli.RenderHabit(h, ctx.Location))
	ctx.Printf("This week (%s): %d/%d proofs\n", week.Key(), posts, h.Cadence)
	return nil
}

type HabitDeleteCmd struct {
	Owner string `arg:"" help:"Owner id."`
	Habit string `arg:"" help:"Habit id."`
	Yes   bool   `help:"Skip the confirmation prompt." short:"y"`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	if !c.Yes && ctx.Interactive {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete habit %s/%s?", c.Owner, c.Habit)).
			Description("Proofs are kept but will no longer be counted.").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			ctx.Println("Cancelled.")
			return nil
		}
	}

	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return err
	}
	defer ctx.Store.Close()

	if err := ctx.Store.DeleteHabit(ctx.Ctx, c.Owner, c.Habit); err != nil {
		return fmt.Errorf("habit %s/%s: %w", c.Owner, c.Habit, err)
	}
	ctx.Printf("Deleted habit: %s/%s\n", c.Owner, c.Habit)
	return nil
}
