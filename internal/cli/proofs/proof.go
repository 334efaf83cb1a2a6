package proofs

import (
	"fmt"
	"time"

	"github.com/julianstephens/streaks/internal/cli"
	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/utils"
	"github.com/julianstephens/streaks/internal/validation"
)

type ProofCmd struct {
	Add    ProofAddCmd    `cmd:"" help:"Record a proof and evaluate the habit."`
	List   ProofListCmd   `cmd:"" help:"List proofs."`
	Delete ProofDeleteCmd `cmd:"" help:"Delete a proof."`
}

type ProofAddCmd struct {
	Owner   string `arg:"" help:"Owner id."`
	Habit   string `arg:"" help:"Habit id."`
	Caption string `help:"Optional caption."`
	At      string `help:"When the habit was done: RFC3339 or YYYY-MM-DD (default: now)."`
}

// occurredAt parses --at. A bare date is noon in the configured zone so it
// cannot slide into a neighbouring week.
func (c *ProofAddCmd) occurredAt(loc *time.Location) (time.Time, error) {
	if c.At == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, c.At); err == nil {
		return t, nil
	}
	day, err := utils.ParseDateInLocation(c.At, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid --at %q (expected RFC3339 or %s)", validation.ErrInvalidInput, c.At, constants.DateFormat)
	}
	return day.Add(12 * time.Hour), nil
}

func (c *ProofAddCmd) Run(ctx *cli.Context) error {
	at, err := c.occurredAt(ctx.Location)
	if err != nil {
		return err
	}

	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return err
	}
	defer ctx.Store.Close()

	receipt, err := ctx.Ingestor.RecordProof(ctx.Ctx, models.ProofInput{
		OwnerID:    c.Owner,
		HabitID:    c.Habit,
		Caption:    c.Caption,
		OccurredAt: at,
	})
	if err != nil {
		return err
	}

	ctx.Printf("Recorded proof: %s\n", receipt.Proof.ProofID)
	ctx.Printf("Outcome: %s\n", cli.RenderOutcome(receipt.Outcome))
	return nil
}

type ProofListCmd struct {
	Owner string `arg:"" help:"Owner id."`
	Habit string `help:"Only list proofs for this habit."`
}

func (c *ProofListCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return err
	}
	defer ctx.Store.Close()

	proofs, err := ctx.Store.ListProofs(ctx.Ctx, c.Owner, c.Habit)
	if err != nil {
		return err
	}
	if len(proofs) == 0 {
		ctx.Println("No proofs found.")
		return nil
	}
	for _, p := range proofs {
		line := fmt.Sprintf("%s  %-24s  %s", p.ProofID, p.HabitID, p.OccurredAt.In(ctx.Location).Format("2006-01-02 15:04 MST"))
		if p.Caption != "" {
			line += "  " + p.Caption
		}
		ctx.Println(line)
	}
	return nil
}

type ProofDeleteCmd struct {
	Owner string `arg:"" help:"Owner id."`
	Proof string `arg:"" help:"Proof id."`
}

func (c *ProofDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return err
	}
	defer ctx.Store.Close()

	if err := ctx.Store.DeleteProof(ctx.Ctx, c.Owner, c.Proof); err != nil {
		return fmt.Errorf("proof %s: %w", c.Proof, err)
	}
	ctx.Printf("Deleted proof: %s\n", c.Proof)
	// streaks already credited are not rewound
	return nil
}
