package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/streaks/internal/cli"
	"github.com/julianstephens/streaks/internal/migration"
)

// migrator is implemented by the SQL store.
type migrator interface {
	Migrate(ctx context.Context, logFn func(string)) (int, error)
	SchemaStatus(ctx context.Context) (migration.Status, error)
}

type MigrateCmd struct {
	Status bool `help:"Only report the schema version and pending migrations."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Store.(migrator)
	if !ok {
		return fmt.Errorf("migrate command only supports SQL storage (driver %q)", ctx.Config.Database.Driver)
	}

	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	defer ctx.Store.Close()

	if c.Status {
		st, err := m.SchemaStatus(ctx.Ctx)
		if err != nil {
			return err
		}
		ctx.Printf("Schema version: %d (latest %d)\n", st.Current, st.Latest)
		for _, p := range st.Pending {
			ctx.Printf("  pending: %03d_%s\n", p.Version, p.Name)
		}
		return nil
	}

	count, err := m.Migrate(ctx.Ctx, func(msg string) { ctx.Println(msg) })
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		ctx.Println("No migrations to apply. Database is up to date.")
	} else {
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
