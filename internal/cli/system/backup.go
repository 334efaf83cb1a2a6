package system

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"

	"github.com/julianstephens/streaks/internal/backup"
	"github.com/julianstephens/streaks/internal/cli"
	"github.com/julianstephens/streaks/internal/constants"
)

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Snapshot the SQLite database." default:"1"`
	List    BackupListCmd    `cmd:"" help:"List available snapshots."`
	Restore BackupRestoreCmd `cmd:"" help:"Restore the database from a snapshot."`
}

func backupManager(ctx *cli.Context) (*backup.Manager, error) {
	if ctx.Config.Database.Driver != constants.DriverSQLite {
		return nil, fmt.Errorf("backups are only supported for SQLite storage (driver %q)", ctx.Config.Database.Driver)
	}
	return backup.NewManager(ctx.Store.GetConfigPath(), 0), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	info, err := mgr.Create(ctx.Ctx)
	if err != nil {
		return err
	}
	ctx.Printf("Backup created: %s (%s)\n", info.Path, humanize.Bytes(uint64(info.Size)))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		ctx.Printf("No backups found in %s\n", mgr.Dir())
		return nil
	}
	for _, b := range backups {
		ctx.Printf("%s  %-10s  %s\n", b.Timestamp.In(ctx.Location).Format("2006-01-02 15:04:05 MST"),
			humanize.Bytes(uint64(b.Size)), b.Path)
	}
	return nil
}

type BackupRestoreCmd struct {
	Path string `arg:"" optional:"" help:"Snapshot to restore (default: the newest)."`
	Yes  bool   `help:"Skip the confirmation prompt." short:"y"`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}

	path := c.Path
	if path == "" {
		backups, err := mgr.List()
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			return fmt.Errorf("no backups found in %s", mgr.Dir())
		}
		path = backups[0].Path
	}

	if !c.Yes && ctx.Interactive {
		confirmed := false
		err := huh.NewConfirm().
			Title("Restore " + path + "?").
			Description("The current database is snapshotted first.").
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

	// the file is replaced underneath the store
	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	undo, err := mgr.Restore(ctx.Ctx, path)
	if err != nil {
		return err
	}
	if undo.Path != "" {
		ctx.Printf("Snapshot of the previous database: %s\n", undo.Path)
	}
	ctx.Printf("Restored database from: %s\n", path)
	return nil
}
