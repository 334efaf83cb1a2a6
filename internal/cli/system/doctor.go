package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/julianstephens/streaks/internal/backup"
	"github.com/julianstephens/streaks/internal/cli"
	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/keyring"
	"github.com/julianstephens/streaks/internal/lockfile"
	"github.com/julianstephens/streaks/internal/streak"
	"github.com/julianstephens/streaks/internal/validation"
)

type DoctorCmd struct{}

type check struct {
	name string
	// needsDB checks are skipped when the store cannot be reached.
	needsDB bool
	// warnOnly checks never fail the command.
	warnOnly bool
	run      func(ctx *cli.Context) error
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	checks := []check{
		{name: "Configuration", run: checkConfig},
		{name: "Clock/timezone", run: checkClockTimezone},
		{name: "Database reachable", run: checkDBReachable},
		{name: "Schema version", needsDB: true, run: checkSchemaVersion},
		{name: "Habit integrity", needsDB: true, run: checkHabitsIntegrity},
		{name: "Grace flags", needsDB: true, warnOnly: true, run: checkGraceFlags},
		{name: "Serve lock", warnOnly: true, run: checkServeLock},
	}
	switch ctx.Config.Database.Driver {
	case constants.DriverPostgres:
		checks = append(checks, check{name: "OS keyring", warnOnly: true, run: checkKeyring})
	case constants.DriverSQLite:
		checks = append(checks, check{name: "Backups present", warnOnly: true, run: checkBackupsPresent})
	}

	hasError := false
	dbReachable := false
	for _, c := range checks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
			if c.name == "Database reachable" {
				dbReachable = true
			}
		case c.warnOnly:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Some checks failed. Please review the errors above.")
		return errors.New("diagnostics failed")
	}
	ctx.Println("All checks passed!")
	return nil
}

func checkConfig(ctx *cli.Context) error {
	return ctx.Config.Validate()
}

func checkClockTimezone(ctx *cli.Context) error {
	now := time.Now()
	if now.Year() < 2020 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	week := ctx.Evaluator.CurrentWeek()
	if week.Start.Weekday() != time.Monday {
		return fmt.Errorf("week window starts on %s, expected Monday", week.Start.Weekday())
	}
	if !week.Contains(now) {
		return fmt.Errorf("current time %s is outside the current week %s", now.Format(time.RFC3339), week.Key())
	}
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return err
	}
	return ctx.Store.Ping(ctx.Ctx)
}

func checkSchemaVersion(ctx *cli.Context) error {
	m, ok := ctx.Store.(migrator)
	if !ok {
		return nil
	}
	st, err := m.SchemaStatus(ctx.Ctx)
	if err != nil {
		return err
	}
	if !st.UpToDate() {
		return fmt.Errorf("schema version %d is behind %d; run 'streaks migrate'", st.Current, st.Latest)
	}
	return nil
}

func checkHabitsIntegrity(ctx *cli.Context) error {
	habits, err := ctx.Store.ScanHabits(ctx.Ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, h := range habits {
		if err := validation.ValidateHabit(h); err != nil {
			errs = append(errs, fmt.Errorf("habit %s: %w", h.Key(), err))
		}
		if h.CreditedWeek != "" {
			_, interval := streak.ParseMarker(h.CreditedWeek)
			if _, err := time.Parse(constants.DateFormat, h.CreditedWeek); err != nil && !interval {
				errs = append(errs, fmt.Errorf("habit %s: credited week %q is neither a week interval nor a date", h.Key(), h.CreditedWeek))
			}
		}
		if h.Streak < 0 {
			errs = append(errs, fmt.Errorf("habit %s: negative streak %d", h.Key(), h.Streak))
		}
	}
	return errors.Join(errs...)
}

// checkGraceFlags reports habits whose grace period has lapsed but which the
// sweep has not visited yet. The next sweep clears them.
func checkGraceFlags(ctx *cli.Context) error {
	habits, err := ctx.Store.ScanHabits(ctx.Ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	stale := 0
	for _, h := range habits {
		if h.IsInGracePeriod && !streak.InGracePeriod(h.CreatedAt, now) {
			stale++
		}
	}
	if stale > 0 {
		return fmt.Errorf("%d habit(s) still flagged in grace period; the next sweep will end it", stale)
	}
	return nil
}

func checkServeLock(ctx *cli.Context) error {
	path := filepath.Join(ctx.Config.DataDir, constants.ServeLockfileName)
	holder, err := lockfile.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("lockfile %s is unreadable: %v", path, err)
	}
	ctx.Printf("   serve is running (pid %d, listening on %s)\n", holder.PID, holder.Listen)
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	mgr := backup.NewManager(ctx.Store.GetConfigPath(), 0)
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups in %s; run 'streaks backup' or sweep with --backup", mgr.Dir())
	}
	if age := time.Since(backups[0].Timestamp); age > 8*24*time.Hour {
		return fmt.Errorf("newest backup is %s old", age.Round(time.Hour))
	}
	return nil
}

func checkKeyring(ctx *cli.Context) error {
	if !keyring.Available() {
		return keyring.ErrUnavailable
	}
	return nil
}
