package main

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/streaks/internal/cli"
	"github.com/julianstephens/streaks/internal/cli/engine"
	"github.com/julianstephens/streaks/internal/cli/habits"
	"github.com/julianstephens/streaks/internal/cli/proofs"
	"github.com/julianstephens/streaks/internal/cli/system"
	"github.com/julianstephens/streaks/internal/config"
	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/errors"
	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/storage"
)

type CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Path to the YAML config file." type:"string" default:"${config_path}"`
	EnvFile  string `help:"Dotenv file loaded before STREAKS_* variables." name:"env-file" default:".env"`
	Debug    bool   `help:"Enable debug logging to stderr."`
	Driver   string `help:"Override database.driver (sqlite, postgres or memory)."`
	DSN      string `help:"Override database.dsn. PostgreSQL connection strings must not embed a password." name:"dsn"`
	Timezone string `help:"Override the IANA zone weeks are computed in."`

	Init      system.InitCmd      `cmd:"" help:"Initialize streaks storage."`
	Migrate   system.MigrateCmd   `cmd:"" help:"Run database migrations."`
	Doctor    system.DoctorCmd    `cmd:"" help:"Run health checks and diagnostics."`
	Keyring   system.KeyringCmd   `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Backup    system.BackupCmd    `cmd:"" help:"Manage SQLite database snapshots."`
	Dashboard system.DashboardCmd `cmd:"" help:"Open the interactive habit dashboard."`
	Serve     engine.ServeCmd     `cmd:"" help:"Serve the HTTP API and run the scheduled sweep."`
	Sweep     engine.SweepCmd     `cmd:"" help:"Run one sweep over every habit now."`
	Evaluate  engine.EvaluateCmd  `cmd:"" help:"Evaluate a single habit."`
	Habit     habits.HabitCmd     `cmd:"" help:"Manage habits."`
	Proof     proofs.ProofCmd     `cmd:"" help:"Record and manage proofs."`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		errors.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	var flags CLI
	parser, err := kong.New(&flags,
		kong.Name(constants.AppName),
		kong.Description("Weekly habit streak engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": constants.DefaultConfigPath,
		},
		kong.Writers(stdout, os.Stderr),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		var perr *kong.ParseError
		if stderrors.As(err, &perr) {
			_ = perr.Context.PrintUsage(true)
		}
		return err
	}

	cfg, err := config.Load(flags.Config, flags.EnvFile)
	if err != nil {
		return err
	}
	cfg.Apply(config.Overrides{
		Driver:   flags.Driver,
		DSN:      flags.DSN,
		Timezone: flags.Timezone,
		Debug:    flags.Debug,
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	command := kctx.Command()
	if err := logger.Init(logger.Config{
		Debug:  cfg.Log.Debug,
		Dir:    cfg.Log.Dir,
		Stderr: strings.HasPrefix(command, "serve"),
	}); err != nil {
		return err
	}
	logger.Debug("Starting", "command", command, "driver", cfg.Database.Driver)

	// keyring commands must work before a connection string exists
	var store storage.Provider
	if !strings.HasPrefix(command, "keyring") {
		store, err = cli.OpenStore(cfg)
		if err != nil {
			return err
		}
	}

	appCtx, err := cli.NewContext(cfg, store)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	appCtx.Ctx = ctx
	appCtx.Out = stdout

	return kctx.Run(appCtx)
}
