package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/julianstephens/streaks/internal/config"
	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/keyring"
	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/observability"
	"github.com/julianstephens/streaks/internal/storage"
	"github.com/julianstephens/streaks/internal/storage/memory"
	"github.com/julianstephens/streaks/internal/storage/sqlstore"
	"github.com/julianstephens/streaks/internal/streak"
	"github.com/julianstephens/streaks/internal/utils"
)

// Context is handed to every command's Run method.
type Context struct {
	// Ctx is cancelled on SIGINT/SIGTERM.
	Ctx context.Context

	Config   config.Config
	Store    storage.Provider
	Location *time.Location

	Registry  *prometheus.Registry
	Metrics   *observability.Metrics
	Evaluator *streak.Evaluator
	Sweeper   *streak.Sweeper
	Ingestor  *streak.Ingestor

	// Out receives command output. Interactive enables prompts and styling.
	Out         io.Writer
	Interactive bool
}

// NewContext wires the streak engine on top of store. Extra options are
// passed to the evaluator after the configured zone and metrics.
func NewContext(cfg config.Config, store storage.Provider, opts ...streak.Option) (*Context, error) {
	loc, err := utils.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	evalOpts := append([]streak.Option{streak.WithLocation(loc), streak.WithMetrics(metrics)}, opts...)
	eval := streak.NewEvaluator(store, store, evalOpts...)

	return &Context{
		Ctx:       context.Background(),
		Config:    cfg,
		Store:     store,
		Location:  loc,
		Registry:  reg,
		Metrics:   metrics,
		Evaluator: eval,
		Sweeper: streak.NewSweeper(store, eval, streak.SweepConfig{
			Workers:       cfg.Sweep.Workers,
			RatePerSecond: cfg.Sweep.RatePerSecond,
		}),
		Ingestor:    streak.NewIngestor(store, streak.NewHook(eval)),
		Out:         os.Stdout,
		Interactive: isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()),
	}, nil
}

// OpenStore builds the provider named by cfg.Database. It does not connect;
// commands call Init or Load themselves.
func OpenStore(cfg config.Config) (storage.Provider, error) {
	switch cfg.Database.Driver {
	case constants.DriverMemory:
		return memory.New(), nil
	case constants.DriverSQLite:
		return sqlstore.New(constants.DriverSQLite, cfg.Database.DSN)
	case constants.DriverPostgres:
		connStr, source, err := keyring.Resolve(cfg.Database.DSN, cfg.Database.Profile)
		if err != nil {
			return nil, err
		}
		// Keyring entries may carry a password; everything else must not.
		if source != keyring.SourceKeyring {
			if err := sqlstore.ValidateConnString(connStr); err != nil {
				if errors.Is(err, sqlstore.ErrEmbeddedCredentials) {
					return nil, fmt.Errorf("%w: use 'streaks keyring set', ~/.pgpass, or PGPASSWORD instead", err)
				}
				return nil, err
			}
		}
		logger.Debug("Resolved PostgreSQL connection", "source", source)
		return sqlstore.New(constants.DriverPostgres, connStr)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// Printf writes formatted output to the command's writer.
func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

// Println writes a line to the command's writer.
func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.Out, args...)
}
