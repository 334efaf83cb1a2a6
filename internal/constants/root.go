package constants

import "time"

const (
	AppName            = "streaks"
	Version            = "v0.3.0"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/streaks/streaks.yaml"
	DefaultDataDir     = "~/.config/streaks"
	DefaultDBFileName  = "streaks.db"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimestampFormat is the persisted timestamp layout. Values are always UTC and
	// fixed width, so lexicographic order matches time order.
	TimestampFormat = "2006-01-02T15:04:05.000000000Z"

	// Cadence bounds (proofs per calendar week)
	MinCadence = 1
	MaxCadence = 7

	// GracePeriod is the fixed onboarding window after habit creation during which
	// streak resets are suspended.
	GracePeriod = 7 * 24 * time.Hour

	// Sweep defaults
	DefaultSweepSchedule = "55 23 * * 0"
	DefaultSweepWorkers  = 4
	DefaultTimezone      = "UTC"

	// Server defaults
	DefaultListenAddr      = ":8080"
	DefaultShutdownTimeout = 5 * time.Second

	// Lockfile
	ServeLockfileName = "streaks-serve.lock"

	// Database drivers
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	// Environment variables
	EnvDBConnection = "STREAKS_DB_CONNECTION"
	EnvPrefix       = "STREAKS_"
)
