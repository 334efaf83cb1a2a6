package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/utils"
)

type Config struct {
	DataDir  string         `yaml:"data_dir"`
	Timezone string         `yaml:"timezone"`
	Database DatabaseConfig `yaml:"database"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

type DatabaseConfig struct {
	// Driver is sqlite, postgres or memory.
	Driver string `yaml:"driver"`
	// DSN is the SQLite file path or the PostgreSQL connection string. An
	// empty PostgreSQL DSN is resolved from the environment or the keyring.
	DSN string `yaml:"dsn"`
	// Profile selects the keyring entry for PostgreSQL.
	Profile string `yaml:"profile"`
}

type SweepConfig struct {
	Schedule      string  `yaml:"schedule"`
	Workers       int     `yaml:"workers"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Dir   string `yaml:"dir"`
	Debug bool   `yaml:"debug"`
}

type TracingConfig struct {
	Stdout bool `yaml:"stdout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:  constants.DefaultDataDir,
		Timezone: constants.DefaultTimezone,
		Database: DatabaseConfig{Driver: constants.DriverSQLite},
		Sweep: SweepConfig{
			Schedule: constants.DefaultSweepSchedule,
			Workers:  constants.DefaultSweepWorkers,
		},
		Server: ServerConfig{Listen: constants.DefaultListenAddr},
	}
}

// Load builds the configuration from defaults, the YAML file at path, the
// dotenv file at envFile and STREAKS_* environment variables, in that order.
// Missing files are skipped; a path that exists but does not parse is an
// error. Variables already set in the environment win over the dotenv file.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(ExpandPath(path))
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(ExpandPath(envFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.finish()
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(constants.EnvPrefix + key); ok {
			*dst = v
		}
	}
	str("DATA_DIR", &cfg.DataDir)
	str("TIMEZONE", &cfg.Timezone)
	str("DATABASE_DRIVER", &cfg.Database.Driver)
	str("DATABASE_DSN", &cfg.Database.DSN)
	str("DATABASE_PROFILE", &cfg.Database.Profile)
	str("SWEEP_SCHEDULE", &cfg.Sweep.Schedule)
	str("SERVER_LISTEN", &cfg.Server.Listen)
	str("LOG_DIR", &cfg.Log.Dir)

	if v, ok := os.LookupEnv(constants.EnvPrefix + "SWEEP_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sSWEEP_WORKERS %q: %w", constants.EnvPrefix, v, err)
		}
		cfg.Sweep.Workers = n
	}
	if v, ok := os.LookupEnv(constants.EnvPrefix + "SWEEP_RATE_PER_SECOND"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sSWEEP_RATE_PER_SECOND %q: %w", constants.EnvPrefix, v, err)
		}
		cfg.Sweep.RatePerSecond = f
	}
	for key, dst := range map[string]*bool{"LOG_DEBUG": &cfg.Log.Debug, "TRACING_STDOUT": &cfg.Tracing.Stdout} {
		if v, ok := os.LookupEnv(constants.EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s %q: %w", constants.EnvPrefix, key, v, err)
			}
			*dst = b
		}
	}
	return nil
}

// Overrides are command-line values applied on top of every other source.
// Empty fields leave the loaded value alone.
type Overrides struct {
	Driver   string
	DSN      string
	Timezone string
	Debug    bool
}

// Apply layers o over c and recomputes derived values.
func (c *Config) Apply(o Overrides) {
	if o.Driver != "" && o.Driver != c.Database.Driver {
		c.Database.Driver = o.Driver
		// a DSN loaded for the other driver does not carry over
		c.Database.DSN = ""
	}
	if o.DSN != "" {
		c.Database.DSN = o.DSN
	}
	if o.Timezone != "" {
		c.Timezone = o.Timezone
	}
	if o.Debug {
		c.Log.Debug = true
	}
	c.finish()
}

// finish expands paths and fills values derived from DataDir.
func (c *Config) finish() {
	c.DataDir = ExpandPath(c.DataDir)
	if c.Log.Dir == "" {
		c.Log.Dir = filepath.Join(c.DataDir, "logs")
	}
	c.Log.Dir = ExpandPath(c.Log.Dir)
	if c.Database.Driver == constants.DriverSQLite {
		if c.Database.DSN == "" {
			c.Database.DSN = filepath.Join(c.DataDir, constants.DefaultDBFileName)
		}
		c.Database.DSN = ExpandPath(c.Database.DSN)
	}
}

// Validate checks values that cannot be caught by parsing.
func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case constants.DriverSQLite, constants.DriverPostgres, constants.DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database.driver must be one of sqlite, postgres, memory (got %q)", c.Database.Driver))
	}
	if !utils.ValidateTimezone(c.Timezone) {
		errs = append(errs, fmt.Errorf("timezone %q is not a valid IANA zone", c.Timezone))
	}
	if strings.TrimSpace(c.Sweep.Schedule) == "" {
		errs = append(errs, errors.New("sweep.schedule must not be empty"))
	}
	if c.Sweep.Workers < 1 {
		errs = append(errs, fmt.Errorf("sweep.workers must be at least 1 (got %d)", c.Sweep.Workers))
	}
	if c.Sweep.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("sweep.rate_per_second must not be negative (got %v)", c.Sweep.RatePerSecond))
	}
	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen must not be empty"))
	}
	return errors.Join(errs...)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
