package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	pq "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/migration"
	"github.com/julianstephens/streaks/internal/storage"
	"github.com/julianstephens/streaks/migrations"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver(constants.DriverSQLite, sqlx.QUESTION)
}

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
	ErrNotInitialized          = errors.New("storage not initialized, run 'streaks init' first")
)

// Store is the SQL-backed storage.Provider. One implementation serves both
// SQLite and PostgreSQL; queries are written with '?' and rebound per driver.
type Store struct {
	driver string
	dsn    string
	db     *sqlx.DB
}

var _ storage.Provider = (*Store)(nil)

// New creates a store for driver using dsn, which is a file path for SQLite
// and a connection string for PostgreSQL.
func New(driver, dsn string) (*Store, error) {
	switch driver {
	case constants.DriverSQLite:
		return &Store{driver: driver, dsn: dsn}, nil
	case constants.DriverPostgres:
		return &Store{driver: driver, dsn: withSearchPath(dsn)}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Driver returns the SQL driver name.
func (s *Store) Driver() string { return s.driver }

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *sqlx.DB { return s.db }

// Init creates the database if needed and applies every pending migration.
func (s *Store) Init(ctx context.Context) error {
	if s.driver == constants.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(s.dsn), 0700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	if err := s.open(ctx); err != nil {
		return err
	}
	if s.driver == constants.DriverPostgres {
		if _, err := s.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+constants.AppName); err != nil {
			return storage.Unavailable("create schema", err)
		}
	}
	if _, err := s.Migrate(ctx, func(msg string) { logger.Info(msg) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Load opens an existing database and checks that its schema is not newer
// than this binary.
func (s *Store) Load(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if s.driver == constants.DriverSQLite {
		if _, err := os.Stat(s.dsn); os.IsNotExist(err) {
			return ErrNotInitialized
		}
	}
	if err := s.open(ctx); err != nil {
		return err
	}

	st, err := s.runner().Status(ctx)
	if err != nil {
		return err
	}
	if !st.UpToDate() {
		logger.Warn("Database schema is behind", "current", st.Current, "latest", st.Latest, "hint", "run 'streaks migrate'")
	}
	return nil
}

// Migrate applies pending migrations. The store must be open.
func (s *Store) Migrate(ctx context.Context, logFn func(string)) (int, error) {
	if s.db == nil {
		if err := s.open(ctx); err != nil {
			return 0, err
		}
	}
	return s.runner().Apply(ctx, logFn)
}

// SchemaStatus reports the applied and available schema versions.
func (s *Store) SchemaStatus(ctx context.Context) (migration.Status, error) {
	if s.db == nil {
		return migration.Status{}, ErrNotInitialized
	}
	return s.runner().Status(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return storage.Unavailable("ping", ErrNotInitialized)
	}
	if err := s.db.PingContext(ctx); err != nil {
		return storage.Unavailable("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) GetConfigPath() string {
	if s.driver == constants.DriverPostgres {
		// never echo the connection string
		return "postgresql"
	}
	return s.dsn
}

func (s *Store) open(ctx context.Context) error {
	dsn := s.dsn
	if s.driver == constants.DriverSQLite {
		dsn = sqliteDSN(s.dsn)
	}

	db, err := sqlx.Open(s.driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if s.driver == constants.DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if s.driver == constants.DriverPostgres && strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasSSLMode(s.dsn) {
			return storage.Unavailable("connect", fmt.Errorf("%w (hint: try adding ?sslmode=disable to your connection string)", err))
		}
		return storage.Unavailable("connect", err)
	}
	s.db = db
	return nil
}

func (s *Store) runner() *migration.Runner {
	sub, err := migrations.For(s.driver)
	if err != nil {
		// drivers are checked in New, so the sub-tree always exists
		panic(err)
	}
	return migration.NewRunner(s.db.DB, sub, s.driver)
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// withSearchPath pins the search_path to the application schema unless the
// connection string already sets one.
func withSearchPath(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil {
			logger.Warn("Failed to parse Postgres connection string", "error", err)
			return connStr
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", constants.AppName)
			u.RawQuery = q.Encode()
		}
		return u.String()
	}
	if dsnHasKey(connStr, "search_path") {
		return connStr
	}
	return strings.TrimSpace(connStr) + " search_path=" + constants.AppName
}

func dsnHasKey(connStr, key string) bool {
	for _, part := range strings.Fields(connStr) {
		k, _, ok := strings.Cut(part, "=")
		if ok && strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

func hasSSLMode(connStr string) bool {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" {
		for key := range u.Query() {
			if strings.EqualFold(key, "sslmode") {
				return true
			}
		}
	}
	return dsnHasKey(connStr, "sslmode")
}

// ValidateConnString checks that connStr parses as a PostgreSQL URI or DSN and
// carries no password. Passwords belong in the keyring or ~/.pgpass.
func ValidateConnString(connStr string) error {
	if strings.TrimSpace(connStr) == "" {
		return fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}
	if _, err := pq.NewConnector(connStr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
		}
		if _, isSet := u.User.Password(); isSet {
			return ErrEmbeddedCredentials
		}
		return nil
	}
	if dsnHasKey(connStr, "password") {
		return ErrEmbeddedCredentials
	}
	return nil
}
