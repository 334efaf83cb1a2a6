package keyring

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/streaks/internal/constants"
)

var (
	// ErrNotFound is returned when no connection string is stored for a profile.
	ErrNotFound = errors.New("connection string not found in keyring")
	// ErrUnavailable is returned when the OS keyring cannot be reached.
	ErrUnavailable = errors.New("OS keyring is not available")
	// ErrNoConnection is returned by Resolve when no source provides a value.
	ErrNoConnection = errors.New("no PostgreSQL connection string configured")
)

// Source names where a connection string came from.
type Source string

const (
	SourceConfig  Source = "config"
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
)

func user(profile string) string {
	if profile == "" {
		return constants.DefaultKeyringUser
	}
	return constants.DefaultKeyringUser + ":" + profile
}

// Get returns the connection string stored for profile ("" is the default).
func Get(profile string) (string, error) {
	connStr, err := keyring.Get(constants.AppName, user(profile))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return connStr, nil
}

// Set stores connStr for profile. Validation of the string itself is the
// caller's job.
func Set(profile, connStr string) error {
	if strings.TrimSpace(connStr) == "" {
		return errors.New("connection string cannot be empty")
	}
	if err := keyring.Set(constants.AppName, user(profile), connStr); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}
	return nil
}

func Delete(profile string) error {
	if err := keyring.Delete(constants.AppName, user(profile)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete connection string from keyring: %w", err)
	}
	return nil
}

// Available reports whether the OS keyring answers at all.
func Available() bool {
	_, err := keyring.Get(constants.AppName, "availability-check")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

// Resolve picks the PostgreSQL connection string: the configured value wins,
// then the STREAKS_DB_CONNECTION variable, then the keyring entry for profile.
func Resolve(configured, profile string) (string, Source, error) {
	if configured != "" {
		return configured, SourceConfig, nil
	}
	if v := os.Getenv(constants.EnvDBConnection); v != "" {
		return v, SourceEnv, nil
	}
	connStr, err := Get(profile)
	switch {
	case err == nil:
		return connStr, SourceKeyring, nil
	case errors.Is(err, ErrNotFound):
		return "", "", fmt.Errorf("%w: set database.dsn, %s, or run 'streaks keyring set'", ErrNoConnection, constants.EnvDBConnection)
	default:
		return "", "", err
	}
}
