// Package lockfile keeps a single `streaks serve` running per data directory.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/streaks/internal/constants"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// ErrLocked is returned when another live instance holds the lock.
var ErrLocked = errors.New("another instance is already running")

// Holder describes the process recorded in a lockfile.
type Holder struct {
	PID    int
	Listen string
}

// Lock is an acquired lockfile.
type Lock struct {
	path string
	pid  int
}

// Acquire writes "pid|listen" to path. A lockfile left by a process that is no
// longer running (or is not a streaks binary) is treated as stale and replaced.
func Acquire(path, listen string) (*Lock, error) {
	if holder, err := Read(path); err == nil {
		if alive(holder.PID) {
			return nil, fmt.Errorf("%w (pid %d, listening on %s)", ErrLocked, holder.PID, holder.Listen)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
		}
	} else if !os.IsNotExist(err) {
		// unreadable or malformed lockfiles are stale too
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove malformed lockfile: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to create lockfile: %w", err)
	}
	defer f.Close()

	pid := getpidFunc()
	if _, err := fmt.Fprintf(f, "%d|%s\n", pid, listen); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write lockfile: %w", err)
	}
	return &Lock{path: path, pid: pid}, nil
}

// Release removes the lockfile if it still belongs to this lock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	holder, err := Read(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if holder.PID != l.pid {
		return nil
	}
	return os.Remove(l.path)
}

// Read parses the lockfile at path.
func Read(path string) (Holder, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Holder{}, err
	}
	pidStr, listen, ok := strings.Cut(strings.TrimSpace(string(content)), "|")
	if !ok {
		return Holder{}, errors.New("lockfile is malformed")
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid < 1 {
		return Holder{}, errors.New("invalid process ID in lockfile")
	}
	return Holder{PID: pid, Listen: listen}, nil
}

func alive(pid int) bool {
	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return false
	}
	return strings.HasPrefix(process.Executable(), constants.AppName)
}
