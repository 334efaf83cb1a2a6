// Package backup snapshots the SQLite habit store. A sweep rewrites every
// habit row, so operators take a snapshot first and can roll back to it.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/logger"
)

const (
	// DefaultKeep is the number of snapshots kept after rotation.
	DefaultKeep = 14
	DirName     = "backups"

	filePrefix = constants.AppName + "-"
	fileSuffix = ".db"
	stampFmt   = "20060102T150405Z"
)

// Info describes one snapshot file.
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Manager creates, lists and restores snapshots of one database file.
type Manager struct {
	dbPath string
	dir    string
	keep   int
	now    func() time.Time
}

// NewManager keeps snapshots in a backups directory next to dbPath. keep <= 0
// uses DefaultKeep.
func NewManager(dbPath string, keep int) *Manager {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Manager{
		dbPath: dbPath,
		dir:    filepath.Join(filepath.Dir(dbPath), DirName),
		keep:   keep,
		now:    time.Now,
	}
}

func (m *Manager) Dir() string { return m.dir }

// Create writes a new snapshot and rotates old ones.
func (m *Manager) Create(ctx context.Context) (Info, error) {
	info, err := m.create(ctx)
	if err != nil {
		return Info{}, err
	}
	if err := m.rotate(); err != nil {
		logger.Warn("Failed to rotate old backups", "error", err)
	}
	return info, nil
}

func (m *Manager) create(ctx context.Context) (Info, error) {
	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return Info{}, fmt.Errorf("database does not exist: %s", m.dbPath)
	}
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return Info{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	ts := m.now().UTC()
	base := filePrefix + ts.Format(stampFmt)
	path := filepath.Join(m.dir, base+fileSuffix)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		if n > 100 {
			return Info{}, fmt.Errorf("failed to generate unique backup filename")
		}
		path = filepath.Join(m.dir, fmt.Sprintf("%s-%d%s", base, n, fileSuffix))
	}

	if err := snapshot(ctx, m.dbPath, path); err != nil {
		return Info{}, fmt.Errorf("failed to back up database: %w", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	logger.Info("Backup created", "path", path, "size", st.Size())
	return Info{Path: path, Timestamp: ts.Truncate(time.Second), Size: st.Size()}, nil
}

// snapshot copies src to dest with VACUUM INTO, which is consistent even while
// the WAL has uncommitted pages.
func snapshot(ctx context.Context, src, dest string) error {
	db, err := sqlx.ConnectContext(ctx, constants.DriverSQLite, src+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return err
	}
	return nil
}

// List returns every snapshot, newest first. Files that do not look like
// snapshots are ignored.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var out []Info
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ts, ok := parseName(e.Name())
		if !ok {
			continue
		}
		st, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{Path: filepath.Join(m.dir, e.Name()), Timestamp: ts, Size: st.Size()})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Path > out[j].Path
	})
	return out, nil
}

// parseName extracts the timestamp from streaks-<stamp>[-N].db.
func parseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	if head, counter, ok := strings.Cut(stamp, "-"); ok {
		if _, err := strconv.Atoi(counter); err != nil {
			return time.Time{}, false
		}
		stamp = head
	}
	ts, err := time.Parse(stampFmt, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func (m *Manager) rotate() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for i := m.keep; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// Restore replaces the database with the snapshot at path. The current
// database is snapshotted first and returned as the undo point. The caller
// must have closed the store.
func (m *Manager) Restore(ctx context.Context, path string) (Info, error) {
	if _, err := os.Stat(path); err != nil {
		return Info{}, fmt.Errorf("backup file does not exist: %s", path)
	}
	if err := verify(ctx, path); err != nil {
		return Info{}, fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var undo Info
	if _, err := os.Stat(m.dbPath); err == nil {
		// skip rotation so the file being restored cannot be pruned
		undo, err = m.create(ctx)
		if err != nil {
			return Info{}, fmt.Errorf("failed to back up current database before restore: %w", err)
		}
	}

	tmp := m.dbPath + ".restore.tmp"
	if err := copyFile(path, tmp); err != nil {
		return Info{}, fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		os.Remove(tmp)
		return Info{}, fmt.Errorf("failed to restore database: %w", err)
	}
	// stale WAL pages belong to the replaced database
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(m.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return Info{}, fmt.Errorf("failed to clear %s: %w", suffix, err)
		}
	}
	return undo, nil
}

func verify(ctx context.Context, path string) error {
	db, err := sqlx.ConnectContext(ctx, constants.DriverSQLite, path+"?mode=ro")
	if err != nil {
		return err
	}
	defer db.Close()

	var n int
	return db.GetContext(ctx, &n, "SELECT COUNT(*) FROM habits")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return out.Sync()
}
