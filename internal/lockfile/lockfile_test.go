package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-ps"
)

type fakeProcess struct {
	pid int
	exe string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.exe }

func withProcesses(t *testing.T, self int, running map[int]string) {
	t.Helper()
	origFind, origPid := findProcessFunc, getpidFunc
	t.Cleanup(func() {
		findProcessFunc, getpidFunc = origFind, origPid
	})
	getpidFunc = func() int { return self }
	findProcessFunc = func(pid int) (ps.Process, error) {
		exe, ok := running[pid]
		if !ok {
			return nil, nil
		}
		return fakeProcess{pid: pid, exe: exe}, nil
	}
}

func TestAcquireAndRelease(t *testing.T) {
	withProcesses(t, 100, map[int]string{100: "streaks"})
	path := filepath.Join(t.TempDir(), "serve.lock")

	lock, err := Acquire(path, ":8080")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	holder, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if holder.PID != 100 || holder.Listen != ":8080" {
		t.Errorf("unexpected holder %+v", holder)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("lockfile should be gone after Release")
	}
}

func TestAcquire(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		running  map[int]string
		wantErr  error
	}{
		{"held by live instance", "42|:9090\n", map[int]string{42: "streaks"}, ErrLocked},
		{"stale pid", "42|:9090\n", map[int]string{}, nil},
		{"pid reused by other binary", "42|:9090\n", map[int]string{42: "postgres"}, nil},
		{"malformed", "garbage", map[int]string{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withProcesses(t, 7, tt.running)
			path := filepath.Join(t.TempDir(), "serve.lock")
			if err := os.WriteFile(path, []byte(tt.existing), 0600); err != nil {
				t.Fatalf("failed to seed lockfile: %v", err)
			}

			lock, err := Acquire(path, ":8080")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Acquire failed: %v", err)
			}
			defer lock.Release()
			holder, _ := Read(path)
			if holder.PID != 7 {
				t.Errorf("expected lock to be taken over by pid 7, got %d", holder.PID)
			}
		})
	}
}

func TestReleaseKeepsForeignLock(t *testing.T) {
	withProcesses(t, 7, map[int]string{})
	path := filepath.Join(t.TempDir(), "serve.lock")
	lock, err := Acquire(path, ":8080")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("99|:1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("Release must not remove a lockfile owned by another process")
	}
}
