package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"
	"github.com/spf13/afero"

	"github.com/oshokin/relsync/internal/logger"
)

// Suffix is appended to the target name for the lock file.
const Suffix = ".lock"

// ErrLocked is returned when another live process holds the lock.
var ErrLocked = errors.New("another relsync process is syncing this file")

// ProcessFinder reports whether a process with pid is running.
type ProcessFinder func(pid int) (bool, error)

// Lock is a held lock file.
type Lock struct {
	fs   afero.Fs
	path string
}

// Locker acquires lock files on a filesystem.
type Locker struct {
	fs      afero.Fs
	pid     int
	isAlive ProcessFinder
}

// NewLocker returns a Locker that records the current PID and checks owners with go-ps.
func NewLocker(fs afero.Fs) *Locker {
	return &Locker{
		fs:      fs,
		pid:     os.Getpid(),
		isAlive: processAlive,
	}
}

// WithProcessFinder replaces the liveness check and the recorded PID.
func (l *Locker) WithProcessFinder(pid int, finder ProcessFinder) *Locker {
	return &Locker{
		fs:      l.fs,
		pid:     pid,
		isAlive: finder,
	}
}

// Acquire takes the lock for target, replacing a stale lock left by a dead process.
func (l *Locker) Acquire(ctx context.Context, target string) (*Lock, error) {
	path := filepath.Clean(target) + Suffix

	for attempt := 0; attempt < 2; attempt++ {
		err := l.create(path)
		if err == nil {
			logger.DebugKV(ctx, "Lock acquired", "path", path, "pid", l.pid)
			return &Lock{fs: l.fs, path: path}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock %s: %w", path, err)
		}

		stale, err := l.isStale(path)
		if err != nil {
			return nil, err
		}

		if !stale {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}

		logger.WarnKV(ctx, "Removing stale lock", "path", path)

		if err = l.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock %s: %w", path, err)
		}
	}

	return nil, fmt.Errorf("%s: %w", path, ErrLocked)
}

// Release removes the lock file.
func (lk *Lock) Release() error {
	if lk == nil {
		return nil
	}

	if err := lk.fs.Remove(lk.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock %s: %w", lk.path, err)
	}

	return nil
}

// Path returns the lock file location.
func (lk *Lock) Path() string {
	return lk.path
}

func (l *Locker) create(path string) error {
	file, err := l.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	_, err = file.WriteString(strconv.Itoa(l.pid))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = l.fs.Remove(path)
	}

	return err
}

// isStale reports whether the lock at path belongs to a process that is gone.
// Unreadable PIDs count as stale: only relsync writes lock files.
func (l *Locker) isStale(path string) (bool, error) {
	contents, err := afero.ReadFile(l.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}

		return false, fmt.Errorf("read lock %s: %w", path, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return true, nil
	}

	if pid == l.pid {
		return false, nil
	}

	alive, err := l.isAlive(pid)
	if err != nil {
		return false, fmt.Errorf("check lock owner %d: %w", pid, err)
	}

	return !alive, nil
}

// processAlive looks pid up in the process table.
func processAlive(pid int) (bool, error) {
	process, err := ps.FindProcess(pid)
	if err != nil {
		return false, err
	}

	return process != nil, nil
}
