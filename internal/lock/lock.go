// Package lock serialises mount and unmount operations on the same mount
// point across concurrent vfs processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/gofrs/flock"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/log"
)

// ErrLocked is returned when another process holds the lock for too long
var ErrLocked = errors.New("mount point is locked by another process")

// Default retry policy
const (
	DefaultAttempts = 10
	DefaultDelay    = 200 * time.Millisecond
)

// Locker takes an exclusive lock named by key and returns the release func
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// FileLocker implements Locker with flock(2) on files under a directory
type FileLocker struct {
	dir      string
	attempts uint
	delay    time.Duration
}

// NewFileLocker creates a locker storing its lock files in dir.
// Zero attempts or delay select the defaults.
func NewFileLocker(dir string, attempts uint, delay time.Duration) *FileLocker {
	if attempts == 0 {
		attempts = DefaultAttempts
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &FileLocker{dir: dir, attempts: attempts, delay: delay}
}

// Path returns the lock file used for key
func (l *FileLocker) Path(key string) string {
	name := strings.Trim(filepath.Clean(key), "/")
	if name == "" {
		name = "root"
	}
	return filepath.Join(l.dir, strings.ReplaceAll(name, "/", "-")+".lock")
}

// Lock blocks until the lock for key is held, the attempts run out or ctx
// is cancelled
func (l *FileLocker) Lock(ctx context.Context, key string) (func(), error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	path := l.Path(key)
	fl := flock.New(path)

	err := retry.Do(
		func() error {
			ok, err := fl.TryLock()
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if !ok {
				return ErrLocked
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(l.attempts),
		retry.Delay(l.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("waiting for lock", "path", path, "attempt", n+1)
		}),
	)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, key)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	log.Debug("lock acquired", "path", path)
	return func() {
		if err := fl.Unlock(); err != nil {
			log.Warn("failed to release lock", "path", path, "error", err)
		}
	}, nil
}

// NopLocker never blocks
type NopLocker struct{}

func (NopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}
