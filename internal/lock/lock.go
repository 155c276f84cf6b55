// Package lock provides the cross-process lock that keeps two service
// processes from indexing into the same data directory.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

// FileName is the lock file created inside the data directory.
const FileName = "indexer.lock"

// DirLock is an exclusive lock on a data directory.
type DirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New creates an unlocked lock for dir.
func New(dir string) *DirLock {
	path := filepath.Join(dir, FileName)
	return &DirLock{path: path, flock: flock.New(path)}
}

// TryLock acquires the lock without blocking. It returns domain.ErrLocked
// when another process holds it.
func (l *DirLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrLocked, l.path)
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Calling it on an unlocked DirLock is a no-op.
func (l *DirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.path
}
