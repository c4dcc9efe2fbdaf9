// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockSuffix is appended to the output directory path to name its lock file.
// The lock lives beside the tree, never inside it, so no manifest path can
// collide with it.
const lockSuffix = ".lock"

// ErrDestinationLocked is returned when another extraction holds the lock
// on the output directory.
var ErrDestinationLocked = errors.New("output directory locked by another extraction")

// Lock is an exclusive advisory lock on an output directory.
type Lock struct {
	flock *flock.Flock
}

// LockPath returns the lock file guarding dir: "<abs dir>.lock".
func LockPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving output directory %s: %w", dir, err)
	}
	return abs + lockSuffix, nil
}

// LockDestination creates dir if needed and takes the extraction lock
// beside it. It fails fast with ErrDestinationLocked instead of waiting.
func LockDestination(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	path, err := LockPath(dir)
	if err != nil {
		return nil, err
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking output directory: %w", err)
	}
	if !locked {
		return nil, ErrDestinationLocked
	}
	return &Lock{flock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.flock.Path()
}

// Unlock releases the lock. The lock file stays on disk: removing it would
// let a waiter lock an unlinked inode while a new run locks a fresh file.
// Unlocking a lock that is not held is a no-op.
func (l *Lock) Unlock() error {
	if !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("unlocking output directory: %w", err)
	}
	return nil
}
