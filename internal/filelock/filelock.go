// Package filelock guards a destination directory against concurrent runs
// with an advisory flock on a well-known lock file.
package filelock

import (
	"fmt"

	"github.com/gofrs/flock"
)

// RunLock is an exclusive advisory lock held for the duration of a run.
type RunLock struct {
	flock *flock.Flock
}

// Acquire takes the lock at path without blocking. It fails when another
// process already holds it.
func Acquire(path string) (*RunLock, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: held by another process", path)
	}
	return &RunLock{flock: fl}, nil
}

// Release unlocks. The lock file itself stays behind for the next run.
func (l *RunLock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", l.flock.Path(), err)
	}
	return nil
}
