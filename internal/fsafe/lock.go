package fsafe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mrz1836/warden/internal/constants"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/flock"
)

// lockPollInterval is how often lock acquisition retries while contended.
const lockPollInterval = 50 * time.Millisecond

// Lock is a held advisory file lock. Release it with Unlock; if the holder
// crashes first, the OS drops it.
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive advisory lock on lockPath, creating the file
// (and its directory) if needed. It polls until the lock is acquired, the
// timeout elapses (ErrLockTimeout), or ctx is canceled.
func Acquire(ctx context.Context, lockPath string, timeout time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), constants.DirPerm); err != nil {
		return nil, classifyIo(fmt.Errorf("failed to create lock directory: %w", err))
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, constants.FilePerm) //#nosec G302,G304 -- lock file needs write access, path is constructed internally
	if err != nil {
		return nil, classifyIo(fmt.Errorf("failed to open lock file: %w", err))
	}

	deadline := time.Now().Add(timeout)
	for {
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		default:
		}

		if err := flock.Exclusive(f.Fd()); err == nil {
			return &Lock{f: f}, nil
		}

		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("failed to acquire lock on %s: %w", lockPath, wardenerrors.ErrLockTimeout)
		}

		time.Sleep(lockPollInterval)
	}
}

// Unlock releases the lock and closes the file. Safe on a nil receiver so
// callers can defer it unconditionally.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	if err := flock.Unlock(l.f.Fd()); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return l.f.Close()
}
