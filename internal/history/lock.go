package history

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lockPath returns the sidecar lock file for a history file. The data file
// is replaced by rename during compaction, so it cannot carry the lock
// itself.
func lockPath(path string) string {
	return swapExt(path, ".lock")
}

// withLock runs fn while holding an exclusive advisory lock on lockFile.
// The lock is released when fn returns, on every path.
func withLock(lockFile string, fn func() error) error {
	f, err := os.OpenFile(lockFile, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open history lock: %w", err)
	}
	defer f.Close()

	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN) //nolint:errcheck

	return fn()
}
