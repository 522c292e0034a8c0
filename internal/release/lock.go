package release

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// staleLockAge is how old a lock file may be before it is assumed abandoned.
const staleLockAge = 10 * time.Minute

// Lock acquires a file lock on the ledger to keep two deploys from the same
// working directory from interleaving. It does not protect against
// concurrent deploys from other machines.
func (l *Ledger) Lock() error {
	lockPath := l.lockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	if info, err := os.Stat(lockPath); err == nil {
		if time.Since(info.ModTime()) > staleLockAge {
			os.Remove(lockPath)
		} else {
			return fmt.Errorf("another deploy is in progress (lock file: %s). "+
				"If this is an error, remove the lock file manually", lockPath)
		}
	}

	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(lockPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	return nil
}

// Unlock releases the ledger lock.
func (l *Ledger) Unlock() error {
	if err := os.Remove(l.lockPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (l *Ledger) lockPath() string {
	return l.path + ".lock"
}
