package ledger

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockName is the run-lock file kept in the output directory.
const LockName = ".vix-ripper.lock"

// ErrLocked means another run already holds the output directory.
var ErrLocked = errors.New("another run is already active in this output directory")

// AcquireLock takes an exclusive lock on the output directory so two
// concurrent runs cannot interleave appends to the success and failure
// logs. The caller unlocks on every exit path.
func AcquireLock(outDir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(outDir, LockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return lock, nil
}
