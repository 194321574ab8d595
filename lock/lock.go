// Package lock implements the process-global advisory exclusive lock that
// serializes concurrent take-snapshot runs against the same repository.
// The lock file is created world read-writable (0666) so any user running
// a profile under a different uid can still contend for it, then locked
// with a blocking, no-timeout advisory exclusive lock.
//
// Grounded on github.com/gofrs/flock (present in the teacher's go.mod) and
// on the exact contract exercised by the original tool's
// test_flockExclusive (_examples/original_source/common/test/test_snapshots.py):
// a second acquirer blocks while the first holds the lock, and the lock
// file's mode is 0666 after acquire.
package lock

import (
	"os"
	"sync"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// WorldReadWrite is the mode every lock file is chmod'd to right before it
// is locked, matching spec.md §4.D.
const WorldReadWrite = 0o666

// Manager is a process-wide advisory exclusive lock bound to a single file
// path. It is safe to share a *Manager across goroutines within one
// process; AcquireExclusive serializes them the same way it serializes
// separate processes.
type Manager struct {
	path string

	mu sync.Mutex // serializes AcquireExclusive/Release bookkeeping within this process
	fl *flock.Flock
}

// New returns a Manager for the fixed lock file path.
func New(path string) *Manager {
	return &Manager{path: path}
}

// AcquireExclusive creates the lock file if absent, chmods it to 0666, and
// blocks until an exclusive advisory lock on it is granted. There is no
// timeout and no cancellation path: a second caller waits until the first
// releases.
func (m *Manager) AcquireExclusive() error {
	if err := ensureWorldWritable(m.path); err != nil {
		return errors.Wrap(err, "preparing lock file")
	}

	// Block on a handle of our own without holding m.mu, so a concurrent
	// Release on the same Manager can still run and unblock us.
	fl := flock.New(m.path)

	if err := fl.Lock(); err != nil {
		return errors.Wrap(err, "acquiring exclusive lock")
	}

	m.mu.Lock()
	m.fl = fl
	m.mu.Unlock()

	return nil
}

// Release drops the advisory lock. The lock file itself is left in place
// for the next acquirer.
func (m *Manager) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fl == nil {
		return nil
	}

	err := m.fl.Unlock()
	m.fl = nil

	return err
}

func ensureWorldWritable(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, WorldReadWrite)
	if err != nil {
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	// os.OpenFile's mode is masked by umask; force the exact bits spec.md
	// requires regardless of the caller's umask.
	return os.Chmod(path, WorldReadWrite)
}
