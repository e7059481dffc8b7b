package index

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/docfuse/docfuse/internal/errors"
)

// OpLock serializes writer operations across processes. Maintenance
// (reset, import, export) and ingest are mutually exclusive: there are
// no cross-store transactions, so a concurrent writer would observe or
// create half-written state.
//
// gofrs/flock works on all platforms and releases automatically if the
// process dies.
type OpLock struct {
	fl *flock.Flock
}

// NewOpLock creates a lock at path.
func NewOpLock(path string) (*OpLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.StoreError("create lock directory", err)
	}
	return &OpLock{fl: flock.New(path)}, nil
}

// Acquire takes the lock without blocking. Another holder yields a
// maintenance-busy error so callers can report contention instead of
// hanging.
func (l *OpLock) Acquire() (func(), error) {
	ok, err := l.fl.TryLock()
	if err != nil {
		return nil, errors.StoreError("acquire writer lock", err)
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeMaintenanceBusy,
			"another writer operation is in progress", nil)
	}
	return func() { _ = l.fl.Unlock() }, nil
}
