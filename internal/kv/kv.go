// Package kv implements the key-value storage area popchat persists its state in.
package kv

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"

	"github.com/malonaz/popchat/internal/debug"
)

// Supported drivers.
const (
	MemoryDriver   = "memory"
	SQLiteDriver   = "sqlite"
	PostgresDriver = "postgres"
)

const (
	maxUpdateAttempts = 50
	maxUpdateBackoff  = 20 * time.Millisecond
)

var (
	// ErrNotFound is returned when a key is absent.
	ErrNotFound = errors.New("key not found")
	// ErrConflict is returned when an update keeps racing with other writers.
	ErrConflict = errors.New("key was modified concurrently")
)

// UpdateFunc receives the current value of a key, found is false if the key is absent.
// It returns the value to write. It may be called several times for one Update and
// must not call the area itself.
type UpdateFunc func(value []byte, found bool) ([]byte, error)

// Area is a key-value storage area.
type Area interface {
	// Get the value of a key. Returns ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set the value of a key.
	Set(ctx context.Context, key string, value []byte) error
	// Remove a key. Removing an absent key is a no-op.
	Remove(ctx context.Context, key string) error
	// Update runs a read-modify-write of a key. The write only happens if nobody wrote the
	// key since it was read, otherwise fn is called again with the fresh value.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	// Close the area.
	Close() error
}

// Open the area of the given driver.
func Open(ctx context.Context, driver, dsn string) (Area, error) {
	switch driver {
	case MemoryDriver:
		return NewMemory(), nil
	case SQLiteDriver, "":
		return OpenSQLite(ctx, dsn)
	case PostgresDriver:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, errors.Errorf("unknown storage driver %q", driver)
	}
}

// revisioned is implemented by the backends that support compare-and-swap writes.
// Revision 0 means no row exists for the key.
type revisioned interface {
	load(ctx context.Context, key string) (value []byte, found bool, revision int64, err error)
	swap(ctx context.Context, key string, value []byte, revision int64) (bool, error)
}

// optimisticUpdate retries fn until a swap succeeds or the attempts run out.
func optimisticUpdate(ctx context.Context, area revisioned, key string, fn UpdateFunc) error {
	logger := debug.GetLogger()
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		value, found, revision, err := area.load(ctx, key)
		if err != nil {
			return errors.Wrapf(err, "loading %s", key)
		}
		newValue, err := fn(value, found)
		if err != nil {
			return err
		}
		ok, err := area.swap(ctx, key, newValue, revision)
		if err != nil {
			return errors.Wrapf(err, "writing %s", key)
		}
		if ok {
			return nil
		}
		logger.Debug("update conflict, retrying", "key", key, "attempt", attempt, "revision", revision)
		backoff := time.Duration(rand.Int64N(int64(maxUpdateBackoff)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return errors.Wrapf(ErrConflict, "updating %s after %d attempts", key, maxUpdateAttempts)
}
