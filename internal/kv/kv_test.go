package kv

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPostgresDSNEnv = "POPCHAT_TEST_POSTGRES_DSN"

// areas returns every backend available in this environment.
func areas(t *testing.T) map[string]Area {
	t.Helper()
	ctx := context.Background()
	areas := map[string]Area{MemoryDriver: NewMemory()}

	sqlite, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "nested", "popchat.db"))
	require.NoError(t, err)
	areas[SQLiteDriver] = sqlite

	if dsn := os.Getenv(testPostgresDSNEnv); dsn != "" {
		postgres, err := OpenPostgres(ctx, dsn)
		require.NoError(t, err)
		_, err = postgres.pool.Exec(ctx, `TRUNCATE popchat_entries`)
		require.NoError(t, err)
		areas[PostgresDriver] = postgres
	}

	t.Cleanup(func() {
		for _, area := range areas {
			assert.NoError(t, area.Close())
		}
	})
	return areas
}

func TestGetSetRemove(t *testing.T) {
	ctx := context.Background()
	for name, area := range areas(t) {
		t.Run(name, func(t *testing.T) {
			_, err := area.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, area.Set(ctx, "key", []byte(`"one"`)))
			value, err := area.Get(ctx, "key")
			require.NoError(t, err)
			assert.Equal(t, `"one"`, string(value))

			require.NoError(t, area.Set(ctx, "key", []byte(`"two"`)))
			value, err = area.Get(ctx, "key")
			require.NoError(t, err)
			assert.Equal(t, `"two"`, string(value))

			require.NoError(t, area.Remove(ctx, "key"))
			_, err = area.Get(ctx, "key")
			assert.ErrorIs(t, err, ErrNotFound)
			require.NoError(t, area.Remove(ctx, "key"))

			require.NoError(t, area.Set(ctx, "key", []byte(`"three"`)))
			value, err = area.Get(ctx, "key")
			require.NoError(t, err)
			assert.Equal(t, `"three"`, string(value))
		})
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	for name, area := range areas(t) {
		t.Run(name, func(t *testing.T) {
			err := area.Update(ctx, "counter", func(value []byte, found bool) ([]byte, error) {
				assert.False(t, found)
				return []byte("1"), nil
			})
			require.NoError(t, err)

			err = area.Update(ctx, "counter", func(value []byte, found bool) ([]byte, error) {
				assert.True(t, found)
				assert.Equal(t, "1", string(value))
				return []byte("2"), nil
			})
			require.NoError(t, err)

			fnErr := errors.New("nope")
			err = area.Update(ctx, "counter", func([]byte, bool) ([]byte, error) { return nil, fnErr })
			assert.ErrorIs(t, err, fnErr)

			value, err := area.Get(ctx, "counter")
			require.NoError(t, err)
			assert.Equal(t, "2", string(value))

			require.NoError(t, area.Remove(ctx, "counter"))
			err = area.Update(ctx, "counter", func(value []byte, found bool) ([]byte, error) {
				assert.False(t, found)
				return []byte("10"), nil
			})
			require.NoError(t, err)
		})
	}
}

func TestConcurrentUpdatesAreNotLost(t *testing.T) {
	const writers, increments = 4, 10
	ctx := context.Background()
	for name, area := range areas(t) {
		t.Run(name, func(t *testing.T) {
			increment := func(value []byte, found bool) ([]byte, error) {
				count := 0
				if found {
					var err error
					if count, err = strconv.Atoi(string(value)); err != nil {
						return nil, err
					}
				}
				return []byte(strconv.Itoa(count + 1)), nil
			}

			var wg sync.WaitGroup
			for range writers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range increments {
						assert.NoError(t, area.Update(ctx, "counter", increment))
					}
				}()
			}
			wg.Wait()

			value, err := area.Get(ctx, "counter")
			require.NoError(t, err)
			assert.Equal(t, strconv.Itoa(writers*increments), string(value))
		})
	}
}

type conflictingArea struct{ loads int }

func (c *conflictingArea) load(context.Context, string) ([]byte, bool, int64, error) {
	c.loads++
	return nil, false, 0, nil
}

func (c *conflictingArea) swap(context.Context, string, []byte, int64) (bool, error) {
	return false, nil
}

func TestOptimisticUpdateGivesUp(t *testing.T) {
	area := &conflictingArea{}
	err := optimisticUpdate(context.Background(), area, "key", func([]byte, bool) ([]byte, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, maxUpdateAttempts, area.loads)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	area, err := Open(ctx, MemoryDriver, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, area)

	area, err = Open(ctx, SQLiteDriver, filepath.Join(t.TempDir(), "popchat.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, area)
	require.NoError(t, area.Close())

	_, err = Open(ctx, "redis", "")
	assert.Error(t, err)
}
