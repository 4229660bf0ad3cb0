package kv

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Postgres implements an area shared by every popchat pointed at the same database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database at dsn and creates the entries table.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres storage requires a connection string")
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parsing connection string")
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, errors.Wrap(err, "creating connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS popchat_entries (
			key TEXT PRIMARY KEY,
			value BYTEA,
			revision BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "creating entries table")
	}
	return &Postgres{pool: pool}, nil
}

// Get implements the Area interface.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	value, found, _, err := p.load(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "querying entry")
	}
	if !found {
		return nil, ErrNotFound
	}
	return value, nil
}

// Set implements the Area interface.
func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO popchat_entries (key, value, revision)
		VALUES ($1, $2, 1)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			revision = popchat_entries.revision + 1,
			updated_at = NOW()
	`, key, value)
	if err != nil {
		return errors.Wrap(err, "writing entry")
	}
	return nil
}

// Remove implements the Area interface.
func (p *Postgres) Remove(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE popchat_entries
		SET value = NULL, revision = revision + 1, updated_at = NOW()
		WHERE key = $1 AND value IS NOT NULL
	`, key)
	if err != nil {
		return errors.Wrap(err, "removing entry")
	}
	return nil
}

// Update implements the Area interface.
func (p *Postgres) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return optimisticUpdate(ctx, p, key, fn)
}

// Close the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) load(ctx context.Context, key string) ([]byte, bool, int64, error) {
	var value []byte
	var revision int64
	err := p.pool.QueryRow(ctx, `SELECT value, revision FROM popchat_entries WHERE key = $1`, key).Scan(&value, &revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, 0, nil
	}
	if err != nil {
		return nil, false, 0, err
	}
	// pgx scans NULL into a nil slice and an empty BYTEA into an empty one.
	return value, value != nil, revision, nil
}

func (p *Postgres) swap(ctx context.Context, key string, value []byte, revision int64) (bool, error) {
	if value == nil {
		value = []byte{}
	}
	query := `
		UPDATE popchat_entries
		SET value = $2, revision = revision + 1, updated_at = NOW()
		WHERE key = $1 AND revision = $3
	`
	args := []any{key, value, revision}
	if revision == 0 {
		query = `
			INSERT INTO popchat_entries (key, value, revision)
			VALUES ($1, $2, 1)
			ON CONFLICT (key) DO NOTHING
		`
		args = args[:2]
	}
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
