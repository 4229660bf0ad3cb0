package kv

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/malonaz/popchat/internal/file"
)

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// SQLite implements an area backed by a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// sqliteDSN turns a plain path into a DSN with our pragmas. DSNs are used as is.
func sqliteDSN(dsn string) (string, error) {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return dsn, nil
	}
	path, err := file.ExpandPath(dsn)
	if err != nil {
		return "", errors.Wrap(err, "expanding database path")
	}
	if err := file.CreateDirectoryIfNotExist(filepath.Dir(path)); err != nil {
		return "", errors.Wrap(err, "creating database directory")
	}
	return "file:" + path + "?" + sqlitePragmas, nil
}

// OpenSQLite opens the database at dsn, a file path or a `file:` DSN.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if dsn == "" {
		return nil, errors.New("sqlite storage requires a database path")
	}
	dsn, err := sqliteDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	// A single connection serializes writers, conflicts are still detected by revision.
	db.SetMaxOpenConns(1)

	// Create the entries table if it doesn't exist. A NULL value is a removed key, its row
	// is kept so that revisions never go backwards.
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			value BLOB,
			revision INTEGER NOT NULL,
			update_timestamp INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating entries table")
	}
	return &SQLite{db: db}, nil
}

// Get implements the Area interface.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	value, found, _, err := s.load(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "querying entry")
	}
	if !found {
		return nil, ErrNotFound
	}
	return value, nil
}

// Set implements the Area interface.
func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (key, value, revision, update_timestamp)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			revision = entries.revision + 1,
			update_timestamp = excluded.update_timestamp
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "writing entry")
	}
	return nil
}

// Remove implements the Area interface.
func (s *SQLite) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET value = NULL, revision = revision + 1, update_timestamp = ?
		WHERE key = ? AND value IS NOT NULL
	`, time.Now().UnixMilli(), key)
	if err != nil {
		return errors.Wrap(err, "removing entry")
	}
	return nil
}

// Update implements the Area interface.
func (s *SQLite) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return optimisticUpdate(ctx, s, key, fn)
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) load(ctx context.Context, key string) ([]byte, bool, int64, error) {
	var value []byte
	var removed bool
	var revision int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(value, X''), value IS NULL, revision FROM entries WHERE key = ?
	`, key).Scan(&value, &removed, &revision)
	if err == sql.ErrNoRows {
		return nil, false, 0, nil
	}
	if err != nil {
		return nil, false, 0, err
	}
	if removed {
		return nil, false, revision, nil
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, revision, nil
}

func (s *SQLite) swap(ctx context.Context, key string, value []byte, revision int64) (bool, error) {
	if value == nil {
		value = []byte{}
	}
	now := time.Now().UnixMilli()
	var result sql.Result
	var err error
	if revision == 0 {
		result, err = s.db.ExecContext(ctx, `
			INSERT INTO entries (key, value, revision, update_timestamp)
			VALUES (?, ?, 1, ?)
			ON CONFLICT (key) DO NOTHING
		`, key, value, now)
	} else {
		result, err = s.db.ExecContext(ctx, `
			UPDATE entries
			SET value = ?, revision = revision + 1, update_timestamp = ?
			WHERE key = ? AND revision = ?
		`, value, now, key, revision)
	}
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "reading affected rows")
	}
	return affected == 1, nil
}
