// Package sqlite is a durable KV backend on a local SQLite database.
// TTLs are stored as absolute expiry timestamps; expired rows are treated
// as absent and removed opportunistically on read.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"

	"github.com/becomeliminal/recall-go"
)

const schema = `
CREATE TABLE IF NOT EXISTS recall_kv (
	k          TEXT PRIMARY KEY,
	v          BLOB NOT NULL,
	expires_at INTEGER
);
`

// Store persists keys in a single SQLite table.
type Store struct {
	db *sql.DB
}

var _ recall.KV = &Store{}

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", path))
	}

	// modernc.org/sqlite serializes writes itself; a single connection
	// avoids SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to create schema", goerr.V("path", path))
	}

	return &Store{db: db}, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: time.Now().Add(ttl).Unix(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recall_kv (k, v, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(k) DO UPDATE SET v = excluded.v, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to set key", goerr.V("key", key))
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	var expiresAt sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT v, expires_at FROM recall_kv WHERE k = ?`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(recall.ErrNotFound, "key not found", goerr.V("key", key))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get key", goerr.V("key", key))
	}

	if expiresAt.Valid && expiresAt.Int64 <= time.Now().Unix() {
		// Lazy expiry: drop the row and report absence.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM recall_kv WHERE k = ?`, key)
		return nil, goerr.Wrap(recall.ErrNotFound, "key expired", goerr.V("key", key))
	}

	return value, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recall_kv WHERE k = ?`, key); err != nil {
		return goerr.Wrap(err, "failed to delete key", goerr.V("key", key))
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
