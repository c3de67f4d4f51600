// Package sqlite provides a SQLite-backed implementation of the keyed store
// port, with an enforced byte quota.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/ewilliams-labs/resonate/internal/core/ports"
)

// DefaultQuotaBytes bounds the total payload the adapter will hold. Local
// session state is small; the cap exists so a huge library snapshot cannot
// grow the database without bound.
const DefaultQuotaBytes = 5 << 20

// Adapter implements the keyed store port for SQLite.
type Adapter struct {
	db         *sql.DB
	quotaBytes int64
	now        func() time.Time
}

// compile-time interface assertion
var _ ports.KeyValueStore = (*Adapter)(nil)

// NewAdapter creates a connection and runs the schema migration. quotaBytes
// of zero or less selects the default quota.
func NewAdapter(storagePath string, quotaBytes int64) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if quotaBytes <= 0 {
		quotaBytes = DefaultQuotaBytes
	}

	adapter := &Adapter{db: db, quotaBytes: quotaBytes, now: time.Now}

	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

func (a *Adapter) migrate() error {
	_, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			expires_at INTEGER
		)
	`)
	return err
}

// Name identifies the backend in logs.
func (a *Adapter) Name() string { return "sqlite" }

// Close ensures the DB connection is closed gracefully.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Get returns the value for a key. Expired entries are deleted and reported
// as not found.
func (a *Adapter) Get(ctx context.Context, key string) ([]byte, error) {
	row := a.db.QueryRowContext(ctx, "SELECT value, expires_at FROM kv WHERE key = ?", key)

	var value []byte
	var expiresAt sql.NullInt64
	if err := row.Scan(&value, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite adapter: get %q: %w", key, err)
	}

	if expiresAt.Valid && a.now().Unix() > expiresAt.Int64 {
		_, _ = a.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
		return nil, ports.ErrNotFound
	}

	return value, nil
}

// Set writes a key, rejecting the write when it would push the stored payload
// past the quota.
func (a *Adapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var used sql.NullInt64
	row := a.db.QueryRowContext(ctx, "SELECT SUM(LENGTH(value)) FROM kv WHERE key != ?", key)
	if err := row.Scan(&used); err != nil {
		return fmt.Errorf("sqlite adapter: usage for %q: %w", key, err)
	}
	if used.Int64+int64(len(value)) > a.quotaBytes {
		return ports.QuotaExceededError{Key: key, Size: len(value)}
	}

	var expiresAt any
	if ttl > 0 {
		expiresAt = a.now().Add(ttl).Unix()
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("sqlite adapter: set %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (a *Adapter) Delete(ctx context.Context, key string) error {
	if _, err := a.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("sqlite adapter: delete %q: %w", key, err)
	}
	return nil
}
