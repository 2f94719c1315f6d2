// Package store caches the last fetched rows per customer in a local SQLite
// database so queries can be answered while the endpoint is unreachable.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tartampluch/go-svcrecords/internal/config"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned by Load when nothing was cached for the phone.
var ErrNoSnapshot = errors.New(config.ErrNoSnapshot)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	phone      TEXT PRIMARY KEY,
	rows_json  TEXT NOT NULL,
	fetched_at TEXT NOT NULL
);`

// Snapshot is the cached response for one phone.
type Snapshot struct {
	Phone     string
	Rows      []any
	FetchedAt time.Time
}

// Store is a SQLite-backed snapshot cache.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrStoreMigrate, err)
	}
	return &Store{db: db}, nil
}

// Save replaces the snapshot for phone.
func (s *Store) Save(ctx context.Context, phone string, rows []any, fetchedAt time.Time) error {
	if rows == nil {
		rows = []any{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreSave, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (phone, rows_json, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(phone) DO UPDATE SET rows_json=excluded.rows_json, fetched_at=excluded.fetched_at`,
		phone, string(data), fetchedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreSave, err)
	}

	slog.Debug(config.MsgSnapshotSaved,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyTotal, len(rows),
	)
	return nil
}

// Load returns the snapshot for phone, or ErrNoSnapshot.
func (s *Store) Load(ctx context.Context, phone string) (Snapshot, error) {
	var rowsJSON, fetchedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT rows_json, fetched_at FROM snapshots WHERE phone = ?`, phone,
	).Scan(&rowsJSON, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", config.ErrStoreLoad, err)
	}

	snap := Snapshot{Phone: phone}
	if err := json.Unmarshal([]byte(rowsJSON), &snap.Rows); err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", config.ErrStoreLoad, err)
	}
	if t, err := time.Parse(time.RFC3339, fetchedAt); err == nil {
		snap.FetchedAt = t
	}
	return snap, nil
}

// Phones lists the cached phones in ascending order.
func (s *Store) Phones(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phone FROM snapshots ORDER BY phone`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreLoad, err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrStoreLoad, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CachingSource wraps a row source and records every successful fetch.
type CachingSource struct {
	Source interface {
		Rows(ctx context.Context, phone string) ([]any, error)
	}
	Store *Store
	Now   func() time.Time
}

// Rows fetches from the wrapped source and saves the result. A failed save is
// logged and does not fail the fetch.
func (c *CachingSource) Rows(ctx context.Context, phone string) ([]any, error) {
	rows, err := c.Source.Rows(ctx, phone)
	if err != nil {
		return nil, err
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if err := c.Store.Save(ctx, phone, rows, now()); err != nil {
		slog.Warn(config.ErrStoreSave,
			config.LogKeyComponent, config.CompStore,
			config.LogKeyError, err,
		)
	}
	return rows, nil
}

// OfflineSource answers from the cache only.
type OfflineSource struct {
	Store *Store

	// FetchedAt is the fetch time of the snapshot last returned by Rows.
	FetchedAt time.Time
}

// Rows returns the cached rows for phone.
func (o *OfflineSource) Rows(ctx context.Context, phone string) ([]any, error) {
	snap, err := o.Store.Load(ctx, phone)
	if err != nil {
		return nil, err
	}
	o.FetchedAt = snap.FetchedAt
	return snap.Rows, nil
}
