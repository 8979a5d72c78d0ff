// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package database provides a SQLite-backed whole-document store.
//
// Each named document is a single JSON payload loaded and saved as one
// image. A single non-reentrant mutex serializes every load-then-save pair
// across all callers, so concurrent mutations never interleave partial
// writes. Reads taken outside Update can go stale before a later write;
// callers that need read-modify-write atomicity must use Update.
package database

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	defaultBusyTimeoutMillis = 5000
	connectionSetupTimeout   = 10 * time.Second
)

// ErrDocumentNotFound is returned by Load for a name that was never saved.
var ErrDocumentNotFound = errors.New("document not found")

type DB struct {
	conn *sql.DB

	// docMu serializes all document load/save pairs. Non-reentrant.
	docMu sync.Mutex
}

func New(databasePath string) (*DB, error) {
	log.Info().Msgf("Initializing database at: %s", databasePath)

	dir := filepath.Dir(databasePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}

	conn, err := sql.Open("sqlite", databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", databasePath, err)
	}

	// Single connection keeps the writer serialized at the driver level too.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), connectionSetupTimeout)
	defer cancel()

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", defaultBusyTimeoutMillis),
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("apply connection pragma %q: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		var applied int
		if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE name = ?`, name).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}

		stmt, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.conn.ExecContext(ctx, string(stmt)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := db.conn.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}

		log.Debug().Str("migration", name).Msg("applied migration")
	}

	return nil
}

// Load reads the named document into dest. Missing documents return
// ErrDocumentNotFound so callers can start from an empty image.
func (db *DB) Load(ctx context.Context, name string, dest any) error {
	db.docMu.Lock()
	defer db.docMu.Unlock()

	return db.loadLocked(ctx, name, dest)
}

func (db *DB) loadLocked(ctx context.Context, name string, dest any) error {
	var payload string
	err := db.conn.QueryRowContext(ctx, `SELECT payload FROM documents WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("load document %s: %w", name, err)
	}

	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		return fmt.Errorf("decode document %s: %w", name, err)
	}
	return nil
}

// Save replaces the named document with a single consistent image.
func (db *DB) Save(ctx context.Context, name string, doc any) error {
	db.docMu.Lock()
	defer db.docMu.Unlock()

	return db.saveLocked(ctx, name, doc)
}

func (db *DB) saveLocked(ctx context.Context, name string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO documents (name, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP
	`, name, string(payload))
	if err != nil {
		return fmt.Errorf("save document %s: %w", name, err)
	}
	return nil
}

// Update runs fn on a freshly loaded image of the named document and saves
// the result, all under the document lock. A missing document is presented
// to fn as the raw JSON "{}" so stores can seed empty mappings. If fn
// returns an error the on-disk image is left untouched.
func (db *DB) Update(ctx context.Context, name string, fn func(raw []byte) (any, error)) error {
	db.docMu.Lock()
	defer db.docMu.Unlock()

	var raw json.RawMessage
	err := db.loadLocked(ctx, name, &raw)
	if errors.Is(err, ErrDocumentNotFound) {
		raw = json.RawMessage(`{}`)
	} else if err != nil {
		return err
	}

	doc, err := fn(raw)
	if err != nil {
		return err
	}

	return db.saveLocked(ctx, name, doc)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying pool for tests.
func (db *DB) Conn() *sql.DB {
	return db.conn
}
