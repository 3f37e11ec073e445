// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, cross-compiles
// like any other Go package.
//
// ONE CONNECTION:
// The pool is capped at a single open connection. SQLite allows one writer at a
// time anyway, and with one connection:
//   - every transaction in this package is serialized, so a read-modify-write
//     inside a Tx can never interleave with another one
//   - ":memory:" databases behave like one database instead of one per
//     pooled connection (each new connection would get its own empty DB)
//   - the PRAGMAs set in New apply to every query
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and provides repository methods.
// It implements every interface in internal/repository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/clicker.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		// WAL lets readers (e.g. a backup tool) run while we write.
		"PRAGMA journal_mode=WAL",
		// OFF by default in SQLite. Progressions and inventories cascade on user delete.
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT 'user',
			github_id     INTEGER UNIQUE,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// One row per user, removed together with the user.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS progressions (
			user_id           TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			click_count       INTEGER NOT NULL DEFAULT 0 CHECK (click_count >= 0),
			total_click_value INTEGER NOT NULL DEFAULT 1 CHECK (total_click_value >= 0),
			multiplier        INTEGER NOT NULL DEFAULT 1 CHECK (multiplier >= 1),
			best_score        INTEGER NOT NULL DEFAULT 0 CHECK (best_score >= 0),
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_progressions_best_score ON progressions(best_score DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating progressions table: %w", err)
	}

	// Item ids come from the remote catalog, so no AUTOINCREMENT.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id           INTEGER PRIMARY KEY CHECK (id > 0),
			name         TEXT NOT NULL,
			price        INTEGER NOT NULL CHECK (price >= 0),
			max_quantity INTEGER NOT NULL DEFAULT 0 CHECK (max_quantity >= 0),
			click_value  INTEGER NOT NULL DEFAULT 0 CHECK (click_value >= 0)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating items table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS inventories (
			user_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			item_id  INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			quantity INTEGER NOT NULL CHECK (quantity >= 1),
			PRIMARY KEY (user_id, item_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating inventories table: %w", err)
	}

	return nil
}

// withTx runs fn inside a transaction, committing on nil and rolling back on
// any error (including a panic inside fn).
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint. Callers translate it into apperror.Conflict.
func isUniqueViolation(err error) bool {
	var sqlErr *sqlitedrv.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
