// Package store provides the SQLite-backed persistent board store: board
// rows plus soft-deleted element rows, fetched in render order.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/dagaz/internal/collab"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS boards (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS elements (
	id           TEXT PRIMARY KEY,
	board_id     TEXT NOT NULL,
	author_id    TEXT NOT NULL DEFAULT '',
	kind         TEXT NOT NULL,
	x            REAL NOT NULL DEFAULT 0,
	y            REAL NOT NULL DEFAULT 0,
	w            REAL NOT NULL DEFAULT 0,
	h            REAL NOT NULL DEFAULT 0,
	points       TEXT NOT NULL DEFAULT '[]',
	stroke       TEXT NOT NULL DEFAULT '',
	fill         TEXT NOT NULL DEFAULT '',
	stroke_width REAL NOT NULL DEFAULT 0,
	dash         TEXT NOT NULL DEFAULT '[]',
	opacity      REAL NOT NULL DEFAULT 1,
	rotation     REAL NOT NULL DEFAULT 0,
	text         TEXT NOT NULL DEFAULT '',
	font_family  TEXT NOT NULL DEFAULT '',
	font_size    REAL NOT NULL DEFAULT 0,
	text_align   TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	layer        INTEGER NOT NULL DEFAULT 0,
	deleted      INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_elements_board
	ON elements(board_id, deleted, layer, created_at);
`

// DB wraps a sql.DB with board and element operations.
type DB struct {
	conn *sql.DB
}

// Verify *DB satisfies the engine's persistent-store contract.
var _ collab.Store = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
