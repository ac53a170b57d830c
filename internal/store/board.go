package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dagaz/internal/apperr"
)

// Board is one collaborative space.
type Board struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateBoard inserts a board, assigning an id when absent.
func (db *DB) CreateBoard(ctx context.Context, b Board) (Board, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO boards (id, name, thumbnail_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, b.ID, b.Name, b.ThumbnailURL, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return Board{}, fmt.Errorf("store: create board: %w", err)
	}
	return b, nil
}

// GetBoard returns one board by id.
func (db *DB) GetBoard(ctx context.Context, id string) (Board, error) {
	var b Board
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, name, thumbnail_url, created_at, updated_at
		FROM boards WHERE id = ?
	`, id).Scan(&b.ID, &b.Name, &b.ThumbnailURL, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Board{}, apperr.ErrNotFound
	}
	if err != nil {
		return Board{}, fmt.Errorf("store: get board %s: %w", id, err)
	}
	return b, nil
}

// EnsureBoard returns the board, creating an empty one on first use so a
// client can join a space by id alone.
func (db *DB) EnsureBoard(ctx context.Context, id string) (Board, error) {
	b, err := db.GetBoard(ctx, id)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return Board{}, err
	}
	return db.CreateBoard(ctx, Board{ID: id})
}

// ListBoards returns all boards, most recently updated first.
func (db *DB) ListBoards(ctx context.Context) ([]Board, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, thumbnail_url, created_at, updated_at
		FROM boards ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list boards: %w", err)
	}
	defer rows.Close()

	var out []Board
	for rows.Next() {
		var b Board
		if err := rows.Scan(&b.ID, &b.Name, &b.ThumbnailURL, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan board: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SetThumbnail updates a board's thumbnail URL.
func (db *DB) SetThumbnail(ctx context.Context, id, url string) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE boards SET thumbnail_url = ?, updated_at = ? WHERE id = ?
	`, url, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: set thumbnail: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: set thumbnail: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// TouchBoard bumps a board's updated_at, used after element mutations so
// board listings sort by recent activity.
func (db *DB) TouchBoard(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE boards SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: touch board: %w", err)
	}
	return nil
}
