package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/geometry"
)

const elementColumns = `id, board_id, author_id, kind, x, y, w, h, points,
	stroke, fill, stroke_width, dash, opacity, rotation,
	text, font_family, font_size, text_align, url,
	layer, deleted, created_at, updated_at`

// Fetch returns all non-deleted elements of a board in render order.
func (db *DB) Fetch(ctx context.Context, boardID string) ([]element.Element, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+elementColumns+`
		FROM elements
		WHERE board_id = ? AND deleted = 0
		ORDER BY layer, created_at, id
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("store: fetch board %s: %w", boardID, err)
	}
	defer rows.Close()

	var out []element.Element
	for rows.Next() {
		e, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Insert stores a new element, assigning id and timestamps when the caller
// left them unset, and returns the stored element. A layer of
// element.LayerAuto is replaced with the board's next free layer; any other
// value, zero included, is stored as sent.
func (db *DB) Insert(ctx context.Context, e element.Element) (element.Element, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Layer == element.LayerAuto {
		layer, err := db.nextLayer(ctx, e.BoardID)
		if err != nil {
			return element.Element{}, err
		}
		e.Layer = layer
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	points, dash := encodePoints(e.Points), encodeFloats(e.Dash)
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO elements (`+elementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.BoardID, e.AuthorID, string(e.Kind), e.X, e.Y, e.W, e.H, points,
		e.Stroke, e.Fill, e.StrokeWidth, dash, e.Opacity, e.Rotation,
		e.Text, e.FontFamily, e.FontSize, e.TextAlign, e.URL,
		e.Layer, e.Deleted, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return element.Element{}, apperr.ErrAlreadyExists
		}
		return element.Element{}, fmt.Errorf("store: insert element: %w", err)
	}
	return e, nil
}

// Update applies partial attributes to an element and bumps updated_at.
// Soft delete is Update(id, {deleted: true}); the row stays so the element
// can be restored by undo.
func (db *DB) Update(ctx context.Context, id string, p element.Patch) error {
	sets, args := patchClauses(p)
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE elements SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("store: update element %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update element %s: %w", id, err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// GetElement returns one element by id, including soft-deleted rows.
func (db *DB) GetElement(ctx context.Context, id string) (element.Element, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+elementColumns+` FROM elements WHERE id = ?
	`, id)
	e, err := scanElement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return element.Element{}, apperr.ErrNotFound
	}
	return e, err
}

// ElementsByURL returns the non-deleted elements referencing an asset URL,
// used by the asset watcher to refresh image elements.
func (db *DB) ElementsByURL(ctx context.Context, url string) ([]element.Element, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+elementColumns+`
		FROM elements
		WHERE url = ? AND deleted = 0
	`, url)
	if err != nil {
		return nil, fmt.Errorf("store: elements by url: %w", err)
	}
	defer rows.Close()

	var out []element.Element
	for rows.Next() {
		e, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (db *DB) nextLayer(ctx context.Context, boardID string) (int64, error) {
	var max sql.NullInt64
	err := db.conn.QueryRowContext(ctx,
		`SELECT MAX(layer) FROM elements WHERE board_id = ?`, boardID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("store: next layer: %w", err)
	}
	return max.Int64 + 1, nil
}

// patchClauses builds the SET fragments and arguments for the non-nil
// fields of a patch.
func patchClauses(p element.Patch) (sets []string, args []any) {
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.X != nil {
		add("x", *p.X)
	}
	if p.Y != nil {
		add("y", *p.Y)
	}
	if p.W != nil {
		add("w", *p.W)
	}
	if p.H != nil {
		add("h", *p.H)
	}
	if p.Points != nil {
		add("points", encodePoints(*p.Points))
	}
	if p.Stroke != nil {
		add("stroke", *p.Stroke)
	}
	if p.Fill != nil {
		add("fill", *p.Fill)
	}
	if p.StrokeWidth != nil {
		add("stroke_width", *p.StrokeWidth)
	}
	if p.Dash != nil {
		add("dash", encodeFloats(*p.Dash))
	}
	if p.Opacity != nil {
		add("opacity", *p.Opacity)
	}
	if p.Rotation != nil {
		add("rotation", *p.Rotation)
	}
	if p.Text != nil {
		add("text", *p.Text)
	}
	if p.FontFamily != nil {
		add("font_family", *p.FontFamily)
	}
	if p.FontSize != nil {
		add("font_size", *p.FontSize)
	}
	if p.TextAlign != nil {
		add("text_align", *p.TextAlign)
	}
	if p.URL != nil {
		add("url", *p.URL)
	}
	if p.Layer != nil {
		add("layer", *p.Layer)
	}
	if p.Deleted != nil {
		add("deleted", *p.Deleted)
	}
	return sets, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElement(r rowScanner) (element.Element, error) {
	var (
		e            element.Element
		kind         string
		points, dash string
	)
	err := r.Scan(
		&e.ID, &e.BoardID, &e.AuthorID, &kind, &e.X, &e.Y, &e.W, &e.H, &points,
		&e.Stroke, &e.Fill, &e.StrokeWidth, &dash, &e.Opacity, &e.Rotation,
		&e.Text, &e.FontFamily, &e.FontSize, &e.TextAlign, &e.URL,
		&e.Layer, &e.Deleted, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return element.Element{}, err
		}
		return element.Element{}, fmt.Errorf("store: scan element: %w", err)
	}
	e.Kind = element.Kind(kind)
	if points != "" && points != "[]" {
		if err := json.Unmarshal([]byte(points), &e.Points); err != nil {
			return element.Element{}, fmt.Errorf("store: decode points: %w", err)
		}
	}
	if dash != "" && dash != "[]" {
		if err := json.Unmarshal([]byte(dash), &e.Dash); err != nil {
			return element.Element{}, fmt.Errorf("store: decode dash: %w", err)
		}
	}
	return e, nil
}

func encodePoints(p []geometry.Point) string {
	if len(p) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(p)
	return string(b)
}

func encodeFloats(f []float64) string {
	if len(f) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(f)
	return string(b)
}
