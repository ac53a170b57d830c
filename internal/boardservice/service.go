// Package boardservice coordinates the persistent store and the realtime
// hub on the server side: it assigns server-side fields on insert,
// publishes change events after every mutation, and schedules thumbnail
// refreshes.
package boardservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/dagaz/internal/collab"
	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/realtime"
	"github.com/starford/dagaz/internal/store"
)

// Thumbnailer schedules a debounced thumbnail refresh for a board. May be
// nil-like (see NopThumbnailer) when thumbnails are disabled.
type Thumbnailer interface {
	Schedule(boardID string)
}

// NopThumbnailer disables thumbnail generation.
type NopThumbnailer struct{}

func (NopThumbnailer) Schedule(string) {}

// Service is the server-side board service.
type Service struct {
	db     *store.DB
	hub    *realtime.Hub
	thumbs Thumbnailer
	logger *slog.Logger
}

// NewService creates a board service.
func NewService(db *store.DB, hub *realtime.Hub, thumbs Thumbnailer, logger *slog.Logger) *Service {
	if thumbs == nil {
		thumbs = NopThumbnailer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, hub: hub, thumbs: thumbs, logger: logger}
}

// Insert validates and stores a new element, publishes the inserted event
// and returns the element with server-assigned fields.
func (s *Service) Insert(ctx context.Context, e element.Element) (element.Element, error) {
	if err := e.Validate(); err != nil {
		return element.Element{}, fmt.Errorf("boardservice: validate element: %w", err)
	}
	if _, err := s.db.EnsureBoard(ctx, e.BoardID); err != nil {
		return element.Element{}, err
	}
	stored, err := s.db.Insert(ctx, e)
	if err != nil {
		return element.Element{}, err
	}

	s.hub.PublishEvent(stored.BoardID, collab.Event{
		Type:    collab.EventInserted,
		Element: stored,
	})
	s.afterMutation(ctx, stored.BoardID)
	return stored, nil
}

// Update applies partial attributes and publishes the updated event
// carrying the full stored element. Soft delete travels the same path with
// the deleted flag set.
func (s *Service) Update(ctx context.Context, id string, p element.Patch) (element.Element, error) {
	if err := s.db.Update(ctx, id, p); err != nil {
		return element.Element{}, err
	}
	stored, err := s.db.GetElement(ctx, id)
	if err != nil {
		return element.Element{}, err
	}

	s.hub.PublishEvent(stored.BoardID, collab.Event{
		Type:    collab.EventUpdated,
		Element: stored,
	})
	s.afterMutation(ctx, stored.BoardID)
	return stored, nil
}

// Fetch returns a board's non-deleted elements in render order.
func (s *Service) Fetch(ctx context.Context, boardID string) ([]element.Element, error) {
	return s.db.Fetch(ctx, boardID)
}

// GetElement returns one element, including soft-deleted ones.
func (s *Service) GetElement(ctx context.Context, id string) (element.Element, error) {
	return s.db.GetElement(ctx, id)
}

// ListBoards returns all boards, most recently active first.
func (s *Service) ListBoards(ctx context.Context) ([]store.Board, error) {
	return s.db.ListBoards(ctx)
}

// EnsureBoard returns the board, creating it on first use.
func (s *Service) EnsureBoard(ctx context.Context, id string) (store.Board, error) {
	return s.db.EnsureBoard(ctx, id)
}

func (s *Service) afterMutation(ctx context.Context, boardID string) {
	if err := s.db.TouchBoard(ctx, boardID); err != nil {
		s.logger.Warn("boardservice: touch board failed",
			slog.String("board", boardID), slog.String("error", err.Error()))
	}
	s.thumbs.Schedule(boardID)
}
