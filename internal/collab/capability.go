// Package collab implements the synchronization layer: optimistic local
// mutations pushed to a persistent store, a merge loop for remote element
// events, and ephemeral presence (cursor) broadcast.
//
// The persistent store, change feed, presence channel and thumbnail upload
// are consumed through the narrow capability interfaces below; the engine
// never depends on a concrete transport or database.
package collab

import (
	"context"

	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/geometry"
)

// EventType discriminates remote element events.
type EventType string

// Remote element event types. Deletes arrive as updates with the
// soft-delete flag set.
const (
	EventInserted EventType = "inserted"
	EventUpdated  EventType = "updated"
)

// Event is one remote element notification. No ordering guarantee.
type Event struct {
	Type    EventType       `json:"type"`
	Element element.Element `json:"element"`
}

// Cursor is one remote user's ephemeral presence data.
type Cursor struct {
	Point geometry.Point `json:"point"`
	Color string         `json:"color"`
	Name  string         `json:"name"`
}

// PresenceSnapshot is a full snapshot of cursors keyed by user id. Each
// snapshot replaces the previous one wholesale.
type PresenceSnapshot map[string]Cursor

// Store is the persistent-store collaborator.
type Store interface {
	// Fetch returns all non-deleted elements of a board ordered by
	// (layer, creation time).
	Fetch(ctx context.Context, boardID string) ([]element.Element, error)
	// Insert stores a new element and returns it with server-assigned
	// fields merged back.
	Insert(ctx context.Context, e element.Element) (element.Element, error)
	// Update applies partial attributes to an element. Soft delete is
	// Update(id, {deleted: true}).
	Update(ctx context.Context, id string, p element.Patch) error
}

// Feed is the realtime change-feed collaborator. The returned cancel
// function releases the subscription.
type Feed interface {
	Subscribe(ctx context.Context, boardID string) (<-chan Event, func(), error)
}

// Presence is the presence-channel collaborator delivering periodic full
// snapshots and accepting local cursor publications.
type Presence interface {
	Subscribe(ctx context.Context, boardID string) (<-chan PresenceSnapshot, func(), error)
	Publish(ctx context.Context, boardID, userID string, c Cursor) error
}

// Uploader is the thumbnail/storage collaborator: bytes in, public URL out.
type Uploader interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

// Identity is the local user as seen by collaborators.
type Identity struct {
	UserID string
	Name   string
	Color  string
}
