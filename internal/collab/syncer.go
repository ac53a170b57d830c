package collab

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/geometry"
)

// Syncer connects one client's element store to the external collaborators.
// Local mutations are applied to the store immediately (optimistic) and
// then persisted; a persistence failure is logged and left standing, so the
// local copy may run ahead of the remote store until the next full fetch
// (known consistency gap, no automatic rollback).
type Syncer struct {
	store    *element.Store
	remote   Store
	feed     Feed
	presence Presence

	boardID string
	self    Identity
	logger  *slog.Logger

	throttle *cursorThrottle

	mu      sync.RWMutex
	cursors PresenceSnapshot

	cancels []func()
	started bool
	done    chan struct{}
}

// NewSyncer creates a syncer for one board and local user. throttle is the
// minimum interval between cursor broadcasts.
func NewSyncer(store *element.Store, remote Store, feed Feed, presence Presence,
	boardID string, self Identity, throttle time.Duration, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		store:    store,
		remote:   remote,
		feed:     feed,
		presence: presence,
		boardID:  boardID,
		self:     self,
		logger:   logger,
		throttle: newCursorThrottle(throttle),
		cursors:  PresenceSnapshot{},
		done:     make(chan struct{}),
	}
}

// Start seeds the element store from a full fetch, then subscribes to the
// change feed and presence channel and launches the merge loop. Remote
// events may be merged at any time, including mid-gesture.
func (s *Syncer) Start(ctx context.Context) error {
	seed, err := s.remote.Fetch(ctx, s.boardID)
	if err != nil {
		return fmt.Errorf("collab: fetch board %s: %w", s.boardID, err)
	}
	s.store.Seed(seed)

	events, cancelFeed, err := s.feed.Subscribe(ctx, s.boardID)
	if err != nil {
		return fmt.Errorf("collab: subscribe feed: %w", err)
	}
	snapshots, cancelPresence, err := s.presence.Subscribe(ctx, s.boardID)
	if err != nil {
		cancelFeed()
		return fmt.Errorf("collab: subscribe presence: %w", err)
	}
	s.cancels = []func(){cancelFeed, cancelPresence}
	s.started = true

	go s.mergeLoop(ctx, events, snapshots)
	return nil
}

// Stop releases subscriptions and waits for the merge loop to exit.
func (s *Syncer) Stop() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.throttle.stop()
	if s.started {
		<-s.done
	}
}

func (s *Syncer) mergeLoop(ctx context.Context, events <-chan Event, snapshots <-chan PresenceSnapshot) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				if snapshots == nil {
					return
				}
				continue
			}
			s.ApplyRemote(ev)
		case snap, ok := <-snapshots:
			if !ok {
				snapshots = nil
				if events == nil {
					return
				}
				continue
			}
			s.applyPresence(snap)
		}
	}
}

// ApplyRemote merges one remote element event into the store. Inserts
// authored by the local user are skipped: the optimistic path already put
// them in the store. Updates carrying the soft-delete flag remove the
// element (clearing the selection if it was selected); anything else
// replaces by id, inserting if unseen, and restores layer order.
func (s *Syncer) ApplyRemote(ev Event) {
	switch ev.Type {
	case EventInserted:
		if ev.Element.AuthorID == s.self.UserID {
			return
		}
		s.store.Upsert(ev.Element)
	case EventUpdated:
		if ev.Element.Deleted {
			s.store.Remove(ev.Element.ID)
			return
		}
		s.store.Upsert(ev.Element)
	}
}

// applyPresence replaces the remote cursor set wholesale, excluding the
// local user's own key.
func (s *Syncer) applyPresence(snap PresenceSnapshot) {
	next := make(PresenceSnapshot, len(snap))
	for id, c := range snap {
		if id == s.self.UserID {
			continue
		}
		next[id] = c
	}
	s.mu.Lock()
	s.cursors = next
	s.mu.Unlock()
}

// RemoteCursors returns the latest remote cursor snapshot.
func (s *Syncer) RemoteCursors() PresenceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(PresenceSnapshot, len(s.cursors))
	for id, c := range s.cursors {
		out[id] = c
	}
	return out
}

// Create applies a new element optimistically and persists it. The stored
// element (with any server-assigned fields) is merged back into the store.
func (s *Syncer) Create(ctx context.Context, e element.Element) element.Element {
	s.store.Upsert(e)

	stored, err := s.remote.Insert(ctx, e)
	if err != nil {
		s.logger.Warn("collab: insert failed, local state ahead of store",
			slog.String("element", e.ID), slog.String("error", err.Error()))
		return e
	}
	s.store.Upsert(stored)
	return stored
}

// Update applies partial attributes optimistically and persists them.
func (s *Syncer) Update(ctx context.Context, id string, p element.Patch) {
	if p.IsEmpty() {
		return
	}
	if cur, ok := s.store.Get(id); ok {
		s.store.Upsert(p.Apply(cur))
	}
	s.persist(ctx, id, p)
}

// Delete soft-deletes an element: removed locally, flagged remotely.
func (s *Syncer) Delete(ctx context.Context, id string) {
	s.store.Remove(id)
	deleted := true
	s.persist(ctx, id, element.Patch{Deleted: &deleted})
}

// SetDeleted toggles the soft-delete flag; the snapshot restores the
// element locally on un-delete. Used by the undo/redo path.
func (s *Syncer) SetDeleted(ctx context.Context, id string, deleted bool, snapshot element.Element) {
	if deleted {
		s.store.Remove(id)
	} else {
		snapshot.Deleted = false
		s.store.Upsert(snapshot)
	}
	s.persist(ctx, id, element.Patch{Deleted: &deleted})
}

// ApplyPatch writes partial attributes locally and remotely. Used by the
// undo/redo path.
func (s *Syncer) ApplyPatch(ctx context.Context, id string, p element.Patch) {
	if cur, ok := s.store.Get(id); ok {
		s.store.Upsert(p.Apply(cur))
	}
	s.persist(ctx, id, p)
}

func (s *Syncer) persist(ctx context.Context, id string, p element.Patch) {
	if err := s.remote.Update(ctx, id, p); err != nil {
		s.logger.Warn("collab: update failed, local state ahead of store",
			slog.String("element", id), slog.String("error", err.Error()))
	}
}

// PublishCursor broadcasts the local cursor position (canvas space),
// coalesced to at most one transmission per throttle interval. The latest
// point always wins.
func (s *Syncer) PublishCursor(ctx context.Context, p geometry.Point) {
	s.throttle.offer(Cursor{Point: p, Color: s.self.Color, Name: s.self.Name}, func(c Cursor) {
		if err := s.presence.Publish(ctx, s.boardID, s.self.UserID, c); err != nil {
			s.logger.Debug("collab: cursor publish failed", slog.String("error", err.Error()))
		}
	})
}
