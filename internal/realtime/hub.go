// Package realtime implements the in-process change feed and presence
// channel: per-board rooms fanning out element events to subscribers and
// broadcasting periodic full cursor snapshots.
package realtime

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/starford/dagaz/internal/collab"
)

// subscriber is one feed or presence subscription. Exactly one of events
// and snaps is non-nil.
type subscriber struct {
	boardID string
	events  chan collab.Event
	snaps   chan collab.PresenceSnapshot
}

type publishReq struct {
	boardID string
	event   collab.Event
}

type cursorReq struct {
	boardID string
	userID  string
	cursor  collab.Cursor
}

type countReq struct {
	boardID string
	resp    chan int
}

type cursorEntry struct {
	cursor collab.Cursor
	seen   time.Time
}

// room is the per-board fan-out state, owned by the hub loop.
type room struct {
	feeds    map[*subscriber]struct{}
	watchers map[*subscriber]struct{}
	cursors  map[string]cursorEntry
}

// Hub manages board rooms.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable
// state (rooms, subscriber sets, cursor tables). Public methods communicate
// with this loop through channels, so no mutexes are required.
type Hub struct {
	presenceInterval time.Duration
	cursorTTL        time.Duration

	subscribeCh   chan *subscriber
	unsubscribeCh chan *subscriber
	publishCh     chan publishReq
	cursorCh      chan cursorReq
	countReqCh    chan countReq

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewHub creates a hub broadcasting presence snapshots every
// presenceInterval. Cursors not refreshed within ten intervals are dropped
// from snapshots.
func NewHub(presenceInterval time.Duration) *Hub {
	if presenceInterval <= 0 {
		presenceInterval = 100 * time.Millisecond
	}
	h := &Hub{
		presenceInterval: presenceInterval,
		cursorTTL:        10 * presenceInterval,
		subscribeCh:      make(chan *subscriber),
		unsubscribeCh:    make(chan *subscriber),
		publishCh:        make(chan publishReq, 256),
		cursorCh:         make(chan cursorReq, 256),
		countReqCh:       make(chan countReq),
		stopCh:           make(chan struct{}),
		stopped:          make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)

	rooms := make(map[string]*room)
	ticker := time.NewTicker(h.presenceInterval)
	defer ticker.Stop()

	get := func(boardID string) *room {
		r, ok := rooms[boardID]
		if !ok {
			r = &room{
				feeds:    make(map[*subscriber]struct{}),
				watchers: make(map[*subscriber]struct{}),
				cursors:  make(map[string]cursorEntry),
			}
			rooms[boardID] = r
		}
		return r
	}
	drop := func(boardID string) {
		r, ok := rooms[boardID]
		if ok && len(r.feeds) == 0 && len(r.watchers) == 0 && len(r.cursors) == 0 {
			delete(rooms, boardID)
		}
	}

	for {
		select {
		case <-h.stopCh:
			for _, r := range rooms {
				for sub := range r.feeds {
					close(sub.events)
				}
				for sub := range r.watchers {
					close(sub.snaps)
				}
			}
			return

		case sub := <-h.subscribeCh:
			r := get(sub.boardID)
			if sub.events != nil {
				r.feeds[sub] = struct{}{}
			} else {
				r.watchers[sub] = struct{}{}
			}

		case sub := <-h.unsubscribeCh:
			r, ok := rooms[sub.boardID]
			if !ok {
				continue
			}
			if sub.events != nil {
				if _, ok := r.feeds[sub]; ok {
					delete(r.feeds, sub)
					close(sub.events)
				}
			} else {
				if _, ok := r.watchers[sub]; ok {
					delete(r.watchers, sub)
					close(sub.snaps)
				}
			}
			drop(sub.boardID)

		case req := <-h.publishCh:
			r, ok := rooms[req.boardID]
			if !ok {
				continue
			}
			for sub := range r.feeds {
				select {
				case sub.events <- req.event:
				default:
					// Subscriber buffer full; skip to avoid blocking the loop.
				}
			}

		case req := <-h.cursorCh:
			get(req.boardID).cursors[req.userID] = cursorEntry{
				cursor: req.cursor,
				seen:   time.Now(),
			}

		case now := <-ticker.C:
			for boardID, r := range rooms {
				for userID, entry := range r.cursors {
					if now.Sub(entry.seen) > h.cursorTTL {
						delete(r.cursors, userID)
					}
				}
				if len(r.watchers) == 0 {
					drop(boardID)
					continue
				}
				snap := make(collab.PresenceSnapshot, len(r.cursors))
				for userID, entry := range r.cursors {
					snap[userID] = entry.cursor
				}
				for sub := range r.watchers {
					select {
					case sub.snaps <- snap:
					default:
					}
				}
			}

		case req := <-h.countReqCh:
			n := 0
			if r, ok := rooms[req.boardID]; ok {
				n = len(r.feeds) + len(r.watchers)
			}
			req.resp <- n
		}
	}
}

// Close stops the hub loop and closes every subscriber channel.
func (h *Hub) Close() {
	if h.closed.CompareAndSwap(false, true) {
		close(h.stopCh)
	}
	<-h.stopped
}

// PublishEvent broadcasts an element event to the board's feed subscribers.
func (h *Hub) PublishEvent(boardID string, ev collab.Event) {
	if h.closed.Load() {
		return
	}
	select {
	case h.publishCh <- publishReq{boardID: boardID, event: ev}:
	case <-h.stopped:
	}
}

// SubscriberCount returns the number of live subscriptions on a board.
func (h *Hub) SubscriberCount(boardID string) int {
	if h.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case h.countReqCh <- countReq{boardID: boardID, resp: resp}:
	case <-h.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-h.stopped:
		return 0
	}
}

func (h *Hub) subscribe(sub *subscriber) (func(), error) {
	if h.closed.Load() {
		return nil, errors.New("realtime: hub closed")
	}
	select {
	case h.subscribeCh <- sub:
	case <-h.stopped:
		return nil, errors.New("realtime: hub closed")
	}
	cancel := func() {
		select {
		case h.unsubscribeCh <- sub:
		case <-h.stopped:
		}
	}
	return cancel, nil
}

// Feed returns the hub's change-feed face.
func (h *Hub) Feed() collab.Feed { return feedView{h} }

// Presence returns the hub's presence-channel face.
func (h *Hub) Presence() collab.Presence { return presenceView{h} }

// feedView and presenceView split the hub across the two engine contracts;
// their Subscribe signatures differ, so one type cannot carry both.
type feedView struct{ h *Hub }

func (f feedView) Subscribe(_ context.Context, boardID string) (<-chan collab.Event, func(), error) {
	sub := &subscriber{boardID: boardID, events: make(chan collab.Event, 64)}
	cancel, err := f.h.subscribe(sub)
	if err != nil {
		return nil, nil, err
	}
	return sub.events, cancel, nil
}

type presenceView struct{ h *Hub }

func (p presenceView) Subscribe(_ context.Context, boardID string) (<-chan collab.PresenceSnapshot, func(), error) {
	sub := &subscriber{boardID: boardID, snaps: make(chan collab.PresenceSnapshot, 16)}
	cancel, err := p.h.subscribe(sub)
	if err != nil {
		return nil, nil, err
	}
	return sub.snaps, cancel, nil
}

func (p presenceView) Publish(_ context.Context, boardID, userID string, c collab.Cursor) error {
	if p.h.closed.Load() {
		return errors.New("realtime: hub closed")
	}
	select {
	case p.h.cursorCh <- cursorReq{boardID: boardID, userID: userID, cursor: c}:
		return nil
	case <-p.h.stopped:
		return errors.New("realtime: hub closed")
	}
}

var (
	_ collab.Feed     = feedView{}
	_ collab.Presence = presenceView{}
)
