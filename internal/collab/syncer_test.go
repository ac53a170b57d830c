package collab

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/geometry"
)

// fakeRemote is an in-memory Store that can be told to fail.
type fakeRemote struct {
	mu       sync.Mutex
	elements map[string]element.Element
	fail     bool
	updates  []element.Patch
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{elements: make(map[string]element.Element)}
}

func (f *fakeRemote) Fetch(_ context.Context, boardID string) ([]element.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("remote down")
	}
	var out []element.Element
	for _, e := range f.elements {
		if e.BoardID == boardID && !e.Deleted {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRemote) Insert(_ context.Context, e element.Element) (element.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return element.Element{}, errors.New("remote down")
	}
	if e.ID == "" {
		e.ID = "server-assigned"
	}
	e.CreatedAt = time.Now().UTC()
	f.elements[e.ID] = e
	return e, nil
}

func (f *fakeRemote) Update(_ context.Context, id string, p element.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("remote down")
	}
	f.updates = append(f.updates, p)
	if e, ok := f.elements[id]; ok {
		f.elements[id] = p.Apply(e)
	}
	return nil
}

type fakeFeed struct {
	ch chan Event
}

func (f *fakeFeed) Subscribe(context.Context, string) (<-chan Event, func(), error) {
	return f.ch, func() { close(f.ch) }, nil
}

type fakePresence struct {
	mu        sync.Mutex
	ch        chan PresenceSnapshot
	published []Cursor
}

func (f *fakePresence) Subscribe(context.Context, string) (<-chan PresenceSnapshot, func(), error) {
	return f.ch, func() { close(f.ch) }, nil
}

func (f *fakePresence) Publish(_ context.Context, _, _ string, c Cursor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, c)
	return nil
}

func (f *fakePresence) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func testSyncer(t *testing.T) (*Syncer, *element.Store, *fakeRemote, *fakeFeed, *fakePresence) {
	t.Helper()
	store := element.NewStore()
	remote := newFakeRemote()
	feed := &fakeFeed{ch: make(chan Event, 16)}
	presence := &fakePresence{ch: make(chan PresenceSnapshot, 16)}
	self := Identity{UserID: "me", Name: "Me", Color: "#00ff00"}
	s := NewSyncer(store, remote, feed, presence, "b1", self, 10*time.Millisecond, nil)
	return s, store, remote, feed, presence
}

func el(id, author string, layer int64) element.Element {
	return element.Element{
		ID: id, BoardID: "b1", AuthorID: author,
		Kind: element.KindRectangle, X: 0, Y: 0, W: 10, H: 10,
		Opacity: 1, Layer: layer,
	}
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestStartSeedsStore(t *testing.T) {
	s, store, remote, _, _ := testSyncer(t)
	remote.elements["a"] = el("a", "other", 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	if store.Len() != 1 {
		t.Errorf("store len = %d, want 1", store.Len())
	}
}

func TestStartFetchFailure(t *testing.T) {
	s, _, remote, _, _ := testSyncer(t)
	remote.fail = true
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	s.Stop()
}

func TestCreateOptimisticSurvivesFailure(t *testing.T) {
	s, store, remote, _, _ := testSyncer(t)
	remote.fail = true

	s.Create(context.Background(), el("x", "me", 1))

	// The local copy stands even though persistence failed.
	if _, ok := store.Get("x"); !ok {
		t.Error("optimistic element missing after failed insert")
	}
}

func TestCreateMergesServerFields(t *testing.T) {
	s, store, _, _, _ := testSyncer(t)

	e := el("", "me", 1)
	stored := s.Create(context.Background(), e)
	if stored.ID != "server-assigned" {
		t.Fatalf("stored id = %q", stored.ID)
	}
	if _, ok := store.Get("server-assigned"); !ok {
		t.Error("server-assigned element not merged back")
	}
}

func TestRemoteInsertSkipsOwnEcho(t *testing.T) {
	s, store, _, _, _ := testSyncer(t)

	s.ApplyRemote(Event{Type: EventInserted, Element: el("mine", "me", 0)})
	if _, ok := store.Get("mine"); ok {
		t.Error("own insert echo should be skipped")
	}

	s.ApplyRemote(Event{Type: EventInserted, Element: el("theirs", "other", 0)})
	if _, ok := store.Get("theirs"); !ok {
		t.Error("remote insert missing")
	}
}

func TestRemoteDeleteClearsSelection(t *testing.T) {
	s, store, _, feed, _ := testSyncer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	e := el("a", "other", 0)
	s.ApplyRemote(Event{Type: EventInserted, Element: e})
	store.Select("a")

	gone := e.Clone()
	gone.Deleted = true
	feed.ch <- Event{Type: EventUpdated, Element: gone}

	waitFor(t, func() bool {
		_, ok := store.Get("a")
		return !ok
	})
	if store.SelectedID() != "" {
		t.Error("selection not cleared by remote delete")
	}
}

func TestRemoteUpdateInsertsUnseen(t *testing.T) {
	s, store, _, _, _ := testSyncer(t)
	s.ApplyRemote(Event{Type: EventUpdated, Element: el("new", "other", 3)})
	if _, ok := store.Get("new"); !ok {
		t.Error("update for unseen element should insert it")
	}
}

func TestPresenceReplacedWholesaleExcludingSelf(t *testing.T) {
	s, _, _, _, presence := testSyncer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	presence.ch <- PresenceSnapshot{
		"me":    {Name: "Me"},
		"alice": {Name: "Alice", Point: geometry.Point{X: 1}},
		"bob":   {Name: "Bob"},
	}
	waitFor(t, func() bool { return len(s.RemoteCursors()) == 2 })

	if _, ok := s.RemoteCursors()["me"]; ok {
		t.Error("own cursor should be excluded")
	}

	// The next snapshot replaces everything; bob is gone.
	presence.ch <- PresenceSnapshot{"alice": {Name: "Alice"}}
	waitFor(t, func() bool { return len(s.RemoteCursors()) == 1 })
	if _, ok := s.RemoteCursors()["bob"]; ok {
		t.Error("stale cursor survived snapshot replacement")
	}
}

func TestCursorThrottleCoalesces(t *testing.T) {
	s, _, _, _, presence := testSyncer(t)
	ctx := context.Background()

	// A burst of 20 rapid moves collapses to the leading send plus one
	// trailing flush with the newest point.
	for i := 0; i < 20; i++ {
		s.PublishCursor(ctx, geometry.Point{X: float64(i)})
	}
	waitFor(t, func() bool { return presence.count() >= 2 })
	time.Sleep(30 * time.Millisecond)

	presence.mu.Lock()
	defer presence.mu.Unlock()
	if len(presence.published) > 3 {
		t.Errorf("throttle let %d sends through", len(presence.published))
	}
	last := presence.published[len(presence.published)-1]
	if last.Point.X != 19 {
		t.Errorf("trailing flush carried %v, want latest point 19", last.Point.X)
	}
}

func TestDeleteRemovesLocallyAndFlagsRemotely(t *testing.T) {
	s, store, remote, _, _ := testSyncer(t)
	stored := s.Create(context.Background(), el("a", "me", 0))

	s.Delete(context.Background(), stored.ID)
	if _, ok := store.Get(stored.ID); ok {
		t.Error("element still in store after delete")
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if !remote.elements[stored.ID].Deleted {
		t.Error("remote element not soft-deleted")
	}
}

func TestSetDeletedRestoresSnapshot(t *testing.T) {
	s, store, _, _, _ := testSyncer(t)
	e := s.Create(context.Background(), el("a", "me", 0))
	s.Delete(context.Background(), e.ID)

	s.SetDeleted(context.Background(), e.ID, false, e)
	got, ok := store.Get(e.ID)
	if !ok || got.Deleted {
		t.Error("snapshot not restored on un-delete")
	}
}
