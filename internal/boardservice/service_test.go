package boardservice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/collab"
	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/realtime"
	"github.com/starford/dagaz/internal/testutil"
)

type recordingThumbs struct {
	mu     sync.Mutex
	boards []string
}

func (r *recordingThumbs) Schedule(boardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boards = append(r.boards, boardID)
}

func (r *recordingThumbs) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

func testService(t *testing.T) (*Service, *realtime.Hub, *recordingThumbs) {
	t.Helper()
	db := testutil.TestDB(t)
	hub := realtime.NewHub(10 * time.Millisecond)
	t.Cleanup(hub.Close)
	thumbs := &recordingThumbs{}
	return NewService(db, hub, thumbs, nil), hub, thumbs
}

func TestInsertAssignsAndPublishes(t *testing.T) {
	svc, hub, thumbs := testService(t)
	ctx := context.Background()

	events, cancel, err := hub.Feed().Subscribe(ctx, "b1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	stored, err := svc.Insert(ctx, element.Element{
		BoardID: "b1", AuthorID: "alice", Kind: element.KindRectangle,
		W: 10, H: 10, Opacity: 1, Layer: element.LayerAuto,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if stored.ID == "" || stored.Layer != 1 {
		t.Errorf("server fields not assigned: %+v", stored)
	}

	select {
	case ev := <-events:
		if ev.Type != collab.EventInserted || ev.Element.ID != stored.ID {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("inserted event not published")
	}
	if thumbs.count() != 1 {
		t.Errorf("thumbnail schedules = %d, want 1", thumbs.count())
	}

	// The board row was created on first use.
	if _, err := svc.EnsureBoard(ctx, "b1"); err != nil {
		t.Errorf("board missing after insert: %v", err)
	}
}

func TestInsertRejectsInvalidElement(t *testing.T) {
	svc, _, _ := testService(t)
	if _, err := svc.Insert(context.Background(), element.Element{Kind: "blob"}); err == nil {
		t.Error("expected validation error")
	}
}

func TestUpdatePublishesFullElement(t *testing.T) {
	svc, hub, _ := testService(t)
	ctx := context.Background()

	stored, err := svc.Insert(ctx, element.Element{
		BoardID: "b1", Kind: element.KindRectangle, X: 0, W: 10, H: 10, Opacity: 1,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	events, cancel, err := hub.Feed().Subscribe(ctx, "b1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	x := 42.0
	updated, err := svc.Update(ctx, stored.ID, element.Patch{X: &x})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.X != 42 {
		t.Errorf("x = %v", updated.X)
	}

	select {
	case ev := <-events:
		if ev.Type != collab.EventUpdated || ev.Element.X != 42 {
			t.Errorf("event = %+v", ev)
		}
		// The event carries the full element, not just the patch.
		if ev.Element.W != 10 {
			t.Errorf("event element incomplete: %+v", ev.Element)
		}
	case <-time.After(time.Second):
		t.Fatal("updated event not published")
	}
}

func TestSoftDeleteTravelsAsUpdate(t *testing.T) {
	svc, hub, _ := testService(t)
	ctx := context.Background()

	stored, err := svc.Insert(ctx, element.Element{
		BoardID: "b1", Kind: element.KindLine, W: 10, Opacity: 1,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	events, cancel, err := hub.Feed().Subscribe(ctx, "b1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	deleted := true
	if _, err := svc.Update(ctx, stored.ID, element.Patch{Deleted: &deleted}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Type != collab.EventUpdated || !ev.Element.Deleted {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("delete event not published")
	}

	// Gone from fetch, restorable by undo.
	list, err := svc.Fetch(ctx, "b1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("fetch returned %d elements after delete", len(list))
	}
	if _, err := svc.GetElement(ctx, stored.ID); err != nil {
		t.Errorf("soft-deleted element unreachable: %v", err)
	}
}

func TestSyncerAgainstService(t *testing.T) {
	// End-to-end engine wiring: two syncers on the same board through the
	// service's store and hub.
	svc, hub, _ := testService(t)
	db := svc.db
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	aliceStore := element.NewStore()
	alice := collab.NewSyncer(aliceStore, db, hub.Feed(), hub.Presence(),
		"b1", collab.Identity{UserID: "alice"}, 10*time.Millisecond, nil)
	if err := alice.Start(ctx); err != nil {
		t.Fatalf("alice start: %v", err)
	}
	defer alice.Stop()

	bobStore := element.NewStore()
	bob := collab.NewSyncer(bobStore, db, hub.Feed(), hub.Presence(),
		"b1", collab.Identity{UserID: "bob"}, 10*time.Millisecond, nil)
	if err := bob.Start(ctx); err != nil {
		t.Fatalf("bob start: %v", err)
	}
	defer bob.Stop()

	// Alice draws through the service; bob receives the event.
	stored, err := svc.Insert(ctx, element.Element{
		BoardID: "b1", AuthorID: "alice", Kind: element.KindRectangle,
		W: 10, H: 10, Opacity: 1,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := bobStore.Get(stored.ID); ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("bob never received alice's element")
}
