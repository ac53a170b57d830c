package session

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/geometry"
	"github.com/starford/dagaz/internal/history"
)

// fakeSync applies mutations straight to the store, standing in for the
// synchronization layer's optimistic path.
type fakeSync struct {
	store   *element.Store
	created []element.Element
	updates []element.Patch
	deleted []string
	cursors []geometry.Point
}

func (f *fakeSync) Create(_ context.Context, e element.Element) element.Element {
	f.store.Upsert(e)
	f.created = append(f.created, e)
	return e
}

func (f *fakeSync) Update(_ context.Context, id string, p element.Patch) {
	f.updates = append(f.updates, p)
	if cur, ok := f.store.Get(id); ok {
		f.store.Upsert(p.Apply(cur))
	}
}

func (f *fakeSync) Delete(_ context.Context, id string) {
	f.deleted = append(f.deleted, id)
	f.store.Remove(id)
}

func (f *fakeSync) SetDeleted(_ context.Context, id string, deleted bool, snapshot element.Element) {
	if deleted {
		f.store.Remove(id)
		return
	}
	snapshot.Deleted = false
	f.store.Upsert(snapshot)
}

func (f *fakeSync) ApplyPatch(_ context.Context, id string, p element.Patch) {
	if cur, ok := f.store.Get(id); ok {
		f.store.Upsert(p.Apply(cur))
	}
}

func (f *fakeSync) PublishCursor(_ context.Context, p geometry.Point) {
	f.cursors = append(f.cursors, p)
}

func newSession(t *testing.T, canEdit bool) (*Session, *element.Store, *fakeSync) {
	t.Helper()
	store := element.NewStore()
	sync := &fakeSync{store: store}
	s := New(Config{
		Store:    store,
		Sync:     sync,
		History:  history.NewLog(0),
		BoardID:  "b1",
		AuthorID: "me",
		CanEdit:  canEdit,
	})
	return s, store, sync
}

func seedRect(store *element.Store, id string, x, y, w, h float64, layer int64) {
	store.Upsert(element.Element{
		ID: id, BoardID: "b1", AuthorID: "other",
		Kind: element.KindRectangle, X: x, Y: y, W: w, H: h,
		Opacity: 1, Layer: layer,
		CreatedAt: time.Unix(layer, 0),
	})
}

func down(s *Session, x, y float64) {
	s.PointerDown(context.Background(), PointerEvent{Screen: geometry.Point{X: x, Y: y}})
}

func move(s *Session, x, y float64) {
	s.PointerMove(context.Background(), PointerEvent{Screen: geometry.Point{X: x, Y: y}})
}

func up(s *Session, x, y float64) {
	s.PointerUp(context.Background(), PointerEvent{Screen: geometry.Point{X: x, Y: y}})
}

func TestDrawRectangleCommits(t *testing.T) {
	s, store, sync := newSession(t, true)
	ctx := context.Background()
	s.SetTool(ctx, ToolRectangle)

	down(s, 10, 10)
	if s.State() != StateDrawing {
		t.Fatalf("state = %q, want drawing", s.State())
	}
	move(s, 110, 60)
	up(s, 110, 60)

	if len(sync.created) != 1 {
		t.Fatalf("created %d elements, want 1", len(sync.created))
	}
	e := sync.created[0]
	if e.Kind != element.KindRectangle || e.W != 100 || e.H != 50 {
		t.Errorf("committed %v %vx%v", e.Kind, e.W, e.H)
	}
	if store.SelectedID() != e.ID {
		t.Error("new element not selected")
	}
	if s.State() != StateIdle {
		t.Errorf("state = %q after commit", s.State())
	}
}

func TestDrawNormalizesNegativeDrag(t *testing.T) {
	s, _, sync := newSession(t, true)
	s.SetTool(context.Background(), ToolEllipse)

	// Drag up and to the left.
	down(s, 100, 100)
	move(s, 40, 70)
	up(s, 40, 70)

	e := sync.created[0]
	if e.X != 40 || e.Y != 70 || e.W != 60 || e.H != 30 {
		t.Errorf("got box (%v,%v,%v,%v), want (40,70,60,30)", e.X, e.Y, e.W, e.H)
	}
}

func TestDraftVisibleMidGesture(t *testing.T) {
	s, store, _ := newSession(t, true)
	ctx := context.Background()
	s.SetTool(ctx, ToolRectangle)

	if _, ok := s.Draft(); ok {
		t.Error("draft present before any gesture")
	}

	down(s, 10, 10)
	move(s, 60, 40)

	d, ok := s.Draft()
	if !ok {
		t.Fatal("no draft mid-gesture")
	}
	if d.Kind != element.KindRectangle || d.W != 50 || d.H != 30 {
		t.Errorf("draft = %v %vx%v", d.Kind, d.W, d.H)
	}
	if store.Len() != 0 {
		t.Error("draft entered the store before commit")
	}

	up(s, 60, 40)
	if _, ok := s.Draft(); ok {
		t.Error("draft survived commit")
	}
	if store.Len() != 1 {
		t.Errorf("store has %d elements after commit, want 1", store.Len())
	}
}

func TestSubThresholdShapeDiscarded(t *testing.T) {
	s, store, _ := newSession(t, true)
	s.SetTool(context.Background(), ToolRectangle)

	down(s, 10, 10)
	move(s, 12, 11)
	up(s, 12, 11)

	if store.Len() != 0 {
		t.Error("sub-threshold shape should be discarded")
	}
	if s.Undo(context.Background()) {
		t.Error("discard should not record history")
	}
}

func TestTextDragOpensWritingSession(t *testing.T) {
	s, store, _ := newSession(t, true)
	ctx := context.Background()
	s.SetTool(ctx, ToolText)

	// Width 10 is below the minimum but text is never discarded: the box
	// widens to the default and a writing session opens instead.
	down(s, 0, 0)
	move(s, 10, 4)
	up(s, 10, 4)

	if s.State() != StateEditingText {
		t.Fatalf("state = %q, want editing-text", s.State())
	}
	w, ok := s.Writing()
	if !ok {
		t.Fatal("no writing node")
	}
	if w.Box.W != 100 {
		t.Errorf("writing width = %v, want default 100", w.Box.W)
	}
	if store.Len() != 0 {
		t.Error("element committed before writing finished")
	}

	s.SetText("hello")
	s.CommitWriting(ctx)
	if store.Len() != 1 {
		t.Fatal("text element not committed")
	}
	got := store.List()[0]
	if got.Text != "hello" || got.W != 100 {
		t.Errorf("committed text %q width %v", got.Text, got.W)
	}
}

func TestBlankTextDiscarded(t *testing.T) {
	s, store, _ := newSession(t, true)
	ctx := context.Background()
	s.SetTool(ctx, ToolText)

	down(s, 0, 0)
	up(s, 5, 5)
	s.SetText("   \n\t")
	s.CommitWriting(ctx)

	if store.Len() != 0 {
		t.Error("blank text should be discarded without persisting")
	}
}

func TestDoubleClickEditsExistingText(t *testing.T) {
	s, store, sync := newSession(t, true)
	ctx := context.Background()
	store.Upsert(element.Element{
		ID: "t1", BoardID: "b1", Kind: element.KindText,
		X: 0, Y: 0, W: 120, H: 30, Text: "old", Opacity: 1,
	})

	s.DoubleClick(ctx, PointerEvent{Screen: geometry.Point{X: 50, Y: 15}})
	if s.State() != StateEditingText {
		t.Fatalf("state = %q, want editing-text", s.State())
	}
	w, _ := s.Writing()
	if w.ElementID != "t1" || w.Text != "old" {
		t.Fatalf("writing node = %+v", w)
	}

	s.SetText("new")
	s.CommitWriting(ctx)
	got, _ := store.Get("t1")
	if got.Text != "new" {
		t.Errorf("text = %q after commit", got.Text)
	}
	if len(sync.updates) != 1 {
		t.Errorf("updates = %d, want 1", len(sync.updates))
	}
}

func TestSelectMoveUndo(t *testing.T) {
	s, store, _ := newSession(t, true)
	ctx := context.Background()
	seedRect(store, "a", 0, 0, 100, 50, 0)

	down(s, 50, 25)
	if s.State() != StateMoving {
		t.Fatalf("state = %q, want moving", s.State())
	}
	move(s, 80, 45)
	up(s, 80, 45)

	got, _ := store.Get("a")
	if got.X != 30 || got.Y != 20 {
		t.Fatalf("moved to (%v,%v), want (30,20)", got.X, got.Y)
	}

	if !s.Undo(ctx) {
		t.Fatal("undo unavailable")
	}
	got, _ = store.Get("a")
	if got.X != 0 || got.Y != 0 {
		t.Errorf("undo left element at (%v,%v)", got.X, got.Y)
	}
	if !s.Redo(ctx) {
		t.Fatal("redo unavailable")
	}
	got, _ = store.Get("a")
	if got.X != 30 || got.Y != 20 {
		t.Errorf("redo left element at (%v,%v)", got.X, got.Y)
	}
}

func TestHandleEntersResizeAndRotate(t *testing.T) {
	s, store, _ := newSession(t, true)
	seedRect(store, "a", 0, 0, 100, 50, 0)
	store.Select("a")

	down(s, 100, 50) // se corner
	if s.State() != StateResizing {
		t.Fatalf("state = %q, want resizing", s.State())
	}
	up(s, 100, 50)

	down(s, 50, -24) // rotation handle above the top edge
	if s.State() != StateRotating {
		t.Fatalf("state = %q, want rotating", s.State())
	}
	up(s, 50, -24)
}

func TestResizeGestureGrowsElement(t *testing.T) {
	s, store, _ := newSession(t, true)
	seedRect(store, "a", 0, 0, 100, 50, 0)
	store.Select("a")

	down(s, 100, 25) // e handle
	move(s, 120, 25)
	up(s, 120, 25)

	got, _ := store.Get("a")
	if math.Abs(got.W-120) > 1e-9 || math.Abs(got.H-50) > 1e-9 {
		t.Errorf("resized to %vx%v, want 120x50", got.W, got.H)
	}
}

func TestMissClearsSelection(t *testing.T) {
	s, store, _ := newSession(t, true)
	seedRect(store, "a", 0, 0, 100, 50, 0)
	store.Select("a")

	down(s, 500, 500)
	if store.SelectedID() != "" {
		t.Error("selection not cleared on miss")
	}
	if s.State() != StateIdle {
		t.Errorf("state = %q, want idle", s.State())
	}
}

func TestPanning(t *testing.T) {
	s, _, _ := newSession(t, true)
	s.PointerDown(context.Background(), PointerEvent{Screen: geometry.Point{X: 10, Y: 10}, Middle: true})
	if s.State() != StatePanning {
		t.Fatalf("state = %q, want panning", s.State())
	}
	move(s, 30, 15)
	up(s, 30, 15)

	if pan := s.Camera().Pan; pan.X != 20 || pan.Y != 5 {
		t.Errorf("pan = %+v, want (20,5)", pan)
	}
}

func TestWheelZoomClampsAndAnchorsPointer(t *testing.T) {
	s, _, _ := newSession(t, true)
	screen := geometry.Point{X: 200, Y: 150}
	before := geometry.ScreenToCanvas(screen, s.Camera())

	s.Wheel(screen, geometry.Point{Y: -1}, Modifiers{Zoom: true})
	if s.Camera().Zoom <= 1 {
		t.Fatalf("zoom = %v, want > 1", s.Camera().Zoom)
	}
	after := geometry.ScreenToCanvas(screen, s.Camera())
	if math.Abs(after.X-before.X) > 1e-9 || math.Abs(after.Y-before.Y) > 1e-9 {
		t.Errorf("anchored point drifted %+v -> %+v", before, after)
	}

	for i := 0; i < 100; i++ {
		s.Wheel(screen, geometry.Point{Y: -1}, Modifiers{Zoom: true})
	}
	if s.Camera().Zoom != 5 {
		t.Errorf("zoom = %v, want clamp at 5", s.Camera().Zoom)
	}
	for i := 0; i < 200; i++ {
		s.Wheel(screen, geometry.Point{Y: 1}, Modifiers{Zoom: true})
	}
	if s.Camera().Zoom != 0.1 {
		t.Errorf("zoom = %v, want clamp at 0.1", s.Camera().Zoom)
	}
}

func TestWheelWithoutModifierPans(t *testing.T) {
	s, _, _ := newSession(t, true)
	s.Wheel(geometry.Point{}, geometry.Point{X: -30, Y: 12}, Modifiers{})
	if pan := s.Camera().Pan; pan.X != -30 || pan.Y != 12 {
		t.Errorf("pan = %+v, want (-30,12)", pan)
	}
	if s.Camera().Zoom != 1 {
		t.Errorf("zoom changed to %v", s.Camera().Zoom)
	}
}

func TestEraserDeletesAndUndoes(t *testing.T) {
	s, store, sync := newSession(t, true)
	ctx := context.Background()
	seedRect(store, "a", 0, 0, 100, 50, 0)
	s.SetTool(ctx, ToolEraser)

	down(s, 50, 25)
	up(s, 50, 25)
	if store.Len() != 0 {
		t.Fatal("element not erased")
	}
	if len(sync.deleted) != 1 || sync.deleted[0] != "a" {
		t.Errorf("deleted = %v", sync.deleted)
	}

	if !s.Undo(ctx) {
		t.Fatal("undo unavailable")
	}
	if _, ok := store.Get("a"); !ok {
		t.Error("undo did not restore the erased element")
	}
}

func TestSnapLocksShapesToSquares(t *testing.T) {
	s, _, sync := newSession(t, true)
	s.SetTool(context.Background(), ToolRectangle)

	down(s, 0, 0)
	s.PointerMove(context.Background(), PointerEvent{
		Screen: geometry.Point{X: 100, Y: 40},
		Mods:   Modifiers{Snap: true},
	})
	up(s, 100, 40)

	e := sync.created[0]
	if e.W != 100 || e.H != 100 {
		t.Errorf("snapped to %vx%v, want 100x100", e.W, e.H)
	}
}

func TestSnapLocksLinesTo45Degrees(t *testing.T) {
	s, _, sync := newSession(t, true)
	s.SetTool(context.Background(), ToolLine)

	down(s, 0, 0)
	s.PointerMove(context.Background(), PointerEvent{
		Screen: geometry.Point{X: 100, Y: 80},
		Mods:   Modifiers{Snap: true},
	})
	up(s, 100, 80)

	e := sync.created[0]
	if math.Abs(e.W-e.H) > 1e-9 {
		t.Errorf("vector (%v,%v) not on a 45-degree diagonal", e.W, e.H)
	}
}

func TestPathDraw(t *testing.T) {
	s, _, sync := newSession(t, true)
	ctx := context.Background()
	s.SetTool(ctx, ToolPath)

	down(s, 0, 0)
	move(s, 5, 5)
	move(s, 10, 3)
	up(s, 10, 3)

	if len(sync.created) != 1 {
		t.Fatal("path not committed")
	}
	if got := len(sync.created[0].Points); got != 3 {
		t.Errorf("path has %d points, want 3", got)
	}

	// A press with no movement has a single point and is discarded.
	down(s, 50, 50)
	up(s, 50, 50)
	if len(sync.created) != 1 {
		t.Error("degenerate path should be discarded")
	}
}

func TestSendToBack(t *testing.T) {
	s, store, _ := newSession(t, true)
	ctx := context.Background()
	seedRect(store, "a", 0, 0, 10, 10, 0)
	seedRect(store, "b", 100, 100, 10, 10, 1)
	store.Select("b")

	s.SendToBack(ctx)
	a, _ := store.Get("a")
	b, _ := store.Get("b")
	if b.Layer >= a.Layer {
		t.Errorf("b layer %d not below a layer %d", b.Layer, a.Layer)
	}
	if store.List()[0].ID != "b" {
		t.Error("b not first in render order")
	}
	if !s.Undo(ctx) {
		t.Fatal("undo unavailable")
	}
	b, _ = store.Get("b")
	if b.Layer != 1 {
		t.Errorf("undo left b at layer %d", b.Layer)
	}
}

func TestBringToFront(t *testing.T) {
	s, store, _ := newSession(t, true)
	seedRect(store, "a", 0, 0, 10, 10, 0)
	seedRect(store, "b", 100, 100, 10, 10, 1)
	store.Select("a")

	s.BringToFront(context.Background())
	a, _ := store.Get("a")
	b, _ := store.Get("b")
	if a.Layer <= b.Layer {
		t.Errorf("a layer %d not above b layer %d", a.Layer, b.Layer)
	}
}

func TestUndoRedoCreateSequence(t *testing.T) {
	s, store, _ := newSession(t, true)
	ctx := context.Background()
	s.SetTool(ctx, ToolRectangle)

	for i := 0; i < 3; i++ {
		x := float64(i * 100)
		down(s, x, 0)
		move(s, x+50, 50)
		up(s, x+50, 50)
	}
	if store.Len() != 3 {
		t.Fatalf("store len = %d, want 3", store.Len())
	}

	for s.Undo(ctx) {
	}
	if store.Len() != 0 {
		t.Fatalf("store len = %d after full undo", store.Len())
	}
	for s.Redo(ctx) {
	}
	if store.Len() != 3 {
		t.Fatalf("store len = %d after full redo", store.Len())
	}
}

func TestHoverShowsHandleCursor(t *testing.T) {
	s, store, _ := newSession(t, true)
	seedRect(store, "a", 0, 0, 100, 50, 0)
	store.Select("a")

	if c := s.Hover(geometry.Point{X: 100, Y: 50}); c != geometry.CursorNWSE {
		t.Errorf("se corner cursor = %q, want %q", c, geometry.CursorNWSE)
	}
	if c := s.Hover(geometry.Point{X: 500, Y: 500}); c != "" {
		t.Errorf("cursor over empty canvas = %q", c)
	}
}

func TestPointerMoveBroadcastsCursor(t *testing.T) {
	s, _, sync := newSession(t, true)
	move(s, 10, 20)
	if len(sync.cursors) != 1 {
		t.Fatalf("published %d cursors, want 1", len(sync.cursors))
	}
	if sync.cursors[0] != (geometry.Point{X: 10, Y: 20}) {
		t.Errorf("cursor = %+v", sync.cursors[0])
	}
}

func TestReadOnlySession(t *testing.T) {
	s, store, sync := newSession(t, false)
	ctx := context.Background()
	seedRect(store, "a", 0, 0, 100, 50, 0)

	// Mutating tools fall back to select.
	s.SetTool(ctx, ToolRectangle)
	if s.Tool() != ToolSelect {
		t.Errorf("tool = %q, want fallback to select", s.Tool())
	}
	s.SetTool(ctx, ToolHand)
	if s.Tool() != ToolHand {
		t.Error("hand tool should stay reachable")
	}
	s.SetTool(ctx, ToolSelect)

	// Selection works but no transform starts.
	down(s, 50, 25)
	if store.SelectedID() != "a" {
		t.Error("selection should work read-only")
	}
	if s.State() != StateIdle {
		t.Errorf("state = %q, want idle", s.State())
	}
	up(s, 50, 25)

	s.DeleteSelection(ctx)
	if store.Len() != 1 {
		t.Error("delete should be disabled")
	}
	if s.Undo(ctx) || s.Redo(ctx) {
		t.Error("history should be disabled")
	}
	if len(sync.created)+len(sync.updates)+len(sync.deleted) != 0 {
		t.Errorf("mutations escaped a read-only session")
	}
}
