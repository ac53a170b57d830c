package session

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/geometry"
	"github.com/starford/dagaz/internal/history"
	"github.com/starford/dagaz/internal/transform"
)

// Modifiers are the keyboard modifiers active during a pointer event. Snap
// locks shapes to squares and lines to 45-degree increments during a draw,
// and locks the aspect ratio during a resize. Zoom turns a wheel gesture
// into zooming, Pan forces panning regardless of tool.
type Modifiers struct {
	Snap bool
	Zoom bool
	Pan  bool
}

// PointerEvent is one pointer-device event in screen space.
type PointerEvent struct {
	Screen geometry.Point
	Middle bool
	Mods   Modifiers
}

// PointerDown routes a press to the state the active tool implies.
func (s *Session) PointerDown(ctx context.Context, ev PointerEvent) {
	if s.state == StateEditingText {
		s.CommitWriting(ctx)
	}

	if ev.Middle || ev.Mods.Pan || s.tool == ToolHand {
		s.state = StatePanning
		s.lastScreen = ev.Screen
		return
	}

	canvas := geometry.ScreenToCanvas(ev.Screen, s.camera)
	switch s.tool {
	case ToolSelect:
		s.selectDown(canvas)
	case ToolEraser:
		if !s.canEdit {
			return
		}
		s.state = StateErasing
		s.eraseAt(ctx, canvas)
	default:
		if kind, ok := drawKinds[s.tool]; ok {
			if !s.canEdit {
				return
			}
			s.beginDraw(kind, canvas)
		}
	}
}

// selectDown checks the selection's handles first, then the element bodies
// topmost first. A miss clears the selection.
func (s *Session) selectDown(canvas geometry.Point) {
	if sel, ok := s.store.Selected(); ok && s.canEdit {
		if h := s.handleAt(sel, canvas); h != geometry.HandleNone {
			if h == geometry.HandleRotation {
				if a, ok := transform.BeginRotate(sel, canvas); ok {
					s.action, s.origin, s.state = a, sel, StateRotating
				}
				return
			}
			if a, ok := transform.BeginResize(sel, h, canvas); ok {
				s.action, s.origin, s.state = a, sel, StateResizing
			}
			return
		}
	}

	hit, ok := s.store.HitTopmost(canvas, s.hitPad())
	if !ok {
		s.store.ClearSelection()
		s.state = StateIdle
		return
	}
	s.store.Select(hit.ID)
	if !s.canEdit {
		s.state = StateIdle
		return
	}
	if a, ok := transform.BeginMove(hit, canvas); ok {
		s.action, s.origin, s.state = a, hit, StateMoving
	}
}

// PointerMove advances the in-progress gesture and broadcasts the cursor.
func (s *Session) PointerMove(ctx context.Context, ev PointerEvent) {
	canvas := geometry.ScreenToCanvas(ev.Screen, s.camera)
	s.sync.PublishCursor(ctx, canvas)

	switch s.state {
	case StatePanning:
		delta := ev.Screen.Sub(s.lastScreen)
		s.camera.Pan = s.camera.Pan.Add(delta)
		s.lastScreen = ev.Screen
	case StateMoving:
		if cur, ok := s.store.Get(s.origin.ID); ok {
			s.store.Upsert(transform.Move(s.action, cur, canvas))
		}
	case StateResizing:
		s.store.Upsert(transform.Resize(s.action, canvas, ev.Mods.Snap))
	case StateRotating:
		if cur, ok := s.store.Get(s.origin.ID); ok {
			s.store.Upsert(transform.Rotate(s.action, cur, canvas))
		}
	case StateDrawing:
		s.extendDraw(canvas, ev.Mods.Snap)
	case StateErasing:
		s.eraseAt(ctx, canvas)
	}
}

// PointerUp commits or discards the gesture and returns to idle. Releasing
// the pointer is the only cancellation path for a gesture.
func (s *Session) PointerUp(ctx context.Context, _ PointerEvent) {
	switch s.state {
	case StateMoving, StateResizing, StateRotating:
		s.commitTransform(ctx)
	case StateDrawing:
		s.endDraw(ctx)
		if s.state == StateEditingText {
			return
		}
	}
	s.action = transform.Action{}
	s.origin = element.Element{}
	s.state = StateIdle
}

// Wheel handles a scroll gesture: with the zoom modifier it zooms about the
// pointer, otherwise it pans by the raw screen delta.
func (s *Session) Wheel(screen, delta geometry.Point, mods Modifiers) {
	if !mods.Zoom {
		s.camera.Pan = s.camera.Pan.Add(delta)
		return
	}

	factor := s.tun.WheelZoomStep
	if delta.Y > 0 {
		factor = 1 / factor
	}
	zoom := clamp(s.camera.Zoom*factor, s.tun.ZoomMin, s.tun.ZoomMax)
	if zoom == s.camera.Zoom {
		return
	}
	// Keep the canvas point under the pointer fixed across the zoom change.
	anchor := geometry.ScreenToCanvas(screen, s.camera)
	s.camera.Zoom = zoom
	s.camera.Pan = screen.Sub(geometry.Point{X: anchor.X * zoom, Y: anchor.Y * zoom})
}

// Hover returns the cursor name to display for the pointer position, or ""
// for the default cursor. Only the select tool shows handle cursors.
func (s *Session) Hover(screen geometry.Point) string {
	if s.tool != ToolSelect || s.state != StateIdle || !s.canEdit {
		return ""
	}
	sel, ok := s.store.Selected()
	if !ok {
		return ""
	}
	canvas := geometry.ScreenToCanvas(screen, s.camera)
	h := s.handleAt(sel, canvas)
	if h == geometry.HandleNone {
		return ""
	}
	return geometry.CursorFor(h, sel.Rotation)
}

func (s *Session) handleAt(e element.Element, canvas geometry.Point) geometry.Handle {
	b, ok := e.Bounds()
	if !ok {
		return geometry.HandleNone
	}
	return geometry.HandleAt(b, e.Rotation, canvas, s.camera.Zoom,
		s.tun.HandleThresholdPx, s.tun.RotationOffsetPx)
}

// hitPad is the body hit padding in canvas units. It scales with zoom like
// the handle thresholds, so the grab target stays pixel-constant.
func (s *Session) hitPad() float64 {
	if s.camera.Zoom <= 0 {
		return s.tun.HitPaddingPx
	}
	return s.tun.HitPaddingPx / s.camera.Zoom
}

// eraseAt soft-deletes the topmost element under the point.
func (s *Session) eraseAt(ctx context.Context, canvas geometry.Point) {
	hit, ok := s.store.HitTopmost(canvas, s.hitPad())
	if !ok {
		return
	}
	s.log.Record(history.Item{Op: history.OpDelete, ID: hit.ID, Snapshot: hit})
	s.sync.Delete(ctx, hit.ID)
}

// beginDraw creates the uncommitted draft element anchored at the press
// point. The draft lives only in the session until pointer-up.
func (s *Session) beginDraw(kind element.Kind, canvas geometry.Point) {
	d := element.Element{
		ID:          newDraftID(),
		BoardID:     s.boardID,
		AuthorID:    s.authorID,
		Kind:        kind,
		X:           canvas.X,
		Y:           canvas.Y,
		Stroke:      s.style.Stroke,
		Fill:        s.style.Fill,
		StrokeWidth: s.style.StrokeWidth,
		Opacity:     s.style.Opacity,
	}
	if len(s.style.Dash) > 0 {
		d.Dash = append([]float64(nil), s.style.Dash...)
	}
	if kind == element.KindPath {
		d.X, d.Y = 0, 0
		d.Points = []geometry.Point{canvas}
	}
	if kind == element.KindText {
		d.FontFamily = s.style.FontFamily
		d.FontSize = s.style.FontSize
		d.TextAlign = s.style.TextAlign
	}
	s.draft = &d
	s.state = StateDrawing
}

// Draft returns the in-progress drawing element, if any, so a renderer can
// show the shape while it is being dragged out. The draft enters the store
// only when the gesture commits.
func (s *Session) Draft() (element.Element, bool) {
	if s.draft == nil {
		return element.Element{}, false
	}
	return s.draft.Clone(), true
}

// extendDraw grows the draft toward the pointer. Snap locks shapes to
// squares and lines/arrows to 45-degree increments.
func (s *Session) extendDraw(canvas geometry.Point, snap bool) {
	d := s.draft
	if d == nil {
		return
	}
	if d.Kind == element.KindPath {
		d.Points = append(d.Points, canvas)
		return
	}

	w := canvas.X - d.X
	h := canvas.Y - d.Y
	if snap {
		switch d.Kind {
		case element.KindLine, element.KindArrow:
			w, h = snapVector(w, h)
		default:
			m := math.Max(math.Abs(w), math.Abs(h))
			w = math.Copysign(m, w)
			h = math.Copysign(m, h)
		}
	}
	d.W, d.H = w, h
}

// snapVector rounds the vector's direction to the nearest 45 degrees while
// keeping its length.
func snapVector(w, h float64) (float64, float64) {
	length := math.Hypot(w, h)
	if length == 0 {
		return 0, 0
	}
	angle := math.Atan2(h, w)
	step := math.Pi / 4
	angle = math.Round(angle/step) * step
	return length * math.Cos(angle), length * math.Sin(angle)
}

// endDraw normalizes and commits the draft. Shapes below the minimum size
// are discarded; a text draft always opens a writing node instead of
// committing, with its width raised to the default when the drag was
// smaller.
func (s *Session) endDraw(ctx context.Context) {
	d := s.draft
	s.draft = nil
	if d == nil {
		return
	}

	if d.Kind == element.KindPath {
		if len(d.Points) < 2 {
			return
		}
		s.commitDraft(ctx, *d)
		return
	}

	b, ok := d.Bounds()
	if !ok {
		return
	}
	d.X, d.Y, d.W, d.H = b.X, b.Y, b.W, b.H

	if d.Kind == element.KindText {
		if d.W < s.tun.DefaultTextWidth {
			d.W = s.tun.DefaultTextWidth
		}
		if minH := d.FontSize * 1.5; d.H < minH {
			d.H = minH
		}
		s.openWriting(Writing{
			Box:        geometry.Box{X: d.X, Y: d.Y, W: d.W, H: d.H},
			FontFamily: d.FontFamily,
			FontSize:   d.FontSize,
			TextAlign:  d.TextAlign,
			Stroke:     d.Stroke,
			Opacity:    d.Opacity,
		})
		return
	}

	if d.W < s.tun.MinShapeSize && d.H < s.tun.MinShapeSize {
		s.logger.Debug("session: draft below minimum size, discarded",
			slog.String("kind", string(d.Kind)))
		return
	}
	s.commitDraft(ctx, *d)
}

// commitDraft pushes the finished draft through the optimistic path,
// records its creation and selects it.
func (s *Session) commitDraft(ctx context.Context, d element.Element) {
	now := time.Now().UTC()
	d.Layer = s.store.NextLayer()
	d.CreatedAt = now
	d.UpdatedAt = now

	stored := s.sync.Create(ctx, d)
	s.log.Record(history.Item{Op: history.OpCreate, ID: stored.ID, Snapshot: stored})
	s.store.Select(stored.ID)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// blank reports whether a committed text would be empty.
func blank(text string) bool {
	return strings.TrimSpace(text) == ""
}
