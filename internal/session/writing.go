package session

import (
	"context"
	"time"

	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/geometry"
	"github.com/starford/dagaz/internal/history"
)

// Writing is the transient text-editing node: uncommitted text plus the
// position and style it will carry. ElementID is empty while composing a
// new element and set when editing an existing one.
type Writing struct {
	ElementID string
	Box       geometry.Box
	Text      string

	FontFamily string
	FontSize   float64
	TextAlign  string
	Stroke     string
	Opacity    float64
}

// Writing returns the active text-editing node, if any.
func (s *Session) Writing() (Writing, bool) {
	if s.writing == nil {
		return Writing{}, false
	}
	return *s.writing, true
}

// SetText replaces the uncommitted text. No-op outside text editing.
func (s *Session) SetText(text string) {
	if s.writing != nil {
		s.writing.Text = text
	}
}

// DoubleClick opens a writing node over an existing text element under the
// pointer. Other kinds and misses are ignored.
func (s *Session) DoubleClick(ctx context.Context, ev PointerEvent) {
	if !s.canEdit || s.tool != ToolSelect {
		return
	}
	canvas := geometry.ScreenToCanvas(ev.Screen, s.camera)
	hit, ok := s.store.HitTopmost(canvas, s.hitPad())
	if !ok || hit.Kind != element.KindText {
		return
	}
	b, ok := hit.Bounds()
	if !ok {
		return
	}
	s.store.Select(hit.ID)
	s.openWriting(Writing{
		ElementID:  hit.ID,
		Box:        b,
		Text:       hit.Text,
		FontFamily: hit.FontFamily,
		FontSize:   hit.FontSize,
		TextAlign:  hit.TextAlign,
		Stroke:     hit.Stroke,
		Opacity:    hit.Opacity,
	})
}

func (s *Session) openWriting(w Writing) {
	s.writing = &w
	s.state = StateEditingText
}

// CommitWriting ends text editing: a new element is created, an existing
// one updated. A blank result is discarded without persisting anything.
func (s *Session) CommitWriting(ctx context.Context) {
	w := s.writing
	s.writing = nil
	s.state = StateIdle
	if w == nil || !s.canEdit {
		return
	}
	if blank(w.Text) {
		return
	}

	if w.ElementID != "" {
		prev, ok := s.store.Get(w.ElementID)
		if !ok {
			return
		}
		next := prev.Clone()
		next.Text = w.Text
		forward, inverse := element.Diff(prev, next)
		if forward.IsEmpty() {
			return
		}
		s.log.Record(history.Item{
			Op:   history.OpUpdate,
			ID:   w.ElementID,
			Prev: inverse,
			Next: forward,
		})
		s.sync.Update(ctx, w.ElementID, forward)
		return
	}

	now := time.Now().UTC()
	e := element.Element{
		ID:         newDraftID(),
		BoardID:    s.boardID,
		AuthorID:   s.authorID,
		Kind:       element.KindText,
		X:          w.Box.X,
		Y:          w.Box.Y,
		W:          w.Box.W,
		H:          w.Box.H,
		Text:       w.Text,
		FontFamily: w.FontFamily,
		FontSize:   w.FontSize,
		TextAlign:  w.TextAlign,
		Stroke:     w.Stroke,
		Opacity:    w.Opacity,
		Layer:      s.store.NextLayer(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	stored := s.sync.Create(ctx, e)
	s.log.Record(history.Item{Op: history.OpCreate, ID: stored.ID, Snapshot: stored})
	s.store.Select(stored.ID)
}

// DiscardWriting drops the writing node without committing.
func (s *Session) DiscardWriting() {
	s.writing = nil
	s.state = StateIdle
}
