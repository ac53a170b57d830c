// Package session implements the interaction state machine for one client
// on one board: the active tool, the explicit gesture state, camera pan and
// zoom, text editing, and the wiring of committed mutations into the
// history log and the synchronization layer.
//
// The session owns Selection, Camera and the in-progress transform; none of
// these are ever transmitted. Each handler is a single synchronous
// read-modify-write step, so remote merges interleave only between
// handlers, never inside one.
package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/starford/dagaz/internal/collab"
	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/geometry"
	"github.com/starford/dagaz/internal/history"
	"github.com/starford/dagaz/internal/transform"
)

// Tool is the active editing tool.
type Tool string

// Tools.
const (
	ToolSelect    Tool = "select"
	ToolHand      Tool = "hand"
	ToolEraser    Tool = "eraser"
	ToolPath      Tool = "path"
	ToolRectangle Tool = "rectangle"
	ToolDiamond   Tool = "diamond"
	ToolEllipse   Tool = "ellipse"
	ToolLine      Tool = "line"
	ToolArrow     Tool = "arrow"
	ToolText      Tool = "text"
)

// drawKinds maps drawing tools to the element kind they create.
var drawKinds = map[Tool]element.Kind{
	ToolPath:      element.KindPath,
	ToolRectangle: element.KindRectangle,
	ToolDiamond:   element.KindDiamond,
	ToolEllipse:   element.KindEllipse,
	ToolLine:      element.KindLine,
	ToolArrow:     element.KindArrow,
	ToolText:      element.KindText,
}

// State is the explicit gesture state. One handler per state replaces
// overlapping tool-plus-button conditionals; entering a transform state
// without a selection is unreachable by construction.
type State string

// States.
const (
	StateIdle        State = "idle"
	StateDrawing     State = "drawing"
	StateMoving      State = "moving"
	StateResizing    State = "resizing"
	StateRotating    State = "rotating"
	StateErasing     State = "erasing"
	StatePanning     State = "panning"
	StateEditingText State = "editing-text"
)

// Mutator is the synchronization layer as the session consumes it:
// optimistic local mutation plus persistence plus cursor broadcast.
type Mutator interface {
	Create(ctx context.Context, e element.Element) element.Element
	Update(ctx context.Context, id string, p element.Patch)
	Delete(ctx context.Context, id string)
	SetDeleted(ctx context.Context, id string, deleted bool, snapshot element.Element)
	ApplyPatch(ctx context.Context, id string, p element.Patch)
	PublishCursor(ctx context.Context, p geometry.Point)
}

var _ Mutator = (*collab.Syncer)(nil)

// Tunables are the interaction constants. Pixel values are screen pixels
// and divided by zoom where canvas units are needed, so hit targets keep a
// constant apparent size at any zoom.
type Tunables struct {
	HitPaddingPx      float64 `yaml:"hit_padding_px"`
	HandleThresholdPx float64 `yaml:"handle_threshold_px"`
	RotationOffsetPx  float64 `yaml:"rotation_offset_px"`
	MinShapeSize      float64 `yaml:"min_shape_size"`
	DefaultTextWidth  float64 `yaml:"default_text_width"`
	ZoomMin           float64 `yaml:"zoom_min"`
	ZoomMax           float64 `yaml:"zoom_max"`
	WheelZoomStep     float64 `yaml:"wheel_zoom_step"`
}

// DefaultTunables returns the stock interaction constants.
func DefaultTunables() Tunables {
	return Tunables{
		HitPaddingPx:      8,
		HandleThresholdPx: 8,
		RotationOffsetPx:  24,
		MinShapeSize:      4,
		DefaultTextWidth:  100,
		ZoomMin:           0.1,
		ZoomMax:           5,
		WheelZoomStep:     1.1,
	}
}

// Style holds the drawing defaults applied to new elements.
type Style struct {
	Stroke      string
	Fill        string
	StrokeWidth float64
	Dash        []float64
	Opacity     float64
	FontFamily  string
	FontSize    float64
	TextAlign   string
}

// DefaultStyle returns the stock drawing style.
func DefaultStyle() Style {
	return Style{
		Stroke:      "#1e1e1e",
		StrokeWidth: 2,
		Opacity:     1,
		FontFamily:  "Helvetica",
		FontSize:    16,
		TextAlign:   "left",
	}
}

// Config assembles a session.
type Config struct {
	Store    *element.Store
	Sync     Mutator
	History  *history.Log
	BoardID  string
	AuthorID string
	CanEdit  bool
	Tunables Tunables
	Logger   *slog.Logger
}

// Session is the interaction controller for one client on one board.
// It is driven from a single event loop and is not safe for concurrent use.
type Session struct {
	store *element.Store
	sync  Mutator
	log   *history.Log

	boardID  string
	authorID string
	canEdit  bool
	tun      Tunables
	logger   *slog.Logger

	tool   Tool
	state  State
	camera geometry.Camera
	style  Style

	action  transform.Action
	origin  element.Element // selected element at gesture start
	draft   *element.Element
	writing *Writing

	lastScreen geometry.Point
}

// New creates a session in the idle state with the select tool active.
func New(cfg Config) *Session {
	if cfg.Tunables == (Tunables{}) {
		cfg.Tunables = DefaultTunables()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		store:    cfg.Store,
		sync:     cfg.Sync,
		log:      cfg.History,
		boardID:  cfg.BoardID,
		authorID: cfg.AuthorID,
		canEdit:  cfg.CanEdit,
		tun:      cfg.Tunables,
		logger:   cfg.Logger,
		tool:     ToolSelect,
		state:    StateIdle,
		camera:   geometry.NewCamera(),
		style:    DefaultStyle(),
	}
}

// State returns the current gesture state.
func (s *Session) State() State { return s.state }

// Tool returns the active tool.
func (s *Session) Tool() Tool { return s.tool }

// CanEdit reports whether this session may mutate the board.
func (s *Session) CanEdit() bool { return s.canEdit }

// Camera returns the current view transform.
func (s *Session) Camera() geometry.Camera { return s.camera }

// SetStyle replaces the drawing defaults for new elements.
func (s *Session) SetStyle(st Style) { s.style = st }

// SetTool switches the active tool. Switching away from text editing
// commits the writing node first. Without edit permission only the select
// and hand tools are reachable; anything else falls back to select.
func (s *Session) SetTool(ctx context.Context, t Tool) {
	if s.state == StateEditingText {
		s.CommitWriting(ctx)
	}
	if !s.canEdit && t != ToolSelect && t != ToolHand {
		t = ToolSelect
	}
	s.tool = t
	s.state = StateIdle
	s.draft = nil
	s.action = transform.Action{}
}

// Undo reverses the most recent local mutation. No-op without edit
// permission or with an empty log.
func (s *Session) Undo(ctx context.Context) bool {
	if !s.canEdit {
		return false
	}
	return s.log.Undo(applier{ctx: ctx, sync: s.sync})
}

// Redo re-applies the most recently undone mutation.
func (s *Session) Redo(ctx context.Context) bool {
	if !s.canEdit {
		return false
	}
	return s.log.Redo(applier{ctx: ctx, sync: s.sync})
}

// DeleteSelection soft-deletes the selected element and records it so undo
// can restore it.
func (s *Session) DeleteSelection(ctx context.Context) {
	if !s.canEdit {
		return
	}
	e, ok := s.store.Selected()
	if !ok {
		return
	}
	s.log.Record(history.Item{Op: history.OpDelete, ID: e.ID, Snapshot: e})
	s.sync.Delete(ctx, e.ID)
}

// BringToFront moves the selected element above every other element.
func (s *Session) BringToFront(ctx context.Context) {
	e, ok := s.store.Selected()
	if !ok {
		return
	}
	s.setLayer(ctx, e, s.store.NextLayer())
}

// SendToBack moves the selected element below every other element.
func (s *Session) SendToBack(ctx context.Context) {
	e, ok := s.store.Selected()
	if !ok {
		return
	}
	min, _, ok := s.store.LayerBounds()
	if !ok {
		return
	}
	s.setLayer(ctx, e, min-1)
}

func (s *Session) setLayer(ctx context.Context, e element.Element, layer int64) {
	if !s.canEdit || e.Layer == layer {
		return
	}
	prev, next := e.Layer, layer
	s.log.Record(history.Item{
		Op:   history.OpUpdate,
		ID:   e.ID,
		Prev: element.Patch{Layer: &prev},
		Next: element.Patch{Layer: &next},
	})
	s.sync.Update(ctx, e.ID, element.Patch{Layer: &next})
}

// commitTransform ends a move/resize/rotate gesture: diff the element
// against its pre-gesture snapshot, record the history item and persist.
func (s *Session) commitTransform(ctx context.Context) {
	final, ok := s.store.Get(s.origin.ID)
	if !ok {
		return
	}
	forward, inverse := element.Diff(s.origin, final)
	if forward.IsEmpty() {
		return
	}
	s.log.Record(history.Item{
		Op:   history.OpUpdate,
		ID:   final.ID,
		Prev: inverse,
		Next: forward,
	})
	s.sync.Update(ctx, final.ID, forward)
}

// applier adapts the session's synchronization layer to the history log.
// Every replayed effect goes through the same optimistic path as a live
// mutation.
type applier struct {
	ctx  context.Context
	sync Mutator
}

func (a applier) SetDeleted(id string, deleted bool, snapshot element.Element) {
	a.sync.SetDeleted(a.ctx, id, deleted, snapshot)
}

func (a applier) ApplyPatch(id string, p element.Patch) {
	a.sync.ApplyPatch(a.ctx, id, p)
}

var _ history.Applier = applier{}

// newDraftID returns the client-assigned id for a new element. Assigning
// ids locally keeps history items valid before the insert acknowledges.
func newDraftID() string {
	return uuid.NewString()
}
