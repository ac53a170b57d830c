// Package element defines the drawable element model, partial-attribute
// patches, and the in-memory ordered store that holds a board's elements on
// the client side.
package element

import (
	"math"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dagaz/internal/geometry"
)

// Kind discriminates the element geometry and rendering.
type Kind string

// Element kinds.
const (
	KindPath      Kind = "path"
	KindRectangle Kind = "rectangle"
	KindDiamond   Kind = "diamond"
	KindEllipse   Kind = "ellipse"
	KindLine      Kind = "line"
	KindArrow     Kind = "arrow"
	KindText      Kind = "text"
	KindImage     Kind = "image"
)

// Kinds lists every valid element kind.
var Kinds = []Kind{
	KindPath, KindRectangle, KindDiamond, KindEllipse,
	KindLine, KindArrow, KindText, KindImage,
}

// Element is one drawable object on a board.
//
// Exactly one geometry representation is authoritative per kind: Points for
// path elements, X/Y/W/H for everything else. The bounding box is always
// derived via Bounds, never stored. W and H may be negative while a gesture
// is in progress; they are normalized on commit.
type Element struct {
	ID       string `json:"id"`
	BoardID  string `json:"board_id"`
	AuthorID string `json:"author_id"`
	Kind     Kind   `json:"kind"`

	X      float64          `json:"x"`
	Y      float64          `json:"y"`
	W      float64          `json:"w"`
	H      float64          `json:"h"`
	Points []geometry.Point `json:"points,omitempty"`

	Stroke      string    `json:"stroke,omitempty"`
	Fill        string    `json:"fill,omitempty"`
	StrokeWidth float64   `json:"stroke_width,omitempty"`
	Dash        []float64 `json:"dash,omitempty"`
	Opacity     float64   `json:"opacity"`

	// Rotation is in degrees; 0 means unrotated. It is unbounded in
	// storage and reduced modulo 360 only for display logic.
	Rotation float64 `json:"rotation,omitempty"`

	Text       string  `json:"text,omitempty"`
	FontFamily string  `json:"font_family,omitempty"`
	FontSize   float64 `json:"font_size,omitempty"`
	TextAlign  string  `json:"text_align,omitempty"`

	// URL is the asset location for image elements.
	URL string `json:"url,omitempty"`

	Layer     int64     `json:"layer"`
	Deleted   bool      `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LayerAuto asks the persistent store to place the element on top. Wire
// decoders map an absent layer field to it, so an explicit layer, zero
// included, stays distinct from "unset". Send-to-back can drive layers to
// zero and below legitimately.
const LayerAuto int64 = math.MinInt64

// Inbound decodes a client-supplied element. The shadowing layer field
// records whether the client sent one at all; Resolve maps absence to
// LayerAuto.
type Inbound struct {
	Element
	Layer *int64 `json:"layer"`
}

// Resolve returns the element with the layer decision applied.
func (in Inbound) Resolve() Element {
	e := in.Element
	if in.Layer != nil {
		e.Layer = *in.Layer
	} else {
		e.Layer = LayerAuto
	}
	return e
}

// Validate checks wire-level element constraints.
func (e Element) Validate() error {
	kinds := make([]interface{}, len(Kinds))
	for i, k := range Kinds {
		kinds[i] = k
	}
	return validation.ValidateStruct(&e,
		validation.Field(&e.BoardID, validation.Required),
		validation.Field(&e.Kind, validation.Required, validation.In(kinds...)),
		validation.Field(&e.Opacity, validation.Min(0.0), validation.Max(1.0)),
	)
}

// Bounds derives the axis-aligned bounding box in canvas space, before
// rotation. ok is false for malformed geometry (a path with no points or a
// non-finite coordinate); such elements are unselectable rather than fatal.
func (e Element) Bounds() (geometry.Box, bool) {
	if e.Kind == KindPath {
		return geometry.BoundsFromPoints(e.Points)
	}
	origin := geometry.Point{X: e.X, Y: e.Y}
	size := geometry.Point{X: e.W, Y: e.H}
	if !origin.IsFinite() || !size.IsFinite() {
		return geometry.Box{}, false
	}
	return geometry.Box{X: e.X, Y: e.Y, W: e.W, H: e.H}.Normalize(), true
}

// Hit reports whether a canvas-space point hits the element, honoring the
// element rotation and an extra pad in canvas units. Soft-deleted and
// malformed elements never hit.
func (e Element) Hit(p geometry.Point, pad float64) bool {
	if e.Deleted {
		return false
	}
	b, ok := e.Bounds()
	if !ok {
		return false
	}
	return geometry.HitTest(b, e.Rotation, p, pad)
}

// Clone returns a deep copy. Mutations always go through whole-element
// replacement, so readers holding a clone never observe a half-applied
// change.
func (e Element) Clone() Element {
	c := e
	if e.Points != nil {
		c.Points = make([]geometry.Point, len(e.Points))
		copy(c.Points, e.Points)
	}
	if e.Dash != nil {
		c.Dash = make([]float64, len(e.Dash))
		copy(c.Dash, e.Dash)
	}
	return c
}
