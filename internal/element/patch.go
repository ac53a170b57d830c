package element

import (
	"time"

	"github.com/starford/dagaz/internal/geometry"
)

// Patch is a partial set of element attributes. Nil fields are untouched.
// Patches travel over the wire for updates (soft delete is
// {"deleted": true}) and are stored pairwise (previous/next) in history
// items so undo and redo can write back exactly the attributes a mutation
// touched.
type Patch struct {
	X      *float64          `json:"x,omitempty"`
	Y      *float64          `json:"y,omitempty"`
	W      *float64          `json:"w,omitempty"`
	H      *float64          `json:"h,omitempty"`
	Points *[]geometry.Point `json:"points,omitempty"`

	Stroke      *string    `json:"stroke,omitempty"`
	Fill        *string    `json:"fill,omitempty"`
	StrokeWidth *float64   `json:"stroke_width,omitempty"`
	Dash        *[]float64 `json:"dash,omitempty"`
	Opacity     *float64   `json:"opacity,omitempty"`

	Rotation *float64 `json:"rotation,omitempty"`

	Text       *string  `json:"text,omitempty"`
	FontFamily *string  `json:"font_family,omitempty"`
	FontSize   *float64 `json:"font_size,omitempty"`
	TextAlign  *string  `json:"text_align,omitempty"`

	URL *string `json:"url,omitempty"`

	Layer   *int64 `json:"layer,omitempty"`
	Deleted *bool  `json:"deleted,omitempty"`
}

// IsEmpty reports whether the patch touches no attributes.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Apply returns a copy of e with every non-nil patch field written and
// UpdatedAt bumped.
func (p Patch) Apply(e Element) Element {
	out := e.Clone()
	if p.X != nil {
		out.X = *p.X
	}
	if p.Y != nil {
		out.Y = *p.Y
	}
	if p.W != nil {
		out.W = *p.W
	}
	if p.H != nil {
		out.H = *p.H
	}
	if p.Points != nil {
		out.Points = make([]geometry.Point, len(*p.Points))
		copy(out.Points, *p.Points)
	}
	if p.Stroke != nil {
		out.Stroke = *p.Stroke
	}
	if p.Fill != nil {
		out.Fill = *p.Fill
	}
	if p.StrokeWidth != nil {
		out.StrokeWidth = *p.StrokeWidth
	}
	if p.Dash != nil {
		out.Dash = make([]float64, len(*p.Dash))
		copy(out.Dash, *p.Dash)
	}
	if p.Opacity != nil {
		out.Opacity = *p.Opacity
	}
	if p.Rotation != nil {
		out.Rotation = *p.Rotation
	}
	if p.Text != nil {
		out.Text = *p.Text
	}
	if p.FontFamily != nil {
		out.FontFamily = *p.FontFamily
	}
	if p.FontSize != nil {
		out.FontSize = *p.FontSize
	}
	if p.TextAlign != nil {
		out.TextAlign = *p.TextAlign
	}
	if p.URL != nil {
		out.URL = *p.URL
	}
	if p.Layer != nil {
		out.Layer = *p.Layer
	}
	if p.Deleted != nil {
		out.Deleted = *p.Deleted
	}
	out.UpdatedAt = time.Now().UTC()
	return out
}

// Diff computes the patch that turns prev into next, together with its
// inverse. Both sides of a history update item come from one Diff call.
func Diff(prev, next Element) (forward, inverse Patch) {
	if prev.X != next.X {
		forward.X, inverse.X = f64(next.X), f64(prev.X)
	}
	if prev.Y != next.Y {
		forward.Y, inverse.Y = f64(next.Y), f64(prev.Y)
	}
	if prev.W != next.W {
		forward.W, inverse.W = f64(next.W), f64(prev.W)
	}
	if prev.H != next.H {
		forward.H, inverse.H = f64(next.H), f64(prev.H)
	}
	if !pointsEqual(prev.Points, next.Points) {
		forward.Points, inverse.Points = pointsCopy(next.Points), pointsCopy(prev.Points)
	}
	if prev.Stroke != next.Stroke {
		forward.Stroke, inverse.Stroke = str(next.Stroke), str(prev.Stroke)
	}
	if prev.Fill != next.Fill {
		forward.Fill, inverse.Fill = str(next.Fill), str(prev.Fill)
	}
	if prev.StrokeWidth != next.StrokeWidth {
		forward.StrokeWidth, inverse.StrokeWidth = f64(next.StrokeWidth), f64(prev.StrokeWidth)
	}
	if !floatsEqual(prev.Dash, next.Dash) {
		forward.Dash, inverse.Dash = floatsCopy(next.Dash), floatsCopy(prev.Dash)
	}
	if prev.Opacity != next.Opacity {
		forward.Opacity, inverse.Opacity = f64(next.Opacity), f64(prev.Opacity)
	}
	if prev.Rotation != next.Rotation {
		forward.Rotation, inverse.Rotation = f64(next.Rotation), f64(prev.Rotation)
	}
	if prev.Text != next.Text {
		forward.Text, inverse.Text = str(next.Text), str(prev.Text)
	}
	if prev.FontFamily != next.FontFamily {
		forward.FontFamily, inverse.FontFamily = str(next.FontFamily), str(prev.FontFamily)
	}
	if prev.FontSize != next.FontSize {
		forward.FontSize, inverse.FontSize = f64(next.FontSize), f64(prev.FontSize)
	}
	if prev.TextAlign != next.TextAlign {
		forward.TextAlign, inverse.TextAlign = str(next.TextAlign), str(prev.TextAlign)
	}
	if prev.URL != next.URL {
		forward.URL, inverse.URL = str(next.URL), str(prev.URL)
	}
	if prev.Layer != next.Layer {
		forward.Layer, inverse.Layer = i64(next.Layer), i64(prev.Layer)
	}
	if prev.Deleted != next.Deleted {
		forward.Deleted, inverse.Deleted = boolp(next.Deleted), boolp(prev.Deleted)
	}
	return forward, inverse
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }
func str(v string) *string   { return &v }
func boolp(v bool) *bool     { return &v }

func pointsCopy(p []geometry.Point) *[]geometry.Point {
	c := make([]geometry.Point, len(p))
	copy(c, p)
	return &c
}

func floatsCopy(f []float64) *[]float64 {
	c := make([]float64, len(f))
	copy(c, f)
	return &c
}

func pointsEqual(a, b []geometry.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
