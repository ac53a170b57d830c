// Package geometry provides the pure coordinate math for the whiteboard:
// camera transforms, point rotation, bounding boxes, hit testing, resize
// handle detection and text wrapping. All functions are side-effect free and
// defined for every finite input; malformed geometry degrades to a "no
// bounds" result instead of an error.
package geometry

import "math"

// Point is a location in canvas or screen space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the vector from d to p.
func (p Point) Sub(d Point) Point {
	return Point{X: p.X - d.X, Y: p.Y - d.Y}
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Camera is the pan+zoom transform between canvas space and screen space.
// Zoom must be > 0.
type Camera struct {
	Pan  Point
	Zoom float64
}

// NewCamera returns a camera with no pan and unit zoom.
func NewCamera() Camera {
	return Camera{Zoom: 1}
}

// ScreenToCanvas converts a screen-space point to canvas space:
// canvas = (screen - pan) / zoom.
func ScreenToCanvas(p Point, cam Camera) Point {
	return Point{
		X: (p.X - cam.Pan.X) / cam.Zoom,
		Y: (p.Y - cam.Pan.Y) / cam.Zoom,
	}
}

// CanvasToScreen converts a canvas-space point to screen space. It is the
// algebraic inverse of ScreenToCanvas.
func CanvasToScreen(p Point, cam Camera) Point {
	return Point{
		X: p.X*cam.Zoom + cam.Pan.X,
		Y: p.Y*cam.Zoom + cam.Pan.Y,
	}
}

// Rotate rotates p about center by the given angle in degrees. Positive
// angles rotate in the direction of increasing Y (clockwise on screen).
func Rotate(p, center Point, degrees float64) Point {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	dx, dy := p.X-center.X, p.Y-center.Y
	return Point{
		X: center.X + dx*cos - dy*sin,
		Y: center.Y + dx*sin + dy*cos,
	}
}

// NormalizeAngle reduces an angle in degrees to [0, 360).
func NormalizeAngle(degrees float64) float64 {
	a := math.Mod(degrees, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// Box is an axis-aligned rectangle. Width and Height may be negative while a
// gesture is in progress; Normalize produces the canonical form.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Normalize returns the box with non-negative dimensions, shifting the
// origin when a dimension is negative. The covered area is unchanged.
func (b Box) Normalize() Box {
	if b.W < 0 {
		b.X += b.W
		b.W = -b.W
	}
	if b.H < 0 {
		b.Y += b.H
		b.H = -b.H
	}
	return b
}

// Center returns the box midpoint. It is the same point for the signed and
// normalized forms of a box.
func (b Box) Center() Point {
	return Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Contains reports whether p lies inside the normalized box (inclusive).
func (b Box) Contains(p Point) bool {
	n := b.Normalize()
	return p.X >= n.X && p.X <= n.X+n.W && p.Y >= n.Y && p.Y <= n.Y+n.H
}

// Expand grows the box by pad on every side. Negative pad shrinks it.
func (b Box) Expand(pad float64) Box {
	n := b.Normalize()
	return Box{X: n.X - pad, Y: n.Y - pad, W: n.W + 2*pad, H: n.H + 2*pad}
}

// BoundsFromPoints returns the min/max extrema of the given points. ok is
// false when the slice is empty or contains a non-finite coordinate.
func BoundsFromPoints(points []Point) (Box, bool) {
	if len(points) == 0 {
		return Box{}, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		if !p.IsFinite() {
			return Box{}, false
		}
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Box{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}, true
}

// HitTest reports whether p falls within the box expanded by pad, taking the
// box rotation (degrees, about the box center) into account. The pad is in
// canvas units; divide a pixel constant by the camera zoom for a
// zoom-independent feel.
func HitTest(b Box, rotation float64, p Point, pad float64) bool {
	local := Rotate(p, b.Center(), -rotation)
	return b.Expand(pad).Contains(local)
}
