// Package transform implements the gesture transform engine: given a
// transform action captured at pointer-down and the current pointer
// position, it computes replacement geometry for the selected element.
// Moving, rotating and resizing never mutate their input; the caller writes
// the returned element into the store and persists it on gesture end.
package transform

import (
	"math"

	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/geometry"
)

// Kind discriminates the in-progress gesture.
type Kind int

// Transform kinds.
const (
	KindNone Kind = iota
	KindMove
	KindResize
	KindRotate
)

// Action describes an in-progress transform gesture. It exists only between
// pointer-down and pointer-up and is never transmitted.
type Action struct {
	Kind Kind

	// Move: pointer offset from the bounding-box origin at gesture start.
	// The offset references the box origin rather than the element X/Y
	// because path elements have no X/Y of their own.
	Offset geometry.Point

	// Resize: dragged handle, gesture start point, starting bounding box
	// and a full snapshot of the element at gesture start.
	Handle   geometry.Handle
	Start    geometry.Point
	StartBox geometry.Box
	Snapshot element.Element

	// Rotate: angle from the box center to the pointer at gesture start,
	// the element rotation at gesture start, and the rotation center.
	StartAngle    float64
	StartRotation float64
	Center        geometry.Point
}

// BeginMove starts a move gesture. ok is false for malformed geometry.
func BeginMove(e element.Element, pointer geometry.Point) (Action, bool) {
	b, ok := e.Bounds()
	if !ok {
		return Action{}, false
	}
	return Action{
		Kind:   KindMove,
		Offset: pointer.Sub(geometry.Point{X: b.X, Y: b.Y}),
	}, true
}

// BeginResize starts a resize gesture on the given handle.
func BeginResize(e element.Element, handle geometry.Handle, pointer geometry.Point) (Action, bool) {
	b, ok := e.Bounds()
	if !ok || handle == geometry.HandleNone || handle == geometry.HandleRotation {
		return Action{}, false
	}
	return Action{
		Kind:     KindResize,
		Handle:   handle,
		Start:    pointer,
		StartBox: b,
		Snapshot: e.Clone(),
	}, true
}

// BeginRotate starts a rotation gesture about the bounding-box center.
func BeginRotate(e element.Element, pointer geometry.Point) (Action, bool) {
	b, ok := e.Bounds()
	if !ok {
		return Action{}, false
	}
	c := b.Center()
	return Action{
		Kind:          KindRotate,
		Center:        c,
		StartAngle:    angleTo(c, pointer),
		StartRotation: e.Rotation,
	}, true
}

// Move computes the element moved so its bounding-box origin tracks the
// pointer minus the stored offset. Path elements translate every point by
// the box delta.
func Move(a Action, e element.Element, pointer geometry.Point) element.Element {
	b, ok := e.Bounds()
	if !ok {
		return e
	}
	target := pointer.Sub(a.Offset)
	delta := target.Sub(geometry.Point{X: b.X, Y: b.Y})

	out := e.Clone()
	if e.Kind == element.KindPath {
		for i := range out.Points {
			out.Points[i] = out.Points[i].Add(delta)
		}
		return out
	}
	out.X += delta.X
	out.Y += delta.Y
	return out
}

// Rotate computes the element rotation at the current pointer position:
// rotation at gesture start plus the swept angle about the rotation center.
// The result is unbounded; it is reduced modulo 360 for display only.
func Rotate(a Action, e element.Element, pointer geometry.Point) element.Element {
	out := e.Clone()
	out.Rotation = a.StartRotation + (angleTo(a.Center, pointer) - a.StartAngle)
	return out
}

// Resize computes replacement geometry for the dragged handle, keeping the
// opposite anchor point fixed in world space regardless of the element
// rotation:
//
//  1. rotate the gesture start and current points into the box's local
//     frame about the original center,
//  2. apply the local delta to the dimensions the handle controls,
//  3. with lockAspect, recompute the unconstrained axis from the original
//     aspect ratio, anchored at the appropriate edge,
//  4. locate the anchor opposite the handle in the original frame and its
//     world position, then solve for the world center that keeps that
//     anchor fixed under the original rotation,
//  5. place the normalized box around the recovered center.
//
// A naive resize that recomputes position from local coordinates directly
// drifts the opposite corner whenever rotation is non-zero.
func Resize(a Action, pointer geometry.Point, lockAspect bool) element.Element {
	start := a.StartBox
	c0 := start.Center()
	rot := a.Snapshot.Rotation

	ls := geometry.Rotate(a.Start, c0, -rot)
	lp := geometry.Rotate(pointer, c0, -rot)
	dx, dy := lp.X-ls.X, lp.Y-ls.Y

	box := applyHandleDelta(start, a.Handle, dx, dy)
	if lockAspect {
		box = applyAspect(start, box, a.Handle)
	}

	// Anchor preservation (steps 4-5).
	opp := a.Handle.Opposite()
	qWorld := geometry.Rotate(start.PointAt(opp), c0, rot)
	v := box.PointAt(opp).Sub(box.Center())
	c1 := qWorld.Sub(geometry.Rotate(v, geometry.Point{}, rot))

	final := geometry.Box{W: box.W, H: box.H}.Normalize()
	final.X = c1.X - final.W/2
	final.Y = c1.Y - final.H/2

	out := a.Snapshot.Clone()
	if out.Kind == element.KindPath {
		scalePoints(out.Points, start, final)
		return out
	}
	out.X, out.Y, out.W, out.H = final.X, final.Y, final.W, final.H
	return out
}

// applyHandleDelta applies the local-frame delta to the box dimensions the
// handle controls. Corner handles affect both axes, edge handles one. The
// result may carry negative dimensions mid-gesture.
func applyHandleDelta(b geometry.Box, h geometry.Handle, dx, dy float64) geometry.Box {
	switch h {
	case geometry.HandleE:
		b.W += dx
	case geometry.HandleW:
		b.X += dx
		b.W -= dx
	case geometry.HandleS:
		b.H += dy
	case geometry.HandleN:
		b.Y += dy
		b.H -= dy
	case geometry.HandleSE:
		b.W += dx
		b.H += dy
	case geometry.HandleNE:
		b.W += dx
		b.Y += dy
		b.H -= dy
	case geometry.HandleSW:
		b.X += dx
		b.W -= dx
		b.H += dy
	case geometry.HandleNW:
		b.X += dx
		b.W -= dx
		b.Y += dy
		b.H -= dy
	}
	return b
}

// applyAspect recomputes the unconstrained axis from the starting aspect
// ratio. Corner and horizontal-edge handles derive height from width
// (anchoring the edge away from the handle); vertical-edge handles derive
// width from height, centered.
func applyAspect(start, b geometry.Box, h geometry.Handle) geometry.Box {
	if start.W == 0 || start.H == 0 {
		return b
	}
	ratio := start.W / start.H

	switch h {
	case geometry.HandleN, geometry.HandleS:
		newW := b.H * ratio
		b.X = start.X + (start.W-newW)/2
		b.W = newW
	case geometry.HandleE, geometry.HandleW:
		newH := b.W / ratio
		b.Y = start.Y + (start.H-newH)/2
		b.H = newH
	case geometry.HandleNE, geometry.HandleNW:
		newH := b.W / ratio
		b.Y = start.Y + start.H - newH
		b.H = newH
	case geometry.HandleSE, geometry.HandleSW:
		newH := b.W / ratio
		b.Y = start.Y
		b.H = newH
	}
	return b
}

// scalePoints maps every path point from the original bounding box into the
// new one.
func scalePoints(points []geometry.Point, from, to geometry.Box) {
	sx, sy := 1.0, 1.0
	if from.W != 0 {
		sx = to.W / from.W
	}
	if from.H != 0 {
		sy = to.H / from.H
	}
	for i := range points {
		points[i] = geometry.Point{
			X: to.X + (points[i].X-from.X)*sx,
			Y: to.Y + (points[i].Y-from.Y)*sy,
		}
	}
}

// angleTo returns the angle in degrees from center to p, measured with
// atan2.
func angleTo(center, p geometry.Point) float64 {
	return math.Atan2(p.Y-center.Y, p.X-center.X) * 180 / math.Pi
}
