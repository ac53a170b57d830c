package geometry

import "math"

// Handle identifies one of the eight resize handles (compass codes) or the
// rotation handle above the top edge.
type Handle string

// Handle codes.
const (
	HandleNone     Handle = ""
	HandleNW       Handle = "nw"
	HandleN        Handle = "n"
	HandleNE       Handle = "ne"
	HandleE        Handle = "e"
	HandleSE       Handle = "se"
	HandleS        Handle = "s"
	HandleSW       Handle = "sw"
	HandleW        Handle = "w"
	HandleRotation Handle = "rotation"
)

// resizeHandles lists the resize handles in detection order: corners before
// edge midpoints so a corner wins over its adjacent edges.
var resizeHandles = []Handle{
	HandleNW, HandleNE, HandleSE, HandleSW,
	HandleN, HandleE, HandleS, HandleW,
}

// handleFractions maps a handle to its position on the box as fractions of
// width and height. Valid for signed boxes too.
var handleFractions = map[Handle][2]float64{
	HandleNW: {0, 0},
	HandleN:  {0.5, 0},
	HandleNE: {1, 0},
	HandleE:  {1, 0.5},
	HandleSE: {1, 1},
	HandleS:  {0.5, 1},
	HandleSW: {0, 1},
	HandleW:  {0, 0.5},
}

// handleAngles maps a resize handle to its base compass angle in degrees,
// with 0 = north, increasing clockwise.
var handleAngles = map[Handle]float64{
	HandleN:  0,
	HandleNE: 45,
	HandleE:  90,
	HandleSE: 135,
	HandleS:  180,
	HandleSW: 225,
	HandleW:  270,
	HandleNW: 315,
}

// Opposite returns the handle diagonally or axially across the box, the one
// whose anchor point must stay fixed during a resize. The rotation handle
// and HandleNone map to themselves.
func (h Handle) Opposite() Handle {
	switch h {
	case HandleNW:
		return HandleSE
	case HandleN:
		return HandleS
	case HandleNE:
		return HandleSW
	case HandleE:
		return HandleW
	case HandleSE:
		return HandleNW
	case HandleS:
		return HandleN
	case HandleSW:
		return HandleNE
	case HandleW:
		return HandleE
	}
	return h
}

// PointAt returns the position of a resize handle on the box in the box's
// own (unrotated) frame. The box may be signed.
func (b Box) PointAt(h Handle) Point {
	f, ok := handleFractions[h]
	if !ok {
		return b.Center()
	}
	return Point{X: b.X + f[0]*b.W, Y: b.Y + f[1]*b.H}
}

// HandleAt returns the handle under the query point p (canvas space) for a
// box rotated about its center, or HandleNone. thresholdPx and
// rotationOffsetPx are screen-pixel constants; both are divided by zoom so
// handles keep a constant apparent size.
func HandleAt(b Box, rotation float64, p Point, zoom, thresholdPx, rotationOffsetPx float64) Handle {
	if zoom <= 0 {
		return HandleNone
	}
	n := b.Normalize()
	local := Rotate(p, n.Center(), -rotation)
	threshold := thresholdPx / zoom

	rot := Point{X: n.X + n.W/2, Y: n.Y - rotationOffsetPx/zoom}
	if dist(local, rot) <= threshold {
		return HandleRotation
	}
	for _, h := range resizeHandles {
		if dist(local, n.PointAt(h)) <= threshold {
			return h
		}
	}
	return HandleNone
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Cursor names for the four resize orientations plus rotation.
const (
	CursorNS     = "ns-resize"
	CursorNESW   = "nesw-resize"
	CursorEW     = "ew-resize"
	CursorNWSE   = "nwse-resize"
	CursorRotate = "rotate"
)

// CursorFor maps a handle and the element rotation to a cursor name. The
// handle's base compass angle plus the rotation is normalized to [0, 360)
// and quantized into 45-degree buckets, so cursors stay visually aligned
// with the handle however the element is rotated.
func CursorFor(h Handle, rotation float64) string {
	if h == HandleRotation {
		return CursorRotate
	}
	base, ok := handleAngles[h]
	if !ok {
		return ""
	}
	effective := NormalizeAngle(base + rotation)
	bucket := int(math.Floor((effective+22.5)/45)) % 8
	switch bucket % 4 {
	case 0:
		return CursorNS
	case 1:
		return CursorNESW
	case 2:
		return CursorEW
	default:
		return CursorNWSE
	}
}
