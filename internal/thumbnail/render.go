// Package thumbnail renders board previews to PNG and schedules debounced
// refreshes after edit bursts settle.
package thumbnail

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/fogleman/gg"

	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/geometry"
)

// Renderer draws a board's elements scaled to fit a fixed-size PNG.
type Renderer struct {
	Width   int
	Height  int
	Padding float64
}

var _ BoardRenderer = (*Renderer)(nil)

// NewRenderer returns a renderer producing Width x Height previews.
func NewRenderer(width, height int) *Renderer {
	return &Renderer{Width: width, Height: height, Padding: 16}
}

// Render draws the elements and returns PNG bytes. An empty board renders
// as a blank canvas.
func (r *Renderer) Render(elements []element.Element) ([]byte, error) {
	dc := gg.NewContext(r.Width, r.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	if box, ok := contentBounds(elements); ok {
		scale := math.Min(
			(float64(r.Width)-2*r.Padding)/math.Max(box.W, 1),
			(float64(r.Height)-2*r.Padding)/math.Max(box.H, 1),
		)
		if scale > 1 {
			scale = 1
		}
		// Center the content.
		dc.Translate(
			(float64(r.Width)-box.W*scale)/2-box.X*scale,
			(float64(r.Height)-box.H*scale)/2-box.Y*scale,
		)
		dc.Scale(scale, scale)

		for _, e := range elements {
			if !e.Deleted {
				drawElement(dc, e)
			}
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("thumbnail: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// contentBounds unions the bounds of every drawable element.
func contentBounds(elements []element.Element) (geometry.Box, bool) {
	var pts []geometry.Point
	for _, e := range elements {
		if e.Deleted {
			continue
		}
		b, ok := e.Bounds()
		if !ok {
			continue
		}
		pts = append(pts,
			geometry.Point{X: b.X, Y: b.Y},
			geometry.Point{X: b.X + b.W, Y: b.Y + b.H})
	}
	return geometry.BoundsFromPoints(pts)
}

func drawElement(dc *gg.Context, e element.Element) {
	b, ok := e.Bounds()
	if !ok {
		return
	}

	dc.Push()
	defer dc.Pop()
	if e.Rotation != 0 {
		c := b.Center()
		dc.RotateAbout(gg.Radians(e.Rotation), c.X, c.Y)
	}
	if len(e.Dash) > 0 {
		dc.SetDash(e.Dash...)
	}
	width := e.StrokeWidth
	if width <= 0 {
		width = 1
	}
	dc.SetLineWidth(width)

	switch e.Kind {
	case element.KindPath:
		for i, p := range e.Points {
			if i == 0 {
				dc.MoveTo(p.X, p.Y)
			} else {
				dc.LineTo(p.X, p.Y)
			}
		}
	case element.KindRectangle, element.KindImage:
		dc.DrawRectangle(b.X, b.Y, b.W, b.H)
	case element.KindDiamond:
		c := b.Center()
		dc.MoveTo(c.X, b.Y)
		dc.LineTo(b.X+b.W, c.Y)
		dc.LineTo(c.X, b.Y+b.H)
		dc.LineTo(b.X, c.Y)
		dc.ClosePath()
	case element.KindEllipse:
		c := b.Center()
		dc.DrawEllipse(c.X, c.Y, b.W/2, b.H/2)
	case element.KindLine, element.KindArrow:
		dc.MoveTo(e.X, e.Y)
		dc.LineTo(e.X+e.W, e.Y+e.H)
		if e.Kind == element.KindArrow {
			drawArrowHead(dc, e)
		}
	case element.KindText:
		drawText(dc, e, b)
		return
	}

	if e.Fill != "" {
		setColor(dc, e.Fill, e.Opacity)
		dc.FillPreserve()
	}
	setColor(dc, e.Stroke, e.Opacity)
	dc.Stroke()
}

// drawText wraps the content to the element's width and stacks the lines
// from the top of the box.
func drawText(dc *gg.Context, e element.Element, b geometry.Box) {
	setColor(dc, e.Stroke, e.Opacity)
	size := e.FontSize
	if size <= 0 {
		size = 16
	}
	lines := geometry.WrapLines(func(s string) float64 {
		w, _ := dc.MeasureString(s)
		return w
	}, e.Text, math.Max(b.W, 1))

	lineHeight := size * 1.25
	y := b.Y + size
	for _, line := range lines {
		x := b.X
		switch e.TextAlign {
		case "center":
			w, _ := dc.MeasureString(line)
			x = b.X + (b.W-w)/2
		case "right":
			w, _ := dc.MeasureString(line)
			x = b.X + b.W - w
		}
		dc.DrawString(line, x, y)
		y += lineHeight
	}
}

// drawArrowHead adds two short strokes at the line's end point.
func drawArrowHead(dc *gg.Context, e element.Element) {
	angle := math.Atan2(e.H, e.W)
	tipX, tipY := e.X+e.W, e.Y+e.H
	size := math.Max(8, e.StrokeWidth*3)
	for _, off := range []float64{math.Pi * 5 / 6, -math.Pi * 5 / 6} {
		dc.MoveTo(tipX, tipY)
		dc.LineTo(tipX+size*math.Cos(angle+off), tipY+size*math.Sin(angle+off))
	}
}

func setColor(dc *gg.Context, hex string, opacity float64) {
	r, g, b := parseHex(hex)
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	dc.SetRGBA(r, g, b, opacity)
}

// parseHex reads "#rgb" and "#rrggbb" colors, defaulting to near-black.
func parseHex(s string) (r, g, b float64) {
	s = strings.TrimPrefix(s, "#")
	var ri, gi, bi int
	switch len(s) {
	case 3:
		if _, err := fmt.Sscanf(s, "%1x%1x%1x", &ri, &gi, &bi); err == nil {
			return float64(ri*17) / 255, float64(gi*17) / 255, float64(bi*17) / 255
		}
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &ri, &gi, &bi); err == nil {
			return float64(ri) / 255, float64(gi) / 255, float64(bi) / 255
		}
	}
	return 0.12, 0.12, 0.12
}
