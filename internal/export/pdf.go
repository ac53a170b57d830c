// Package export renders a board's elements to PDF.
package export

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"

	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/geometry"
)

// pageW and pageH are the drawable A4 landscape area in millimeters.
const (
	pageW   = 297.0
	pageH   = 210.0
	margin  = 10.0
	minSpan = 1.0
)

// PDF writes the elements as a single-page A4 landscape PDF, scaled to
// fit. Rotation is applied per element with the PDF transform stack.
func PDF(w io.Writer, elements []element.Element) error {
	p := gofpdf.New("L", "mm", "A4", "")
	p.AddPage()

	box, ok := contentBounds(elements)
	if ok {
		scale := math.Min(
			(pageW-2*margin)/math.Max(box.W, minSpan),
			(pageH-2*margin)/math.Max(box.H, minSpan),
		)
		tx := margin + (pageW-2*margin-box.W*scale)/2 - box.X*scale
		ty := margin + (pageH-2*margin-box.H*scale)/2 - box.Y*scale

		for _, e := range elements {
			if !e.Deleted {
				drawElement(p, e, scale, tx, ty)
			}
		}
	}

	if err := p.Output(w); err != nil {
		return fmt.Errorf("export: write pdf: %w", err)
	}
	return nil
}

// PDFBytes renders the elements and returns the document bytes.
func PDFBytes(elements []element.Element) ([]byte, error) {
	var buf bytes.Buffer
	if err := PDF(&buf, elements); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

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

func drawElement(p *gofpdf.Fpdf, e element.Element, scale, tx, ty float64) {
	b, ok := e.Bounds()
	if !ok {
		return
	}
	mapX := func(x float64) float64 { return tx + x*scale }
	mapY := func(y float64) float64 { return ty + y*scale }

	r, g, bl := hexRGB(e.Stroke)
	p.SetDrawColor(r, g, bl)
	width := e.StrokeWidth * scale
	if width <= 0 {
		width = 0.3
	}
	p.SetLineWidth(width)

	rotated := e.Rotation != 0
	if rotated {
		c := b.Center()
		p.TransformBegin()
		p.TransformRotate(-e.Rotation, mapX(c.X), mapY(c.Y))
	}

	switch e.Kind {
	case element.KindPath:
		for i := 1; i < len(e.Points); i++ {
			p.Line(mapX(e.Points[i-1].X), mapY(e.Points[i-1].Y),
				mapX(e.Points[i].X), mapY(e.Points[i].Y))
		}
	case element.KindRectangle, element.KindImage:
		p.Rect(mapX(b.X), mapY(b.Y), b.W*scale, b.H*scale, "D")
	case element.KindDiamond:
		c := b.Center()
		pts := []gofpdf.PointType{
			{X: mapX(c.X), Y: mapY(b.Y)},
			{X: mapX(b.X + b.W), Y: mapY(c.Y)},
			{X: mapX(c.X), Y: mapY(b.Y + b.H)},
			{X: mapX(b.X), Y: mapY(c.Y)},
		}
		p.Polygon(pts, "D")
	case element.KindEllipse:
		c := b.Center()
		p.Ellipse(mapX(c.X), mapY(c.Y), b.W/2*scale, b.H/2*scale, 0, "D")
	case element.KindLine, element.KindArrow:
		p.Line(mapX(e.X), mapY(e.Y), mapX(e.X+e.W), mapY(e.Y+e.H))
	case element.KindText:
		size := e.FontSize * scale
		if size <= 0 {
			size = 4
		}
		p.SetFont("Helvetica", "", size*2.83) // mm to pt
		p.SetTextColor(r, g, bl)
		p.Text(mapX(b.X), mapY(b.Y+b.H/2), e.Text)
	}

	if rotated {
		p.TransformEnd()
	}
}

// hexRGB reads "#rgb" and "#rrggbb" colors, defaulting to black.
func hexRGB(s string) (int, int, int) {
	var r, g, b int
	switch {
	case len(s) == 7 && s[0] == '#':
		if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err == nil {
			return r, g, b
		}
	case len(s) == 4 && s[0] == '#':
		if _, err := fmt.Sscanf(s[1:], "%1x%1x%1x", &r, &g, &b); err == nil {
			return r * 17, g * 17, b * 17
		}
	}
	return 0, 0, 0
}
