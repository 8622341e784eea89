package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"golang.org/x/image/vector"
)

// LineStyle describes how overlay lines are drawn.
type LineStyle struct {
	// Color of the line. Alpha is honored when compositing into the overlay.
	Color color.NRGBA `json:"color"`

	// Thickness is the full stroke width in pixels. Values below 1 draw
	// a 1-pixel line.
	Thickness int `json:"thickness"`
}

// DefaultLineStyle returns opaque red, 12 pixels wide.
func DefaultLineStyle() LineStyle {
	return LineStyle{Color: color.NRGBA{R: 255, A: 255}, Thickness: 12}
}

// LineSegment is a straight line between two pixel positions. Endpoints may
// lie outside the frame; the drawn part is clipped.
type LineSegment struct {
	From image.Point `json:"from"`
	To   image.Point `json:"to"`
}

// OverlayLines draws lines onto a black canvas the size of original and adds
// that canvas to a copy of original channel by channel, saturating at 255.
//
// With no lines the result is pixel-identical to original. The alpha channel
// of the result is taken from original.
func OverlayLines(original image.Image, lines []LineSegment, style LineStyle) *image.NRGBA {
	out := imaging.Clone(original)
	if len(lines) == 0 {
		return out
	}

	b := out.Bounds()
	overlay := image.NewRGBA(b)
	draw.Draw(overlay, b, image.Black, image.Point{}, draw.Src)
	for _, l := range lines {
		drawThickLine(overlay, l, style)
	}

	for y := 0; y < b.Dy(); y++ {
		orow := out.Pix[y*out.Stride:]
		vrow := overlay.Pix[y*overlay.Stride:]
		for x := 0; x < b.Dx()*4; x += 4 {
			orow[x] = addSaturated(orow[x], vrow[x])
			orow[x+1] = addSaturated(orow[x+1], vrow[x+1])
			orow[x+2] = addSaturated(orow[x+2], vrow[x+2])
		}
	}
	return out
}

func addSaturated(a, b uint8) uint8 {
	s := int(a) + int(b)
	if s > 255 {
		return 255
	}
	return uint8(s)
}

// capSteps is the number of chords used for each half-circle end cap.
const capSteps = 8

// drawThickLine rasterizes a round-capped stroke onto dst.
func drawThickLine(dst *image.RGBA, l LineSegment, style LineStyle) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	half := float64(style.Thickness) / 2
	if half < 0.5 {
		half = 0.5
	}

	pad := half + 1
	x0, y0, x1, y1, ok := clipSegment(
		float64(l.From.X), float64(l.From.Y), float64(l.To.X), float64(l.To.Y),
		-pad, -pad, float64(w)+pad, float64(h)+pad,
	)
	if !ok {
		return
	}

	// Pixel (x, y) covers [x, x+1); stroke through pixel centers.
	x0, y0, x1, y1 = x0+0.5, y0+0.5, x1+0.5, y1+0.5

	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	var ux, uy float64
	if length == 0 {
		ux, uy = 1, 0
	} else {
		ux, uy = dx/length, dy/length
	}
	// Normal to the stroke direction.
	nx, ny := -uy, ux

	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Over

	z.MoveTo(float32(x0+nx*half), float32(y0+ny*half))
	z.LineTo(float32(x1+nx*half), float32(y1+ny*half))
	// Cap around the end point, sweeping from +n through +u to -n.
	for i := 1; i <= capSteps; i++ {
		a := math.Pi * float64(i) / capSteps
		cx := nx*math.Cos(a) + ux*math.Sin(a)
		cy := ny*math.Cos(a) + uy*math.Sin(a)
		z.LineTo(float32(x1+cx*half), float32(y1+cy*half))
	}
	z.LineTo(float32(x0-nx*half), float32(y0-ny*half))
	// Cap around the start point, sweeping from -n through -u to +n.
	for i := 1; i <= capSteps; i++ {
		a := math.Pi * float64(i) / capSteps
		cx := -nx*math.Cos(a) - ux*math.Sin(a)
		cy := -ny*math.Cos(a) - uy*math.Sin(a)
		z.LineTo(float32(x0+cx*half), float32(y0+cy*half))
	}
	z.ClosePath()

	z.Draw(dst, b, image.NewUniform(style.Color), image.Point{})
}

// clipSegment clips the segment (x0,y0)-(x1,y1) to the rectangle
// [minX,maxX]x[minY,maxY] using the Liang-Barsky parametric test.
// ok is false when no part of the segment is inside.
func clipSegment(x0, y0, x1, y1, minX, minY, maxX, maxY float64) (cx0, cy0, cx1, cy1 float64, ok bool) {
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0

	edges := [4][2]float64{
		{-dx, x0 - minX},
		{dx, maxX - x0},
		{-dy, y0 - minY},
		{dy, maxY - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			if r < t1 {
				t1 = r
			}
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

// ParseHexColor parses a hex color string like "#FF0000" or "#FF000080".
// The leading '#' is optional.
func ParseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length %d", len(hex))
	}

	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

// HexColor formats c as "#RRGGBB", or "#RRGGBBAA" when c is not opaque.
// It is the inverse of ParseHexColor.
func HexColor(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}
