package imaging

import (
	"image"
	"image/draw"

	"golang.org/x/image/vector"
)

// RelPoint is a position expressed as fractions of the frame width (X) and
// height (Y).
type RelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RegionOfInterest is the quadrilateral where the road surface is expected.
// Vertices are listed in drawing order.
type RegionOfInterest struct {
	BottomLeft  RelPoint `json:"bottom_left"`
	TopLeft     RelPoint `json:"top_left"`
	TopRight    RelPoint `json:"top_right"`
	BottomRight RelPoint `json:"bottom_right"`
}

// DefaultRegionOfInterest returns the lower-central trapezoid: 10%-90% of
// the width at 95% of the height, narrowing to 40%-60% at 60% of the height.
func DefaultRegionOfInterest() RegionOfInterest {
	return RegionOfInterest{
		BottomLeft:  RelPoint{X: 0.1, Y: 0.95},
		TopLeft:     RelPoint{X: 0.4, Y: 0.6},
		TopRight:    RelPoint{X: 0.6, Y: 0.6},
		BottomRight: RelPoint{X: 0.9, Y: 0.95},
	}
}

// Vertices returns the polygon in pixel coordinates for a frame of the given
// size. Coordinates are truncated toward zero.
func (r RegionOfInterest) Vertices(width, height int) []image.Point {
	rel := []RelPoint{r.BottomLeft, r.TopLeft, r.TopRight, r.BottomRight}
	pts := make([]image.Point, len(rel))
	for i, p := range rel {
		pts[i] = image.Point{
			X: int(float64(width) * p.X),
			Y: int(float64(height) * p.Y),
		}
	}
	return pts
}

// RegionMask rasterizes the region into a Gray mask: 255 for pixels whose
// area is at least half covered by the polygon, 0 elsewhere.
func RegionMask(width, height int, roi RegionOfInterest) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	if width <= 0 || height <= 0 {
		return mask
	}

	pts := roi.Vertices(width, height)
	z := vector.NewRasterizer(width, height)
	z.DrawOp = draw.Src
	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()

	coverage := image.NewAlpha(mask.Rect)
	z.Draw(coverage, coverage.Bounds(), image.Opaque, image.Point{})

	for i, a := range coverage.Pix {
		if a >= 0x80 {
			mask.Pix[i] = 255
		}
	}
	return mask
}

// RestrictRegion zeroes every pixel of src outside roi.
//
// Gray input produces Gray output; any other image produces an opaque NRGBA
// whose outside pixels are black. The output has the dimensions of src and
// src itself is not modified.
func RestrictRegion(src image.Image, roi RegionOfInterest) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := RegionMask(w, h, roi)

	if g, ok := src.(*image.Gray); ok {
		out := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			srow := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < w; x++ {
				i := y*out.Stride + x
				out.Pix[i] = srow[x] & mask.Pix[i]
			}
		}
		return out
	}

	col := asNRGBA(src)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			di := y*out.Stride + x*4
			out.Pix[di+3] = 0xff
			if mask.Pix[y*mask.Stride+x] == 0 {
				continue
			}
			si := y*col.Stride + x*4
			copy(out.Pix[di:di+3], col.Pix[si:si+3])
		}
	}
	return out
}
