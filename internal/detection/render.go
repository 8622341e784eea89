package detection

import (
	"image"

	"github.com/ironsheep/lane-overlay/internal/imaging"
)

// RenderLanes draws the present sides of lanes over a copy of original.
//
// Lines are composited additively (original + overlay, saturating per
// channel). When both sides are absent the result equals original.
func RenderLanes(original image.Image, lanes LaneResult, style imaging.LineStyle) *image.NRGBA {
	lines := make([]imaging.LineSegment, 0, 2)
	for _, side := range []Option[Segment]{lanes.Left, lanes.Right} {
		s, ok := side.Get()
		if !ok {
			continue
		}
		lines = append(lines, imaging.LineSegment{
			From: image.Point{X: s.X1, Y: s.Y1},
			To:   image.Point{X: s.X2, Y: s.Y2},
		})
	}
	return imaging.OverlayLines(original, lines, style)
}
