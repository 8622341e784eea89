package imaging

import (
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// HLS is a color in the 8-bit hue/lightness/saturation encoding used for
// paint masks.
//
// The channel scale matches the common 8-bit convention:
//   - H: 0-179 (degrees divided by two)
//   - L: 0-255 (0=black, 255=white)
//   - S: 0-255 (0=gray, 255=vivid)
type HLS struct {
	H uint8 `json:"h"`
	L uint8 `json:"l"`
	S uint8 `json:"s"`
}

// HLSRange is an inclusive box in HLS space. A pixel matches when every
// channel lies within [Low, High].
type HLSRange struct {
	Name string `json:"name"`
	Low  HLS    `json:"low"`
	High HLS    `json:"high"`
}

// Contains reports whether c lies inside the range on all three channels.
func (r HLSRange) Contains(c HLS) bool {
	return c.H >= r.Low.H && c.H <= r.High.H &&
		c.L >= r.Low.L && c.L <= r.High.L &&
		c.S >= r.Low.S && c.S <= r.High.S
}

// YellowPaint matches saturated yellow road paint under most lighting.
var YellowPaint = HLSRange{
	Name: "yellow",
	Low:  HLS{H: 10, L: 0, S: 100},
	High: HLS{H: 40, L: 255, S: 255},
}

// WhitePaint matches bright, low-saturation white road paint.
var WhitePaint = HLSRange{
	Name: "white",
	Low:  HLS{H: 0, L: 200, S: 0},
	High: HLS{H: 255, L: 255, S: 255},
}

// DefaultPaintRanges returns the yellow and white ranges used by the lane
// pipeline. The slice is freshly allocated.
func DefaultPaintRanges() []HLSRange {
	return []HLSRange{YellowPaint, WhitePaint}
}

// RGBToHLS converts 8-bit RGB values to 8-bit HLS.
func RGBToHLS(r, g, b uint8) HLS {
	c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
	h, s, l := c.Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	hq := math.Round(h / 2)
	if hq >= 180 {
		hq -= 180
	}
	return HLS{
		H: uint8(hq),
		L: uint8(math.Round(l * 255)),
		S: uint8(math.Round(s * 255)),
	}
}

// HLSToRGB converts an 8-bit HLS value back to 8-bit RGB.
func HLSToRGB(c HLS) (r, g, b uint8) {
	return colorful.Hsl(float64(c.H)*2, float64(c.S)/255.0, float64(c.L)/255.0).Clamped().RGB255()
}

// FilterLaneColors keeps only pixels whose HLS value falls inside at least
// one of the given ranges.
//
// Matching pixels are replaced by the RGB value of their quantized HLS form;
// everything else becomes black. The output has the dimensions of frame and
// is always opaque. The input is not modified.
//
// An empty ranges slice masks out every pixel.
func FilterLaneColors(frame image.Image, ranges []HLSRange) *image.NRGBA {
	src := asNRGBA(frame)
	b := src.Bounds()
	dst := image.NewNRGBA(b)

	for y := 0; y < b.Dy(); y++ {
		si := y * src.Stride
		di := y * dst.Stride
		for x := 0; x < b.Dx(); x, si, di = x+1, si+4, di+4 {
			hls := RGBToHLS(src.Pix[si], src.Pix[si+1], src.Pix[si+2])
			dst.Pix[di+3] = 0xff

			matched := false
			for _, r := range ranges {
				if r.Contains(hls) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
			dst.Pix[di], dst.Pix[di+1], dst.Pix[di+2] = HLSToRGB(hls)
		}
	}
	return dst
}
