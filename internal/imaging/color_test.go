package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestRGBToHLS(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    HLS
	}{
		{"black", 0, 0, 0, HLS{0, 0, 0}},
		{"white", 255, 255, 255, HLS{0, 255, 0}},
		{"gray", 100, 100, 100, HLS{0, 100, 0}},
		{"red", 255, 0, 0, HLS{0, 128, 255}},
		{"yellow", 255, 255, 0, HLS{30, 128, 255}},
		{"green", 0, 255, 0, HLS{60, 128, 255}},
		{"blue", 0, 0, 255, HLS{120, 128, 255}},
		{"hue wraps to zero", 255, 0, 2, HLS{0, 128, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RGBToHLS(tt.r, tt.g, tt.b)
			if got != tt.want {
				t.Errorf("RGBToHLS(%d,%d,%d) = %+v, want %+v", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
}

func TestHLSToRGB_RoundTrip(t *testing.T) {
	colors := [][3]uint8{
		{255, 255, 255},
		{0, 0, 0},
		{255, 200, 0},
		{200, 30, 60},
		{12, 90, 240},
	}

	for _, c := range colors {
		r, g, b := HLSToRGB(RGBToHLS(c[0], c[1], c[2]))
		// Hue is stored in 2 degree steps, so saturated colors drift a little.
		if abs(int(r)-int(c[0])) > 5 || abs(int(g)-int(c[1])) > 5 || abs(int(b)-int(c[2])) > 5 {
			t.Errorf("round trip of %v = (%d,%d,%d)", c, r, g, b)
		}
	}
}

func TestHLSRange_Contains(t *testing.T) {
	tests := []struct {
		name string
		r    HLSRange
		c    HLS
		want bool
	}{
		{"yellow paint", YellowPaint, HLS{24, 128, 255}, true},
		{"yellow low saturation", YellowPaint, HLS{24, 128, 99}, false},
		{"yellow hue bounds inclusive", YellowPaint, HLS{10, 0, 100}, true},
		{"yellow hue above", YellowPaint, HLS{41, 128, 255}, false},
		{"white paint", WhitePaint, HLS{0, 255, 0}, true},
		{"white lightness bound", WhitePaint, HLS{90, 200, 10}, true},
		{"white too dark", WhitePaint, HLS{0, 199, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.c); got != tt.want {
				t.Errorf("Contains(%+v) = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}

func TestFilterLaneColors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 1))
	img.Set(0, 0, color.RGBA{255, 255, 255, 255}) // white paint
	img.Set(1, 0, color.RGBA{255, 200, 0, 255})   // yellow paint
	img.Set(2, 0, color.RGBA{100, 100, 100, 255}) // asphalt
	img.Set(3, 0, color.RGBA{0, 0, 255, 255})     // blue

	out := FilterLaneColors(img, DefaultPaintRanges())

	if out.Bounds() != img.Bounds() {
		t.Fatalf("bounds = %v, want %v", out.Bounds(), img.Bounds())
	}

	if c := out.NRGBAAt(0, 0); c != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("white pixel = %v", c)
	}
	if c := out.NRGBAAt(1, 0); abs(int(c.R)-255) > 5 || abs(int(c.G)-200) > 5 || c.B > 5 {
		t.Errorf("yellow pixel = %v, want about (255,200,0)", c)
	}
	for _, x := range []int{2, 3} {
		if c := out.NRGBAAt(x, 0); c != (color.NRGBA{0, 0, 0, 255}) {
			t.Errorf("pixel %d = %v, want opaque black", x, c)
		}
	}
}

func TestFilterLaneColors_DoesNotModifyInput(t *testing.T) {
	img := createPatternImage(10, 10)
	before := append([]uint8(nil), img.Pix...)

	FilterLaneColors(img, DefaultPaintRanges())

	for i := range before {
		if img.Pix[i] != before[i] {
			t.Fatal("input image was modified")
		}
	}
}

func TestFilterLaneColors_NoRanges(t *testing.T) {
	out := FilterLaneColors(createInMemoryImage(5, 5, color.White), nil)
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] != 0 || out.Pix[i+1] != 0 || out.Pix[i+2] != 0 || out.Pix[i+3] != 255 {
			t.Fatalf("pixel %d = %v, want opaque black", i/4, out.Pix[i:i+4])
		}
	}
}

func TestFilterLaneColors_Pattern(t *testing.T) {
	// Only the white quadrant survives: red, green and blue are outside
	// both paint ranges.
	out := FilterLaneColors(createPatternImage(20, 20), DefaultPaintRanges())

	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			c := out.NRGBAAt(x, y)
			white := x >= 10 && y >= 10
			if white && c.R != 255 {
				t.Fatalf("(%d,%d) = %v, want white", x, y, c)
			}
			if !white && (c.R != 0 || c.G != 0 || c.B != 0) {
				t.Fatalf("(%d,%d) = %v, want black", x, y, c)
			}
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
