package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func countEdges(g *image.Gray) int {
	n := 0
	for _, v := range g.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

func TestExtractEdges(t *testing.T) {
	// Black rectangle on white background gives four straight edges
	img := createEdgeTestImage(100, 100)

	edges := ExtractEdges(img, DefaultCannyParams())

	if edges.Bounds() != image.Rect(0, 0, 100, 100) {
		t.Fatalf("bounds = %v, want 100x100", edges.Bounds())
	}
	for i, v := range edges.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("pixel %d = %d, want binary mask", i, v)
		}
	}

	// Every row crossing the rectangle has an edge near x=25 and x=75
	for _, y := range []int{35, 50, 65} {
		left, right := false, false
		for x := 20; x <= 30; x++ {
			left = left || edges.GrayAt(x, y).Y == 255
		}
		for x := 70; x <= 80; x++ {
			right = right || edges.GrayAt(x, y).Y == 255
		}
		if !left || !right {
			t.Errorf("row %d: left edge %v, right edge %v", y, left, right)
		}
	}

	// Flat regions stay empty
	for _, p := range []image.Point{{50, 50}, {5, 5}, {95, 95}, {50, 5}} {
		if edges.GrayAt(p.X, p.Y).Y != 0 {
			t.Errorf("unexpected edge at %v", p)
		}
	}
}

func TestExtractEdges_ThinEdges(t *testing.T) {
	// Non-maximum suppression leaves a single pixel across a vertical step
	edges := ExtractEdges(createEdgeTestImage(100, 100), DefaultCannyParams())

	y := 50
	count := 0
	for x := 15; x <= 35; x++ {
		if edges.GrayAt(x, y).Y == 255 {
			count++
		}
	}
	if count != 1 {
		t.Errorf("edge width across x=25 step = %d pixels, want 1", count)
	}
}

func TestExtractEdges_Thresholds(t *testing.T) {
	img := createEdgeTestImage(60, 60)

	tests := []struct {
		name     string
		low      float64
		high     float64
		wantNone bool
	}{
		{"default", 50, 100, false},
		{"permissive", 10, 20, false},
		{"above any gradient", 5000, 6000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := countEdges(ExtractEdges(img, CannyParams{BlurKernel: 7, Low: tt.low, High: tt.high}))
			if tt.wantNone && n != 0 {
				t.Errorf("got %d edge pixels, want none", n)
			}
			if !tt.wantNone && n == 0 {
				t.Error("got no edge pixels")
			}
		})
	}
}

func TestExtractEdges_UniformImage(t *testing.T) {
	for _, c := range []color.Color{color.White, color.Black, color.RGBA{100, 100, 100, 255}} {
		edges := ExtractEdges(createInMemoryImage(50, 50, c), DefaultCannyParams())
		if n := countEdges(edges); n != 0 {
			t.Errorf("color %v: got %d edge pixels, want 0", c, n)
		}
	}
}

func TestExtractEdges_NoBlur(t *testing.T) {
	edges := ExtractEdges(createEdgeTestImage(40, 40), CannyParams{BlurKernel: 1, Low: 50, High: 100})
	if countEdges(edges) == 0 {
		t.Error("expected edges without smoothing")
	}
}

func TestExtractEdges_SmallImage(t *testing.T) {
	edges := ExtractEdges(createInMemoryImage(2, 2, color.White), DefaultCannyParams())
	if edges.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Errorf("bounds = %v, want 2x2", edges.Bounds())
	}
	if countEdges(edges) != 0 {
		t.Error("tiny image should have no edges")
	}
}

func TestExtractEdges_Deterministic(t *testing.T) {
	img := createPatternImage(64, 48)
	a := ExtractEdges(img, DefaultCannyParams())
	b := ExtractEdges(img, DefaultCannyParams())
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("pixel %d differs between runs", i)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, min, max, want int
	}{
		{5, 0, 10, 5},   // within range
		{-1, 0, 10, 0},  // below min
		{15, 0, 10, 10}, // above max
		{0, 0, 10, 0},   // at min
		{10, 0, 10, 10}, // at max
	}

	for _, tt := range tests {
		got := clamp(tt.val, tt.min, tt.max)
		if got != tt.want {
			t.Errorf("clamp(%d, %d, %d): got %d, want %d",
				tt.val, tt.min, tt.max, got, tt.want)
		}
	}
}

// createEdgeTestImage creates an image with a black rectangle on white background
// to create clear edges for testing
func createEdgeTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}

	for y := height / 4; y < 3*height/4; y++ {
		for x := width / 4; x < 3*width/4; x++ {
			img.Set(x, y, color.Black)
		}
	}

	return img
}

func TestGaussianKernel(t *testing.T) {
	k := gaussianKernel(7)
	if k.MaxX() != 7 || k.MaxY() != 1 {
		t.Fatalf("kernel size = %dx%d, want 7x1", k.MaxX(), k.MaxY())
	}

	sum := 0.0
	for x := 0; x < 7; x++ {
		sum += k.At(x, 0)
		if d := k.At(x, 0) - k.At(6-x, 0); d > 1e-12 || d < -1e-12 {
			t.Errorf("tap %d not symmetric", x)
		}
	}
	if sum < 1-1e-9 || sum > 1+1e-9 {
		t.Errorf("taps sum to %v, want 1", sum)
	}

	// sigma 1.4: neighboring taps differ by exp(-(2x+1)/(2*1.96))
	want := math.Exp(-1 / 3.92)
	if got := k.At(4, 0) / k.At(3, 0); math.Abs(got-want) > 1e-9 {
		t.Errorf("tap ratio = %v, want %v", got, want)
	}
	if got := k.At(3, 0); math.Abs(got-0.2880) > 1e-3 {
		t.Errorf("center tap = %v, want about 0.288", got)
	}
}
