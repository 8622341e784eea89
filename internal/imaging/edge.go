package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/disintegration/imaging"
)

// CannyParams controls the edge extractor.
type CannyParams struct {
	// BlurKernel is the side of the square Gaussian smoothing kernel.
	// Must be odd; values below 3 disable smoothing.
	BlurKernel int `json:"blur_kernel"`

	// Low is the hysteresis threshold below which gradient magnitudes are
	// discarded.
	Low float64 `json:"low"`

	// High is the threshold above which a pixel is a strong edge.
	High float64 `json:"high"`
}

// DefaultCannyParams returns the thresholds used for lane paint: a 7x7
// blur and hysteresis between 50 and 100.
func DefaultCannyParams() CannyParams {
	return CannyParams{BlurKernel: 7, Low: 50, High: 100}
}

// ExtractEdges converts frame to a binary edge mask.
//
// The result is a Gray image with the dimensions of frame where 255 marks an
// edge pixel and 0 everything else.
//
// # Algorithm
//
//  1. Grayscale conversion using ITU-R BT.601 weights
//     (0.299*R + 0.587*G + 0.114*B)
//
//  2. Gaussian blur with a BlurKernel x BlurKernel kernel
//
//  3. Sobel gradients on the 0-255 intensity scale,
//     magnitude = |Gx| + |Gy|
//
//  4. Non-maximum suppression along the quantized gradient direction
//
//  5. Hysteresis: pixels above High seed edges, pixels above Low are kept
//     only when 8-connected to a seed through other kept pixels
func ExtractEdges(frame image.Image, p CannyParams) *image.Gray {
	gray := imaging.Grayscale(frame)

	var smoothed image.Image = gray
	if p.BlurKernel >= 3 {
		k := gaussianKernel(p.BlurKernel)
		opts := &convolution.Options{}
		smoothed = convolution.Convolve(convolution.Convolve(gray, k, opts), k.Transposed(), opts)
	}

	lum, width, height := intensityPlane(smoothed)
	return canny(lum, width, height, p.Low, p.High)
}

// gaussianKernel returns a normalized 1-d Gaussian of the given odd size with
// the sigma OpenCV derives when none is given: 0.3*((size-1)/2 - 1) + 0.8.
// A 7-tap kernel gets sigma 1.4.
func gaussianKernel(size int) convolution.Matrix {
	sigma := 0.3*(float64(size-1)/2-1) + 0.8
	k := convolution.NewKernel(size, 1)
	r := size / 2
	for i := range k.Matrix {
		x := float64(i - r)
		k.Matrix[i] = math.Exp(-x * x / (2 * sigma * sigma))
	}
	return k.Normalized()
}

// intensityPlane returns the red channel of a gray image as a row-major
// float slice.
func intensityPlane(img image.Image) ([]float64, int, int) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	plane := make([]float64, width*height)

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < height; y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < width; x++ {
				plane[y*width+x] = float64(row[x*4])
			}
		}
	case *image.NRGBA:
		for y := 0; y < height; y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < width; x++ {
				plane[y*width+x] = float64(row[x*4])
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, _, _, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
				plane[y*width+x] = float64(r >> 8)
			}
		}
	}
	return plane, width, height
}

const (
	tan22_5 = 0.41421356237309503
	tan67_5 = 2.414213562373095
)

// canny runs gradient computation, non-maximum suppression and hysteresis
// over a row-major intensity plane.
func canny(lum []float64, width, height int, low, high float64) *image.Gray {
	result := image.NewGray(image.Rect(0, 0, width, height))
	if width < 3 || height < 3 {
		return result
	}

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	gradX := make([]float64, width*height)
	gradY := make([]float64, width*height)
	magnitude := make([]float64, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				py := clamp(y+ky, 0, height-1)
				for kx := -1; kx <= 1; kx++ {
					px := clamp(x+kx, 0, width-1)
					v := lum[py*width+px]
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			i := y*width + x
			gradX[i] = gx
			gradY[i] = gy
			magnitude[i] = math.Abs(gx) + math.Abs(gy)
		}
	}

	const (
		none uint8 = iota
		weak
		strong
	)
	state := make([]uint8, width*height)
	stack := make([]int, 0, 1024)

	// Non-maximum suppression and double threshold. Border pixels never
	// become edges.
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := magnitude[i]
			if mag <= low {
				continue
			}

			ax := math.Abs(gradX[i])
			ay := math.Abs(gradY[i])

			var n1, n2 float64
			switch {
			case ay <= ax*tan22_5:
				n1 = magnitude[i-1]
				n2 = magnitude[i+1]
			case ay >= ax*tan67_5:
				n1 = magnitude[i-width]
				n2 = magnitude[i+width]
			case (gradX[i] > 0) == (gradY[i] > 0):
				n1 = magnitude[i-width-1]
				n2 = magnitude[i+width+1]
			default:
				n1 = magnitude[i-width+1]
				n2 = magnitude[i+width-1]
			}

			if mag <= n1 || mag < n2 {
				continue
			}
			if mag > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	// Hysteresis: grow strong edges through weak neighbors.
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		y, x := i/width, i%width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				ny, nx := y+dy, x+dx
				if ny < 0 || ny >= height || nx < 0 || nx >= width {
					continue
				}
				j := ny*width + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}

	for i, s := range state {
		if s == strong {
			result.Pix[(i/width)*result.Stride+i%width] = 255
		}
	}
	return result
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
