package detection

import (
	"image"
	"math"
	"math/rand/v2"
)

// HoughParams configures the probabilistic Hough segment detector.
type HoughParams struct {
	// Rho is the distance resolution of the accumulator in pixels.
	Rho float64 `json:"rho"`

	// ThetaDegrees is the angle resolution of the accumulator.
	ThetaDegrees float64 `json:"theta_degrees"`

	// Threshold is the number of votes a line needs before it is traced.
	Threshold int `json:"threshold"`

	// MinLineLength is the shortest segment (along x or y) that is reported.
	MinLineLength int `json:"min_line_length"`

	// MaxLineGap is the longest run of missing pixels bridged while tracing.
	MaxLineGap int `json:"max_line_gap"`

	// MaxLines stops detection after this many segments. 0 means no limit.
	MaxLines int `json:"max_lines"`

	// Seed fixes the order in which edge pixels are visited.
	Seed uint64 `json:"seed"`
}

// DefaultHoughParams returns the lane detector settings: 1px, 1 degree,
// 20 votes, 20px minimum length and a 500px gap.
func DefaultHoughParams() HoughParams {
	return HoughParams{
		Rho:           1,
		ThetaDegrees:  1,
		Threshold:     20,
		MinLineLength: 20,
		MaxLineGap:    500,
		Seed:          0x5eed,
	}
}

// fixed-point shift used while stepping along a traced line
const houghShift = 16

// DetectSegments finds straight segments among the non-zero pixels of mask
// using the progressive probabilistic Hough transform.
//
// # Algorithm
//
// Edge pixels are visited in pseudo-random order. Each pixel votes for every
// (rho, theta) line through it. When a pixel's best line reaches Threshold
// votes, the line is traced in both directions from the pixel, bridging gaps
// of up to MaxLineGap missing pixels. Pixels on the traced span are removed
// from further consideration and, if the span is long enough, their votes
// are withdrawn and the span is reported.
//
// Coordinates in the result are in the mask's coordinate space. The result is
// nil when no line gathers enough votes. Identical inputs and Seed give
// identical output.
func DetectSegments(mask *image.Gray, p HoughParams) []Segment {
	bounds := mask.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 || p.Rho <= 0 || p.ThetaDegrees <= 0 {
		return nil
	}

	theta := p.ThetaDegrees * math.Pi / 180.0
	irho := 1 / p.Rho
	numAngles := int(math.Round(math.Pi / theta))
	numRho := int(math.Round(float64((width+height)*2+1) / p.Rho))
	rhoOffset := (numRho - 1) / 2

	cosTab := make([]float64, numAngles)
	sinTab := make([]float64, numAngles)
	for n := 0; n < numAngles; n++ {
		angle := float64(n) * theta
		cosTab[n] = math.Cos(angle) * irho
		sinTab[n] = math.Sin(angle) * irho
	}

	accumulator := make([]int, numAngles*numRho)
	edges := make([]bool, width*height)
	points := make([]image.Point, 0, width)
	for y := 0; y < height; y++ {
		row := mask.Pix[mask.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < width; x++ {
			if row[x] != 0 {
				edges[y*width+x] = true
				points = append(points, image.Point{X: x, Y: y})
			}
		}
	}

	vote := func(x, y, delta int) {
		for n := 0; n < numAngles; n++ {
			r := int(math.Round(float64(x)*cosTab[n]+float64(y)*sinTab[n])) + rhoOffset
			accumulator[n*numRho+r] += delta
		}
	}

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	var segments []Segment

	for count := len(points); count > 0; count-- {
		idx := rng.IntN(count)
		pt := points[idx]
		points[idx] = points[count-1]

		if !edges[pt.Y*width+pt.X] {
			continue
		}

		// Vote and find the strongest line through this pixel.
		maxVal := p.Threshold - 1
		maxN := 0
		for n := 0; n < numAngles; n++ {
			r := int(math.Round(float64(pt.X)*cosTab[n]+float64(pt.Y)*sinTab[n])) + rhoOffset
			i := n*numRho + r
			accumulator[i]++
			if accumulator[i] > maxVal {
				maxVal = accumulator[i]
				maxN = n
			}
		}
		if maxVal < p.Threshold {
			continue
		}

		// Step along the line one pixel at a time on the major axis, with
		// the minor axis in fixed point.
		a := -sinTab[maxN]
		b := cosTab[maxN]
		x0, y0 := pt.X, pt.Y
		var dx0, dy0 int
		xMajor := math.Abs(a) > math.Abs(b)
		if xMajor {
			dx0 = 1
			if a < 0 {
				dx0 = -1
			}
			dy0 = int(math.Round(b * (1 << houghShift) / math.Abs(a)))
			y0 = (y0 << houghShift) + (1 << (houghShift - 1))
		} else {
			dy0 = 1
			if b < 0 {
				dy0 = -1
			}
			dx0 = int(math.Round(a * (1 << houghShift) / math.Abs(b)))
			x0 = (x0 << houghShift) + (1 << (houghShift - 1))
		}

		toPixel := func(x, y int) (int, int) {
			if xMajor {
				return x, y >> houghShift
			}
			return x >> houghShift, y
		}

		var lineEnd [2]image.Point
		for k := 0; k < 2; k++ {
			gap := 0
			x, y, dx, dy := x0, y0, dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			for ; ; x, y = x+dx, y+dy {
				px, py := toPixel(x, y)
				if px < 0 || px >= width || py < 0 || py >= height {
					break
				}
				if edges[py*width+px] {
					gap = 0
					lineEnd[k] = image.Point{X: px, Y: py}
				} else if gap++; gap > p.MaxLineGap {
					break
				}
			}
		}

		goodLine := absInt(lineEnd[1].X-lineEnd[0].X) >= p.MinLineLength ||
			absInt(lineEnd[1].Y-lineEnd[0].Y) >= p.MinLineLength

		// Consume the traced pixels; withdraw their votes for reported lines.
		for k := 0; k < 2; k++ {
			x, y, dx, dy := x0, y0, dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			for ; ; x, y = x+dx, y+dy {
				px, py := toPixel(x, y)
				if px < 0 || px >= width || py < 0 || py >= height {
					break
				}
				if i := py*width + px; edges[i] {
					if goodLine {
						vote(px, py, -1)
					}
					edges[i] = false
				}
				if px == lineEnd[k].X && py == lineEnd[k].Y {
					break
				}
			}
		}

		if !goodLine {
			continue
		}
		segments = append(segments, Segment{
			X1: lineEnd[0].X + bounds.Min.X,
			Y1: lineEnd[0].Y + bounds.Min.Y,
			X2: lineEnd[1].X + bounds.Min.X,
			Y2: lineEnd[1].Y + bounds.Min.Y,
		})
		if p.MaxLines > 0 && len(segments) >= p.MaxLines {
			break
		}
	}

	return segments
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
