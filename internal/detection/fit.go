package detection

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FitParams configures how averaged lines are turned into drawable segments.
type FitParams struct {
	// BandTop is the upper end of the drawn band as a fraction of the frame
	// height. The band always starts at the bottom row.
	BandTop float64 `json:"band_top"`
}

// DefaultFitParams draws lanes from the bottom row up to 60% of the height.
func DefaultFitParams() FitParams {
	return FitParams{BandTop: 0.6}
}

// Candidates converts segments to line candidates split by slope sign.
//
// Vertical segments have no slope and are skipped. Segments with a negative
// slope go to left, all others (including horizontal) to right. The weight
// of each candidate is its segment's length.
func Candidates(segments []Segment) (left, right []LineCandidate) {
	for _, s := range segments {
		slope, ok := s.Slope()
		if !ok {
			continue
		}
		c := LineCandidate{
			Slope:     slope,
			Intercept: float64(s.Y1) - slope*float64(s.X1),
			Weight:    s.Length(),
		}
		if slope < 0 {
			left = append(left, c)
		} else {
			right = append(right, c)
		}
	}
	return left, right
}

// AverageLine returns the weight-averaged slope and intercept of cands, or
// an absent Option when cands is empty or carries no weight.
func AverageLine(cands []LineCandidate) Option[FittedLine] {
	if len(cands) == 0 {
		return None[FittedLine]()
	}

	slopes := make([]float64, len(cands))
	intercepts := make([]float64, len(cands))
	weights := make([]float64, len(cands))
	for i, c := range cands {
		slopes[i] = c.Slope
		intercepts[i] = c.Intercept
		weights[i] = c.Weight
	}
	if floats.Sum(weights) == 0 {
		return None[FittedLine]()
	}

	return Some(FittedLine{
		Slope:     stat.Mean(slopes, weights),
		Intercept: stat.Mean(intercepts, weights),
	})
}

// PixelPoints converts a fitted line into the segment between rows y1 and y2.
//
// x = (y - intercept) / slope, truncated toward zero. A horizontal line
// cannot be inverted; in that case x = y - intercept is used so the caller
// still gets a drawable segment.
func PixelPoints(y1, y2 int, line Option[FittedLine]) Option[Segment] {
	l, ok := line.Get()
	if !ok {
		return None[Segment]()
	}

	xAt := func(y int) int {
		if l.Slope == 0 {
			return int(float64(y) - l.Intercept)
		}
		return int((float64(y) - l.Intercept) / l.Slope)
	}

	return Some(Segment{X1: xAt(y1), Y1: y1, X2: xAt(y2), Y2: y2})
}

// BandRows returns the bottom and top rows of the drawing band.
func BandRows(frameHeight int, p FitParams) (y1, y2 int) {
	// The epsilon keeps products that land a rounding error below an
	// integer on their intended row.
	return frameHeight, int(math.Floor(float64(frameHeight)*p.BandTop + 1e-9))
}

// FitLanes averages segments into a left and a right lane boundary and
// expresses each as a segment spanning the drawing band.
//
// A side with no candidates is absent in the result; that is not an error.
func FitLanes(frameHeight int, segments []Segment, p FitParams) LaneResult {
	left, right := Candidates(segments)
	leftLine := AverageLine(left)
	rightLine := AverageLine(right)

	y1, y2 := BandRows(frameHeight, p)
	return LaneResult{
		Left:      PixelPoints(y1, y2, leftLine),
		Right:     PixelPoints(y1, y2, rightLine),
		LeftLine:  leftLine,
		RightLine: rightLine,
	}
}
