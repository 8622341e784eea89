// Package detection finds lane boundaries in an edge mask.
//
// It provides the geometric half of the lane pipeline: a probabilistic Hough
// transform that turns edge pixels into line segments, and a fitter that
// averages those segments into one left and one right boundary.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Because Y grows downward, a lane boundary on the left of a road-facing
// frame rises to the right and has a negative slope; the right boundary has
// a positive slope.
//
// # Absent Results
//
// A side with no qualifying segments is represented by an absent Option, not
// by an error or a sentinel value. Callers branch with Get:
//
//	if seg, ok := lanes.Left.Get(); ok {
//	    // draw seg
//	}
//
// # Degenerate Geometry
//
// Vertical segments have no slope and are skipped while fitting. A fitted
// line that is exactly horizontal is converted to endpoints with the
// fallback x = y - intercept instead of dividing by zero.
package detection
