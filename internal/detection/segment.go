package detection

import (
	"encoding/json"
	"math"
)

// Segment is a straight line segment between two integer pixel positions.
type Segment struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Length returns the Euclidean distance between the endpoints.
func (s Segment) Length() float64 {
	return math.Hypot(float64(s.X2-s.X1), float64(s.Y2-s.Y1))
}

// Slope returns dy/dx. ok is false for vertical segments.
func (s Segment) Slope() (slope float64, ok bool) {
	if s.X1 == s.X2 {
		return 0, false
	}
	return float64(s.Y2-s.Y1) / float64(s.X2-s.X1), true
}

// Option holds a value that may be absent.
//
// The zero Option is absent. Use Get to branch on presence.
type Option[T any] struct {
	value T
	ok    bool
}

// Some returns a present Option holding v.
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

// None returns an absent Option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present reports whether the Option holds a value.
func (o Option[T]) Present() bool {
	return o.ok
}

// MarshalJSON encodes an absent Option as null and a present one as its value.
func (o Option[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as absent and anything else as a present value.
func (o *Option[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// LineCandidate is one segment expressed as a line with its length as weight.
type LineCandidate struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	Weight    float64 `json:"weight"`
}

// FittedLine is y = Slope*x + Intercept in pixel coordinates.
type FittedLine struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// LaneResult holds the fitted boundaries of one frame in endpoint form.
// Either side may be absent.
type LaneResult struct {
	Left  Option[Segment] `json:"left"`
	Right Option[Segment] `json:"right"`

	// LeftLine and RightLine are the averaged lines the segments were
	// derived from.
	LeftLine  Option[FittedLine] `json:"left_line"`
	RightLine Option[FittedLine] `json:"right_line"`
}
