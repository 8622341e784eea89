// Package pipeline composes the lane detection stages into per-frame and
// per-video entry points.
//
// A Processor is immutable after construction and holds no per-frame state,
// so one Processor may serve many goroutines.
package pipeline

import (
	"fmt"
	"image"
	"iter"

	"github.com/rs/zerolog"

	"github.com/ironsheep/lane-overlay/internal/detection"
	"github.com/ironsheep/lane-overlay/internal/imaging"
)

// Params groups the configuration of every stage.
type Params struct {
	Paint  []imaging.HLSRange       `json:"paint"`
	Canny  imaging.CannyParams      `json:"canny"`
	Region imaging.RegionOfInterest `json:"region"`
	Hough  detection.HoughParams    `json:"hough"`
	Fit    detection.FitParams      `json:"fit"`
	Line   imaging.LineStyle        `json:"line"`
}

// DefaultParams returns the standard lane settings for every stage.
func DefaultParams() Params {
	return Params{
		Paint:  imaging.DefaultPaintRanges(),
		Canny:  imaging.DefaultCannyParams(),
		Region: imaging.DefaultRegionOfInterest(),
		Hough:  detection.DefaultHoughParams(),
		Fit:    detection.DefaultFitParams(),
		Line:   imaging.DefaultLineStyle(),
	}
}

// Processor runs the lane pipeline with a fixed set of Params.
type Processor struct {
	params Params
	log    zerolog.Logger
}

// New returns a Processor. The Paint slice is copied.
func New(params Params, logger zerolog.Logger) *Processor {
	params.Paint = append([]imaging.HLSRange(nil), params.Paint...)
	return &Processor{
		params: params,
		log:    logger.With().Str("component", "pipeline").Logger(),
	}
}

// Params returns a copy of the Processor's configuration.
func (p *Processor) Params() Params {
	out := p.params
	out.Paint = append([]imaging.HLSRange(nil), p.params.Paint...)
	return out
}

// Result holds the lanes of one frame together with every intermediate
// stage, for callers that want to inspect how the lanes were found.
type Result struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	Lanes    detection.LaneResult `json:"lanes"`
	Segments []detection.Segment  `json:"segments"`

	// Original is the caller's frame copied to 8-bit RGB.
	Original *image.NRGBA `json:"-"`
	// ColorMask is the frame after paint color filtering.
	ColorMask *image.NRGBA `json:"-"`
	// Edges is the binary edge mask of ColorMask.
	Edges *image.Gray `json:"-"`
	// RegionEdges is Edges restricted to the region of interest.
	RegionEdges *image.Gray `json:"-"`
}

// Detect runs every stage up to and including the lane fitter.
//
// It returns an error wrapping imaging.ErrMalformedFrame when the frame has
// no pixels; no partial result is produced in that case.
func (p *Processor) Detect(frame image.Image) (*Result, error) {
	original, err := imaging.ToNRGBA(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to accept frame: %w", err)
	}
	b := original.Bounds()

	colorMask := imaging.FilterLaneColors(original, p.params.Paint)
	edges := imaging.ExtractEdges(colorMask, p.params.Canny)
	regionEdges := imaging.RestrictRegion(edges, p.params.Region).(*image.Gray)
	segments := detection.DetectSegments(regionEdges, p.params.Hough)
	lanes := detection.FitLanes(b.Dy(), segments, p.params.Fit)

	p.log.Debug().
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Int("segments", len(segments)).
		Bool("left", lanes.Left.Present()).
		Bool("right", lanes.Right.Present()).
		Msg("frame analyzed")

	return &Result{
		Width:       b.Dx(),
		Height:      b.Dy(),
		Lanes:       lanes,
		Segments:    segments,
		Original:    original,
		ColorMask:   colorMask,
		Edges:       edges,
		RegionEdges: regionEdges,
	}, nil
}

// Render draws r's lanes over r's original frame.
func (p *Processor) Render(r *Result) *image.NRGBA {
	return detection.RenderLanes(r.Original, r.Lanes, p.params.Line)
}

// ProcessFrame returns a new frame with the detected lane lines drawn over
// frame. The input is never modified.
func (p *Processor) ProcessFrame(frame image.Image) (*image.NRGBA, error) {
	r, err := p.Detect(frame)
	if err != nil {
		return nil, err
	}
	return p.Render(r), nil
}

// ProcessVideo lazily applies ProcessFrame to each frame in order.
//
// The returned sequence yields exactly one (frame, error) pair per input
// frame. A malformed frame yields a nil frame and its error at that
// position; later frames are still processed. Stopping the range loop stops
// pulling frames from the source.
func (p *Processor) ProcessVideo(frames iter.Seq[image.Image]) iter.Seq2[*image.NRGBA, error] {
	return func(yield func(*image.NRGBA, error) bool) {
		index := 0
		for frame := range frames {
			out, err := p.ProcessFrame(frame)
			if err != nil {
				p.log.Warn().Err(err).Int("frame", index).Msg("frame rejected")
				err = fmt.Errorf("frame %d: %w", index, err)
			}
			if !yield(out, err) {
				return
			}
			index++
		}
	}
}
