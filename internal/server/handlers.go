package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/ironsheep/lane-overlay/internal/detection"
	"github.com/ironsheep/lane-overlay/internal/imaging"
	"github.com/ironsheep/lane-overlay/internal/pipeline"
	"github.com/ironsheep/lane-overlay/internal/video"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "lane_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall runs the named tool and wraps its result in MCP's content
// format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Malformed params get codeInvalidParams; tool failures get codeToolFailure.
func (s *Server) handleToolsCall(req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("Tool execution failed")
		return s.errorResponse(req.ID, codeToolFailure, "Tool execution failed", err.Error())
	}

	return s.result(req.ID, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": mustMarshalJSON(result),
			},
		},
	})
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Frame information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Lane Pipeline
	case "lane_detect":
		return s.handleLaneDetect(args)
	case "lane_overlay":
		return s.handleLaneOverlay(args)
	case "lane_process_video":
		return s.handleLaneProcessVideo(args)

	// Pipeline Stages
	case "lane_color_mask":
		return s.handleLaneColorMask(args)
	case "lane_edge_detect":
		return s.handleLaneEdgeDetect(args)
	case "lane_segments":
		return s.handleLaneSegments(args)
	case "lane_roi_preview":
		return s.handleLaneROIPreview(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// withParams returns the server's processor, or a new one when edit changes
// any parameter.
func (s *Server) withParams(edit func(p *pipeline.Params) bool) *pipeline.Processor {
	p := s.processor.Params()
	if !edit(&p) {
		return s.processor
	}
	return pipeline.New(p, s.log)
}

// === Frame Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadFrameInfo(s.frames, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.FrameDimensions(s.frames, a.Path)
}

// === Lane Pipeline Handlers ===

type laneDetectArgs struct {
	Path            string `json:"path"`
	IncludeSegments bool   `json:"include_segments"`
}

// LaneDetectResult is the lane_detect tool output.
type LaneDetectResult struct {
	Width        int                                    `json:"width"`
	Height       int                                    `json:"height"`
	Left         detection.Option[detection.Segment]    `json:"left"`
	Right        detection.Option[detection.Segment]    `json:"right"`
	LeftLine     detection.Option[detection.FittedLine] `json:"left_line"`
	RightLine    detection.Option[detection.FittedLine] `json:"right_line"`
	SegmentCount int                                    `json:"segment_count"`
	Segments     []detection.Segment                    `json:"segments,omitempty"`
}

func (s *Server) handleLaneDetect(args json.RawMessage) (interface{}, error) {
	var a laneDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.frames.Load(a.Path)
	if err != nil {
		return nil, err
	}
	r, err := s.processor.Detect(img)
	if err != nil {
		return nil, err
	}

	out := &LaneDetectResult{
		Width:        r.Width,
		Height:       r.Height,
		Left:         r.Lanes.Left,
		Right:        r.Lanes.Right,
		LeftLine:     r.Lanes.LeftLine,
		RightLine:    r.Lanes.RightLine,
		SegmentCount: len(r.Segments),
	}
	if a.IncludeSegments {
		out.Segments = r.Segments
	}
	return out, nil
}

type laneOverlayArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
	LineColor  string `json:"line_color"`
	Thickness  int    `json:"thickness"`
}

// LaneOverlayResult is the lane_overlay tool output. The image is inlined
// as base64 PNG unless an output path was given.
type LaneOverlayResult struct {
	*imaging.EncodedImage

	OutputPath string `json:"output_path,omitempty"`
	LeftFound  bool   `json:"left_found"`
	RightFound bool   `json:"right_found"`
	LineColor  string `json:"line_color"`
	Thickness  int    `json:"thickness"`
}

func (s *Server) handleLaneOverlay(args json.RawMessage) (interface{}, error) {
	var a laneOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var lineColor color.NRGBA
	if a.LineColor != "" {
		c, err := imaging.ParseHexColor(a.LineColor)
		if err != nil {
			return nil, err
		}
		lineColor = c
	}
	proc := s.withParams(func(p *pipeline.Params) bool {
		changed := false
		if a.LineColor != "" {
			p.Line.Color = lineColor
			changed = true
		}
		if a.Thickness > 0 {
			p.Line.Thickness = a.Thickness
			changed = true
		}
		return changed
	})

	img, err := s.frames.Load(a.Path)
	if err != nil {
		return nil, err
	}
	r, err := proc.Detect(img)
	if err != nil {
		return nil, err
	}
	rendered := proc.Render(r)

	style := proc.Params().Line
	out := &LaneOverlayResult{
		LeftFound:  r.Lanes.Left.Present(),
		RightFound: r.Lanes.Right.Present(),
		LineColor:  imaging.HexColor(style.Color),
		Thickness:  style.Thickness,
	}
	if a.OutputPath == "" {
		enc, err := imaging.EncodeBase64PNG(rendered)
		if err != nil {
			return nil, err
		}
		out.EncodedImage = enc
		return out, nil
	}

	if err := writeImageFile(a.OutputPath, rendered); err != nil {
		return nil, err
	}
	out.OutputPath = a.OutputPath
	return out, nil
}

func writeImageFile(path string, img image.Image) error {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := imaging.Encode(f, img, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type laneProcessVideoArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
}

// VideoResult summarizes a processed animation.
type VideoResult struct {
	OutputPath   string `json:"output_path"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Frames       int    `json:"frames"`
	FailedFrames []int  `json:"failed_frames,omitempty"`
}

func (s *Server) handleLaneProcessVideo(args json.RawMessage) (interface{}, error) {
	var a laneProcessVideoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.OutputPath == "" {
		return nil, fmt.Errorf("output_path is required")
	}

	in, err := os.Open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	clip, err := video.DecodeGIF(in)
	in.Close()
	if err != nil {
		return nil, err
	}

	result := &VideoResult{OutputPath: a.OutputPath, Width: clip.Width, Height: clip.Height}
	frames := make([]image.Image, 0, clip.Len())
	index := 0
	for frame, err := range s.processor.ProcessVideo(clip.Frames()) {
		if err != nil {
			result.FailedFrames = append(result.FailedFrames, index)
			frames = append(frames, nil)
		} else {
			frames = append(frames, frame)
		}
		index++
	}
	result.Frames = index

	out, err := os.Create(a.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	if err := video.EncodeGIF(context.Background(), out, frames, clip.Delays); err != nil {
		out.Close()
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, err
	}
	return result, nil
}

// === Pipeline Stage Handlers ===

// StageImage is an intermediate stage rendered as PNG, with the number of
// pixels the stage kept.
type StageImage struct {
	*imaging.EncodedImage
	ActivePixels int `json:"active_pixels"`
}

func (s *Server) handleLaneColorMask(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.frames.Load(a.Path)
	if err != nil {
		return nil, err
	}
	frame, err := imaging.ToNRGBA(img)
	if err != nil {
		return nil, err
	}

	mask := imaging.FilterLaneColors(frame, s.processor.Params().Paint)
	enc, err := imaging.EncodeBase64PNG(mask)
	if err != nil {
		return nil, err
	}

	active := 0
	for i := 0; i < len(mask.Pix); i += 4 {
		if mask.Pix[i] != 0 || mask.Pix[i+1] != 0 || mask.Pix[i+2] != 0 {
			active++
		}
	}
	return &StageImage{EncodedImage: enc, ActivePixels: active}, nil
}

type laneEdgeDetectArgs struct {
	Path           string  `json:"path"`
	LowThreshold   float64 `json:"low_threshold"`
	HighThreshold  float64 `json:"high_threshold"`
	RestrictRegion *bool   `json:"restrict_region"`
}

func (s *Server) handleLaneEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a laneEdgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	proc := s.withParams(func(p *pipeline.Params) bool {
		changed := false
		if a.LowThreshold > 0 {
			p.Canny.Low = a.LowThreshold
			changed = true
		}
		if a.HighThreshold > 0 {
			p.Canny.High = a.HighThreshold
			changed = true
		}
		return changed
	})

	img, err := s.frames.Load(a.Path)
	if err != nil {
		return nil, err
	}
	r, err := proc.Detect(img)
	if err != nil {
		return nil, err
	}

	edges := r.RegionEdges
	if a.RestrictRegion != nil && !*a.RestrictRegion {
		edges = r.Edges
	}
	enc, err := imaging.EncodeBase64PNG(edges)
	if err != nil {
		return nil, err
	}

	active := 0
	for _, v := range edges.Pix {
		if v != 0 {
			active++
		}
	}
	return &StageImage{EncodedImage: enc, ActivePixels: active}, nil
}

type laneSegmentsArgs struct {
	Path          string `json:"path"`
	Threshold     int    `json:"threshold"`
	MinLineLength int    `json:"min_line_length"`
	MaxLineGap    int    `json:"max_line_gap"`
}

// SegmentsResult lists raw segments and their split into lane candidates.
type SegmentsResult struct {
	Count    int                       `json:"count"`
	Segments []detection.Segment       `json:"segments"`
	Left     []detection.LineCandidate `json:"left_candidates"`
	Right    []detection.LineCandidate `json:"right_candidates"`
}

func (s *Server) handleLaneSegments(args json.RawMessage) (interface{}, error) {
	var a laneSegmentsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	proc := s.withParams(func(p *pipeline.Params) bool {
		changed := false
		if a.Threshold > 0 {
			p.Hough.Threshold = a.Threshold
			changed = true
		}
		if a.MinLineLength > 0 {
			p.Hough.MinLineLength = a.MinLineLength
			changed = true
		}
		if a.MaxLineGap > 0 {
			p.Hough.MaxLineGap = a.MaxLineGap
			changed = true
		}
		return changed
	})

	img, err := s.frames.Load(a.Path)
	if err != nil {
		return nil, err
	}
	r, err := proc.Detect(img)
	if err != nil {
		return nil, err
	}

	left, right := detection.Candidates(r.Segments)
	return &SegmentsResult{
		Count:    len(r.Segments),
		Segments: r.Segments,
		Left:     left,
		Right:    right,
	}, nil
}

type laneROIPreviewArgs struct {
	Path  string  `json:"path"`
	Scale float64 `json:"scale"`
}

// ROIPreviewResult is the frame cropped to the road trapezoid.
type ROIPreviewResult struct {
	*imaging.EncodedImage
	Vertices []image.Point `json:"vertices"`
}

func (s *Server) handleLaneROIPreview(args json.RawMessage) (interface{}, error) {
	var a laneROIPreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.frames.Load(a.Path)
	if err != nil {
		return nil, err
	}

	roi := s.processor.Params().Region
	cropped, err := imaging.CropRegion(img, roi, a.Scale)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.EncodeBase64PNG(cropped)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &ROIPreviewResult{EncodedImage: enc, Vertices: roi.Vertices(b.Dx(), b.Dy())}, nil
}
