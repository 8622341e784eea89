package server

import (
	"github.com/ironsheep/lane-overlay/internal/imaging"
	"github.com/ironsheep/lane-overlay/internal/pipeline"
)

// Tool is an MCP tool definition as returned by tools/list.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// schema builds a JSON Schema object. "path" is always required.
func schema(props map[string]interface{}, required ...string) map[string]interface{} {
	if _, ok := props["path"]; !ok {
		props["path"] = stringProp("Absolute path to the image file")
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   append([]string{"path"}, required...),
	}
}

func stringProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func withDefault(typ, desc string, def interface{}) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": desc, "default": def}
}

// GetToolDefinitions returns every tool the server exposes. Defaults shown to
// clients are the pipeline defaults.
func GetToolDefinitions() []Tool {
	def := pipeline.DefaultParams()
	style := imaging.DefaultLineStyle()

	return []Tool{
		// Frame information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and the bounding box of the road region. The decoded frame is cached for the lane tools.",
			InputSchema: schema(map[string]interface{}{}),
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: schema(map[string]interface{}{}),
		},

		// Lane pipeline
		{
			Name:        "lane_detect",
			Description: "Run lane detection on a road image. Returns the left and right lane segments (null when a side is not found) and the fitted slope/intercept of each side.",
			InputSchema: schema(map[string]interface{}{
				"include_segments": withDefault("boolean", "Also return the raw Hough segments", false),
			}),
		},
		{
			Name:        "lane_overlay",
			Description: "Draw the detected lane lines over a road image. Returns base64 PNG, or writes to output_path in the format given by its extension (.png, .jpg, .jpeg).",
			InputSchema: schema(map[string]interface{}{
				"output_path": stringProp("Optional file to write instead of returning base64"),
				"line_color":  withDefault("string", "Line color as hex (e.g., '#FF0000')", imaging.HexColor(style.Color)),
				"thickness":   withDefault("integer", "Line thickness in pixels", style.Thickness),
			}),
		},
		{
			Name:        "lane_process_video",
			Description: "Process every frame of an animated GIF and write the annotated animation to output_path. Frames that cannot be processed are reported and dropped.",
			InputSchema: schema(map[string]interface{}{
				"path":        stringProp("Absolute path to the input GIF"),
				"output_path": stringProp("Absolute path of the GIF to write"),
			}, "output_path"),
		},

		// Pipeline stages
		{
			Name:        "lane_color_mask",
			Description: "Show which pixels pass the yellow/white paint color filter. Returns base64 PNG with all other pixels black.",
			InputSchema: schema(map[string]interface{}{}),
		},
		{
			Name:        "lane_edge_detect",
			Description: "Show the Canny edges of the paint color mask, by default restricted to the road region. Returns base64 PNG with white edges on black.",
			InputSchema: schema(map[string]interface{}{
				"low_threshold":   withDefault("number", "Canny low threshold", def.Canny.Low),
				"high_threshold":  withDefault("number", "Canny high threshold", def.Canny.High),
				"restrict_region": withDefault("boolean", "Keep only edges inside the road trapezoid", true),
			}),
		},
		{
			Name:        "lane_segments",
			Description: "List the line segments found by the probabilistic Hough transform and how they split into left and right lane candidates.",
			InputSchema: schema(map[string]interface{}{
				"threshold":       withDefault("integer", "Minimum accumulator votes", def.Hough.Threshold),
				"min_line_length": withDefault("integer", "Minimum segment length in pixels", def.Hough.MinLineLength),
				"max_line_gap":    withDefault("integer", "Maximum gap bridged within one segment", def.Hough.MaxLineGap),
			}),
		},
		{
			Name:        "lane_roi_preview",
			Description: "Crop the image to the road trapezoid used for lane detection, blacking out pixels outside it. Returns base64 PNG and the trapezoid vertices.",
			InputSchema: schema(map[string]interface{}{
				"scale": withDefault("number", "Optional scale factor (e.g., 2.0 to double size)", 1.0),
			}),
		},
	}
}

func (s *Server) handleToolsList(req *Request) *Response {
	return s.result(req.ID, map[string]interface{}{
		"tools": GetToolDefinitions(),
	})
}
