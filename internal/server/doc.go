// Package server implements the MCP (Model Context Protocol) server for the
// lane pipeline.
//
// The server exposes lane detection and each intermediate pipeline stage as
// tools, so a client can see not only where the lanes are but why: which
// pixels passed the paint filter, which edges survived the region mask, and
// which Hough segments fed each side.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr. Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Lane Pipeline:
//   - lane_detect: Left/right lane segments and fitted lines
//   - lane_overlay: Annotated image (base64 PNG or file)
//   - lane_process_video: Annotate every frame of an animated GIF
//
// Pipeline Stages:
//   - lane_color_mask: Paint color filter output
//   - lane_edge_detect: Canny edges, optionally region-restricted
//   - lane_segments: Raw Hough segments and their left/right split
//   - lane_roi_preview: Image cropped to the road trapezoid
//
// # Image Caching
//
// Decoded images are cached by path for the lifetime of the process, so a
// client can call several stage tools on one image without re-reading it.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
package server
