// Package imaging provides the raster stages of the lane pipeline.
//
// This package implements the pixel operations that surround line detection:
// isolating paint-colored pixels, extracting edges, restricting them to the
// road region, and compositing lane lines over the original frame. It also
// holds the frame boundary (validation, raw buffer conversion, encoding) used
// by the outer collaborators.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// Every stage returns a new image anchored at (0,0) with the same width and
// height as its input.
//
// # Purity
//
// Stage functions never modify their input and keep no state between calls.
// They can be called concurrently on different frames. FrameCache is
// safe for concurrent use.
//
// # Color Representation
//
// Frames are 8-bit RGB (*image.NRGBA, alpha ignored on input and opaque on
// output). Masks are *image.Gray holding 0 or 255. Paint ranges are expressed
// in 8-bit HLS: hue 0-179, lightness and saturation 0-255.
//
// # Error Handling
//
// Stage functions are total over well-formed frames. Functions that accept
// frames from outside return ErrMalformedFrame (wrapped with the reason) for
// nil images, zero-area images and raw buffers whose length or channel count
// does not match.
package imaging
