package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrMalformedFrame is returned when a frame has zero area or a pixel buffer
// that does not match its declared layout. Callers should test for it with
// errors.Is; the returned errors carry the specific reason.
var ErrMalformedFrame = errors.New("malformed frame")

// ChannelOrder names the byte order of color channels in a raw frame buffer.
type ChannelOrder int

const (
	// RGB is red, green, blue (the order used by image.NRGBA).
	RGB ChannelOrder = iota
	// BGR is blue, green, red, as delivered by most video decoders.
	BGR
)

// String returns "rgb" or "bgr".
func (o ChannelOrder) String() string {
	switch o {
	case RGB:
		return "rgb"
	case BGR:
		return "bgr"
	default:
		return fmt.Sprintf("ChannelOrder(%d)", int(o))
	}
}

// ValidateFrame reports whether img can be processed.
//
// A frame is malformed when it is nil, has zero width or height, or is one of
// the standard library's buffer-backed types whose pixel slice or stride
// cannot hold its bounds. Paletted frames must also have every index inside
// the palette.
func ValidateFrame(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrMalformedFrame)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: zero area %dx%d", ErrMalformedFrame, b.Dx(), b.Dy())
	}

	switch m := img.(type) {
	case *image.RGBA:
		return checkPlane("rgba", len(m.Pix), m.Stride, 4, b)
	case *image.NRGBA:
		return checkPlane("nrgba", len(m.Pix), m.Stride, 4, b)
	case *image.RGBA64:
		return checkPlane("rgba64", len(m.Pix), m.Stride, 8, b)
	case *image.NRGBA64:
		return checkPlane("nrgba64", len(m.Pix), m.Stride, 8, b)
	case *image.Gray:
		return checkPlane("gray", len(m.Pix), m.Stride, 1, b)
	case *image.Gray16:
		return checkPlane("gray16", len(m.Pix), m.Stride, 2, b)
	case *image.Alpha:
		return checkPlane("alpha", len(m.Pix), m.Stride, 1, b)
	case *image.Alpha16:
		return checkPlane("alpha16", len(m.Pix), m.Stride, 2, b)
	case *image.CMYK:
		return checkPlane("cmyk", len(m.Pix), m.Stride, 4, b)
	case *image.Paletted:
		return checkPaletted(m)
	case *image.NYCbCrA:
		if err := checkYCbCr(&m.YCbCr); err != nil {
			return err
		}
		return checkPlane("alpha plane", len(m.A), m.AStride, 1, b)
	case *image.YCbCr:
		return checkYCbCr(m)
	}
	return nil
}

// checkPlane verifies that a row-major buffer of bpp-byte pixels with the
// given stride covers every pixel of r.
func checkPlane(kind string, n, stride, bpp int, r image.Rectangle) error {
	row := r.Dx() * bpp
	if stride < row {
		return fmt.Errorf("%w: %s stride %d shorter than a %d-byte row", ErrMalformedFrame, kind, stride, row)
	}
	if need := (r.Dy()-1)*stride + row; n < need {
		return fmt.Errorf("%w: %s buffer has %d bytes, bounds %v need %d", ErrMalformedFrame, kind, n, r, need)
	}
	return nil
}

func checkPaletted(m *image.Paletted) error {
	if err := checkPlane("paletted", len(m.Pix), m.Stride, 1, m.Rect); err != nil {
		return err
	}
	for y := 0; y < m.Rect.Dy(); y++ {
		row := m.Pix[y*m.Stride : y*m.Stride+m.Rect.Dx()]
		for _, idx := range row {
			if int(idx) >= len(m.Palette) {
				return fmt.Errorf("%w: palette index %d with %d colors", ErrMalformedFrame, idx, len(m.Palette))
			}
		}
	}
	return nil
}

func checkYCbCr(m *image.YCbCr) error {
	r := m.Rect
	if m.YStride < r.Dx() || m.CStride < 0 {
		return fmt.Errorf("%w: ycbcr strides %d/%d too short for width %d", ErrMalformedFrame, m.YStride, m.CStride, r.Dx())
	}
	last := image.Pt(r.Max.X-1, r.Max.Y-1)
	if len(m.Y) <= m.YOffset(last.X, last.Y) {
		return fmt.Errorf("%w: luma plane has %d bytes for bounds %v", ErrMalformedFrame, len(m.Y), r)
	}
	c := m.COffset(last.X, last.Y)
	if len(m.Cb) <= c || len(m.Cr) <= c {
		return fmt.Errorf("%w: chroma planes have %d/%d bytes for bounds %v", ErrMalformedFrame, len(m.Cb), len(m.Cr), r)
	}
	return nil
}

// ToNRGBA validates img and returns a fresh 8-bit copy anchored at (0,0).
// The caller's image is never referenced by the result.
func ToNRGBA(img image.Image) (*image.NRGBA, error) {
	if err := ValidateFrame(img); err != nil {
		return nil, err
	}
	return imaging.Clone(img), nil
}

// asNRGBA returns img as an NRGBA anchored at the origin, copying only when
// the concrete type or bounds differ. The result must be treated as read-only.
func asNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

// FrameFromBytes builds a frame from an interleaved 8-bit pixel buffer.
//
// Parameters:
//   - pix: width*height*channels bytes, row-major, no padding.
//   - channels: 3 (color) or 4 (color plus alpha, alpha is ignored).
//   - order: byte order of the color channels.
//
// The result is always opaque. Any mismatch between len(pix) and the declared
// layout, or an unsupported channel count, returns ErrMalformedFrame.
func FrameFromBytes(pix []byte, width, height, channels int, order ChannelOrder) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: zero area %dx%d", ErrMalformedFrame, width, height)
	}
	if channels != 3 && channels != 4 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrMalformedFrame, channels)
	}
	if order != RGB && order != BGR {
		return nil, fmt.Errorf("%w: unknown channel order %v", ErrMalformedFrame, order)
	}
	if want := width * height * channels; len(pix) != want {
		return nil, fmt.Errorf("%w: buffer has %d bytes, want %d", ErrMalformedFrame, len(pix), want)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(pix); i, j = i+channels, j+4 {
		r, g, b := pix[i], pix[i+1], pix[i+2]
		if order == BGR {
			r, b = b, r
		}
		dst.Pix[j] = r
		dst.Pix[j+1] = g
		dst.Pix[j+2] = b
		dst.Pix[j+3] = 0xff
	}
	return dst, nil
}

// FrameToBytes is the inverse of FrameFromBytes for 3-channel buffers.
func FrameToBytes(img *image.NRGBA, order ChannelOrder) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			if order == BGR {
				out = append(out, row[x+2], row[x+1], row[x])
			} else {
				out = append(out, row[x], row[x+1], row[x+2])
			}
		}
	}
	return out
}
