// Package video reads and writes frame sequences for the lane pipeline.
//
// Animated GIF is the only container handled here; each decoded frame is
// composited onto the logical screen so every yielded frame is a complete
// picture of the same size.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"iter"
)

// ErrEmptyClip is returned when a GIF holds no frames or EncodeGIF is given
// none.
var ErrEmptyClip = errors.New("clip has no frames")

// DefaultDelay is the per-frame delay, in 100ths of a second, used when
// encoding frames that carry no timing.
const DefaultDelay = 4

// Clip is a decoded animation.
type Clip struct {
	// Width and Height are the logical screen size.
	Width  int
	Height int
	// Delays holds one entry per frame, in 100ths of a second.
	Delays []int
	// LoopCount follows image/gif: 0 loops forever.
	LoopCount int

	raw *gif.GIF
}

// Len returns the number of frames.
func (c *Clip) Len() int {
	return len(c.raw.Image)
}

// DecodeGIF reads an animated (or single-frame) GIF.
func DecodeGIF(r io.Reader) (*Clip, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode gif: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, ErrEmptyClip
	}

	w, h := g.Config.Width, g.Config.Height
	if w == 0 || h == 0 {
		b := g.Image[0].Bounds()
		w, h = b.Max.X, b.Max.Y
	}

	delays := make([]int, len(g.Image))
	for i := range delays {
		if i < len(g.Delay) {
			delays[i] = g.Delay[i]
		}
	}

	return &Clip{
		Width:     w,
		Height:    h,
		Delays:    delays,
		LoopCount: g.LoopCount,
		raw:       g,
	}, nil
}

// Frames yields each frame composited onto the logical screen. Disposal
// methods are honored. Every yielded image is a fresh *image.RGBA that the
// caller may keep.
func (c *Clip) Frames() iter.Seq[image.Image] {
	return func(yield func(image.Image) bool) {
		bounds := image.Rect(0, 0, c.Width, c.Height)
		canvas := image.NewRGBA(bounds)
		var previous *image.RGBA

		for i, frame := range c.raw.Image {
			disposal := byte(gif.DisposalNone)
			if i < len(c.raw.Disposal) {
				disposal = c.raw.Disposal[i]
			}
			if disposal == gif.DisposalPrevious {
				previous = cloneRGBA(canvas)
			}

			draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
			if !yield(cloneRGBA(canvas)) {
				return
			}

			switch disposal {
			case gif.DisposalBackground:
				draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
			case gif.DisposalPrevious:
				if previous != nil {
					canvas = previous
				}
			}
		}
	}
}

// EncodeGIF writes frames as an animated GIF that loops forever.
//
// delays supplies per-frame timing; missing entries use DefaultDelay. Frames
// are quantized to the Plan 9 palette with Floyd-Steinberg dithering. A nil
// frame is skipped along with its delay. The context is checked between
// frames.
func EncodeGIF(ctx context.Context, w io.Writer, frames []image.Image, delays []int) error {
	out := &gif.GIF{}
	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if frame == nil {
			continue
		}

		b := frame.Bounds()
		pm := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette.Plan9)
		draw.FloydSteinberg.Draw(pm, pm.Bounds(), frame, b.Min)

		delay := DefaultDelay
		if i < len(delays) && delays[i] > 0 {
			delay = delays[i]
		}
		out.Image = append(out.Image, pm)
		out.Delay = append(out.Delay, delay)
	}
	if len(out.Image) == 0 {
		return ErrEmptyClip
	}

	if err := gif.EncodeAll(w, out); err != nil {
		return fmt.Errorf("failed to encode gif: %w", err)
	}
	return nil
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
