package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// RegionBounds returns the bounding rectangle of roi for a frame of the given
// size, clipped to the frame.
func RegionBounds(width, height int, roi RegionOfInterest) image.Rectangle {
	pts := roi.Vertices(width, height)
	var r image.Rectangle
	for _, p := range pts {
		r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
	return r.Intersect(image.Rect(0, 0, width, height))
}

// CropRegion restricts frame to roi and crops the result to the region's
// bounding box, optionally scaling it.
//
// A scale of 0 or 1 leaves the crop at native resolution. Scaling uses
// Lanczos resampling.
func CropRegion(frame image.Image, roi RegionOfInterest, scale float64) (*image.NRGBA, error) {
	if err := ValidateFrame(frame); err != nil {
		return nil, err
	}
	if scale < 0 {
		return nil, fmt.Errorf("invalid scale %.2f: must not be negative", scale)
	}

	b := frame.Bounds()
	rect := RegionBounds(b.Dx(), b.Dy(), roi)
	if rect.Empty() {
		return nil, fmt.Errorf("region of interest is empty for a %dx%d frame", b.Dx(), b.Dy())
	}

	restricted := RestrictRegion(frame, roi)
	cropped := imaging.Crop(restricted, rect)

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth < 1 || newHeight < 1 {
			return nil, fmt.Errorf("scale %.2f produces an empty image", scale)
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}
	return cropped, nil
}
