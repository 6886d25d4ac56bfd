package cropper

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/multishot-scanner/pkg/types"
)

// PixelRegion rounds a source-space rectangle to whole pixels relative to
// bounds. Edges are rounded, not origin and size, so a rectangle that ends on
// the image edge never spills past it. A positive extent that rounds to zero
// still yields one pixel.
func PixelRegion(sr types.SourceRect, bounds image.Rectangle) (image.Rectangle, error) {
	if !(sr.Width > 0) || !(sr.Height > 0) {
		return image.Rectangle{}, fmt.Errorf("%w: %.2fx%.2f", ErrDegenerateRegion, sr.Width, sr.Height)
	}

	x0 := int(math.Round(sr.X))
	y0 := int(math.Round(sr.Y))
	x1 := int(math.Round(sr.X + sr.Width))
	y1 := int(math.Round(sr.Y + sr.Height))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}

	region := image.Rect(x0, y0, x1, y1).Add(bounds.Min).Intersect(bounds)
	if region.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: %v outside %v", ErrDegenerateRegion, image.Rect(x0, y0, x1, y1), bounds)
	}
	return region, nil
}

// Rasterize copies the source-space region of img into a new buffer whose
// origin is the region's top-left corner.
func Rasterize(img image.Image, sr types.SourceRect) (*image.NRGBA, error) {
	region, err := PixelRegion(sr, img.Bounds())
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, region), nil
}
