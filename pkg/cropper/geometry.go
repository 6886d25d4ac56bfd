package cropper

import (
	"fmt"
	"math"

	"github.com/menta2k/multishot-scanner/pkg/types"
)

// epsilon absorbs float drift when comparing edges against surface bounds
const epsilon = 1e-9

// Rect is the crop rectangle in display-space pixels
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Contains reports whether (x, y) lies inside the rectangle, edges included
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right() && y >= r.Top && y <= r.Bottom()
}

// Surface is the bounded display canvas for one edit session. Display size is
// the source downscaled to at most MaxDisplayWidth, never upscaled.
type Surface struct {
	SourceWidth   int     `json:"sourceWidth"`
	SourceHeight  int     `json:"sourceHeight"`
	DisplayWidth  int     `json:"displayWidth"`
	DisplayHeight int     `json:"displayHeight"`
	ScaleX        float64 `json:"scaleX"`
	ScaleY        float64 `json:"scaleY"`
}

// NewSurface computes the display surface for a source of w x h pixels
func NewSurface(w, h, maxDisplayWidth int) (Surface, error) {
	if w <= 0 || h <= 0 {
		return Surface{}, fmt.Errorf("%w: %dx%d", ErrInvalidImage, w, h)
	}

	dw := w
	if maxDisplayWidth > 0 && maxDisplayWidth < w {
		dw = maxDisplayWidth
	}
	dh := int(math.Round(float64(h) * float64(dw) / float64(w)))
	if dh < 1 {
		dh = 1
	}

	// Both scale factors come from the natural/display pair; rounding dh makes
	// them differ slightly, so they are applied independently.
	return Surface{
		SourceWidth:   w,
		SourceHeight:  h,
		DisplayWidth:  dw,
		DisplayHeight: dh,
		ScaleX:        float64(w) / float64(dw),
		ScaleY:        float64(h) / float64(dh),
	}, nil
}

// Width returns the display width as a float
func (s Surface) Width() float64 { return float64(s.DisplayWidth) }

// Height returns the display height as a float
func (s Surface) Height() float64 { return float64(s.DisplayHeight) }

// Full returns a rectangle covering the whole surface
func (s Surface) Full() Rect {
	return Rect{Width: s.Width(), Height: s.Height()}
}

// ToSource maps a display-space rectangle to source pixels
func (s Surface) ToSource(r Rect) types.SourceRect {
	return types.SourceRect{
		X:      r.Left * s.ScaleX,
		Y:      r.Top * s.ScaleY,
		Width:  r.Width * s.ScaleX,
		Height: r.Height * s.ScaleY,
	}
}

// ToDisplay maps a source-space rectangle back to display pixels
func (s Surface) ToDisplay(sr types.SourceRect) Rect {
	return Rect{
		Left:   sr.X / s.ScaleX,
		Top:    sr.Y / s.ScaleY,
		Width:  sr.Width / s.ScaleX,
		Height: sr.Height / s.ScaleY,
	}
}

// InBounds reports whether r lies fully inside the surface
func (s Surface) InBounds(r Rect) bool {
	return r.Left >= -epsilon && r.Top >= -epsilon &&
		r.Right() <= s.Width()+epsilon && r.Bottom() <= s.Height()+epsilon
}

// MinSize returns the effective per-axis minimum rectangle size. An axis
// shorter than minSize is capped at its own extent.
func (s Surface) MinSize(minSize float64) (float64, float64) {
	return math.Min(minSize, s.Width()), math.Min(minSize, s.Height())
}

// DefaultRect returns a centered rectangle covering fraction of each axis
func (s Surface) DefaultRect(fraction, minSize float64) Rect {
	minW, minH := s.MinSize(minSize)
	w := math.Max(s.Width()*fraction, minW)
	h := math.Max(s.Height()*fraction, minH)
	return Rect{
		Left:   (s.Width() - w) / 2,
		Top:    (s.Height() - h) / 2,
		Width:  w,
		Height: h,
	}
}

// Fit grows r to the effective minimum size around its center, then shifts
// and clips it to lie inside the surface.
func (s Surface) Fit(r Rect, minSize float64) Rect {
	minW, minH := s.MinSize(minSize)
	w := math.Min(math.Max(r.Width, minW), s.Width())
	h := math.Min(math.Max(r.Height, minH), s.Height())
	cx, cy := r.Left+r.Width/2, r.Top+r.Height/2
	return Rect{
		Left:   clamp(cx-w/2, 0, s.Width()-w),
		Top:    clamp(cy-h/2, 0, s.Height()-h),
		Width:  w,
		Height: h,
	}
}
