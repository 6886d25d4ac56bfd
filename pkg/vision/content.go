// Package vision locates the part of a capture that carries content, so a
// crop can start from the screenshot rather than the margins around it.
package vision

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ErrNoContent is returned when no row or column of the image has edges
var ErrNoContent = errors.New("no content detected")

// Detector finds content bounds from an edge-strength map
type Detector struct {
	config Config
}

// Config holds configuration for content detection
type Config struct {
	AnalysisSize  int     // longest side of the downscaled analysis image
	EdgeThreshold float64 // normalized edge strength counted as content
	MinCoverage   float64 // fraction of a row or column that must be content
	Padding       float64 // margin added around the bounds, as a fraction of each axis
}

// DefaultConfig returns the standard detection settings
func DefaultConfig() Config {
	return Config{
		AnalysisSize:  256,
		EdgeThreshold: 0.08,
		MinCoverage:   0.01,
		Padding:       0.02,
	}
}

// New creates a Detector with default configuration
func New() *Detector {
	return &Detector{config: DefaultConfig()}
}

// NewWithConfig creates a Detector with custom configuration
func NewWithConfig(config Config) *Detector {
	if config.AnalysisSize < 3 {
		config.AnalysisSize = DefaultConfig().AnalysisSize
	}
	return &Detector{config: config}
}

// Region represents a rectangular region of interest
type Region struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Score  float64 `json:"score"`
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// Rectangle returns the region as an image.Rectangle
func (r Region) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// EdgeMap returns the normalized edge strength of every pixel of a grayscale
// rendition of img. Border pixels are zero.
func EdgeMap(img image.Image) [][]float64 {
	gray := imaging.Grayscale(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	edges := make([][]float64, h)
	for i := range edges {
		edges[i] = make([]float64, w)
	}

	neighbors := [][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	lum := func(x, y int) float64 {
		return float64(gray.Pix[y*gray.Stride+x*4])
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := lum(x, y)
			var sum float64
			for _, n := range neighbors {
				sum += math.Abs(c - lum(x+n[0], y+n[1]))
			}
			edges[y][x] = sum / (8 * 255)
		}
	}
	return edges
}

// ContentBounds returns the bounding box of the rows and columns of img that
// carry edges, padded and clipped to the image. Coordinates are relative to
// the image origin.
func (d *Detector) ContentBounds(img image.Image) (Region, error) {
	b := img.Bounds()
	if b.Empty() {
		return Region{}, ErrNoContent
	}

	small := imaging.Fit(img, d.config.AnalysisSize, d.config.AnalysisSize, imaging.Box)
	sw, sh := small.Rect.Dx(), small.Rect.Dy()
	edges := EdgeMap(small)

	rows := make([]int, sh)
	cols := make([]int, sw)
	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			if edges[y][x] > d.config.EdgeThreshold {
				rows[y]++
				cols[x]++
			}
		}
	}

	top, bottom, ok := span(rows, coverage(sw, d.config.MinCoverage))
	if !ok {
		return Region{}, ErrNoContent
	}
	left, right, ok := span(cols, coverage(sh, d.config.MinCoverage))
	if !ok {
		return Region{}, ErrNoContent
	}

	var score float64
	for y := top; y <= bottom; y++ {
		for x := left; x <= right; x++ {
			score += edges[y][x]
		}
	}
	score /= float64((bottom - top + 1) * (right - left + 1))

	sx := float64(b.Dx()) / float64(sw)
	sy := float64(b.Dy()) / float64(sh)
	padX := d.config.Padding * float64(b.Dx())
	padY := d.config.Padding * float64(b.Dy())

	x0 := clampInt(int(math.Floor(float64(left)*sx-padX)), 0, b.Dx())
	y0 := clampInt(int(math.Floor(float64(top)*sy-padY)), 0, b.Dy())
	x1 := clampInt(int(math.Ceil(float64(right+1)*sx+padX)), 0, b.Dx())
	y1 := clampInt(int(math.Ceil(float64(bottom+1)*sy+padY)), 0, b.Dy())

	return Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0, Score: score}, nil
}

// span returns the first and last index whose count reaches threshold
func span(counts []int, threshold int) (int, int, bool) {
	first, last := -1, -1
	for i, c := range counts {
		if c >= threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last, first >= 0
}

func coverage(n int, fraction float64) int {
	return max(1, int(math.Ceil(float64(n)*fraction)))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
