package analyzer

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DominantColors returns up to n hex colors that cover most of img. Pixels
// are bucketed to 16 levels per channel on a 150px thumbnail.
func DominantColors(img image.Image, n int) []string {
	if n <= 0 || img.Bounds().Empty() {
		return []string{}
	}

	thumb := imaging.Fit(img, 150, 150, imaging.Box)
	counts := map[string]int{}
	b := thumb.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := thumb.NRGBAAt(x, y)
			if c.A < 128 {
				continue
			}
			key := fmt.Sprintf("#%02x%02x%02x", c.R&0xF0, c.G&0xF0, c.B&0xF0)
			counts[key]++
		}
	}

	keys := sortedKeys(counts)
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
