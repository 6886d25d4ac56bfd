// Package stitch composes captured stills into one vertical composite.
package stitch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/multishot-scanner/pkg/processing"
)

// ErrNoImages is returned when there is nothing to stitch
var ErrNoImages = errors.New("stitch: no images")

// Stitcher decodes and stacks images top to bottom
type Stitcher struct {
	processor   *processing.Processor
	concurrency int
}

// New creates a stitcher with default settings
func New() *Stitcher {
	return NewWithConfig(processing.NewProcessor(), 0)
}

// NewWithConfig creates a stitcher; concurrency <= 0 means GOMAXPROCS
func NewWithConfig(processor *processing.Processor, concurrency int) *Stitcher {
	if processor == nil {
		processor = processing.NewProcessor()
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &Stitcher{processor: processor, concurrency: concurrency}
}

// Stitch decodes every encoded image and stacks them in input order
func (s *Stitcher) Stitch(ctx context.Context, images [][]byte) (*image.NRGBA, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	decoded := make([]image.Image, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, data := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := s.processor.Decode(data)
			if err != nil {
				return fmt.Errorf("failed to decode image %d: %w", i, err)
			}
			decoded[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Compose(decoded)
}

// Compose stacks decoded images vertically. The canvas is as wide as the
// widest image and as tall as all images together; narrower images are
// left-aligned over a transparent background.
func Compose(images []image.Image) (*image.NRGBA, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	width, height := 0, 0
	for _, img := range images {
		b := img.Bounds()
		if b.Dx() > width {
			width = b.Dx()
		}
		height += b.Dy()
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: all images are empty", ErrNoImages)
	}

	canvas := imaging.New(width, height, color.NRGBA{})
	y := 0
	for _, img := range images {
		canvas = imaging.Paste(canvas, img, image.Pt(0, y))
		y += img.Bounds().Dy()
	}
	return canvas, nil
}
