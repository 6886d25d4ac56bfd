// Package camera provides frame sources for capturing stills.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/menta2k/multishot-scanner/pkg/processing"
)

// ErrNoFrame is returned when a source has no more frames to deliver
var ErrNoFrame = errors.New("camera: no frame available")

// Source delivers still frames
type Source interface {
	Frame(ctx context.Context) (image.Image, error)
}

// Recorder receives encoded stills; capture.List satisfies it
type Recorder interface {
	Add(original []byte) int
}

// ImageSource replays in-memory frames in order
type ImageSource struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
}

// NewImageSource creates a source over the given frames
func NewImageSource(frames ...image.Image) *ImageSource {
	return &ImageSource{frames: frames}
}

// Frame returns the next frame or ErrNoFrame once all are consumed
func (s *ImageSource) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.frames) {
		return nil, ErrNoFrame
	}
	img := s.frames[s.next]
	s.next++
	return img, nil
}

// FileSource treats a list of image files or URLs as successive frames
type FileSource struct {
	mu        sync.Mutex
	paths     []string
	next      int
	processor *processing.Processor
}

// NewFileSource creates a source over image paths or http(s) URLs
func NewFileSource(processor *processing.Processor, paths ...string) *FileSource {
	if processor == nil {
		processor = processing.NewProcessor()
	}
	return &FileSource{paths: paths, processor: processor}
}

// Frame loads the next path
func (s *FileSource) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.next >= len(s.paths) {
		s.mu.Unlock()
		return nil, ErrNoFrame
	}
	path := s.paths[s.next]
	s.next++
	s.mu.Unlock()

	img, err := s.processor.LoadImageSmart(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load frame %s: %w", path, err)
	}
	return img, nil
}

// FallbackSource asks each source in turn until one yields a frame. The first
// source is the preferred configuration, later ones are progressively more
// permissive.
type FallbackSource struct {
	sources []Source
	logger  *slog.Logger
}

// NewFallbackSource creates a fallback chain over sources
func NewFallbackSource(logger *slog.Logger, sources ...Source) *FallbackSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackSource{sources: sources, logger: logger}
}

// Frame returns the first frame any source produces
func (s *FallbackSource) Frame(ctx context.Context) (image.Image, error) {
	var errs []error
	for i, src := range s.sources {
		img, err := src.Frame(ctx)
		if err == nil {
			return img, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("camera source failed, trying fallback", "source", i, "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoFrame
	}
	return nil, fmt.Errorf("all camera sources failed: %w", errors.Join(errs...))
}

// Capture grabs one frame, encodes it as JPEG and appends it to rec.
// It returns the index of the new record.
func Capture(ctx context.Context, src Source, rec Recorder, processor *processing.Processor) (int, error) {
	if processor == nil {
		processor = processing.NewProcessor()
	}

	frame, err := src.Frame(ctx)
	if err != nil {
		return -1, err
	}
	if b := frame.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return -1, fmt.Errorf("camera: empty frame %dx%d", b.Dx(), b.Dy())
	}

	data, err := processor.EncodeAs(frame, "jpg")
	if err != nil {
		return -1, fmt.Errorf("failed to encode frame: %w", err)
	}
	return rec.Add(data), nil
}
