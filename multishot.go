// Package multishot captures several stills, crops each one, stitches the
// survivors into one composite and submits it for analysis.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//		"os"
//
//		"github.com/menta2k/multishot-scanner"
//	)
//
//	func main() {
//		ctx := context.Background()
//		scanner := multishot.New("http://localhost:5000/api/analyze")
//
//		for _, path := range os.Args[1:] {
//			data, err := os.ReadFile(path)
//			if err != nil {
//				log.Fatal(err)
//			}
//			if _, err := scanner.AddImage(data); err != nil {
//				log.Fatal(err)
//			}
//		}
//
//		// Crop the first capture to the "code" preset
//		snap, err := scanner.OpenEditor(ctx, 0)
//		if err != nil {
//			log.Fatal(err)
//		}
//		if _, err := scanner.ApplyPreset(snap.SessionID, "code"); err != nil {
//			log.Fatal(err)
//		}
//		if _, err := scanner.ConfirmCrop(ctx, snap.SessionID); err != nil {
//			log.Fatal(err)
//		}
//
//		if _, err := scanner.Stitch(ctx); err != nil {
//			log.Fatal(err)
//		}
//		result, err := scanner.Submit(ctx, "Why is the sidebar misaligned?")
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(result.Pretty)
//	}
//
// The package is a thin composition of:
//
// 1. Capture (pkg/capture): the ordered list of captured stills
// 2. Cropper (pkg/cropper): the interactive crop editor
// 3. Stitch (pkg/stitch): vertical concatenation into one composite
// 4. Submit (pkg/submit): the POST to the analysis endpoint
package multishot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/menta2k/multishot-scanner/pkg/camera"
	"github.com/menta2k/multishot-scanner/pkg/capture"
	"github.com/menta2k/multishot-scanner/pkg/cropper"
	"github.com/menta2k/multishot-scanner/pkg/processing"
	"github.com/menta2k/multishot-scanner/pkg/stitch"
	"github.com/menta2k/multishot-scanner/pkg/submit"
	"github.com/menta2k/multishot-scanner/pkg/types"
)

// Version of the multishot scanner library
const Version = "1.0.0"

// ErrNoComposite is returned when submitting before stitching
var ErrNoComposite = errors.New("no composite image, stitch first")

// Config holds the scanner configuration
type Config struct {
	Editor      cropper.Config
	Encode      types.EncodeConfig
	SubmitURL   string
	Timeout     time.Duration
	Concurrency int
}

// DefaultConfig returns the standard scanner configuration
func DefaultConfig() Config {
	return Config{
		Editor:    cropper.DefaultConfig(),
		Encode:    types.EncodeConfig{Format: "jpg", Quality: 90},
		SubmitURL: "http://localhost:5000/api/analyze",
		Timeout:   300 * time.Second,
	}
}

// Controls reports which parts of the workflow are available
type Controls struct {
	Count     int  `json:"count"`
	Stitch    bool `json:"stitch"`
	Composite bool `json:"composite"`
	TextInput bool `json:"textInput"`
	Submit    bool `json:"submit"`
	Result    bool `json:"result"`
}

// Scanner ties the capture list, crop editor, stitcher and submitter together
type Scanner struct {
	list      *capture.List
	editor    *cropper.Editor
	stitcher  *stitch.Stitcher
	submitter *submit.Client
	processor *processing.Processor
	logger    *slog.Logger

	mu         sync.Mutex
	composite  *image.NRGBA
	stitched   int
	lastResult *submit.Result
}

// New creates a Scanner with default configuration submitting to submitURL
func New(submitURL string) *Scanner {
	cfg := DefaultConfig()
	cfg.SubmitURL = submitURL
	return NewWithConfig(cfg, nil)
}

// NewWithConfig creates a Scanner with custom configuration
func NewWithConfig(cfg Config, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	processor := processing.NewProcessorWithConfig(cfg.Encode)
	list := capture.New()
	httpClient := &http.Client{Timeout: cfg.Timeout}

	return &Scanner{
		list:      list,
		editor:    cropper.NewWithConfig(list, cfg.Editor, processor, logger),
		stitcher:  stitch.NewWithConfig(processor, cfg.Concurrency),
		submitter: submit.NewWithConfig(cfg.SubmitURL, httpClient, processor, logger),
		processor: processor,
		logger:    logger,
	}
}

// Processor returns the image processor used for encoding
func (s *Scanner) Processor() *processing.Processor {
	return s.processor
}

// Capture grabs one frame from src and appends it to the list
func (s *Scanner) Capture(ctx context.Context, src camera.Source) (int, error) {
	index, err := camera.Capture(ctx, src, s.list, s.processor)
	if err != nil {
		return 0, err
	}
	s.logger.Info("captured frame", "index", index, "count", s.list.Len())
	return index, nil
}

// AddImage appends an already encoded still to the list
func (s *Scanner) AddImage(data []byte) (int, error) {
	if _, err := s.processor.DecodeConfig(data); err != nil {
		return 0, fmt.Errorf("%w: %v", cropper.ErrInvalidImage, err)
	}
	return s.list.Add(data), nil
}

// Len returns the number of captures
func (s *Scanner) Len() int {
	return s.list.Len()
}

// Records returns copies of all captures in order
func (s *Scanner) Records() []capture.Record {
	return s.list.Records()
}

// Record returns a copy of the capture at index
func (s *Scanner) Record(index int) (capture.Record, error) {
	return s.list.Record(index)
}

// Remove deletes the capture at index. Removing the last remaining capture
// also discards the composite and the last result.
func (s *Scanner) Remove(index int) error {
	if err := s.list.Remove(index); err != nil {
		return err
	}
	if s.list.Len() == 0 {
		s.mu.Lock()
		s.composite = nil
		s.stitched = 0
		s.lastResult = nil
		s.mu.Unlock()
	}
	return nil
}

// Move swaps the capture at index with its neighbour (-1 up, +1 down)
func (s *Scanner) Move(index, direction int) bool {
	return s.list.Move(index, direction)
}

// Editor returns the crop editor
func (s *Scanner) Editor() *cropper.Editor {
	return s.editor
}

// OpenEditor opens and loads the crop editor on the capture at index
func (s *Scanner) OpenEditor(ctx context.Context, index int) (cropper.Snapshot, error) {
	return s.editor.Edit(ctx, index)
}

// HandlePointer forwards a pointer event to the editor session
func (s *Scanner) HandlePointer(sessionID string, ev cropper.PointerEvent) (cropper.Snapshot, error) {
	return s.editor.HandlePointer(sessionID, ev)
}

// ApplyPreset snaps the editor rectangle to a named preset
func (s *Scanner) ApplyPreset(sessionID, name string) (cropper.Snapshot, error) {
	return s.editor.ApplyPreset(sessionID, name)
}

// AutoCrop snaps the editor rectangle to the detected content
func (s *Scanner) AutoCrop(sessionID string) (cropper.Snapshot, error) {
	return s.editor.AutoCrop(sessionID)
}

// ConfirmCrop applies the editor rectangle to its capture
func (s *Scanner) ConfirmCrop(ctx context.Context, sessionID string) (types.SourceRect, error) {
	return s.editor.Confirm(ctx, sessionID)
}

// CancelCrop closes the editor without changing the capture
func (s *Scanner) CancelCrop(sessionID string) error {
	return s.editor.Cancel(sessionID)
}

// Stitch combines every capture, cropped where available, into one composite
func (s *Scanner) Stitch(ctx context.Context) (*image.NRGBA, error) {
	images := s.list.Images()
	composite, err := s.stitcher.Stitch(ctx, images)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.composite = composite
	s.stitched = len(images)
	s.lastResult = nil
	s.mu.Unlock()

	b := composite.Bounds()
	s.logger.Info("stitched composite", "images", len(images), "size", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()))
	return composite, nil
}

// Composite returns the last stitched image and the number of captures in it
func (s *Scanner) Composite() (*image.NRGBA, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composite, s.stitched, s.composite != nil
}

// Submit sends the composite with text to the analysis endpoint
func (s *Scanner) Submit(ctx context.Context, text string) (*submit.Result, error) {
	composite, count, ok := s.Composite()
	if !ok {
		return nil, ErrNoComposite
	}

	result, err := s.submitter.Submit(ctx, composite, text, count)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastResult = result
	s.mu.Unlock()
	return result, nil
}

// LastResult returns the response of the last successful submission
func (s *Scanner) LastResult() (*submit.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult, s.lastResult != nil
}

// Controls reports which controls should be shown: stitching needs at least
// one capture, text input and submission need a composite.
func (s *Scanner) Controls() Controls {
	n := s.list.Len()

	s.mu.Lock()
	defer s.mu.Unlock()

	hasComposite := s.composite != nil && n > 0
	return Controls{
		Count:     n,
		Stitch:    n > 0,
		Composite: hasComposite,
		TextInput: hasComposite,
		Submit:    hasComposite,
		Result:    hasComposite && s.lastResult != nil,
	}
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
