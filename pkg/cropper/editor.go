package cropper

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/menta2k/multishot-scanner/pkg/capture"
	"github.com/menta2k/multishot-scanner/pkg/processing"
	"github.com/menta2k/multishot-scanner/pkg/types"
	"github.com/menta2k/multishot-scanner/pkg/vision"
)

// RecordStore is the editor's view of the capture list
type RecordStore interface {
	Record(index int) (capture.Record, error)
	SetCroppedResult(index int, recordID string, cropped []byte, geometry types.SourceRect) error
}

// Config holds the editor constants
type Config struct {
	MaxDisplayWidth int
	MinCropSize     float64
	HandleRadius    float64
	DefaultFraction float64
}

// DefaultConfig returns the standard editor constants
func DefaultConfig() Config {
	return Config{
		MaxDisplayWidth: 700,
		MinCropSize:     50,
		HandleRadius:    12,
		DefaultFraction: 0.8,
	}
}

// Snapshot is a read-only view of the active session
type Snapshot struct {
	SessionID string           `json:"sessionId"`
	Index     int              `json:"index"`
	RecordID  string           `json:"recordId"`
	Loaded    bool             `json:"loaded"`
	Surface   Surface          `json:"surface"`
	Rect      Rect             `json:"rect"`
	Source    types.SourceRect `json:"source"`
	Mode      string           `json:"mode"`
	Handle    string           `json:"handle,omitempty"`
}

type session struct {
	id       string
	index    int
	recordID string
	loaded   bool
	source   image.Image
	surface  Surface
	in       *Interaction
}

// Editor edits one capture record at a time. Every method is serialized by
// one mutex, so events are processed in order as on a single UI thread.
type Editor struct {
	mu        sync.Mutex
	store     RecordStore
	processor *processing.Processor
	detector  *vision.Detector
	config    Config
	logger    *slog.Logger
	active    *session
}

// New creates an editor with default configuration
func New(store RecordStore) *Editor {
	return NewWithConfig(store, DefaultConfig(), processing.NewProcessor(), nil)
}

// NewWithConfig creates an editor with custom configuration
func NewWithConfig(store RecordStore, config Config, processor *processing.Processor, logger *slog.Logger) *Editor {
	if processor == nil {
		processor = processing.NewProcessor()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{
		store:     store,
		processor: processor,
		detector:  vision.New(),
		config:    config,
		logger:    logger,
	}
}

// Open starts a session for the record at index, replacing any active one.
// The surface is not usable until Load completes.
func (e *Editor) Open(index int) (Snapshot, error) {
	rec, err := e.store.Record(index)
	if err != nil {
		return Snapshot{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		e.logger.Debug("replacing editor session", "session", e.active.id, "index", e.active.index)
	}
	e.active = &session{
		id:       uuid.NewString(),
		index:    index,
		recordID: rec.ID,
	}
	e.logger.Debug("editor opened", "session", e.active.id, "index", index)
	return e.snapshot(e.active), nil
}

// Load decodes the record's original and initializes the surface and the
// default rectangle. If the session was closed or replaced while decoding,
// nothing is committed and ErrSessionClosed is returned.
func (e *Editor) Load(ctx context.Context, id string) (Snapshot, error) {
	e.mu.Lock()
	s, err := e.lookup(id)
	if err != nil {
		e.mu.Unlock()
		return Snapshot{}, err
	}
	index, recordID, sessionID := s.index, s.recordID, s.id
	e.mu.Unlock()

	img, err := e.loadSource(index, recordID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	b := img.Bounds()
	surface, err := NewSurface(b.Dx(), b.Dy(), e.config.MaxDisplayWidth)
	if err != nil {
		return Snapshot{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || e.active.id != sessionID {
		e.logger.Debug("discarding load for closed session", "session", sessionID)
		return Snapshot{}, ErrSessionClosed
	}

	s = e.active
	s.source = img
	s.surface = surface
	s.in = NewInteraction(surface, surface.DefaultRect(e.config.DefaultFraction, e.config.MinCropSize),
		e.config.MinCropSize, e.config.HandleRadius)
	s.in.OnTransition(func(prev, next State) {
		e.logger.Debug("crop interaction", "session", sessionID, "from", prev.Mode().String(), "to", next.Mode().String())
	})
	s.loaded = true

	e.logger.Info("editor loaded",
		"session", sessionID,
		"index", index,
		"source", fmt.Sprintf("%dx%d", surface.SourceWidth, surface.SourceHeight),
		"display", fmt.Sprintf("%dx%d", surface.DisplayWidth, surface.DisplayHeight))
	return e.snapshot(s), nil
}

// Edit opens and loads the record at index in one step
func (e *Editor) Edit(ctx context.Context, index int) (Snapshot, error) {
	snap, err := e.Open(index)
	if err != nil {
		return Snapshot{}, err
	}
	return e.Load(ctx, snap.SessionID)
}

// HandlePointer feeds one pointer or touch event to the active session
func (e *Editor) HandlePointer(id string, ev PointerEvent) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.loaded(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.in.Apply(ev)
	return e.snapshot(s), nil
}

// ApplyPreset snaps the rectangle to a named preset. Unknown names leave the
// rectangle untouched.
func (e *Editor) ApplyPreset(id, name string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.loaded(id)
	if err != nil {
		return Snapshot{}, err
	}
	preset, err := LookupPreset(name)
	if err != nil {
		return Snapshot{}, err
	}
	s.in.SetRect(preset.Rect(s.surface))
	return e.snapshot(s), nil
}

// AutoCrop snaps the rectangle to the detected content of the source image.
// When nothing is detected the rectangle is left untouched.
func (e *Editor) AutoCrop(id string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.loaded(id)
	if err != nil {
		return Snapshot{}, err
	}
	region, err := e.detector.ContentBounds(s.source)
	if err != nil {
		return Snapshot{}, err
	}

	r := s.surface.ToDisplay(types.SourceRect{
		X:      float64(region.X),
		Y:      float64(region.Y),
		Width:  float64(region.Width),
		Height: float64(region.Height),
	})
	s.in.SetRect(s.surface.Fit(r, e.config.MinCropSize))
	b := s.source.Bounds()
	e.logger.Debug("auto crop",
		"session", s.id,
		"region", region.Rectangle().String(),
		"coverage", fmt.Sprintf("%.0f%%", 100*float64(region.Area())/float64(b.Dx()*b.Dy())),
		"score", region.Score)
	return e.snapshot(s), nil
}

// Confirm rasterizes the current rectangle at source resolution, writes the
// result back to the record and closes the session. On failure the record is
// not modified, any gesture ends and the session stays open.
func (e *Editor) Confirm(ctx context.Context, id string) (types.SourceRect, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.loaded(id)
	if err != nil {
		return types.SourceRect{}, err
	}

	geometry, err := e.confirm(ctx, s)
	if err != nil {
		s.in.SetRect(s.in.Rect())
		return types.SourceRect{}, err
	}
	e.active = nil
	return geometry, nil
}

func (e *Editor) confirm(ctx context.Context, s *session) (types.SourceRect, error) {
	// The original is reloaded rather than reusing the decoded surface source,
	// so a record removed or replaced since Load is detected here.
	img, err := e.loadSource(s.index, s.recordID)
	if err != nil {
		return types.SourceRect{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.SourceRect{}, err
	}

	geometry := s.surface.ToSource(s.in.Rect())
	cropped, err := Rasterize(img, geometry)
	if err != nil {
		return types.SourceRect{}, err
	}

	data, err := e.processor.Encode(cropped)
	if err != nil {
		return types.SourceRect{}, fmt.Errorf("failed to encode crop: %w", err)
	}

	// The list may have changed while encoding; the write only lands on the
	// record the session was opened on.
	if err := e.store.SetCroppedResult(s.index, s.recordID, data, geometry); err != nil {
		return types.SourceRect{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	e.logger.Info("crop applied",
		"session", s.id,
		"index", s.index,
		"size", fmt.Sprintf("%dx%d", cropped.Bounds().Dx(), cropped.Bounds().Dy()))
	return geometry, nil
}

// Cancel closes the session without touching the record. A pending Load for
// the session becomes a no-op.
func (e *Editor) Cancel(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.lookup(id)
	if err != nil {
		return err
	}
	e.logger.Debug("editor cancelled", "session", s.id)
	e.active = nil
	return nil
}

// Active returns a snapshot of the active session, if any
func (e *Editor) Active() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return Snapshot{}, false
	}
	return e.snapshot(e.active), true
}

// Preview renders the display surface with the crop rectangle drawn on it
func (e *Editor) Preview(id string) (*image.NRGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.loaded(id)
	if err != nil {
		return nil, err
	}

	r := s.in.Rect()
	ov := processing.Overlay{
		X: int(r.Left + 0.5), Y: int(r.Top + 0.5),
		W: int(r.Width + 0.5), H: int(r.Height + 0.5),
	}
	for _, h := range Handles() {
		x, y := h.Point(r)
		ov.Handles = append(ov.Handles, image.Pt(int(x+0.5), int(y+0.5)))
	}

	display := e.processor.RenderDisplay(s.source, s.surface.DisplayWidth, s.surface.DisplayHeight)
	e.processor.DrawCropOverlay(display, ov)
	return display, nil
}

// loadSource reads and decodes the original of the record at index, checking
// that it is still the record the session was opened on.
func (e *Editor) loadSource(index int, recordID string) (image.Image, error) {
	rec, err := e.store.Record(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if rec.ID != recordID {
		return nil, fmt.Errorf("%w: record at %d changed", ErrSourceUnavailable, index)
	}
	if len(rec.Original) == 0 {
		return nil, fmt.Errorf("%w: record %d has no original", ErrSourceUnavailable, index)
	}

	img, err := e.processor.Decode(rec.Original)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// lookup resolves a session id; an empty id means the active session
func (e *Editor) lookup(id string) (*session, error) {
	if e.active == nil {
		if id == "" {
			return nil, ErrNoSession
		}
		return nil, ErrSessionClosed
	}
	if id != "" && id != e.active.id {
		return nil, ErrSessionClosed
	}
	return e.active, nil
}

func (e *Editor) loaded(id string) (*session, error) {
	s, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	if !s.loaded {
		return nil, ErrNotLoaded
	}
	return s, nil
}

func (e *Editor) snapshot(s *session) Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Index:     s.index,
		RecordID:  s.recordID,
		Loaded:    s.loaded,
		Mode:      ModeIdle.String(),
	}
	if !s.loaded {
		return snap
	}

	snap.Surface = s.surface
	snap.Rect = s.in.Rect()
	snap.Source = s.surface.ToSource(snap.Rect)
	state := s.in.State()
	snap.Mode = state.Mode().String()
	if rs, ok := state.(Resizing); ok {
		snap.Handle = rs.Handle.String()
	}
	return snap
}
