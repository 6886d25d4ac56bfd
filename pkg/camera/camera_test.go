package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/menta2k/multishot-scanner/pkg/capture"
	"github.com/menta2k/multishot-scanner/pkg/processing"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 64, 255})
		}
	}
	return img
}

type failingSource struct{ calls int }

func (f *failingSource) Frame(ctx context.Context) (image.Image, error) {
	f.calls++
	return nil, errors.New("permission denied")
}

func TestImageSourceOrder(t *testing.T) {
	a, b := createTestImage(10, 10), createTestImage(20, 20)
	src := NewImageSource(a, b)
	ctx := context.Background()

	got, _ := src.Frame(ctx)
	if got.Bounds().Dx() != 10 {
		t.Errorf("Expected first frame, got width %d", got.Bounds().Dx())
	}
	got, _ = src.Frame(ctx)
	if got.Bounds().Dx() != 20 {
		t.Errorf("Expected second frame, got width %d", got.Bounds().Dx())
	}
	if _, err := src.Frame(ctx); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Expected ErrNoFrame, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.jpg")
	p := processing.NewProcessor()
	if err := p.SaveImage(createTestImage(64, 48), path); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	src := NewFileSource(p, path, filepath.Join(dir, "missing.jpg"))
	img, err := src.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("Expected 64x48, got %v", img.Bounds())
	}

	if _, err := src.Frame(context.Background()); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := src.Frame(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Expected ErrNoFrame, got %v", err)
	}
}

func TestFallbackSource(t *testing.T) {
	preferred := &failingSource{}
	src := NewFallbackSource(nil, preferred, NewImageSource(createTestImage(32, 32)))

	img, err := src.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if img.Bounds().Dx() != 32 {
		t.Errorf("Expected fallback frame, got %v", img.Bounds())
	}
	if preferred.calls != 1 {
		t.Errorf("Expected preferred source to be tried once, got %d", preferred.calls)
	}

	all := NewFallbackSource(nil, &failingSource{}, &failingSource{})
	if _, err := all.Frame(context.Background()); err == nil {
		t.Error("Expected error when every source fails")
	}
}

func TestCapture(t *testing.T) {
	list := capture.New()
	src := NewImageSource(createTestImage(120, 80), createTestImage(60, 40))
	p := processing.NewProcessor()

	for want := 0; want < 2; want++ {
		idx, err := Capture(context.Background(), src, list, p)
		if err != nil {
			t.Fatalf("Capture failed: %v", err)
		}
		if idx != want {
			t.Errorf("Expected index %d, got %d", want, idx)
		}
	}

	rec, err := list.Record(0)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(rec.Original) < 3 || rec.Original[0] != 0xFF || rec.Original[1] != 0xD8 {
		t.Error("Original should be JPEG encoded")
	}
	cfg, err := p.DecodeConfig(rec.Original)
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	if cfg.Width != 120 || cfg.Height != 80 {
		t.Errorf("Expected 120x80, got %dx%d", cfg.Width, cfg.Height)
	}
	if rec.IsCropped() {
		t.Error("New capture should not be cropped")
	}

	if _, err := Capture(context.Background(), src, list, p); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Expected ErrNoFrame, got %v", err)
	}
	if list.Len() != 2 {
		t.Errorf("Failed capture must not add a record, got %d", list.Len())
	}
}

func TestCaptureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	list := capture.New()
	if _, err := Capture(ctx, NewImageSource(createTestImage(8, 8)), list, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
