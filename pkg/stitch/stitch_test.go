package stitch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/multishot-scanner/pkg/processing"
)

func createSolidImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	data, err := processing.NewProcessor().EncodeAs(img, "png")
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	return data
}

var (
	red   = color.NRGBA{255, 0, 0, 255}
	green = color.NRGBA{0, 255, 0, 255}
	blue  = color.NRGBA{0, 0, 255, 255}
)

func TestStitchOrderAndSize(t *testing.T) {
	images := [][]byte{
		encode(t, createSolidImage(100, 50, red)),
		encode(t, createSolidImage(200, 30, green)),
		encode(t, createSolidImage(150, 20, blue)),
	}

	out, err := NewWithConfig(nil, 2).Stitch(context.Background(), images)
	if err != nil {
		t.Fatalf("Stitch failed: %v", err)
	}

	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != 100 {
		t.Fatalf("Expected 200x100, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}

	checks := []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 0, red},
		{99, 49, red},
		{0, 50, green},
		{199, 79, green},
		{0, 80, blue},
		{149, 99, blue},
	}
	for _, c := range checks {
		if got := out.NRGBAAt(c.x, c.y); got != c.want {
			t.Errorf("At (%d,%d): expected %v, got %v", c.x, c.y, c.want, got)
		}
	}

	// narrower images leave the right side transparent
	if got := out.NRGBAAt(150, 10); got.A != 0 {
		t.Errorf("Expected transparent padding, got %v", got)
	}
}

func TestStitchSingle(t *testing.T) {
	out, err := New().Stitch(context.Background(), [][]byte{encode(t, createSolidImage(40, 30, red))})
	if err != nil {
		t.Fatalf("Stitch failed: %v", err)
	}
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 30 {
		t.Errorf("Expected 40x30, got %v", out.Bounds())
	}
}

func TestStitchEmpty(t *testing.T) {
	if _, err := New().Stitch(context.Background(), nil); !errors.Is(err, ErrNoImages) {
		t.Errorf("Expected ErrNoImages, got %v", err)
	}
	if _, err := Compose(nil); !errors.Is(err, ErrNoImages) {
		t.Errorf("Expected ErrNoImages, got %v", err)
	}
}

func TestStitchInvalidImage(t *testing.T) {
	images := [][]byte{encode(t, createSolidImage(10, 10, red)), []byte("garbage")}
	if _, err := New().Stitch(context.Background(), images); err == nil {
		t.Error("Expected decode error")
	}
}

func TestStitchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	images := [][]byte{encode(t, createSolidImage(10, 10, red))}
	if _, err := New().Stitch(ctx, images); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func BenchmarkCompose(b *testing.B) {
	images := []image.Image{
		createSolidImage(700, 900, red),
		createSolidImage(600, 400, green),
		createSolidImage(700, 300, blue),
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Compose(images)
	}
}
