package processing

import (
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/menta2k/multishot-scanner/pkg/types"
)

// createTestImage creates a gradient test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / width), uint8(y * 255 / height), 128, 255})
		}
	}
	return img
}

func TestEncodeDecodeFormats(t *testing.T) {
	img := createTestImage(64, 48)

	for _, format := range []string{"jpg", "png", "webp"} {
		p := NewProcessorWithConfig(types.EncodeConfig{Format: format, Quality: 80})
		data, err := p.Encode(img)
		if err != nil {
			t.Fatalf("Encode %s failed: %v", format, err)
		}

		decoded, err := p.Decode(data)
		if err != nil {
			t.Fatalf("Decode %s failed: %v", format, err)
		}
		if decoded.Bounds().Dx() != 64 || decoded.Bounds().Dy() != 48 {
			t.Errorf("%s: expected 64x48, got %dx%d", format, decoded.Bounds().Dx(), decoded.Bounds().Dy())
		}

		cfg, err := p.DecodeConfig(data)
		if err != nil {
			t.Fatalf("DecodeConfig %s failed: %v", format, err)
		}
		if cfg.Width != 64 || cfg.Height != 48 {
			t.Errorf("%s: expected config 64x48, got %dx%d", format, cfg.Width, cfg.Height)
		}
	}
}

// withOrientation inserts a big-endian EXIF APP1 segment carrying the given
// orientation tag right after the JPEG SOI marker
func withOrientation(jpg []byte, orientation byte) []byte {
	exif := []byte("Exif\x00\x00")
	exif = append(exif, 'M', 'M', 0x00, 0x2a, 0x00, 0x00, 0x00, 0x08)
	// one SHORT orientation tag, then no next IFD
	exif = append(exif, 0x00, 0x01, 0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01)
	exif = append(exif, 0x00, orientation, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00)

	size := len(exif) + 2
	out := append([]byte{}, jpg[:2]...)
	out = append(out, 0xff, 0xe1, byte(size>>8), byte(size))
	out = append(out, exif...)
	return append(out, jpg[2:]...)
}

func TestDecodeAppliesOrientation(t *testing.T) {
	p := NewProcessor()
	data, err := p.EncodeAs(createTestImage(40, 20), "jpg")
	if err != nil {
		t.Fatal(err)
	}

	img, err := p.Decode(withOrientation(data, 6))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 40 {
		t.Errorf("Expected rotated 20x40, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}

	img, err = p.Decode(withOrientation(data, 1))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
		t.Errorf("Expected unrotated 40x20, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	p := NewProcessor()
	if _, err := p.Decode(nil); err == nil {
		t.Error("Expected error for empty data")
	}
	if _, err := p.Decode([]byte("not an image")); err == nil {
		t.Error("Expected error for garbage data")
	}
}

func TestDataURL(t *testing.T) {
	p := NewProcessor()
	url, err := p.EncodeDataURL(createTestImage(20, 10))
	if err != nil {
		t.Fatalf("EncodeDataURL failed: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("Unexpected data URL prefix: %q", url[:30])
	}

	img, err := p.DecodeDataURL(url)
	if err != nil {
		t.Fatalf("DecodeDataURL failed: %v", err)
	}
	if img.Bounds().Dx() != 20 {
		t.Errorf("Expected width 20, got %d", img.Bounds().Dx())
	}
}

func TestLoadImageSmart(t *testing.T) {
	p := NewProcessorWithConfig(types.EncodeConfig{Format: "png"})
	data, err := p.Encode(createTestImage(30, 30))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "shot.png")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.LoadImageSmart(path); err != nil {
		t.Errorf("LoadImageSmart(file) failed: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/text" {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("hello"))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	img, err := p.LoadImageSmart(srv.URL + "/shot.png")
	if err != nil {
		t.Fatalf("LoadImageSmart(url) failed: %v", err)
	}
	if img.Bounds().Dx() != 30 {
		t.Errorf("Expected width 30, got %d", img.Bounds().Dx())
	}

	if _, err := p.LoadImageSmart(srv.URL + "/text"); err == nil {
		t.Error("Expected error for non-image content type")
	}
}

func TestRenderDisplay(t *testing.T) {
	p := NewProcessor()
	out := p.RenderDisplay(createTestImage(300, 400), 70, 93)
	if out.Bounds().Dx() != 70 || out.Bounds().Dy() != 93 {
		t.Errorf("Expected 70x93, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestDrawCropOverlay(t *testing.T) {
	p := NewProcessor()
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for i := range img.Pix {
		img.Pix[i] = 200
	}

	p.DrawCropOverlay(img, Overlay{X: 20, Y: 20, W: 60, H: 60, Handles: []image.Point{{20, 20}}})

	outside := img.NRGBAAt(5, 5)
	if outside.R != 100 {
		t.Errorf("Expected dimmed pixel outside crop, got %v", outside)
	}

	inside := img.NRGBAAt(50, 50)
	if inside.R != 200 {
		t.Errorf("Expected untouched pixel inside crop, got %v", inside)
	}

	edge := img.NRGBAAt(50, 20)
	if edge != (color.NRGBA{74, 144, 226, 255}) {
		t.Errorf("Expected outline color on edge, got %v", edge)
	}
}

func BenchmarkRenderDisplay(b *testing.B) {
	p := NewProcessor()
	img := createTestImage(1920, 1080)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.RenderDisplay(img, 700, 394)
	}
}
