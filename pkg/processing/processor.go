package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/multishot-scanner/internal/utils"
	"github.com/menta2k/multishot-scanner/pkg/types"
)

// Processor handles image decode, encode and preview rendering
type Processor struct {
	encode types.EncodeConfig
}

// NewProcessor creates a processor that encodes JPEG at quality 90
func NewProcessor() *Processor {
	return &Processor{encode: types.EncodeConfig{Format: "jpg", Quality: 90}}
}

// NewProcessorWithConfig creates a processor with a custom output encoding
func NewProcessorWithConfig(cfg types.EncodeConfig) *Processor {
	if cfg.Format == "" {
		cfg.Format = "jpg"
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 90
	}
	return &Processor{encode: cfg}
}

// Format returns the output format name ("jpg", "png" or "webp")
func (p *Processor) Format() string {
	return p.encode.Format
}

// LoadImageFromURL downloads and decodes an image from a URL
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	data, err := p.fetchURL(imageURL)
	if err != nil {
		return nil, err
	}
	return p.Decode(data)
}

func (p *Processor) fetchURL(imageURL string) ([]byte, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Multishot-Scanner/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path, imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := p.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

// Decode decodes encoded image bytes, applying EXIF orientation, and falls
// back to an explicit WebP decode
func (p *Processor) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image: empty data")
	}

	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}

	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// DecodeConfig reads only the dimensions of encoded image bytes
func (p *Processor) DecodeConfig(data []byte) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		return cfg, nil
	}
	if cfg, err := webp.DecodeConfig(bytes.NewReader(data)); err == nil {
		return cfg, nil
	}
	return image.Config{}, fmt.Errorf("image: unknown or unsupported format")
}

// Encode encodes an image with the processor's output format
func (p *Processor) Encode(img image.Image) ([]byte, error) {
	return p.EncodeAs(img, p.encode.Format)
}

// EncodeAs encodes an image with an explicit format
func (p *Processor) EncodeAs(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "webp":
		opts := &webp.Options{Lossless: p.encode.Lossless, Quality: float32(p.encode.Quality)}
		if err := webp.Encode(&buf, img, opts); err != nil {
			return nil, err
		}
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.encode.Quality}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// EncodeDataURL encodes an image and wraps it as a base64 data URL
func (p *Processor) EncodeDataURL(img image.Image) (string, error) {
	data, err := p.Encode(img)
	if err != nil {
		return "", err
	}
	return utils.EncodeDataURL(data, p.encode.Format), nil
}

// DecodeDataURL decodes an image carried in a base64 data URL
func (p *Processor) DecodeDataURL(s string) (image.Image, error) {
	data, err := utils.DecodeDataURL(s)
	if err != nil {
		return nil, err
	}
	return p.Decode(data)
}

// SaveImage saves an image to a file with the processor's output settings
func (p *Processor) SaveImage(img image.Image, path string) error {
	data, err := p.Encode(img)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RenderDisplay draws img scaled to w x h, the way a canvas drawImage call
// would for the on-screen crop surface.
func (p *Processor) RenderDisplay(img image.Image, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Overlay describes the crop rectangle and handle points to draw on a preview
type Overlay struct {
	X, Y, W, H int
	Handles    []image.Point
}

// DrawCropOverlay dims everything outside the crop rectangle, outlines it and
// marks each resize handle. The image is modified in place.
func (p *Processor) DrawCropOverlay(img *image.NRGBA, ov Overlay) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	blue := color.NRGBA{74, 144, 226, 255}
	white := color.NRGBA{255, 255, 255, 255}
	stroke := int(math.Max(2, 0.004*float64(minInt(w, h))))

	crop := image.Rect(ov.X, ov.Y, ov.X+ov.W, ov.Y+ov.H)
	dimOutside(img, crop)

	for s := 0; s < stroke; s++ {
		drawHLine(img, crop.Min.Y+s, crop.Min.X, crop.Max.X, blue)
		drawHLine(img, crop.Max.Y-1-s, crop.Min.X, crop.Max.X, blue)
		drawVLine(img, crop.Min.X+s, crop.Min.Y, crop.Max.Y, blue)
		drawVLine(img, crop.Max.X-1-s, crop.Min.Y, crop.Max.Y, blue)
	}

	for _, pt := range ov.Handles {
		for d := -6; d <= 6; d++ {
			drawHLine(img, pt.Y+d, pt.X-6, pt.X+7, white)
		}
		for d := -4; d <= 4; d++ {
			drawHLine(img, pt.Y+d, pt.X-4, pt.X+5, blue)
		}
	}
}

// Helper functions
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func dimOutside(img *image.NRGBA, keep image.Rectangle) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			if !(image.Point{x, y}).In(keep) {
				img.Pix[i+0] /= 2
				img.Pix[i+1] /= 2
				img.Pix[i+2] /= 2
			}
			i += 4
		}
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
