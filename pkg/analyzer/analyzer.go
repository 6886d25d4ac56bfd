package analyzer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/dustin/go-humanize"
	_ "golang.org/x/image/webp"
)

var (
	// ErrInvalidImage is returned for data that does not decode as an image
	ErrInvalidImage = errors.New("invalid image")
	// ErrImageTooLarge is returned when byte size or dimensions exceed the limits
	ErrImageTooLarge = errors.New("image too large")
	// ErrUnsupportedFormat is returned for decodable but unaccepted formats
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// ImageAnalyzer checks submitted composites against the server's limits
type ImageAnalyzer struct {
	config Config
}

// Config holds the image limits
type Config struct {
	MaxBytes         int
	MaxWidth         int
	MaxHeight        int
	SupportedFormats []string
}

// DefaultConfig returns 10MB and 4096x4096 limits for jpeg, png, webp and gif
func DefaultConfig() Config {
	return Config{
		MaxBytes:         10 * 1024 * 1024,
		MaxWidth:         4096,
		MaxHeight:        4096,
		SupportedFormats: []string{"jpeg", "png", "webp", "gif"},
	}
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{config: DefaultConfig()}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	return &ImageAnalyzer{config: config}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspectRatio"`
	Area        int     `json:"area"`
	Format      string  `json:"format"`
	Size        int     `json:"size"`
}

// GetImageInfo reads the header of encoded image data
func (a *ImageAnalyzer) GetImageInfo(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	info := ImageInfo{
		Width:  cfg.Width,
		Height: cfg.Height,
		Area:   cfg.Width * cfg.Height,
		Format: format,
		Size:   len(data),
	}
	if cfg.Height > 0 {
		info.AspectRatio = float64(cfg.Width) / float64(cfg.Height)
	}
	return info, nil
}

// ValidateImage checks encoded image data against the configured limits.
// The data itself is never modified.
func (a *ImageAnalyzer) ValidateImage(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, fmt.Errorf("%w: empty data", ErrInvalidImage)
	}
	if a.config.MaxBytes > 0 && len(data) > a.config.MaxBytes {
		return ImageInfo{}, fmt.Errorf("%w: %s exceeds %s", ErrImageTooLarge,
			humanize.Bytes(uint64(len(data))), humanize.Bytes(uint64(a.config.MaxBytes)))
	}

	info, err := a.GetImageInfo(data)
	if err != nil {
		return ImageInfo{}, err
	}
	if !a.isFormatSupported(info.Format) {
		return info, fmt.Errorf("%w: %s", ErrUnsupportedFormat, info.Format)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return info, fmt.Errorf("%w: %dx%d", ErrInvalidImage, info.Width, info.Height)
	}
	if (a.config.MaxWidth > 0 && info.Width > a.config.MaxWidth) ||
		(a.config.MaxHeight > 0 && info.Height > a.config.MaxHeight) {
		return info, fmt.Errorf("%w: %dx%d (maximum: %dx%d)", ErrImageTooLarge,
			info.Width, info.Height, a.config.MaxWidth, a.config.MaxHeight)
	}
	return info, nil
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}
