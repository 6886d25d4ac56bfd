package utils

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has an image extension
func IsImageFile(filename string) bool {
	switch GetFileExtension(filename) {
	case "jpg", "jpeg", "png", "gif", "webp":
		return true
	}
	return false
}

// ListImageFiles lists the image files directly inside dir, sorted by name.
// Sorting gives a stable capture order for a directory of shots.
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsImageFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// GenerateOutputFilename builds "<dir>/<prefix><name><suffix>.<format>"
func GenerateOutputFilename(name, outputDir, prefix, suffix, format string) string {
	if format == "" {
		format = "jpg"
	}
	outputName := fmt.Sprintf("%s%s%s.%s", prefix, SanitizeFilename(name), suffix, format)
	return filepath.Join(outputDir, outputName)
}

// SanitizeFilename removes or replaces invalid characters in filenames
func SanitizeFilename(filename string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := filename
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	return strings.Trim(result, " .")
}

// FormatFileSize formats a byte count in human-readable form
func FormatFileSize(size int) string {
	return humanize.Bytes(uint64(size))
}

// MIMEType maps an encoder format name to its MIME type
func MIMEType(format string) string {
	switch strings.ToLower(format) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

// EncodeDataURL wraps encoded image bytes as a base64 data URL
func EncodeDataURL(data []byte, format string) string {
	return "data:" + MIMEType(format) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsImageDataURL reports whether s looks like an image data URL
func IsImageDataURL(s string) bool {
	return strings.HasPrefix(s, "data:image")
}

// DecodeDataURL returns the raw bytes of a base64 payload. A data URL prefix
// ("data:image/jpeg;base64,") is stripped if present.
func DecodeDataURL(s string) ([]byte, error) {
	payload := s
	if i := strings.Index(s, ","); i >= 0 {
		payload = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	return data, nil
}
