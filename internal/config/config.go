package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/multishot-scanner"
	"github.com/menta2k/multishot-scanner/pkg/analyzer"
	"github.com/menta2k/multishot-scanner/pkg/cropper"
	"github.com/menta2k/multishot-scanner/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Editor  EditorConfig  `json:"editor" yaml:"editor"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Backend BackendConfig `json:"backend" yaml:"backend"`
	Limits  LimitsConfig  `json:"limits" yaml:"limits"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// EditorConfig holds the crop editor constants
type EditorConfig struct {
	MaxDisplayWidth int     `json:"max_display_width" yaml:"max_display_width"`
	MinCropSize     float64 `json:"min_crop_size" yaml:"min_crop_size"`
	HandleRadius    float64 `json:"handle_radius" yaml:"handle_radius"`
	DefaultFraction float64 `json:"default_fraction" yaml:"default_fraction"`
}

// OutputConfig holds configuration for encoded captures, crops and composites
type OutputConfig struct {
	Format   string `json:"format" yaml:"format"`
	Quality  int    `json:"quality" yaml:"quality"`
	Lossless bool   `json:"lossless" yaml:"lossless"`
	Dir      string `json:"dir" yaml:"dir"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr          string `json:"addr" yaml:"addr"`
	StaticDir     string `json:"static_dir" yaml:"static_dir"`
	CORSOrigins   string `json:"cors_origins" yaml:"cors_origins"`
	RateLimit     int    `json:"rate_limit" yaml:"rate_limit"`
	SubmitURL     string `json:"submit_url" yaml:"submit_url"`
	TimeoutSecond int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// BackendConfig selects the vision model used for UI analysis
type BackendConfig struct {
	Type  string `json:"type" yaml:"type"`
	URL   string `json:"url" yaml:"url"`
	Model string `json:"model" yaml:"model"`
}

// LimitsConfig bounds accepted uploads
type LimitsConfig struct {
	MaxImageSize   int `json:"max_image_size" yaml:"max_image_size"`
	MaxImageWidth  int `json:"max_image_width" yaml:"max_image_width"`
	MaxImageHeight int `json:"max_image_height" yaml:"max_image_height"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			MaxDisplayWidth: 700,
			MinCropSize:     50,
			HandleRadius:    12,
			DefaultFraction: 0.8,
		},
		Output: OutputConfig{
			Format:  "jpg",
			Quality: 90,
			Dir:     "./output",
		},
		Server: ServerConfig{
			Addr:          ":5000",
			CORSOrigins:   "*",
			RateLimit:     100,
			SubmitURL:     "http://localhost:5000/api/analyze",
			TimeoutSecond: 300,
		},
		Backend: BackendConfig{
			Type:  "llamacpp",
			URL:   "http://localhost:8080",
			Model: "openbmb/minicpm-v4.5",
		},
		Limits: LimitsConfig{
			MaxImageSize:   10 * 1024 * 1024,
			MaxImageWidth:  4096,
			MaxImageHeight: 4096,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. Fields missing
// from the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON or YAML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides configuration values from environment variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = v
	}
	if v := os.Getenv("MULTISHOT_BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("MULTISHOT_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("MULTISHOT_MODEL"); v != "" {
		c.Backend.Model = v
	}
	if strings.EqualFold(os.Getenv("MULTISHOT_DEBUG"), "true") {
		c.Logging.Level = "debug"
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"MAX_IMAGE_SIZE", &c.Limits.MaxImageSize},
		{"MAX_IMAGE_WIDTH", &c.Limits.MaxImageWidth},
		{"MAX_IMAGE_HEIGHT", &c.Limits.MaxImageHeight},
		{"RATE_LIMIT", &c.Server.RateLimit},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", e.name, err)
		}
		*e.dst = n
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Editor.MaxDisplayWidth < 1 {
		return fmt.Errorf("editor.max_display_width must be positive")
	}

	if c.Editor.MinCropSize <= 0 {
		return fmt.Errorf("editor.min_crop_size must be positive")
	}

	if c.Editor.HandleRadius < 0 {
		return fmt.Errorf("editor.handle_radius must not be negative")
	}

	if c.Editor.DefaultFraction <= 0 || c.Editor.DefaultFraction > 1 {
		return fmt.Errorf("editor.default_fraction must be in (0, 1]")
	}

	switch strings.ToLower(c.Output.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.format must be one of jpg, png, webp")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}

	switch c.Backend.Type {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("backend.type must be ollama or llamacpp")
	}

	if c.Limits.MaxImageSize < 1 || c.Limits.MaxImageWidth < 1 || c.Limits.MaxImageHeight < 1 {
		return fmt.Errorf("limits must be positive")
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	return nil
}

// ScannerConfig converts the configuration into scanner settings
func (c *Config) ScannerConfig() multishot.Config {
	return multishot.Config{
		Editor: cropper.Config{
			MaxDisplayWidth: c.Editor.MaxDisplayWidth,
			MinCropSize:     c.Editor.MinCropSize,
			HandleRadius:    c.Editor.HandleRadius,
			DefaultFraction: c.Editor.DefaultFraction,
		},
		Encode: types.EncodeConfig{
			Format:   c.Output.Format,
			Quality:  c.Output.Quality,
			Lossless: c.Output.Lossless,
		},
		SubmitURL: c.Server.SubmitURL,
		Timeout:   time.Duration(c.Server.TimeoutSecond) * time.Second,
	}
}

// ImageLimits converts the upload limits into analyzer settings
func (c *Config) ImageLimits() analyzer.Config {
	limits := analyzer.DefaultConfig()
	limits.MaxBytes = c.Limits.MaxImageSize
	limits.MaxWidth = c.Limits.MaxImageWidth
	limits.MaxHeight = c.Limits.MaxImageHeight
	return limits
}

// ParseLevel maps a level name to a slog level
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "multishot-scanner", "config.json")
}
