package cropper

import (
	"fmt"
	"strings"

	"github.com/menta2k/multishot-scanner/pkg/types"
)

// Preset is a named fractional region of the display surface
type Preset struct {
	Name   string         `json:"name"`
	Region types.Fraction `json:"region"`
}

var presets = []Preset{
	{Name: "code", Region: types.Fraction{X: 0.05, Y: 0.1, W: 0.9, H: 0.8}},
	{Name: "figma", Region: types.Fraction{X: 0.15, Y: 0.05, W: 0.7, H: 0.85}},
	{Name: "document", Region: types.Fraction{X: 0.02, Y: 0.02, W: 0.96, H: 0.96}},
	{Name: "full", Region: types.Fraction{X: 0, Y: 0, W: 1, H: 1}},
}

// Presets returns the fixed preset set in display order
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// LookupPreset finds a preset by name, case-insensitively
func LookupPreset(name string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range presets {
		if p.Name == key {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// Rect returns the preset's rectangle on surface s
func (p Preset) Rect(s Surface) Rect {
	return Rect{
		Left:   p.Region.X * s.Width(),
		Top:    p.Region.Y * s.Height(),
		Width:  p.Region.W * s.Width(),
		Height: p.Region.H * s.Height(),
	}
}
