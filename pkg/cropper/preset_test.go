package cropper

import (
	"errors"
	"testing"
)

func TestPresetFullCoversSurface(t *testing.T) {
	s, _ := NewSurface(3000, 4000, 700)
	p, err := LookupPreset("full")
	if err != nil {
		t.Fatalf("LookupPreset failed: %v", err)
	}

	r := p.Rect(s)
	if r != s.Full() {
		t.Errorf("Expected %+v, got %+v", s.Full(), r)
	}

	src := s.ToSource(r)
	if !approx(src.Width, 3000, 1e-6) || !approx(src.Height, 4000, 1e-6) {
		t.Errorf("Expected source 3000x4000, got %fx%f", src.Width, src.Height)
	}
}

func TestPresetsInBounds(t *testing.T) {
	s, _ := NewSurface(1920, 1080, 700)
	for _, p := range Presets() {
		r := p.Rect(s)
		if !s.InBounds(r) {
			t.Errorf("Preset %s out of bounds: %+v", p.Name, r)
		}
	}
}

func TestPresetCode(t *testing.T) {
	s, _ := NewSurface(1000, 500, 700)
	p, err := LookupPreset("CODE")
	if err != nil {
		t.Fatalf("LookupPreset failed: %v", err)
	}

	r := p.Rect(s)
	want := Rect{Left: 35, Top: 35, Width: 630, Height: 280}
	if !approx(r.Left, want.Left, 1e-9) || !approx(r.Top, want.Top, 1e-9) ||
		!approx(r.Width, want.Width, 1e-9) || !approx(r.Height, want.Height, 1e-9) {
		t.Errorf("Expected %+v, got %+v", want, r)
	}
}

func TestUnknownPreset(t *testing.T) {
	_, err := LookupPreset("portrait")
	if !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("Expected ErrUnknownPreset, got %v", err)
	}
}

func TestPresetsReturnsCopy(t *testing.T) {
	ps := Presets()
	if len(ps) != 4 {
		t.Fatalf("Expected 4 presets, got %d", len(ps))
	}
	ps[0].Name = "changed"
	if Presets()[0].Name != "code" {
		t.Error("Presets should return a copy")
	}
}
