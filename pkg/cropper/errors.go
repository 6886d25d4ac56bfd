package cropper

import "errors"

var (
	// ErrInvalidImage is returned for undecodable or zero-dimension sources
	ErrInvalidImage = errors.New("invalid image")
	// ErrSourceUnavailable is returned when the record's original cannot be reloaded
	ErrSourceUnavailable = errors.New("source image unavailable")
	// ErrDegenerateRegion is returned when a crop resolves to an empty area
	ErrDegenerateRegion = errors.New("degenerate crop region")
	// ErrUnknownPreset is returned for preset names outside the fixed set
	ErrUnknownPreset = errors.New("unknown preset")

	ErrNoSession     = errors.New("no active editor session")
	ErrSessionClosed = errors.New("editor session is no longer active")
	ErrNotLoaded     = errors.New("editor surface not loaded yet")
)
