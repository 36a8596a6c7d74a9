package capture

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bryanchriswhite/FilterCam/internal/imaging"
)

// ErrNoFrame is returned when a source is running but has nothing to deliver yet.
var ErrNoFrame = errors.New("no frame available")

// Source defines the interface for still-image capture backends
type Source interface {
	// Start initializes the source and any required resources
	Start() error

	// Stop releases resources and stops any background processes
	Stop() error

	// Capture grabs one raw frame as it comes off the device, before any
	// rotation is applied
	Capture(ctx context.Context) (*imaging.Buffer, error)

	// Name returns a human-readable name for this source
	Name() string

	// IsAvailable checks if this source can be used in the current environment
	IsAvailable() bool
}

// Frame is one rotation-corrected capture handed to the filter pipeline.
type Frame struct {
	ID        uuid.UUID
	Buffer    *imaging.Buffer
	Source    string
	Rotation  int
	Timestamp time.Time
}

// Region selects part of a screen. A zero width or height means the whole screen.
type Region struct {
	X      int `yaml:"x" json:"x" mapstructure:"x"`
	Y      int `yaml:"y" json:"y" mapstructure:"y"`
	Width  int `yaml:"width" json:"width" mapstructure:"width"`
	Height int `yaml:"height" json:"height" mapstructure:"height"`
}

// Empty reports whether the region covers nothing and should default to full screen.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// NewFrame rotates raw upright and stamps it with a fresh capture ID.
func NewFrame(raw *imaging.Buffer, source string, rotation int) (*Frame, error) {
	if raw.Empty() {
		return nil, imaging.ErrInvalidInput
	}
	upright, err := imaging.Rotate(raw, rotation)
	if err != nil {
		return nil, err
	}
	deg, _ := imaging.NormalizeRotation(rotation)
	return &Frame{
		ID:        uuid.New(),
		Buffer:    upright,
		Source:    source,
		Rotation:  deg,
		Timestamp: time.Now(),
	}, nil
}
