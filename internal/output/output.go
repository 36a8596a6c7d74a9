package output

import (
	"image"
)

// Output defines the interface for frame sinks receiving processed captures:
// - MJPEG HTTP stream
// - X11 window display
type Output interface {
	// Start initializes the output mechanism
	Start() error

	// Stop cleanly shuts down the output
	Stop() error

	// WriteFrame sends a frame to the output
	// The image is expected to be in RGBA format
	WriteFrame(frame *image.RGBA) error

	// Name returns a human-readable name for this output type
	Name() string

	// IsRunning returns true if the output is currently active
	IsRunning() bool
}

// Config holds common configuration for all output types
type Config struct {
	Width       int
	Height      int
	FPS         int
	JPEGQuality int
}

// DefaultJPEGQuality is used when Config.JPEGQuality is out of range.
const DefaultJPEGQuality = 90

func (c Config) quality() int {
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return DefaultJPEGQuality
	}
	return c.JPEGQuality
}
