package camera

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/FilterCam/internal/imaging"
	"github.com/bryanchriswhite/FilterCam/internal/logger"
)

// DefaultDevice is the V4L2 node opened when none is configured.
const DefaultDevice = "/dev/video0"

// Options configures a camera Source.
type Options struct {
	// Device is the V4L2 node, e.g. /dev/video0. Ignored with UsePortal.
	Device string
	// Width and Height constrain the negotiated caps; zero leaves them to the device.
	Width  int
	Height int
	// UsePortal opens the camera through xdg-desktop-portal and pipewiresrc.
	UsePortal bool
	// FrameTimeout bounds how long Capture waits for the first frame.
	FrameTimeout time.Duration
}

// Source captures stills from a camera through GStreamer.
type Source struct {
	opts     Options
	mu       sync.Mutex
	portal   *Portal
	pipeline *Pipeline
}

// NewSource creates a camera source. Nothing is opened until Start.
func NewSource(opts Options) *Source {
	if opts.Device == "" {
		opts.Device = DefaultDevice
	}
	if opts.FrameTimeout <= 0 {
		opts.FrameTimeout = 5 * time.Second
	}
	return &Source{opts: opts}
}

// Description builds the GStreamer pipeline string. fd is the PipeWire
// remote from the portal, or -1 to read the V4L2 device directly.
func Description(opts Options, fd int) string {
	var src string
	if fd >= 0 {
		src = fmt.Sprintf("pipewiresrc fd=%d do-timestamp=true", fd)
	} else {
		src = fmt.Sprintf("v4l2src device=%s", opts.Device)
	}

	caps := []string{"video/x-raw", "format=RGBA"}
	if opts.Width > 0 && opts.Height > 0 {
		caps = append(caps, fmt.Sprintf("width=%d", opts.Width), fmt.Sprintf("height=%d", opts.Height))
	}

	return src + " ! videoconvert ! videoscale ! " + strings.Join(caps, ",") +
		" ! appsink name=sink emit-signals=false max-buffers=2 drop=true"
}

// Start opens the camera and begins pulling frames.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeline != nil {
		return nil
	}

	log := logger.WithComponent("camera")

	fd := -1
	if s.opts.UsePortal {
		portal, err := NewPortal()
		if err != nil {
			return err
		}
		if present, err := portal.IsCameraPresent(); err != nil || !present {
			portal.Close()
			if err != nil {
				return err
			}
			return fmt.Errorf("portal reports no camera")
		}
		if err := portal.AccessCamera(); err != nil {
			portal.Close()
			return err
		}
		if fd, err = portal.OpenPipeWireRemote(); err != nil {
			portal.Close()
			return err
		}
		s.portal = portal
	}

	pipeline := NewPipeline(Description(s.opts, fd))
	if err := pipeline.Start(); err != nil {
		if s.portal != nil {
			s.portal.Close()
			s.portal = nil
		}
		return err
	}
	s.pipeline = pipeline

	log.Info().
		Str("device", s.opts.Device).
		Bool("portal", s.opts.UsePortal).
		Msg("Camera started")
	return nil
}

// Stop closes the pipeline and the portal connection.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeline != nil {
		s.pipeline.Stop()
		s.pipeline = nil
	}
	if s.portal != nil {
		s.portal.Close()
		s.portal = nil
	}
	return nil
}

// Name returns the source name
func (s *Source) Name() string {
	return "camera"
}

// IsAvailable reports whether a camera can be opened.
func (s *Source) IsAvailable() bool {
	if s.opts.UsePortal {
		portal, err := NewPortal()
		if err != nil {
			return false
		}
		defer portal.Close()
		present, err := portal.IsCameraPresent()
		return err == nil && present
	}
	_, err := os.Stat(s.opts.Device)
	return err == nil
}

// Capture returns the newest frame, waiting for the first one if needed.
func (s *Source) Capture(ctx context.Context) (*imaging.Buffer, error) {
	s.mu.Lock()
	pipeline := s.pipeline
	s.mu.Unlock()

	if pipeline == nil || !pipeline.IsRunning() {
		return nil, fmt.Errorf("camera not started")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.FrameTimeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if frame := pipeline.LatestFrame(); frame != nil {
			return frame, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for camera frame: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
