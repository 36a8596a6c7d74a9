package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/bryanchriswhite/FilterCam/internal/capture/camera"
	"github.com/bryanchriswhite/FilterCam/internal/logger"
)

// Backend names accepted in configuration.
const (
	BackendAuto   = "auto"
	BackendCamera = "camera"
	BackendX11    = "x11"
	BackendFile   = "file"
)

// ErrNoSource is returned by Start when no candidate backend could start.
var ErrNoSource = errors.New("no capture backends available")

// Options selects and configures capture backends.
type Options struct {
	Backend   string
	Path      string
	Device    string
	UsePortal bool
	Width     int
	Height    int
	Rotation  int
	Region    Region
	Fs        afero.Fs
}

// Router picks a capture source and turns its raw output into upright frames.
type Router struct {
	rotation   int
	candidates []Source
	active     Source
	mu         sync.RWMutex
	started    bool
}

// NewRouter builds the candidate list for opts.Backend. "auto" tries the
// camera, then X11, then the file path if one is set.
func NewRouter(opts Options) (*Router, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendAuto
	}

	cam := func() Source {
		return camera.NewSource(camera.Options{
			Device:    opts.Device,
			Width:     opts.Width,
			Height:    opts.Height,
			UsePortal: opts.UsePortal,
		})
	}
	file := func() Source { return NewFileSource(opts.Fs, opts.Path) }
	x11 := func() Source { return NewX11Source(opts.Region) }

	var sources []Source
	switch backend {
	case BackendAuto:
		sources = []Source{cam(), x11()}
		if opts.Path != "" {
			sources = append(sources, file())
		}
	case BackendCamera:
		sources = []Source{cam()}
	case BackendX11:
		sources = []Source{x11()}
	case BackendFile:
		sources = []Source{file()}
	default:
		return nil, fmt.Errorf("unknown capture backend %q", opts.Backend)
	}

	return NewRouterWithSources(opts.Rotation, sources...)
}

// NewRouterWithSources routes to the first of sources that starts.
func NewRouterWithSources(rotation int, sources ...Source) (*Router, error) {
	if err := validateRotation(rotation); err != nil {
		return nil, err
	}
	return &Router{rotation: rotation, candidates: sources}, nil
}

func validateRotation(rotation int) error {
	if rotation%90 != 0 {
		return fmt.Errorf("rotation %d is not a multiple of 90", rotation)
	}
	return nil
}

// Start initializes the first available source
func (r *Router) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	log := logger.WithComponent("capture-router")

	var errs []error
	for _, src := range r.candidates {
		if !src.IsAvailable() {
			log.Debug().Str("source", src.Name()).Msg("Capture source not available")
			continue
		}
		if err := src.Start(); err != nil {
			log.Warn().Err(err).Str("source", src.Name()).Msg("Failed to start capture source")
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		r.active = src
		r.started = true
		log.Info().Str("source", src.Name()).Int("rotation", r.rotation).Msg("Capture source initialized")
		return nil
	}

	return errors.Join(append([]error{ErrNoSource}, errs...)...)
}

// Stop stops the active source
func (r *Router) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.active != nil {
		err = r.active.Stop()
		r.active = nil
	}
	r.started = false
	return err
}

// Capture grabs one frame from the active source and rotates it upright.
func (r *Router) Capture(ctx context.Context) (*Frame, error) {
	r.mu.RLock()
	src := r.active
	rotation := r.rotation
	r.mu.RUnlock()

	if src == nil {
		return nil, fmt.Errorf("capture router not started")
	}

	raw, err := src.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s capture: %w", src.Name(), err)
	}
	return NewFrame(raw, src.Name(), rotation)
}

// SetRotation changes the rotation applied to subsequent captures.
func (r *Router) SetRotation(rotation int) error {
	if err := validateRotation(rotation); err != nil {
		return err
	}
	r.mu.Lock()
	r.rotation = rotation
	r.mu.Unlock()
	return nil
}

// Name returns the active source name, or "" before Start.
func (r *Router) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return ""
	}
	return r.active.Name()
}

// IsStarted reports whether a source is active.
func (r *Router) IsStarted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.started
}
