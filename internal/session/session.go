// Package session ties the filter selection, the pipeline and the output
// sinks together for one capture session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/FilterCam/internal/capture"
	"github.com/bryanchriswhite/FilterCam/internal/filter"
	"github.com/bryanchriswhite/FilterCam/internal/imaging"
	"github.com/bryanchriswhite/FilterCam/internal/logger"
	"github.com/bryanchriswhite/FilterCam/internal/output"
	"github.com/bryanchriswhite/FilterCam/internal/overlay"
)

// ErrNoSource is returned by Capture when the session has no capture router.
var ErrNoSource = errors.New("session has no capture source")

// Result describes one processed capture.
type Result struct {
	ID       uuid.UUID
	Filter   filter.ID
	Source   string
	Output   *imaging.Buffer
	Duration time.Duration
	At       time.Time
	// Fallback is set when the pipeline could not be built and the
	// identity filter ran in place of the selection. Filter is then NONE.
	Fallback bool
}

// Stats counts what the session has done so far.
type Stats struct {
	Processed int64         `json:"processed"`
	Failed    int64         `json:"failed"`
	Fallback  bool          `json:"fallback"`
	Filter    string        `json:"filter"`
	Source    string        `json:"source,omitempty"`
	LastTook  time.Duration `json:"last_duration_ns"`
}

// Option configures a Session.
type Option func(*Session)

// WithOutputs adds sinks that receive every processed capture.
func WithOutputs(outputs ...output.Output) Option {
	return func(s *Session) {
		s.outputs = append(s.outputs, outputs...)
	}
}

// WithGallery keeps processed captures in g.
func WithGallery(g *output.Gallery) Option {
	return func(s *Session) {
		s.gallery = g
	}
}

// WithLabel draws the filter name onto frames sent to outputs.
func WithLabel(l *overlay.Label) Option {
	return func(s *Session) {
		s.label = l
	}
}

// WithSource sets the router used by Capture.
func WithSource(r *capture.Router) Option {
	return func(s *Session) {
		s.source = r
	}
}

// Session owns the filter selection and runs captures through the pipeline.
// Captures are processed one at a time.
type Session struct {
	selection *Selection
	pipeline  *filter.Pipeline
	initErr   error
	reported  sync.Once

	source  *capture.Router
	outputs []output.Output
	gallery *output.Gallery
	label   *overlay.Label

	mu   sync.Mutex
	last *Result

	processed atomic.Int64
	failed    atomic.Int64
	lastTook  atomic.Int64

	log *zerolog.Logger
}

// New creates a session with the selection at NONE. If params cannot be
// turned into a pipeline the session still works, applying the identity
// filter to every capture; the failure is logged on the first capture and
// kept in InitErr.
func New(params filter.Params, opts ...Option) *Session {
	s := &Session{
		selection: NewSelection(),
		log:       logger.WithComponent("session"),
	}
	s.pipeline, s.initErr = filter.New(params)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Selection exposes the session's filter selection.
func (s *Session) Selection() *Selection {
	return s.selection
}

// Advance moves to the next filter and returns it.
func (s *Session) Advance() filter.ID {
	id := s.selection.Advance()
	s.log.Info().Str("filter", id.String()).Msg("Filter selected")
	return id
}

// FilterName returns the display name of the selected filter.
func (s *Session) FilterName() string {
	return s.selection.Name()
}

// Reset starts a fresh session: selection back to NONE and no last result.
func (s *Session) Reset() {
	s.selection.Reset()
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()
}

// InitErr returns the pipeline initialisation failure, if any.
func (s *Session) InitErr() error {
	return s.initErr
}

// Gallery returns the gallery, or nil.
func (s *Session) Gallery() *output.Gallery {
	return s.gallery
}

// Source returns the capture router, or nil.
func (s *Session) Source() *capture.Router {
	return s.source
}

// Last returns the most recent successful result, or nil.
func (s *Session) Last() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Process applies the selected filter to buf. The selection is read once,
// before any work starts. An invalid input leaves the previous result in
// place and sends it to the outputs again.
func (s *Session) Process(buf *imaging.Buffer) (*Result, error) {
	return s.process(uuid.New(), "", buf)
}

// Capture grabs one frame from the source and processes it.
func (s *Session) Capture(ctx context.Context) (*Result, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}
	frame, err := s.source.Capture(ctx)
	if err != nil {
		s.failed.Add(1)
		if errors.Is(err, imaging.ErrInvalidInput) {
			s.representLast()
		}
		return nil, err
	}
	return s.process(frame.ID, frame.Source, frame.Buffer)
}

// Run captures every interval until ctx is done. Capture errors are logged
// and do not stop the loop.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("capture interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Capture(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("Periodic capture failed")
			}
		}
	}
}

func (s *Session) process(id uuid.UUID, source string, buf *imaging.Buffer) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected := s.selection.Current()
	start := time.Now()

	out, fallback, err := s.apply(selected, buf)
	if err != nil {
		s.failed.Add(1)
		s.log.Warn().Err(err).
			Str("capture_id", id.String()).
			Str("filter", selected.String()).
			Msg("Capture processing failed")
		if errors.Is(err, imaging.ErrInvalidInput) && s.last != nil {
			s.present(s.last)
		}
		return nil, err
	}

	applied := selected
	if fallback {
		applied = filter.None
	}
	res := &Result{
		ID:       id,
		Filter:   applied,
		Source:   source,
		Output:   out,
		Duration: time.Since(start),
		At:       start,
		Fallback: fallback,
	}
	s.last = res
	s.processed.Add(1)
	s.lastTook.Store(int64(res.Duration))

	if s.gallery != nil {
		s.gallery.Add(res.ID, res.Filter, source, out)
	}
	s.present(res)

	s.log.Debug().
		Str("capture_id", id.String()).
		Str("filter", selected.String()).
		Int("width", out.Width()).
		Int("height", out.Height()).
		Dur("took", res.Duration).
		Msg("Capture processed")
	return res, nil
}

func (s *Session) apply(id filter.ID, buf *imaging.Buffer) (*imaging.Buffer, bool, error) {
	if s.pipeline == nil {
		s.reported.Do(func() {
			s.log.Error().Err(s.initErr).Msg("Filter pipeline unavailable, captures pass through unfiltered")
		})
		if buf.Empty() {
			return nil, true, imaging.ErrInvalidInput
		}
		return buf.Clone(), true, nil
	}
	out, err := s.pipeline.Apply(id, buf)
	return out, false, err
}

func (s *Session) representLast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil {
		s.present(s.last)
	}
}

// present fans a result out to every running output.
func (s *Session) present(res *Result) {
	if len(s.outputs) == 0 {
		return
	}
	frame := res.Output.ToRGBA()
	if s.label != nil && s.label.IsEnabled() {
		s.label.Render(frame, res.Filter.String())
	}
	for _, out := range s.outputs {
		if !out.IsRunning() {
			continue
		}
		if err := out.WriteFrame(frame); err != nil {
			s.log.Warn().Err(err).Str("output", out.Name()).Msg("Failed to write frame")
		}
	}
}

// Stats returns counters for the stats endpoint.
func (s *Session) Stats() Stats {
	st := Stats{
		Processed: s.processed.Load(),
		Failed:    s.failed.Load(),
		Fallback:  s.pipeline == nil,
		Filter:    s.FilterName(),
		LastTook:  time.Duration(s.lastTook.Load()),
	}
	if s.source != nil {
		st.Source = s.source.Name()
	}
	return st
}
