package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/bryanchriswhite/FilterCam/internal/imaging"
	"github.com/bryanchriswhite/FilterCam/internal/logger"
)

var gstInitOnce sync.Once

// Pipeline runs a GStreamer description ending in an appsink named "sink"
// and keeps the most recent frame.
type Pipeline struct {
	description string
	pipeline    *gst.Pipeline
	appsink     *app.Sink
	mu          sync.RWMutex
	latest      *imaging.Buffer
	frameCount  uint64
	running     bool
	ready       bool
	stopChan    chan struct{}
	done        chan struct{}
}

// NewPipeline prepares a pipeline; nothing is created until Start.
func NewPipeline(description string) *Pipeline {
	return &Pipeline{description: description}
}

// Start initializes and starts the GStreamer pipeline
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("pipeline already running")
	}

	log := logger.WithComponent("gstreamer")

	gstInitOnce.Do(func() { gst.Init(nil) })

	log.Debug().Str("pipeline", p.description).Msg("Creating GStreamer pipeline")

	pipeline, err := gst.NewPipelineFromString(p.description)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	sinkElement, err := pipeline.GetElementByName("sink")
	if err != nil {
		pipeline.Unref()
		return fmt.Errorf("failed to get appsink: %w", err)
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.Unref()
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	p.pipeline = pipeline
	p.appsink = app.SinkFromElement(sinkElement)
	p.running = true
	p.ready = true
	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})

	// Poll instead of using new-sample callbacks; the callbacks cross CGO on
	// a GStreamer thread.
	go p.pollSamples(p.stopChan, p.done)

	log.Info().Msg("GStreamer pipeline started")
	return nil
}

// Stop stops the GStreamer pipeline
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}

	p.ready = false
	p.running = false
	close(p.stopChan)
	done := p.done
	p.mu.Unlock()

	<-done

	p.mu.Lock()
	if p.pipeline != nil {
		p.pipeline.SetState(gst.StateNull)
		p.pipeline.Unref()
		p.pipeline = nil
	}
	p.appsink = nil
	p.mu.Unlock()

	logger.WithComponent("gstreamer").Info().Msg("GStreamer pipeline stopped")
	return nil
}

func (p *Pipeline) pollSamples(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.RLock()
			appsink := p.appsink
			ready := p.ready
			p.mu.RUnlock()

			if !ready || appsink == nil {
				continue
			}

			sample := appsink.TryPullSample(time.Millisecond)
			if sample == nil {
				continue
			}
			// go-gst releases the sample itself; Unref here double-frees.
			p.processSample(sample)
		}
	}
}

func (p *Pipeline) processSample(sample *gst.Sample) {
	buffer := sample.GetBuffer()
	if buffer == nil {
		return
	}

	caps := sample.GetCaps()
	if caps == nil {
		return
	}
	structure := caps.GetStructureAt(0)
	if structure == nil {
		return
	}

	width, _ := structure.GetValue("width")
	height, _ := structure.GetValue("height")
	w, ok := width.(int)
	if !ok {
		return
	}
	h, ok := height.(int)
	if !ok {
		return
	}

	mapInfo := buffer.Map(gst.MapRead)
	if mapInfo == nil {
		return
	}
	defer buffer.Unmap()

	frame, err := FromRGBA(mapInfo.Bytes(), w, h)
	if err != nil {
		return
	}

	p.mu.Lock()
	p.latest = frame
	p.frameCount++
	p.mu.Unlock()
}

// LatestFrame returns a copy of the most recent frame, or nil before the first one.
func (p *Pipeline) LatestFrame() *imaging.Buffer {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.latest == nil {
		return nil
	}
	return p.latest.Clone()
}

// FrameCount returns the number of frames pulled so far.
func (p *Pipeline) FrameCount() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.frameCount
}

// IsRunning returns whether the pipeline is running
func (p *Pipeline) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// FromRGBA converts tightly packed RGBA bytes to an ARGB buffer.
func FromRGBA(data []byte, width, height int) (*imaging.Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: frame %dx%d", imaging.ErrInvalidInput, width, height)
	}
	if len(data) < width*height*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d RGBA frame", imaging.ErrInvalidInput, len(data), width, height)
	}

	buf := imaging.MustNew(width, height)
	for y := 0; y < height; y++ {
		row := buf.Row(y)
		src := data[y*width*4:]
		for x := range row {
			i := x * 4
			row[x] = imaging.NewARGB(src[i+3], src[i], src[i+1], src[i+2])
		}
	}
	return buf, nil
}
