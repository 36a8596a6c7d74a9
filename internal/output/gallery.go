package output

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/bryanchriswhite/FilterCam/internal/filter"
	"github.com/bryanchriswhite/FilterCam/internal/imaging"
	"github.com/bryanchriswhite/FilterCam/internal/logger"
)

// DefaultGalleryLimit bounds the gallery when no limit is configured.
const DefaultGalleryLimit = 50

// Entry describes one processed capture held by the gallery.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Filter    filter.ID `json:"filter"`
	Source    string    `json:"source,omitempty"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

// FileName is the name used when exporting the entry.
func (e Entry) FileName() string {
	return fmt.Sprintf("%s_%s_%s.png",
		e.CreatedAt.Format("20060102-150405"),
		strings.ToLower(e.Filter.String()),
		e.ID.String()[:8],
	)
}

type galleryItem struct {
	Entry
	buf *imaging.Buffer
}

// Gallery keeps processed captures in memory for the session, oldest
// evicted first once the limit is reached.
type Gallery struct {
	mu    sync.RWMutex
	limit int
	items []galleryItem
}

// NewGallery creates a gallery holding at most limit captures.
func NewGallery(limit int) *Gallery {
	if limit <= 0 {
		limit = DefaultGalleryLimit
	}
	return &Gallery{limit: limit}
}

// Add stores buf, taking ownership of it.
func (g *Gallery) Add(id uuid.UUID, f filter.ID, source string, buf *imaging.Buffer) Entry {
	e := Entry{
		ID:        id,
		Filter:    f,
		Source:    source,
		Width:     buf.Width(),
		Height:    buf.Height(),
		CreatedAt: time.Now(),
	}

	g.mu.Lock()
	g.items = append(g.items, galleryItem{Entry: e, buf: buf})
	var evicted []uuid.UUID
	for len(g.items) > g.limit {
		evicted = append(evicted, g.items[0].ID)
		g.items[0] = galleryItem{}
		g.items = g.items[1:]
	}
	g.mu.Unlock()

	for _, old := range evicted {
		logger.WithComponent("gallery").Debug().Str("id", old.String()).Msg("Evicted capture")
	}
	return e
}

// List returns entries newest first.
func (g *Gallery) List() []Entry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Entry, len(g.items))
	for i, item := range g.items {
		out[len(g.items)-1-i] = item.Entry
	}
	return out
}

// Get returns the entry and a copy of its pixels.
func (g *Gallery) Get(id uuid.UUID) (Entry, *imaging.Buffer, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, item := range g.items {
		if item.ID == id {
			return item.Entry, item.buf.Clone(), true
		}
	}
	return Entry{}, nil, false
}

// Delete removes the entry with id and reports whether it existed.
func (g *Gallery) Delete(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, item := range g.items {
		if item.ID == id {
			last := len(g.items) - 1
			copy(g.items[i:], g.items[i+1:])
			g.items[last] = galleryItem{}
			g.items = g.items[:last]
			return true
		}
	}
	return false
}

// Len returns the number of stored captures.
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.items)
}

// Clear drops every capture.
func (g *Gallery) Clear() {
	g.mu.Lock()
	g.items = nil
	g.mu.Unlock()
}

// Export writes every capture to dir as PNG and returns the written paths.
func (g *Gallery) Export(fs afero.Fs, dir string) ([]string, error) {
	g.mu.RLock()
	items := make([]galleryItem, len(g.items))
	copy(items, g.items)
	g.mu.RUnlock()

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	paths := make([]string, 0, len(items))
	for _, item := range items {
		var buf bytes.Buffer
		if err := EncodePNG(&buf, item.buf); err != nil {
			return paths, fmt.Errorf("encode %s: %w", item.ID, err)
		}
		path := filepath.Join(dir, item.FileName())
		if err := afero.WriteFile(fs, path, buf.Bytes(), 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	logger.WithComponent("gallery").Info().Int("count", len(paths)).Str("dir", dir).Msg("Exported gallery")
	return paths, nil
}

// EncodePNG writes buf as a straight-alpha PNG.
func EncodePNG(w io.Writer, buf *imaging.Buffer) error {
	return png.Encode(w, buf.ToNRGBA())
}
