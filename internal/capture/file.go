package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/bryanchriswhite/FilterCam/internal/imaging"
	"github.com/bryanchriswhite/FilterCam/internal/logger"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// FileSource delivers decoded still images from disk. When path is a
// directory each capture takes the next image in name order, wrapping at the end.
type FileSource struct {
	fs   afero.Fs
	path string

	mu   sync.Mutex
	next int
}

// NewFileSource creates a source reading path from fs. A nil fs means the OS filesystem.
func NewFileSource(fs afero.Fs, path string) *FileSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileSource{fs: fs, path: path}
}

// Start checks that the path exists.
func (s *FileSource) Start() error {
	if s.path == "" {
		return fmt.Errorf("file source needs a path")
	}
	if _, err := s.fs.Stat(s.path); err != nil {
		return fmt.Errorf("file source: %w", err)
	}
	return nil
}

// Stop is a no-op.
func (s *FileSource) Stop() error { return nil }

// Name returns the source name
func (s *FileSource) Name() string { return "file" }

// IsAvailable reports whether the configured path exists.
func (s *FileSource) IsAvailable() bool {
	if s.path == "" {
		return false
	}
	ok, err := afero.Exists(s.fs, s.path)
	return err == nil && ok
}

// Capture decodes the current image.
func (s *FileSource) Capture(ctx context.Context) (*imaging.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := s.pick()
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	buf, format, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	logger.WithComponent("file-source").Debug().
		Str("file", name).
		Str("format", format).
		Int("width", buf.Width()).
		Int("height", buf.Height()).
		Msg("Decoded image")
	return buf, nil
}

func (s *FileSource) pick() (string, error) {
	info, err := s.fs.Stat(s.path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return s.path, nil
	}

	entries, err := afero.ReadDir(s.fs, s.path)
	if err != nil {
		return "", err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no images in %s", ErrNoFrame, s.path)
	}
	sort.Strings(names)

	s.mu.Lock()
	i := s.next % len(names)
	s.next = i + 1
	s.mu.Unlock()
	return filepath.Join(s.path, names[i]), nil
}

// MaxDecodePixels bounds the area of an image Decode will allocate for.
const MaxDecodePixels = 1 << 25

// Decode reads any registered image format into a buffer. The header is
// checked first, so zero-area images and images larger than MaxDecodePixels
// are rejected with imaging.ErrInvalidInput before any pixel data is read.
func Decode(r io.Reader) (*imaging.Buffer, string, error) {
	br := bufio.NewReader(r)
	var head bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(br, &head))
	if err != nil {
		return nil, "", err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, fmt.Errorf("%w: %s image has zero area", imaging.ErrInvalidInput, format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxDecodePixels {
		return nil, format, fmt.Errorf("%w: %s image %dx%d exceeds %d pixels",
			imaging.ErrInvalidInput, format, cfg.Width, cfg.Height, MaxDecodePixels)
	}

	img, _, err := image.Decode(io.MultiReader(&head, br))
	if err != nil {
		return nil, format, err
	}
	buf := imaging.FromImage(img)
	if buf.Empty() {
		return nil, format, fmt.Errorf("%w: %s image has zero area", imaging.ErrInvalidInput, format)
	}
	return buf, format, nil
}
