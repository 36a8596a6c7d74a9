package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/spf13/afero"

	"github.com/bryanchriswhite/FilterCam/internal/imaging"
)

type stubSource struct {
	name      string
	available bool
	startErr  error
	buf       *imaging.Buffer
	started   bool
	stopped   bool
}

func (s *stubSource) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}
func (s *stubSource) Stop() error       { s.stopped = true; return nil }
func (s *stubSource) Name() string      { return s.name }
func (s *stubSource) IsAvailable() bool { return s.available }
func (s *stubSource) Capture(ctx context.Context) (*imaging.Buffer, error) {
	return s.buf.Clone(), nil
}

func writePNG(t *testing.T, fs afero.Fs, name string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, name, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewFrameRotates(t *testing.T) {
	raw := imaging.MustNew(3, 2)
	raw.MustSetPixel(0, 0, imaging.NewARGB(255, 1, 2, 3))

	f, err := NewFrame(raw, "stub", -270)
	if err != nil {
		t.Fatal(err)
	}
	if f.Rotation != 90 {
		t.Errorf("Rotation = %d, want 90", f.Rotation)
	}
	if f.Buffer.Width() != 2 || f.Buffer.Height() != 3 {
		t.Errorf("size = %dx%d, want 2x3", f.Buffer.Width(), f.Buffer.Height())
	}
	if f.Buffer.MustPixel(1, 0) != imaging.NewARGB(255, 1, 2, 3) {
		t.Error("top-left pixel did not rotate to top-right")
	}
	if f.ID.String() == "" || f.Timestamp.IsZero() {
		t.Error("frame missing ID or timestamp")
	}
}

func TestNewFrameRejectsEmpty(t *testing.T) {
	if _, err := NewFrame(imaging.MustNew(0, 0), "stub", 0); !errors.Is(err, imaging.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestRouterPicksFirstAvailable(t *testing.T) {
	buf, _ := imaging.Filled(2, 2, imaging.NewARGB(255, 9, 9, 9))
	missing := &stubSource{name: "camera"}
	broken := &stubSource{name: "x11", available: true, startErr: errors.New("no display")}
	good := &stubSource{name: "file", available: true, buf: buf}

	r, err := NewRouterWithSources(0, missing, broken, good)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	if r.Name() != "file" {
		t.Errorf("active = %q, want file", r.Name())
	}

	f, err := r.Capture(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !f.Buffer.Equal(buf) || f.Source != "file" {
		t.Errorf("unexpected frame from %q", f.Source)
	}

	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}
	if !good.stopped {
		t.Error("active source not stopped")
	}
}

func TestRouterNoSource(t *testing.T) {
	r, _ := NewRouterWithSources(0, &stubSource{name: "camera"})
	if err := r.Start(); !errors.Is(err, ErrNoSource) {
		t.Errorf("Start error = %v, want ErrNoSource", err)
	}
	if _, err := r.Capture(context.Background()); err == nil {
		t.Error("Capture before Start should fail")
	}
}

func TestRouterRejectsBadOptions(t *testing.T) {
	if _, err := NewRouter(Options{Backend: "floppy"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := NewRouter(Options{Backend: BackendFile, Rotation: 45}); err == nil {
		t.Error("expected error for rotation 45")
	}
	r, _ := NewRouterWithSources(0)
	if err := r.SetRotation(100); err == nil {
		t.Error("expected error for rotation 100")
	}
}

func TestFileSourceSingleFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/shots/a.png", 4, 3, color.NRGBA{R: 200, G: 10, B: 30, A: 255})

	r, err := NewRouter(Options{Backend: BackendFile, Path: "/shots/a.png", Fs: fs, Rotation: 180})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	f, err := r.Capture(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if f.Buffer.Width() != 4 || f.Buffer.Height() != 3 {
		t.Errorf("size = %dx%d, want 4x3", f.Buffer.Width(), f.Buffer.Height())
	}
	if got, want := f.Buffer.MustPixel(2, 1), imaging.NewARGB(255, 200, 10, 30); got != want {
		t.Errorf("pixel = %v, want %v", got, want)
	}
}

func TestFileSourceDirectoryCycles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/roll/b.png", 2, 2, color.NRGBA{G: 255, A: 255})
	writePNG(t, fs, "/roll/a.png", 1, 1, color.NRGBA{R: 255, A: 255})
	if err := afero.WriteFile(fs, "/roll/notes.txt", []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFileSource(fs, "/roll")
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}

	wantWidths := []int{1, 2, 1}
	for i, w := range wantWidths {
		buf, err := src.Capture(context.Background())
		if err != nil {
			t.Fatalf("capture %d: %v", i, err)
		}
		if buf.Width() != w {
			t.Errorf("capture %d width = %d, want %d", i, buf.Width(), w)
		}
	}
}

func TestFileSourceEmptyDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/empty", 0o755); err != nil {
		t.Fatal(err)
	}
	src := NewFileSource(fs, "/empty")
	if _, err := src.Capture(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("error = %v, want ErrNoFrame", err)
	}
}

func TestFileSourceMissing(t *testing.T) {
	src := NewFileSource(afero.NewMemMapFs(), "/nope.png")
	if src.IsAvailable() {
		t.Error("missing file reported available")
	}
	if err := src.Start(); err == nil {
		t.Error("Start should fail for a missing file")
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, _, err := Decode(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected decode error")
	}
}

// pngHeader returns a PNG signature and IHDR chunk for a w x h 8-bit
// grayscale image with no pixel data behind it.
func pngHeader(w, h uint32) []byte {
	var b bytes.Buffer
	b.WriteString("\x89PNG\r\n\x1a\n")
	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 0, 0, 0, 0)
	b.Write(binary.BigEndian.AppendUint32(nil, 13))
	b.Write(chunk)
	b.Write(binary.BigEndian.AppendUint32(nil, crc32.ChecksumIEEE(chunk)))
	return b.Bytes()
}

func TestDecodeRejectsOversizedHeader(t *testing.T) {
	_, format, err := Decode(bytes.NewReader(pngHeader(10000, 10000)))
	if !errors.Is(err, imaging.ErrInvalidInput) {
		t.Fatalf("Decode error = %v, want ErrInvalidInput", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}
}

func TestDecodeReplaysHeader(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var enc bytes.Buffer
	if err := png.Encode(&enc, img); err != nil {
		t.Fatal(err)
	}
	buf, format, err := Decode(&enc)
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" || buf.Width() != 3 || buf.Height() != 2 {
		t.Fatalf("got %s %dx%d, want png 3x2", format, buf.Width(), buf.Height())
	}
	if got, want := buf.MustPixel(2, 1), imaging.NewARGB(255, 10, 20, 30); got != want {
		t.Errorf("pixel(2,1) = %v, want %v", got, want)
	}
}

func TestConvertBGRX(t *testing.T) {
	data := []byte{1, 2, 3, 0, 4, 5, 6, 0}
	buf := convertBGRX(data, 2, 1)
	if got, want := buf.MustPixel(0, 0), imaging.NewARGB(255, 3, 2, 1); got != want {
		t.Errorf("pixel 0 = %v, want %v", got, want)
	}
	if got, want := buf.MustPixel(1, 0), imaging.NewARGB(255, 6, 5, 4); got != want {
		t.Errorf("pixel 1 = %v, want %v", got, want)
	}
}
