package display

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	xdraw "golang.org/x/image/draw"

	"github.com/bryanchriswhite/FilterCam/internal/logger"
)

// maxPutBytes keeps each PutImage under the core protocol request limit
// (262140 bytes) so servers without BIG-REQUESTS accept it.
const maxPutBytes = 256 * 1024

// Config sizes the display window.
type Config struct {
	Width  int
	Height int
	Title  string
}

// Window shows processed captures in a local X11 window, letterboxed to
// the window size. It implements output.Output.
type Window struct {
	cfg     Config
	conn    *xgb.Conn
	screen  *xproto.ScreenInfo
	window  xproto.Window
	gc      xproto.Gcontext
	bpp     int
	pad     int
	running bool
	mu      sync.RWMutex
}

// NewWindow creates a display window sink. The X connection is opened by Start.
func NewWindow(cfg Config) *Window {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.Title == "" {
		cfg.Title = "FilterCam"
	}
	return &Window{cfg: cfg}
}

// Start creates and shows the display window
func (w *Window) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("display already running")
	}

	log := logger.WithComponent("display")

	conn, err := xgb.NewConn()
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %w", err)
	}
	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	bpp, pad := 0, 0
	for _, format := range setup.PixmapFormats {
		if format.Depth == screen.RootDepth {
			bpp = int(format.BitsPerPixel) / 8
			pad = int(format.ScanlinePad) / 8
			break
		}
	}
	if bpp != 3 && bpp != 4 {
		conn.Close()
		return fmt.Errorf("unsupported pixmap format for depth %d", screen.RootDepth)
	}

	windowID, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create window ID: %w", err)
	}

	// Create window with black background
	mask := uint32(xproto.CwBackPixel | xproto.CwEventMask)
	values := []uint32{
		0x000000,
		xproto.EventMaskExposure | xproto.EventMaskStructureNotify,
	}
	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		windowID,
		screen.Root,
		0, 0,
		uint16(w.cfg.Width), uint16(w.cfg.Height),
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		mask,
		values,
	).Check()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create window: %w", err)
	}

	w.conn = conn
	w.screen = screen
	w.window = windowID
	w.bpp = bpp
	w.pad = pad

	if err := w.setWindowTitle(w.cfg.Title); err != nil {
		log.Warn().Err(err).Msg("Failed to set window title")
	}
	if err := w.setWindowClass("filtercam", "FilterCam"); err != nil {
		log.Warn().Err(err).Msg("Failed to set window class")
	}

	if err := xproto.MapWindowChecked(conn, windowID).Check(); err != nil {
		w.closeLocked()
		return fmt.Errorf("failed to map window: %w", err)
	}

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		w.closeLocked()
		return fmt.Errorf("failed to create graphics context: %w", err)
	}
	if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(windowID), 0, nil).Check(); err != nil {
		w.closeLocked()
		return fmt.Errorf("failed to create GC: %w", err)
	}
	w.gc = gc
	conn.Sync()

	w.running = true
	log.Info().
		Int("width", w.cfg.Width).
		Int("height", w.cfg.Height).
		Uint32("window_id", uint32(windowID)).
		Msg("Display window created")
	return nil
}

// Stop closes the display window
func (w *Window) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.closeLocked()
	w.running = false
	logger.WithComponent("display").Info().Msg("Display window closed")
	return nil
}

func (w *Window) closeLocked() {
	if w.conn == nil {
		return
	}
	if w.gc != 0 {
		xproto.FreeGC(w.conn, w.gc)
		w.gc = 0
	}
	if w.window != 0 {
		xproto.DestroyWindow(w.conn, w.window)
		w.window = 0
	}
	w.conn.Sync()
	w.conn.Close()
	w.conn = nil
}

// Name returns the output type name
func (w *Window) Name() string {
	return "X11 Window"
}

// IsRunning returns whether the display is currently running
func (w *Window) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// WriteFrame letterboxes frame into the window.
func (w *Window) WriteFrame(frame *image.RGBA) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.running {
		return fmt.Errorf("display not running")
	}

	canvas := Letterbox(frame, w.cfg.Width, w.cfg.Height)
	return w.putImage(canvas)
}

// Letterbox scales src to fit width x height, preserving aspect ratio, and
// centres it on black.
func Letterbox(src *image.RGBA, width, height int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}

	b := src.Bounds()
	if b.Empty() {
		return out
	}
	scale := min(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	dw := max(1, int(float64(b.Dx())*scale))
	dh := max(1, int(float64(b.Dy())*scale))
	ox, oy := (width-dw)/2, (height-dh)/2

	xdraw.ApproxBiLinear.Scale(out, image.Rect(ox, oy, ox+dw, oy+dh), src, b, xdraw.Over, nil)
	return out
}

// packZPixmap converts RGBA rows to the server's BGR(x) layout with scanline padding.
func packZPixmap(img *image.RGBA, bpp, pad int, depth byte) ([]byte, int) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	unpadded := width * bpp
	stride := ((unpadded + pad - 1) / pad) * pad

	data := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		src := img.Pix[y*img.Stride:]
		dst := data[y*stride:]
		for x := 0; x < width; x++ {
			s, d := x*4, x*bpp
			dst[d] = src[s+2]
			dst[d+1] = src[s+1]
			dst[d+2] = src[s]
			if bpp == 4 && depth == 32 {
				dst[d+3] = src[s+3]
			}
		}
	}
	return data, stride
}

func (w *Window) putImage(img *image.RGBA) error {
	data, stride := packZPixmap(img, w.bpp, w.pad, w.screen.RootDepth)
	height := img.Bounds().Dy()
	rows := max(1, maxPutBytes/stride)

	for y := 0; y < height; y += rows {
		n := min(rows, height-y)
		err := xproto.PutImageChecked(
			w.conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(w.window),
			w.gc,
			uint16(w.cfg.Width),
			uint16(n),
			0, int16(y),
			0,
			w.screen.RootDepth,
			data[y*stride:(y+n)*stride],
		).Check()
		if err != nil {
			return fmt.Errorf("failed to put image: %w", err)
		}
	}

	w.conn.Sync()
	return nil
}

func (w *Window) setWindowTitle(title string) error {
	titleAtom, err := w.getAtom("_NET_WM_NAME")
	if err != nil {
		return err
	}
	utf8Atom, err := w.getAtom("UTF8_STRING")
	if err != nil {
		return err
	}

	return xproto.ChangePropertyChecked(
		w.conn,
		xproto.PropModeReplace,
		w.window,
		titleAtom,
		utf8Atom,
		8,
		uint32(len(title)),
		[]byte(title),
	).Check()
}

func (w *Window) setWindowClass(instance, class string) error {
	classAtom, err := w.getAtom("WM_CLASS")
	if err != nil {
		return err
	}

	// WM_CLASS format: instance\0class\0
	classStr := instance + "\x00" + class + "\x00"

	return xproto.ChangePropertyChecked(
		w.conn,
		xproto.PropModeReplace,
		w.window,
		classAtom,
		xproto.AtomString,
		8,
		uint32(len(classStr)),
		[]byte(classStr),
	).Check()
}

func (w *Window) getAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(w.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern atom %s: %w", name, err)
	}
	return reply.Atom, nil
}
