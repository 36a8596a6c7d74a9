package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/FilterCam/internal/imaging"
	"github.com/bryanchriswhite/FilterCam/internal/logger"
)

// X11Source grabs a region of the root window, standing in for a camera on
// desktops without one.
type X11Source struct {
	region Region
	conn   *xgb.Conn
	root   xproto.Window
	screen *xproto.ScreenInfo
	mu     sync.Mutex
}

// NewX11Source creates an X11 source for region. The connection is opened by Start.
func NewX11Source(region Region) *X11Source {
	return &X11Source{region: region}
}

// Start connects to the X server named by $DISPLAY
func (s *X11Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	conn, err := xgb.NewConn()
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)
	s.conn = conn
	s.screen = screen
	s.root = screen.Root

	logger.WithComponent("x11-source").Info().
		Uint16("width", screen.WidthInPixels).
		Uint16("height", screen.HeightInPixels).
		Uint8("depth", screen.RootDepth).
		Msg("Connected to X server")
	return nil
}

// Stop closes the X11 connection
func (s *X11Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	return nil
}

// Name returns the source name
func (s *X11Source) Name() string {
	return "x11"
}

// IsAvailable checks if an X server is reachable
func (s *X11Source) IsAvailable() bool {
	s.mu.Lock()
	connected := s.conn != nil
	s.mu.Unlock()
	if connected {
		return true
	}

	conn, err := xgb.NewConn()
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Capture grabs the configured region, or the whole root window.
func (s *X11Source) Capture(ctx context.Context) (*imaging.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, fmt.Errorf("x11 source not started")
	}

	r := s.region
	if r.Empty() {
		r = Region{Width: int(s.screen.WidthInPixels), Height: int(s.screen.HeightInPixels)}
	}
	return s.captureRegion(r)
}

func (s *X11Source) captureRegion(r Region) (*imaging.Buffer, error) {
	reply, err := xproto.GetImage(
		s.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(s.root),
		int16(r.X), int16(r.Y),
		uint16(r.Width), uint16(r.Height),
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	depth := int(s.screen.RootDepth)
	if depth != 24 && depth != 32 {
		return nil, fmt.Errorf("unsupported root depth %d", depth)
	}
	return convertBGRX(reply.Data, r.Width, r.Height), nil
}

// convertBGRX converts 32-bit ZPixmap data (B, G, R, pad) to opaque ARGB.
func convertBGRX(data []byte, width, height int) *imaging.Buffer {
	buf := imaging.MustNew(width, height)
	for y := 0; y < height; y++ {
		row := buf.Row(y)
		for x := range row {
			i := (y*width + x) * 4
			if i+3 < len(data) {
				row[x] = imaging.NewARGB(255, data[i+2], data[i+1], data[i])
			}
		}
	}
	return buf
}
