package camera

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/bryanchriswhite/FilterCam/internal/logger"
)

// Portal D-Bus constants
const (
	portalService = "org.freedesktop.portal.Desktop"
	portalPath    = "/org/freedesktop/portal/desktop"
	cameraIface   = "org.freedesktop.portal.Camera"
	requestIface  = "org.freedesktop.portal.Request"
)

// Portal talks to the xdg-desktop-portal Camera interface, used when the
// process is sandboxed and cannot open /dev/video* itself.
type Portal struct {
	conn    *dbus.Conn
	mu      sync.Mutex
	granted bool
	timeout time.Duration
}

// NewPortal connects to the session bus.
func NewPortal() (*Portal, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Portal{conn: conn, timeout: 60 * time.Second}, nil
}

// Close closes the portal connection
func (p *Portal) Close() error {
	return p.conn.Close()
}

// IsCameraPresent reads the portal's IsCameraPresent property.
func (p *Portal) IsCameraPresent() (bool, error) {
	obj := p.conn.Object(portalService, portalPath)
	v, err := obj.GetProperty(cameraIface + ".IsCameraPresent")
	if err != nil {
		return false, fmt.Errorf("read IsCameraPresent: %w", err)
	}
	present, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("unexpected IsCameraPresent type %T", v.Value())
	}
	return present, nil
}

// AccessCamera asks the user for camera permission and waits for the answer.
func (p *Portal) AccessCamera() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.granted {
		return nil
	}

	log := logger.WithComponent("portal")
	obj := p.conn.Object(portalService, portalPath)

	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(fmt.Sprintf("filtercam%d", os.Getpid())),
	}

	// Set up response channel BEFORE making the call
	responseChan := make(chan *dbus.Signal, 10)
	matchRule := fmt.Sprintf("type='signal',interface='%s',member='Response'", requestIface)
	if err := p.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule).Err; err != nil {
		log.Warn().Err(err).Msg("Failed to add match rule")
	}
	p.conn.Signal(responseChan)
	defer p.conn.RemoveSignal(responseChan)

	var requestPath dbus.ObjectPath
	if err := obj.Call(cameraIface+".AccessCamera", 0, options).Store(&requestPath); err != nil {
		return fmt.Errorf("AccessCamera call failed: %w", err)
	}

	log.Info().Str("request_path", string(requestPath)).Msg("Waiting for camera permission (portal dialog may appear)")

	if err := waitResponse(responseChan, requestPath, p.timeout); err != nil {
		return fmt.Errorf("AccessCamera: %w", err)
	}
	p.granted = true
	log.Info().Msg("Camera access granted")
	return nil
}

// OpenPipeWireRemote returns a file descriptor for the camera's PipeWire
// remote. AccessCamera must have succeeded first.
func (p *Portal) OpenPipeWireRemote() (int, error) {
	p.mu.Lock()
	granted := p.granted
	p.mu.Unlock()
	if !granted {
		return -1, fmt.Errorf("camera access not granted")
	}

	obj := p.conn.Object(portalService, portalPath)
	var fd dbus.UnixFD
	if err := obj.Call(cameraIface+".OpenPipeWireRemote", 0, map[string]dbus.Variant{}).Store(&fd); err != nil {
		return -1, fmt.Errorf("OpenPipeWireRemote call failed: %w", err)
	}
	return int(fd), nil
}

// waitResponse blocks until the Response signal for requestPath arrives.
func waitResponse(signals <-chan *dbus.Signal, requestPath dbus.ObjectPath, timeout time.Duration) error {
	log := logger.WithComponent("portal")
	deadline := time.After(timeout)
	for {
		select {
		case <-deadline:
			return fmt.Errorf("timeout waiting for portal response")
		case sig := <-signals:
			log.Debug().
				Str("signal_path", string(sig.Path)).
				Str("signal_name", sig.Name).
				Msg("Received signal")

			if sig.Path != requestPath || sig.Name != requestIface+".Response" {
				continue
			}
			if len(sig.Body) < 1 {
				return fmt.Errorf("invalid response")
			}
			response, ok := sig.Body[0].(uint32)
			if !ok {
				return fmt.Errorf("invalid response code type %T", sig.Body[0])
			}
			if response != 0 {
				return fmt.Errorf("request denied (code %d)", response)
			}
			return nil
		}
	}
}
