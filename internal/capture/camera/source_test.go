package camera

import (
	"errors"
	"strings"
	"testing"

	"github.com/bryanchriswhite/FilterCam/internal/imaging"
)

func TestDescription(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		fd   int
		want []string
	}{
		{
			name: "v4l2 default caps",
			opts: Options{Device: "/dev/video2"},
			fd:   -1,
			want: []string{"v4l2src device=/dev/video2", "video/x-raw,format=RGBA !", "appsink name=sink"},
		},
		{
			name: "v4l2 sized",
			opts: Options{Device: "/dev/video0", Width: 640, Height: 480},
			fd:   -1,
			want: []string{"format=RGBA,width=640,height=480"},
		},
		{
			name: "portal",
			opts: Options{Device: "/dev/video0", UsePortal: true},
			fd:   7,
			want: []string{"pipewiresrc fd=7"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Description(tt.opts, tt.fd)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Description = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestNewSourceDefaults(t *testing.T) {
	s := NewSource(Options{})
	if s.opts.Device != DefaultDevice {
		t.Errorf("Device = %q, want %q", s.opts.Device, DefaultDevice)
	}
	if s.opts.FrameTimeout <= 0 {
		t.Error("FrameTimeout should default to a positive duration")
	}
	if s.Name() != "camera" {
		t.Errorf("Name() = %q", s.Name())
	}
}

func TestFromRGBA(t *testing.T) {
	data := []byte{
		10, 20, 30, 255, 40, 50, 60, 128,
		70, 80, 90, 0, 1, 2, 3, 4,
	}
	buf, err := FromRGBA(data, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := buf.MustPixel(1, 0), imaging.NewARGB(128, 40, 50, 60); got != want {
		t.Errorf("pixel(1,0) = %v, want %v", got, want)
	}
	if got, want := buf.MustPixel(1, 1), imaging.NewARGB(4, 1, 2, 3); got != want {
		t.Errorf("pixel(1,1) = %v, want %v", got, want)
	}

	if _, err := FromRGBA(data[:8], 2, 2); !errors.Is(err, imaging.ErrInvalidInput) {
		t.Errorf("short data error = %v, want ErrInvalidInput", err)
	}
	if _, err := FromRGBA(nil, 0, 2); !errors.Is(err, imaging.ErrInvalidInput) {
		t.Errorf("zero width error = %v, want ErrInvalidInput", err)
	}
}
