package display

import (
	"image"
	"image/color"
	"testing"
)

func TestLetterboxCentresWideImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 1))
	for x := 0; x < 4; x++ {
		src.SetRGBA(x, 0, color.RGBA{255, 255, 255, 255})
	}

	out := Letterbox(src, 8, 8)
	if out.Bounds().Dx() != 8 || out.Bounds().Dy() != 8 {
		t.Fatalf("size = %v, want 8x8", out.Bounds())
	}
	// 4x1 scaled by 2 is 8x2, centred at rows 3..4.
	if got := out.RGBAAt(4, 3); got.R != 255 {
		t.Errorf("centre row pixel = %v, want white", got)
	}
	if got := out.RGBAAt(4, 0); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("top bar pixel = %v, want opaque black", got)
	}
}

func TestLetterboxEmptySource(t *testing.T) {
	out := Letterbox(image.NewRGBA(image.Rect(0, 0, 0, 0)), 2, 2)
	if got := out.RGBAAt(1, 1); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("pixel = %v, want opaque black", got)
	}
}

func TestPackZPixmap(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	img.SetRGBA(0, 0, color.RGBA{1, 2, 3, 4})

	data, stride := packZPixmap(img, 4, 4, 24)
	if stride != 12 {
		t.Errorf("stride = %d, want 12", stride)
	}
	if data[0] != 3 || data[1] != 2 || data[2] != 1 || data[3] != 0 {
		t.Errorf("first pixel = %v, want BGRx [3 2 1 0]", data[:4])
	}

	data, stride = packZPixmap(img, 3, 4, 24)
	if stride != 12 {
		t.Errorf("24bpp stride = %d, want 12 (9 padded to 4)", stride)
	}
	if len(data) != 12 {
		t.Errorf("len = %d, want 12", len(data))
	}

	data, _ = packZPixmap(img, 4, 4, 32)
	if data[3] != 4 {
		t.Errorf("depth 32 alpha byte = %d, want 4", data[3])
	}
}

func TestNewWindowDefaults(t *testing.T) {
	w := NewWindow(Config{})
	if w.cfg.Width != 1280 || w.cfg.Height != 720 || w.cfg.Title != "FilterCam" {
		t.Errorf("defaults = %+v", w.cfg)
	}
	if w.IsRunning() {
		t.Error("window running before Start")
	}
	if err := w.WriteFrame(image.NewRGBA(image.Rect(0, 0, 1, 1))); err == nil {
		t.Error("WriteFrame before Start should fail")
	}
}
