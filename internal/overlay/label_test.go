package overlay

import (
	"image"
	"image/color"
	"testing"
)

func filledRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    Position
		wantErr bool
	}{
		{"top-left", TopLeft, false},
		{"Bottom-Right", BottomRight, false},
		{" top-right ", TopRight, false},
		{"middle", TopLeft, true},
	}
	for _, tt := range tests {
		got, err := ParsePosition(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePosition(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLabelBoundsCorners(t *testing.T) {
	frame := image.Rect(0, 0, 320, 240)
	l := NewLabel()

	tl := l.Bounds(frame, "BLUR")
	if tl.Min != image.Pt(8, 8) {
		t.Errorf("top-left origin = %v, want (8,8)", tl.Min)
	}

	l.SetPosition(BottomRight)
	br := l.Bounds(frame, "BLUR")
	if br.Max != image.Pt(312, 232) {
		t.Errorf("bottom-right corner = %v, want (312,232)", br.Max)
	}
	if br.Dx() != tl.Dx() || br.Dy() != tl.Dy() {
		t.Error("label size should not depend on position")
	}
}

func TestLabelRenderDrawsInsideBox(t *testing.T) {
	bg := color.RGBA{0, 0, 255, 255}
	img := filledRGBA(200, 100, bg)
	l := NewLabel()
	l.Render(img, "OUTLINES")

	box := l.Bounds(img.Bounds(), "OUTLINES")
	changed := false
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			inside := image.Pt(x, y).In(box)
			if img.RGBAAt(x, y) != bg {
				if !inside {
					t.Fatalf("pixel (%d,%d) outside the label changed", x, y)
				}
				changed = true
			}
		}
	}
	if !changed {
		t.Error("label did not draw anything")
	}
}

func TestLabelDisabledOrTooSmall(t *testing.T) {
	bg := color.RGBA{1, 2, 3, 255}

	img := filledRGBA(200, 100, bg)
	l := NewLabel()
	l.SetEnabled(false)
	l.Render(img, "NONE")
	if img.RGBAAt(10, 10) != bg {
		t.Error("disabled label drew")
	}

	tiny := filledRGBA(4, 4, bg)
	NewLabel().Render(tiny, "RESOLUTION_BOOST")
	for i := 0; i < len(tiny.Pix); i += 4 {
		if tiny.Pix[i] != 1 {
			t.Fatal("label drew on a frame too small to hold it")
		}
	}
}

func TestBlendImageOpacity(t *testing.T) {
	dst := filledRGBA(1, 1, color.RGBA{0, 0, 0, 255})
	src := filledRGBA(1, 1, color.RGBA{200, 100, 0, 255})

	BlendImage(dst, src, 0, 0, 0.5)
	got := dst.RGBAAt(0, 0)
	if got.R != 100 || got.G != 50 || got.B != 0 || got.A != 255 {
		t.Errorf("blend = %v, want {100 50 0 255}", got)
	}

	BlendImage(dst, src, 5, 5, 1)
	if dst.RGBAAt(0, 0) != got {
		t.Error("blend outside destination bounds changed pixels")
	}
}
