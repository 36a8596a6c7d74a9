package filter

import (
	"errors"
	"math"
	"testing"

	"github.com/bryanchriswhite/FilterCam/internal/imaging"
)

func testBuffer(w, h int) *imaging.Buffer {
	b := imaging.MustNew(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.MustSetPixel(x, y, imaging.NewARGB(
				uint8(200+(x+y)%56),
				uint8((x*41+y*3)%256),
				uint8((x*17+y*23)%256),
				uint8((x*5+y*59)%256),
			))
		}
	}
	return b
}

func TestCycleOrder(t *testing.T) {
	want := []ID{Difference, ResolutionBoost, Enhance, Blur, Outlines, Laplacian, Unsharp, None}
	id := None
	for i, w := range want {
		id = id.Next()
		if id != w {
			t.Fatalf("step %d: got %s, want %s", i+1, id, w)
		}
	}
}

func TestCycleLength(t *testing.T) {
	for _, start := range All() {
		id := start
		for i := 0; i < Count; i++ {
			id = id.Next()
			if i < Count-1 && id == start {
				t.Fatalf("%s returned to itself after %d steps", start, i+1)
			}
		}
		if id != start {
			t.Errorf("%s: %d advances gave %s", start, Count, id)
		}
	}
	if Count != 8 {
		t.Errorf("Count = %d, want 8", Count)
	}
}

func TestNextInvalidResets(t *testing.T) {
	if got := ID(42).Next(); got != None {
		t.Errorf("ID(42).Next() = %s, want NONE", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{"NONE", None, false},
		{"resolution_boost", ResolutionBoost, false},
		{" Laplacian ", Laplacian, false},
		{"res", ResolutionBoost, false},
		{"default", None, false},
		{"sepia", None, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextMarshalling(t *testing.T) {
	text, err := Outlines.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "OUTLINES" {
		t.Errorf("MarshalText = %q", text)
	}
	var id ID
	if err := id.UnmarshalText([]byte("unsharp")); err != nil || id != Unsharp {
		t.Errorf("UnmarshalText = %s, %v", id, err)
	}
	if _, err := ID(-1).MarshalText(); err == nil {
		t.Error("expected error marshalling invalid id")
	}
}

func TestNewRejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"laplacian kernel", func(p *Params) { p.LaplacianKernel = 4 }},
		{"gaussian kernel", func(p *Params) { p.GaussianKernel = 0 }},
		{"resize scale", func(p *Params) { p.ResizeScale = 0 }},
		{"blur radius", func(p *Params) { p.BlurRadius = -1 }},
		{"canny", func(p *Params) { p.CannyHigh = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			if _, err := New(p); !errors.Is(err, imaging.ErrResourceInit) {
				t.Errorf("New error = %v, want ErrResourceInit", err)
			}
		})
	}
}

func TestApplyRejectsEmptyInput(t *testing.T) {
	p := MustNew(DefaultParams())
	for _, id := range All() {
		if _, err := p.Apply(id, nil); !errors.Is(err, imaging.ErrInvalidInput) {
			t.Errorf("%s(nil) error = %v, want ErrInvalidInput", id, err)
		}
		if _, err := p.Apply(id, imaging.MustNew(0, 3)); !errors.Is(err, imaging.ErrInvalidInput) {
			t.Errorf("%s(0x3) error = %v, want ErrInvalidInput", id, err)
		}
	}
	if _, err := p.Apply(ID(99), testBuffer(2, 2)); !errors.Is(err, ErrUnknownFilter) {
		t.Errorf("Apply(99) error = %v, want ErrUnknownFilter", err)
	}
}

func TestNoneIsIdentity(t *testing.T) {
	p := MustNew(DefaultParams())
	for _, size := range [][2]int{{1, 1}, {3, 7}, {40, 25}} {
		in := testBuffer(size[0], size[1])
		out, err := p.Apply(None, in)
		if err != nil {
			t.Fatal(err)
		}
		if !out.Equal(in) {
			t.Errorf("%dx%d: NONE changed the buffer", size[0], size[1])
		}
		if out == in {
			t.Error("NONE should return a new buffer")
		}
	}
}

func TestFiltersDoNotModifyInput(t *testing.T) {
	p := MustNew(DefaultParams())
	in := testBuffer(12, 9)
	before := in.Clone()
	for _, id := range All() {
		if _, err := p.Apply(id, in); err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		if !in.Equal(before) {
			t.Fatalf("%s modified its input", id)
		}
	}
}

func TestResolutionBoostDimensions(t *testing.T) {
	p := MustNew(DefaultParams())
	out, err := p.Apply(ResolutionBoost, testBuffer(5, 3))
	if err != nil {
		t.Fatal(err)
	}
	if out.Width() != 20 || out.Height() != 12 {
		t.Errorf("size = %dx%d, want 20x12", out.Width(), out.Height())
	}

	unit := DefaultParams()
	unit.ResizeScale = 1
	in := testBuffer(6, 4)
	out, err = MustNew(unit).Apply(ResolutionBoost, in)
	if err != nil {
		t.Fatal(err)
	}
	// Catmull-Rom weights are 1 at the sample and 0 at other integers.
	if !out.Equal(in) {
		t.Error("scale 1 should reproduce the input exactly")
	}
}

func TestOutlinesFlatHasNoEdges(t *testing.T) {
	p := MustNew(DefaultParams())
	for _, size := range [][2]int{{1, 1}, {4, 4}, {31, 17}} {
		in, _ := imaging.Filled(size[0], size[1], imaging.NewARGB(255, 10, 200, 90))
		out, err := p.Apply(Outlines, in)
		if err != nil {
			t.Fatal(err)
		}
		for y := 0; y < out.Height(); y++ {
			for x, c := range out.Row(y) {
				if c.R() != 0 || c.G() != 0 || c.B() != 0 {
					t.Fatalf("%dx%d: pixel(%d,%d) = %v, want no edge", size[0], size[1], x, y, c)
				}
			}
		}
	}
}

func TestOutlinesFindsEdge(t *testing.T) {
	in := imaging.MustNew(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := imaging.NewARGB(255, 0, 0, 0)
			if x >= 8 {
				c = imaging.NewARGB(255, 255, 255, 255)
			}
			in.MustSetPixel(x, y, c)
		}
	}
	out, err := MustNew(DefaultParams()).Apply(Outlines, in)
	if err != nil {
		t.Fatal(err)
	}
	edges := 0
	for y := 0; y < out.Height(); y++ {
		for _, c := range out.Row(y) {
			if c.R() == imaging.EdgeOn {
				edges++
			} else if c.R() != imaging.EdgeOff {
				t.Fatalf("non-binary edge value %d", c.R())
			}
		}
	}
	if edges == 0 {
		t.Error("expected edges along the step")
	}
}

func TestDifferenceAgainstOutlines(t *testing.T) {
	p := MustNew(DefaultParams())
	in := testBuffer(20, 14)

	diff, err := p.Apply(Difference, in)
	if err != nil {
		t.Fatal(err)
	}
	outlines, err := p.Apply(Outlines, in)
	if err != nil {
		t.Fatal(err)
	}

	for y := 0; y < in.Height(); y++ {
		for x := 0; x < in.Width(); x++ {
			a, b, got := in.MustPixel(x, y), outlines.MustPixel(x, y), diff.MustPixel(x, y)
			want := imaging.NewARGB(a.A(), absDiff(a.R(), b.R()), absDiff(a.G(), b.G()), absDiff(a.B(), b.B()))
			if got != want {
				t.Fatalf("pixel(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestAbsDiffSizeMismatch(t *testing.T) {
	if _, err := AbsDiff(testBuffer(2, 2), testBuffer(3, 2)); !errors.Is(err, imaging.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestEnhanceNeutralIsIdentity(t *testing.T) {
	params := DefaultParams()
	params.Contrast = 1
	params.Brightness = 0
	params.SharpenAmount = 0
	params.EnhanceGain = 1

	in := imaging.MustNew(2, 2)
	in.MustSetPixel(0, 0, imaging.NewARGB(255, 0, 0, 0))
	in.MustSetPixel(1, 0, imaging.NewARGB(128, 255, 255, 255))
	in.MustSetPixel(0, 1, imaging.NewARGB(255, 10, 100, 200))
	in.MustSetPixel(1, 1, imaging.NewARGB(0, 77, 1, 254))

	out, err := MustNew(params).Apply(Enhance, in)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Equal(in) {
		t.Error("neutral ENHANCE changed the buffer")
	}
}

func TestEnhanceRemap(t *testing.T) {
	params := DefaultParams()
	params.Contrast = 2
	params.Brightness = 10
	params.SharpenAmount = 0
	params.EnhanceGain = 1

	in := imaging.MustNew(2, 1)
	in.MustSetPixel(0, 0, imaging.NewARGB(90, 100, 0, 50))
	in.MustSetPixel(1, 0, imaging.NewARGB(255, 200, 3, 122))

	out, err := MustNew(params).Apply(Enhance, in)
	if err != nil {
		t.Fatal(err)
	}
	want := []imaging.ARGB{
		imaging.NewARGB(90, 210, 10, 110),
		imaging.NewARGB(255, 255, 16, 254),
	}
	for x, w := range want {
		if got := out.MustPixel(x, 0); got != w {
			t.Errorf("pixel %d = %v, want %v", x, got, w)
		}
	}
}

func TestEnhanceFlatWithSharpen(t *testing.T) {
	// On a flat field the blur equals the image, so the output is
	// (gain + s - 0.5s) * remap.
	params := DefaultParams()
	params.Contrast = 1
	params.Brightness = 0
	params.SharpenAmount = 0.5
	params.EnhanceGain = 1

	in, _ := imaging.Filled(5, 5, imaging.NewARGB(255, 100, 40, 0))
	out, err := MustNew(params).Apply(Enhance, in)
	if err != nil {
		t.Fatal(err)
	}
	want := imaging.NewARGB(255, 125, 50, 0)
	for y := 0; y < 5; y++ {
		for x, got := range out.Row(y) {
			if got != want {
				t.Fatalf("pixel(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestEnhanceDefaultGainWithoutSharpen(t *testing.T) {
	params := DefaultParams()
	params.Contrast = 1
	params.Brightness = 0
	params.SharpenAmount = 0

	in := imaging.MustNew(4, 1)
	in.MustSetPixel(0, 0, imaging.NewARGB(255, 0, 101, 170))
	in.MustSetPixel(1, 0, imaging.NewARGB(128, 200, 0, 101))
	in.MustSetPixel(2, 0, imaging.NewARGB(0, 170, 200, 0))
	in.MustSetPixel(3, 0, imaging.NewARGB(7, 101, 170, 200))

	out, err := MustNew(params).Apply(Enhance, in)
	if err != nil {
		t.Fatal(err)
	}
	// round(1.5v): 0, 101 -> 152, 170 and 200 saturate.
	want := []imaging.ARGB{
		imaging.NewARGB(255, 0, 152, 255),
		imaging.NewARGB(128, 255, 0, 152),
		imaging.NewARGB(0, 255, 255, 0),
		imaging.NewARGB(7, 152, 255, 255),
	}
	for x, w := range want {
		if got := out.MustPixel(x, 0); got != w {
			t.Errorf("pixel %d = %v, want %v", x, got, w)
		}
	}
}

func TestEnhanceDefaultsOnStepEdge(t *testing.T) {
	const size = 24
	in := imaging.MustNew(size, size)
	level := func(x int) uint8 {
		if x < size/2 {
			return 40
		}
		return 120
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := level(x)
			in.MustSetPixel(x, y, imaging.NewARGB(255, v, v, v))
		}
	}

	params := DefaultParams()
	out, err := MustNew(params).Apply(Enhance, in)
	if err != nil {
		t.Fatal(err)
	}

	// remap: round(1.5v + 10), so 40 -> 70 and 120 -> 190.
	remap := func(x int) float64 {
		return math.Round(params.Contrast*float64(level(x)) + params.Brightness)
	}

	// The image is constant down each column, so only the horizontal
	// Gaussian pass matters. Borders replicate the edge pixel.
	half := int(math.Ceil(3 * params.EnhanceSigma))
	weights := make([]float64, 2*half+1)
	var sum float64
	for k := -half; k <= half; k++ {
		w := math.Exp(-float64(k*k) / (2 * params.EnhanceSigma * params.EnhanceSigma))
		weights[k+half] = w
		sum += w
	}

	wm := params.EnhanceGain + params.SharpenAmount
	wb := -0.5 * params.SharpenAmount
	for x := 0; x < size; x++ {
		var blurred float64
		for k := -half; k <= half; k++ {
			sx := min(max(x+k, 0), size-1)
			blurred += weights[k+half] / sum * remap(sx)
		}
		want := math.Min(255, math.Max(0, math.Round(wm*remap(x)+wb*math.Round(blurred))))
		for _, y := range []int{0, size / 2, size - 1} {
			got := out.MustPixel(x, y)
			if got.A() != 255 || got.R() != got.G() || got.G() != got.B() {
				t.Fatalf("pixel(%d,%d) = %v, want opaque grey", x, y, got)
			}
			if d := math.Abs(float64(got.R()) - want); d > 1 {
				t.Errorf("pixel(%d,%d) = %d, want %.0f +-1", x, y, got.R(), want)
			}
		}
	}
}

func TestEnhanceSaturatesHugeContrast(t *testing.T) {
	params := DefaultParams()
	params.Contrast = 1e20
	params.SharpenAmount = 0
	params.EnhanceGain = 1

	in, _ := imaging.Filled(1, 1, imaging.NewARGB(255, 200, 0, 1))
	out, err := MustNew(params).Apply(Enhance, in)
	if err != nil {
		t.Fatal(err)
	}
	// 0 * 1e20 + brightness stays small; the others saturate.
	if got, want := out.MustPixel(0, 0), imaging.NewARGB(255, 255, 10, 255); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBlurFlatUnchanged(t *testing.T) {
	in, _ := imaging.Filled(10, 10, imaging.NewARGB(255, 50, 60, 70))
	out, err := MustNew(DefaultParams()).Apply(Blur, in)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Equal(in) {
		t.Error("BLUR changed a flat buffer")
	}
}

func TestLaplacianFlatIsZero(t *testing.T) {
	in, _ := imaging.Filled(8, 8, imaging.NewARGB(255, 180, 20, 20))
	out, err := MustNew(DefaultParams()).Apply(Laplacian, in)
	if err != nil {
		t.Fatal(err)
	}
	want := imaging.NewARGB(255, 0, 0, 0)
	for y := 0; y < 8; y++ {
		for x, got := range out.Row(y) {
			if got != want {
				t.Fatalf("pixel(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestUnsharpZeroAmountIsIdentity(t *testing.T) {
	params := DefaultParams()
	params.UnsharpAmount = 0
	in := testBuffer(9, 6)
	out, err := MustNew(params).Apply(Unsharp, in)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Equal(in) {
		t.Error("UNSHARP with amount 0 changed the buffer")
	}
}

func TestUnsharpUsesRedDifference(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		in     imaging.ARGB
		want   imaging.ARGB
	}{
		// avg 60, diff 30: every channel gains 90.
		{"positive", 3, imaging.NewARGB(200, 30, 60, 90), imaging.NewARGB(200, 120, 150, 180)},
		// avg 70, diff -130: every channel loses 65.
		{"negative clamps", 0.5, imaging.NewARGB(255, 200, 0, 10), imaging.NewARGB(255, 135, 0, 0)},
		// grey pixels have no difference at all.
		{"grey", 3, imaging.NewARGB(255, 90, 90, 90), imaging.NewARGB(255, 90, 90, 90)},
		// avg 133, diff +133: far past the int range, still saturates.
		{"huge amount", 1e30, imaging.NewARGB(77, 0, 200, 200), imaging.NewARGB(77, 255, 255, 255)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams()
			params.UnsharpAmount = tt.amount
			in, _ := imaging.Filled(1, 1, tt.in)
			out, err := MustNew(params).Apply(Unsharp, in)
			if err != nil {
				t.Fatal(err)
			}
			if got := out.MustPixel(0, 0); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSinglePixelEveryFilter(t *testing.T) {
	p := MustNew(DefaultParams())
	in, _ := imaging.Filled(1, 1, imaging.NewARGB(255, 12, 34, 56))
	for _, id := range All() {
		out, err := p.Apply(id, in)
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		wantW, wantH := 1, 1
		if id == ResolutionBoost {
			wantW, wantH = 4, 4
		}
		if out.Width() != wantW || out.Height() != wantH {
			t.Errorf("%s: size = %dx%d, want %dx%d", id, out.Width(), out.Height(), wantW, wantH)
		}
	}
}

func TestParamsValidateDefaults(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("default params invalid: %v", err)
	}
}

func TestBlurSigma(t *testing.T) {
	if got := blurSigma(0); got != 0 {
		t.Errorf("blurSigma(0) = %v", got)
	}
	if got := blurSigma(3); got < 1.79 || got > 1.81 {
		t.Errorf("blurSigma(3) = %v, want 1.8", got)
	}
}
