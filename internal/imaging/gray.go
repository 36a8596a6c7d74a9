package imaging

import "fmt"

// Gray is a single-channel 8-bit plane, used for luma and edge intermediates.
type Gray struct {
	width  int
	height int
	pix    []uint8
}

// NewGray creates a zeroed plane.
func NewGray(width, height int) (*Gray, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalidInput, width, height)
	}
	return &Gray{width: width, height: height, pix: make([]uint8, width*height)}, nil
}

// Width returns the number of columns.
func (g *Gray) Width() int { return g.width }

// Height returns the number of rows.
func (g *Gray) Height() int { return g.height }

// Len returns the number of samples held.
func (g *Gray) Len() int { return len(g.pix) }

// Value returns the sample at (x, y).
func (g *Gray) Value(x, y int) (uint8, error) {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return 0, &BoundsError{X: x, Y: y, Width: g.width, Height: g.height}
	}
	return g.pix[y*g.width+x], nil
}

// SetValue writes the sample at (x, y).
func (g *Gray) SetValue(x, y int, v uint8) error {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return &BoundsError{X: x, Y: y, Width: g.width, Height: g.height}
	}
	g.pix[y*g.width+x] = v
	return nil
}

// Luma weights, ITU-R BT.601 scaled by 1000. Every grayscale conversion in
// this module goes through LumaOf so that all filters agree.
const (
	lumaR = 299
	lumaG = 587
	lumaB = 114
)

// LumaOf returns round(0.299 R + 0.587 G + 0.114 B). Alpha is ignored.
func LumaOf(c ARGB) uint8 {
	return uint8((lumaR*uint32(c.R()) + lumaG*uint32(c.G()) + lumaB*uint32(c.B()) + 500) / 1000)
}

// Luma converts an ARGB buffer to a luma plane.
func Luma(b *Buffer) *Gray {
	g := &Gray{width: b.width, height: b.height, pix: make([]uint8, len(b.pix))}
	forEachRow(b.height, func(y int) {
		off := y * b.width
		for x := 0; x < b.width; x++ {
			g.pix[off+x] = LumaOf(b.pix[off+x])
		}
	})
	return g
}

// ToBuffer expands the plane to opaque ARGB with R=G=B=value.
func (g *Gray) ToBuffer() *Buffer {
	out := &Buffer{width: g.width, height: g.height, pix: make([]ARGB, len(g.pix))}
	for i, v := range g.pix {
		out.pix[i] = NewARGB(0xFF, v, v, v)
	}
	return out
}

// plane is a float32 working surface for convolutions.
type plane struct {
	width  int
	height int
	data   []float32
}

func newPlane(width, height int) *plane {
	return &plane{width: width, height: height, data: make([]float32, width*height)}
}

func (g *Gray) toPlane() *plane {
	p := newPlane(g.width, g.height)
	for i, v := range g.pix {
		p.data[i] = float32(v)
	}
	return p
}

// toGray saturates and rounds to 8 bits.
func (p *plane) toGray() *Gray {
	g := &Gray{width: p.width, height: p.height, pix: make([]uint8, len(p.data))}
	for i, v := range p.data {
		g.pix[i] = clampUint8(v)
	}
	return g
}

// at reads with coordinates clamped to the plane (replicated border).
func (p *plane) at(x, y int) float32 {
	return p.data[clampInt(y, 0, p.height-1)*p.width+clampInt(x, 0, p.width-1)]
}
