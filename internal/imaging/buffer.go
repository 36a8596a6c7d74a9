package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// ARGB is a packed 0xAARRGGBB pixel with 8 bits per channel.
type ARGB uint32

// NewARGB packs four channel values.
func NewARGB(a, r, g, b uint8) ARGB {
	return ARGB(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// A returns the alpha channel.
func (c ARGB) A() uint8 { return uint8(c >> 24) }

// R returns the red channel.
func (c ARGB) R() uint8 { return uint8(c >> 16) }

// G returns the green channel.
func (c ARGB) G() uint8 { return uint8(c >> 8) }

// B returns the blue channel.
func (c ARGB) B() uint8 { return uint8(c) }

// Channels unpacks the pixel into (a, r, g, b).
func (c ARGB) Channels() (a, r, g, b uint8) {
	return c.A(), c.R(), c.G(), c.B()
}

// RGBA implements color.Color. ARGB values are straight (non-premultiplied) alpha.
func (c ARGB) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c.R(), G: c.G(), B: c.B(), A: c.A()}.RGBA()
}

// String formats the pixel as #AARRGGBB.
func (c ARGB) String() string {
	return fmt.Sprintf("#%08X", uint32(c))
}

// Buffer is a row-major grid of ARGB pixels. The zero value is an empty 0x0 buffer.
type Buffer struct {
	width  int
	height int
	pix    []ARGB
}

// New creates a transparent black buffer of the given size.
func New(width, height int) (*Buffer, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalidInput, width, height)
	}
	return &Buffer{
		width:  width,
		height: height,
		pix:    make([]ARGB, width*height),
	}, nil
}

// MustNew is like New but panics on invalid dimensions.
func MustNew(width, height int) *Buffer {
	b, err := New(width, height)
	if err != nil {
		panic(err)
	}
	return b
}

// Filled creates a buffer where every pixel is c.
func Filled(width, height int, c ARGB) (*Buffer, error) {
	b, err := New(width, height)
	if err != nil {
		return nil, err
	}
	for i := range b.pix {
		b.pix[i] = c
	}
	return b, nil
}

// Width returns the number of columns.
func (b *Buffer) Width() int { return b.width }

// Height returns the number of rows.
func (b *Buffer) Height() int { return b.height }

// Empty reports whether the buffer has zero area.
func (b *Buffer) Empty() bool { return b == nil || b.width == 0 || b.height == 0 }

// Len returns the number of pixels held.
func (b *Buffer) Len() int { return len(b.pix) }

// Contains reports whether (x, y) is a valid coordinate.
func (b *Buffer) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.width && y < b.height
}

func (b *Buffer) boundsError(x, y int) error {
	return &BoundsError{X: x, Y: y, Width: b.width, Height: b.height}
}

// Pixel returns the pixel at (x, y).
func (b *Buffer) Pixel(x, y int) (ARGB, error) {
	if !b.Contains(x, y) {
		return 0, b.boundsError(x, y)
	}
	return b.pix[y*b.width+x], nil
}

// MustPixel returns the pixel at (x, y) and panics when out of bounds.
func (b *Buffer) MustPixel(x, y int) ARGB {
	c, err := b.Pixel(x, y)
	if err != nil {
		panic(err)
	}
	return c
}

// SetPixel writes the pixel at (x, y).
func (b *Buffer) SetPixel(x, y int, c ARGB) error {
	if !b.Contains(x, y) {
		return b.boundsError(x, y)
	}
	b.pix[y*b.width+x] = c
	return nil
}

// MustSetPixel writes the pixel at (x, y) and panics when out of bounds.
func (b *Buffer) MustSetPixel(x, y int, c ARGB) {
	if err := b.SetPixel(x, y, c); err != nil {
		panic(err)
	}
}

// Row returns the pixels of row y. The slice aliases the buffer.
func (b *Buffer) Row(y int) []ARGB {
	if y < 0 || y >= b.height {
		panic(b.boundsError(0, y))
	}
	return b.pix[y*b.width : (y+1)*b.width]
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{width: b.width, height: b.height, pix: make([]ARGB, len(b.pix))}
	copy(c.pix, b.pix)
	return c
}

// Equal reports whether both buffers have the same size and pixels.
func (b *Buffer) Equal(o *Buffer) bool {
	if b.width != o.width || b.height != o.height {
		return false
	}
	for i := range b.pix {
		if b.pix[i] != o.pix[i] {
			return false
		}
	}
	return true
}

// ColorModel implements image.Image.
func (b *Buffer) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.width, b.height) }

// At implements image.Image. Out-of-range coordinates yield transparent black.
func (b *Buffer) At(x, y int) color.Color {
	if !b.Contains(x, y) {
		return ARGB(0)
	}
	return b.pix[y*b.width+x]
}

// FromImage converts any image into a new Buffer anchored at (0,0).
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	out := MustNew(bounds.Dx(), bounds.Dy())

	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < out.height; y++ {
			row := src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			for x := 0; x < out.width; x++ {
				i := x * 4
				out.pix[y*out.width+x] = NewARGB(row[i+3], row[i], row[i+1], row[i+2])
			}
		}
		return out
	}

	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			out.pix[y*out.width+x] = NewARGB(c.A, c.R, c.G, c.B)
		}
	}
	return out
}

// ToNRGBA converts the buffer to a straight-alpha stdlib image.
func (b *Buffer) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(b.Bounds())
	for i, c := range b.pix {
		j := i * 4
		img.Pix[j] = c.R()
		img.Pix[j+1] = c.G()
		img.Pix[j+2] = c.B()
		img.Pix[j+3] = c.A()
	}
	return img
}

// ToRGBA converts the buffer to a premultiplied stdlib image, as consumed by output sinks.
func (b *Buffer) ToRGBA() *image.RGBA {
	img := image.NewRGBA(b.Bounds())
	draw.Draw(img, img.Bounds(), b.ToNRGBA(), image.Point{}, draw.Src)
	return img
}
