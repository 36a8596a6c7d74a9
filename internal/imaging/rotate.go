package imaging

import "fmt"

// NormalizeRotation folds any multiple of 90 degrees into [0, 360).
func NormalizeRotation(degrees int) (int, error) {
	if degrees%90 != 0 {
		return 0, fmt.Errorf("%w: rotation %d is not a multiple of 90", ErrInvalidInput, degrees)
	}
	d := degrees % 360
	if d < 0 {
		d += 360
	}
	return d, nil
}

// Rotate turns src clockwise by degrees (a multiple of 90) and returns a new
// buffer. Capture sources use it to deliver frames upright.
func Rotate(src *Buffer, degrees int) (*Buffer, error) {
	d, err := NormalizeRotation(degrees)
	if err != nil {
		return nil, err
	}

	w, h := src.width, src.height
	switch d {
	case 0:
		return src.Clone(), nil
	case 180:
		dst := &Buffer{width: w, height: h, pix: make([]ARGB, w*h)}
		for i, c := range src.pix {
			dst.pix[len(src.pix)-1-i] = c
		}
		return dst, nil
	}

	dst := &Buffer{width: h, height: w, pix: make([]ARGB, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var nx, ny int
			if d == 90 {
				nx, ny = h-1-y, x
			} else {
				nx, ny = y, w-1-x
			}
			dst.pix[ny*h+nx] = src.pix[y*w+x]
		}
	}
	return dst, nil
}
