package imaging

import (
	"fmt"
	"math"
)

// maxResizeDim caps either output dimension and maxResizePixels caps their
// product, so a bad scale cannot allocate gigabytes.
const (
	maxResizeDim    = 1 << 15
	maxResizePixels = 1 << 26
)

// cubicWeight is the Keys cubic convolution kernel with a = -0.5
// (Catmull-Rom). It is 1 at 0 and 0 at every other integer, so sampling on
// the source grid returns source pixels unchanged.
func cubicWeight(t float64) float64 {
	const a = -0.5
	t = math.Abs(t)
	switch {
	case t <= 1:
		return ((a+2)*t-(a+3))*t*t + 1
	case t < 2:
		return ((a*t-5*a)*t+8*a)*t - 4*a
	default:
		return 0
	}
}

// Resize rescales src by scale with bicubic interpolation over a 4x4
// neighbourhood. Output pixel centres map to source coordinates
// (d+0.5)/scale-0.5; taps outside the source clamp to the nearest edge.
// Alpha is interpolated like any other channel.
func Resize(src *Buffer, scale float64) (*Buffer, error) {
	if src.Empty() {
		return nil, fmt.Errorf("%w: resize of empty buffer", ErrInvalidInput)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: resize scale %v", ErrInvalidInput, scale)
	}

	fw, fh := math.Round(float64(src.width)*scale), math.Round(float64(src.height)*scale)
	if fw < 1 || fh < 1 || fw > maxResizeDim || fh > maxResizeDim || fw*fh > maxResizePixels {
		return nil, fmt.Errorf("%w: resize %dx%d by %v gives %.0fx%.0f", ErrInvalidInput, src.width, src.height, scale, fw, fh)
	}
	dw, dh := int(fw), int(fh)

	// Per-axis taps are shared by every row/column, so compute them once.
	xs, xw := resizeTaps(dw, src.width, float64(src.width)/float64(dw))
	ys, yw := resizeTaps(dh, src.height, float64(src.height)/float64(dh))

	dst := &Buffer{width: dw, height: dh, pix: make([]ARGB, dw*dh)}
	forEachRow(dh, func(dy int) {
		for dx := 0; dx < dw; dx++ {
			var a, r, g, b float64
			for j := 0; j < 4; j++ {
				row := src.pix[ys[dy*4+j]*src.width:]
				wy := yw[dy*4+j]
				if wy == 0 {
					continue
				}
				for i := 0; i < 4; i++ {
					wt := xw[dx*4+i] * wy
					if wt == 0 {
						continue
					}
					c := row[xs[dx*4+i]]
					a += float64(c.A()) * wt
					r += float64(c.R()) * wt
					g += float64(c.G()) * wt
					b += float64(c.B()) * wt
				}
			}
			dst.pix[dy*dw+dx] = NewARGB(roundChannel(a), roundChannel(r), roundChannel(g), roundChannel(b))
		}
	})
	return dst, nil
}

// resizeTaps returns, for each of n output positions, four clamped source
// indices and their cubic weights.
func resizeTaps(n, srcLen int, inv float64) ([]int, []float64) {
	idx := make([]int, n*4)
	wts := make([]float64, n*4)
	for d := 0; d < n; d++ {
		s := (float64(d)+0.5)*inv - 0.5
		base := int(math.Floor(s))
		frac := s - float64(base)
		for i := 0; i < 4; i++ {
			idx[d*4+i] = clampInt(base-1+i, 0, srcLen-1)
			wts[d*4+i] = cubicWeight(frac - float64(i-1))
		}
	}
	return idx, wts
}

func roundChannel(v float64) uint8 {
	return SaturateChannel(math.Round(v))
}
