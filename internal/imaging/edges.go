package imaging

import "math"

// Edge values written by Canny.
const (
	EdgeOn  uint8 = 255
	EdgeOff uint8 = 0
)

// sobel returns the 3x3 Sobel derivatives of p with replicated borders.
func sobel(p *plane) (gx, gy *plane) {
	smooth := []float32{1, 2, 1}
	deriv := []float32{-1, 0, 1}
	gx = separable(p, deriv, smooth)
	gy = separable(p, smooth, deriv)
	return gx, gy
}

// Canny runs gradient-magnitude edge detection with non-maximum suppression
// and hysteresis between low and high. The gradient uses the L1 norm
// |gx|+|gy|. Pixels above high seed edges; pixels above low join an edge when
// 8-connected to one. The input is expected to be denoised already.
func Canny(src *Gray, low, high float64) *Gray {
	if low > high {
		low, high = high, low
	}
	w, h := src.width, src.height
	out := &Gray{width: w, height: h, pix: make([]uint8, w*h)}
	if w == 0 || h == 0 {
		return out
	}

	gx, gy := sobel(src.toPlane())
	mag := newPlane(w, h)
	for i := range mag.data {
		mag.data[i] = abs32(gx.data[i]) + abs32(gy.data[i])
	}

	const (
		notEdge = iota
		weak
		strong
	)
	tan22 := float32(math.Tan(math.Pi / 8))
	tan67 := float32(math.Tan(3 * math.Pi / 8))
	class := make([]uint8, w*h)

	forEachRow(h, func(y int) {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag.data[i]
			if float64(m) <= low {
				continue
			}

			ax, ay := abs32(gx.data[i]), abs32(gy.data[i])
			var n1, n2 float32
			switch {
			case ay <= ax*tan22:
				// horizontal gradient, compare left/right
				n1, n2 = mag.at(x-1, y), mag.at(x+1, y)
			case ay >= ax*tan67:
				n1, n2 = mag.at(x, y-1), mag.at(x, y+1)
			case (gx.data[i] < 0) != (gy.data[i] < 0):
				n1, n2 = mag.at(x+1, y-1), mag.at(x-1, y+1)
			default:
				n1, n2 = mag.at(x-1, y-1), mag.at(x+1, y+1)
			}
			// strict on one side so plateaus keep a single ridge pixel
			if m > n1 && m >= n2 {
				if float64(m) > high {
					class[i] = strong
				} else {
					class[i] = weak
				}
			}
		}
	})

	stack := make([]int, 0, 64)
	for i, c := range class {
		if c == strong {
			out.pix[i] = EdgeOn
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if class[j] == weak && out.pix[j] == EdgeOff {
					out.pix[j] = EdgeOn
					stack = append(stack, j)
				}
			}
		}
	}
	return out
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
