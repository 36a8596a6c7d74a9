package imaging

import "fmt"

// MaxLaplacianKernel is the largest aperture Laplacian accepts.
const MaxLaplacianKernel = 7

// LaplacianKernel builds the 2D second-derivative aperture for ksize.
// ksize 1 is the 4-neighbour stencil; odd sizes 3..7 sum the Sobel
// second derivatives in x and y, so ksize 3 gives [2 0 2; 0 -8 0; 2 0 2].
func LaplacianKernel(ksize int) ([][]float32, error) {
	if ksize == 1 {
		return [][]float32{
			{0, 1, 0},
			{1, -4, 1},
			{0, 1, 0},
		}, nil
	}
	if ksize < 1 || ksize%2 == 0 || ksize > MaxLaplacianKernel {
		return nil, fmt.Errorf("%w: laplacian kernel size %d (want 1, 3, 5 or 7)", ErrInvalidInput, ksize)
	}

	smooth := binomial(ksize - 1)
	deriv := convolve1D(binomial(ksize-3), []float32{1, -2, 1})

	k := make([][]float32, ksize)
	for y := range k {
		k[y] = make([]float32, ksize)
		for x := range k[y] {
			k[y][x] = deriv[x]*smooth[y] + smooth[x]*deriv[y]
		}
	}
	return k, nil
}

// Laplacian convolves src with the ksize aperture, then maps each sample to
// saturate(scale*v + delta). Negative responses clip to zero as in any 8-bit
// destination. Borders replicate.
func Laplacian(src *Gray, ksize int, scale, delta float64) (*Gray, error) {
	kernel, err := LaplacianKernel(ksize)
	if err != nil {
		return nil, err
	}
	return convolveGray(src, kernel, float32(scale), float32(delta)), nil
}

func convolveGray(src *Gray, kernel [][]float32, scale, delta float32) *Gray {
	p := src.toPlane()
	out := newPlane(p.width, p.height)
	half := len(kernel) / 2

	forEachRow(p.height, func(y int) {
		for x := 0; x < p.width; x++ {
			var s float32
			for ky, row := range kernel {
				for kx, weight := range row {
					if weight == 0 {
						continue
					}
					s += p.at(x+kx-half, y+ky-half) * weight
				}
			}
			out.data[y*p.width+x] = s*scale + delta
		}
	})
	return out.toGray()
}
