package imaging

// GaussianBlur applies a separable Gaussian to every channel (A, R, G, B)
// independently. Edges replicate the border pixel. The input is not modified.
func GaussianBlur(src *Buffer, sigma float64, half int) *Buffer {
	kernel := CachedGaussianKernel(sigma, half)
	if len(kernel) == 1 {
		return src.Clone()
	}

	w, h := src.width, src.height
	temp := make([]float32, w*h*4)

	// Horizontal pass: src -> temp
	forEachRow(h, func(y int) {
		row := src.pix[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var a, r, g, b float32
			for k, weight := range kernel {
				c := row[clampInt(x+k-half, 0, w-1)]
				a += float32(c.A()) * weight
				r += float32(c.R()) * weight
				g += float32(c.G()) * weight
				b += float32(c.B()) * weight
			}
			i := (y*w + x) * 4
			temp[i], temp[i+1], temp[i+2], temp[i+3] = a, r, g, b
		}
	})

	// Vertical pass: temp -> dst
	dst := &Buffer{width: w, height: h, pix: make([]ARGB, w*h)}
	forEachRow(h, func(y int) {
		for x := 0; x < w; x++ {
			var a, r, g, b float32
			for k, weight := range kernel {
				i := (clampInt(y+k-half, 0, h-1)*w + x) * 4
				a += temp[i] * weight
				r += temp[i+1] * weight
				g += temp[i+2] * weight
				b += temp[i+3] * weight
			}
			dst.pix[y*w+x] = NewARGB(clampUint8(a), clampUint8(r), clampUint8(g), clampUint8(b))
		}
	})
	return dst
}

// GaussianBlurGray blurs a luma plane with a ksize x ksize Gaussian. A
// non-positive sigma is derived from ksize. The result is rounded back to
// 8 bits, matching an 8-bit intermediate.
func GaussianBlurGray(src *Gray, ksize int, sigma float64) *Gray {
	if sigma <= 0 {
		sigma = SigmaForKernelSize(ksize)
	}
	half := ksize / 2
	kernel := CachedGaussianKernel(sigma, half)
	if len(kernel) == 1 {
		out := &Gray{width: src.width, height: src.height, pix: make([]uint8, len(src.pix))}
		copy(out.pix, src.pix)
		return out
	}

	in := src.toPlane()
	tmp := separable(in, kernel, kernel)
	return tmp.toGray()
}

// separable convolves p with kx along rows then ky along columns.
func separable(p *plane, kx, ky []float32) *plane {
	w, h := p.width, p.height
	hx, hy := len(kx)/2, len(ky)/2

	mid := newPlane(w, h)
	forEachRow(h, func(y int) {
		for x := 0; x < w; x++ {
			var s float32
			for k, weight := range kx {
				s += p.at(x+k-hx, y) * weight
			}
			mid.data[y*w+x] = s
		}
	})

	out := newPlane(w, h)
	forEachRow(h, func(y int) {
		for x := 0; x < w; x++ {
			var s float32
			for k, weight := range ky {
				s += mid.at(x, y+k-hy) * weight
			}
			out.data[y*w+x] = s
		}
	})
	return out
}
