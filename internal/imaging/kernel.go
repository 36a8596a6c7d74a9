package imaging

import (
	"math"
	"sync"
)

// GaussianKernel returns a normalized 1D Gaussian of 2*half+1 taps.
// sigma <= 0 or half <= 0 yields the identity kernel [1].
func GaussianKernel(sigma float64, half int) []float32 {
	if sigma <= 0 || half <= 0 {
		return []float32{1}
	}

	size := half*2 + 1
	kernel := make([]float32, size)
	twoSigmaSq := 2 * sigma * sigma
	sum := 0.0
	weights := make([]float64, size)
	for i := range weights {
		x := float64(i - half)
		weights[i] = math.Exp(-(x * x) / twoSigmaSq)
		sum += weights[i]
	}
	for i, w := range weights {
		kernel[i] = float32(w / sum)
	}
	return kernel
}

// HalfWidthForSigma covers three standard deviations, the usual cut-off for
// kernels derived from sigma alone.
func HalfWidthForSigma(sigma float64) int {
	if sigma <= 0 {
		return 0
	}
	return int(math.Ceil(sigma * 3))
}

// SigmaForKernelSize derives sigma from an odd kernel size the way the common
// vision toolkits do when sigma is left unspecified.
func SigmaForKernelSize(ksize int) float64 {
	return 0.3*(float64(ksize-1)*0.5-1) + 0.8
}

// kernelCache memoizes Gaussian kernels by (sigma, half).
type kernelCache struct {
	mu     sync.RWMutex
	cache  map[kernelKey][]float32
	maxLen int
}

type kernelKey struct {
	sigma int // sigma * 1000
	half  int
}

var defaultKernelCache = &kernelCache{cache: make(map[kernelKey][]float32), maxLen: 64}

func (c *kernelCache) get(sigma float64, half int) []float32 {
	key := kernelKey{sigma: int(math.Round(sigma * 1000)), half: half}

	c.mu.RLock()
	if k, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return k
	}
	c.mu.RUnlock()

	k := GaussianKernel(sigma, half)

	c.mu.Lock()
	if len(c.cache) >= c.maxLen {
		for old := range c.cache {
			delete(c.cache, old)
			if len(c.cache) < c.maxLen/2 {
				break
			}
		}
	}
	c.cache[key] = k
	c.mu.Unlock()
	return k
}

// CachedGaussianKernel is GaussianKernel backed by a process-wide cache.
// Callers must not modify the returned slice.
func CachedGaussianKernel(sigma float64, half int) []float32 {
	return defaultKernelCache.get(sigma, half)
}

// binomial returns row n of Pascal's triangle as float32 weights.
func binomial(n int) []float32 {
	row := []float32{1}
	for i := 0; i < n; i++ {
		next := make([]float32, len(row)+1)
		for j := range next {
			if j < len(row) {
				next[j] += row[j]
			}
			if j > 0 {
				next[j] += row[j-1]
			}
		}
		row = next
	}
	return row
}

// convolve1D returns the full convolution of a and b.
func convolve1D(a, b []float32) []float32 {
	out := make([]float32, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}
