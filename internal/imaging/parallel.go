package imaging

import (
	"runtime"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
)

// minRowsPerTask keeps tiny images on the calling goroutine.
const minRowsPerTask = 16

var maxWorkers atomic.Int64

func init() {
	maxWorkers.Store(int64(runtime.NumCPU()))
}

// SetWorkers bounds the goroutines used by row loops. n < 1 restores the
// default of runtime.NumCPU(). Safe for concurrent use.
func SetWorkers(n int) {
	if n < 1 {
		n = runtime.NumCPU()
	}
	maxWorkers.Store(int64(n))
}

// Workers returns the current row-loop concurrency bound.
func Workers() int {
	return int(maxWorkers.Load())
}

// forEachRow calls fn once per row in [0, height). Each row is visited by
// exactly one goroutine, so fn may write row y of an output without locking.
func forEachRow(height int, fn func(y int)) {
	workers := Workers()
	if workers <= 1 || height < 2*minRowsPerTask {
		for y := 0; y < height; y++ {
			fn(y)
		}
		return
	}

	chunk := (height + workers - 1) / workers
	if chunk < minRowsPerTask {
		chunk = minRowsPerTask
	}

	p := pool.New().WithMaxGoroutines(workers)
	for start := 0; start < height; start += chunk {
		lo, hi := start, min(start+chunk, height)
		p.Go(func() {
			for y := lo; y < hi; y++ {
				fn(y)
			}
		})
	}
	p.Wait()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampUint8 rounds to nearest and saturates to [0, 255].
func clampUint8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// SaturateChannel truncates v toward zero and saturates to [0, 255]. NaN
// maps to 0. The comparison happens in float space, so values far outside
// the int range are safe.
func SaturateChannel(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
