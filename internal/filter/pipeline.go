package filter

import (
	"errors"
	"fmt"
	"math"

	"github.com/bryanchriswhite/FilterCam/internal/imaging"
)

// ErrUnknownFilter is returned by Apply for an ID outside the cycle.
var ErrUnknownFilter = errors.New("unknown filter")

// Func transforms one buffer into a new one. It must not modify its input.
type Func func(in *imaging.Buffer) (*imaging.Buffer, error)

// Pipeline binds a validated parameter table to the filter implementations.
// It holds no per-capture state and is safe for concurrent use.
type Pipeline struct {
	params Params
	funcs  [count]Func

	blurSigma    float64
	blurHalf     int
	enhanceHalf  int
	gaussianSize int
}

// New validates params and prepares the kernel settings each filter needs.
// Any failure is reported as imaging.ErrResourceInit.
func New(params Params) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", imaging.ErrResourceInit, err)
	}

	p := &Pipeline{
		params:       params,
		blurSigma:    blurSigma(params.BlurRadius),
		blurHalf:     int(math.Ceil(params.BlurRadius)),
		enhanceHalf:  imaging.HalfWidthForSigma(params.EnhanceSigma),
		gaussianSize: params.GaussianKernel,
	}

	// Warm the kernel cache so the first capture does not pay for it.
	imaging.CachedGaussianKernel(p.blurSigma, p.blurHalf)
	imaging.CachedGaussianKernel(params.EnhanceSigma, p.enhanceHalf)

	p.funcs = [count]Func{
		None:            p.identity,
		Difference:      p.difference,
		ResolutionBoost: p.resolutionBoost,
		Enhance:         p.enhance,
		Blur:            p.blur,
		Outlines:        p.outlines,
		Laplacian:       p.laplacian,
		Unsharp:         p.unsharp,
	}
	return p, nil
}

// MustNew is New for parameter tables known to be valid, such as DefaultParams.
func MustNew(params Params) *Pipeline {
	p, err := New(params)
	if err != nil {
		panic(err)
	}
	return p
}

// Params returns the parameter table in use.
func (p *Pipeline) Params() Params {
	return p.params
}

// Apply runs filter id on in. A nil or zero-area input fails with
// imaging.ErrInvalidInput and produces no buffer.
func (p *Pipeline) Apply(id ID, in *imaging.Buffer) (*imaging.Buffer, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFilter, int(id))
	}
	if in.Empty() {
		return nil, fmt.Errorf("%w: %s needs a non-empty buffer", imaging.ErrInvalidInput, id)
	}

	out, err := p.funcs[id](in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	return out, nil
}
