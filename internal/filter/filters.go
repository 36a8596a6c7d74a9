package filter

import (
	"fmt"
	"math"

	"github.com/bryanchriswhite/FilterCam/internal/imaging"
)

func (p *Pipeline) identity(in *imaging.Buffer) (*imaging.Buffer, error) {
	return in.Clone(), nil
}

// difference diffs the input against its own outline image.
func (p *Pipeline) difference(in *imaging.Buffer) (*imaging.Buffer, error) {
	ref, err := p.outlines(in)
	if err != nil {
		return nil, err
	}
	return AbsDiff(in, ref)
}

func (p *Pipeline) resolutionBoost(in *imaging.Buffer) (*imaging.Buffer, error) {
	return imaging.Resize(in, p.params.ResizeScale)
}

func (p *Pipeline) enhance(in *imaging.Buffer) (*imaging.Buffer, error) {
	prm := p.params
	remapped := mapRGB(in, func(v uint8) uint8 {
		return roundClamp(float64(v)*prm.Contrast + prm.Brightness)
	})

	s := prm.SharpenAmount
	if s == 0 {
		if prm.EnhanceGain == 1 {
			return remapped, nil
		}
		return mapRGB(remapped, func(v uint8) uint8 {
			return roundClamp(prm.EnhanceGain * float64(v))
		}), nil
	}

	blurred := imaging.GaussianBlur(remapped, prm.EnhanceSigma, p.enhanceHalf)
	wm := prm.EnhanceGain + s
	wb := -0.5 * s

	out := imaging.MustNew(in.Width(), in.Height())
	for y := 0; y < in.Height(); y++ {
		mrow, brow, orow := remapped.Row(y), blurred.Row(y), out.Row(y)
		for x := range orow {
			m, b := mrow[x], brow[x]
			orow[x] = imaging.NewARGB(
				m.A(),
				roundClamp(wm*float64(m.R())+wb*float64(b.R())),
				roundClamp(wm*float64(m.G())+wb*float64(b.G())),
				roundClamp(wm*float64(m.B())+wb*float64(b.B())),
			)
		}
	}
	return out, nil
}

func (p *Pipeline) blur(in *imaging.Buffer) (*imaging.Buffer, error) {
	return imaging.GaussianBlur(in, p.blurSigma, p.blurHalf), nil
}

func (p *Pipeline) outlines(in *imaging.Buffer) (*imaging.Buffer, error) {
	gray := imaging.Luma(in)
	denoised := imaging.GaussianBlurGray(gray, p.gaussianSize, 0)
	edges := imaging.Canny(denoised, p.params.CannyLow, p.params.CannyHigh)
	return edges.ToBuffer(), nil
}

func (p *Pipeline) laplacian(in *imaging.Buffer) (*imaging.Buffer, error) {
	lap, err := imaging.Laplacian(imaging.Luma(in), p.params.LaplacianKernel, p.params.LaplacianScale, p.params.LaplacianDelta)
	if err != nil {
		return nil, err
	}
	return lap.ToBuffer(), nil
}

// unsharp pushes every colour channel by amount*(mean - red). Only the red
// channel feeds the difference; see DESIGN.md before changing that.
func (p *Pipeline) unsharp(in *imaging.Buffer) (*imaging.Buffer, error) {
	amount := float32(p.params.UnsharpAmount)
	out := imaging.MustNew(in.Width(), in.Height())
	for y := 0; y < in.Height(); y++ {
		irow, orow := in.Row(y), out.Row(y)
		for x, c := range irow {
			a, r, g, b := c.Channels()
			avg := (int(r) + int(g) + int(b)) / 3
			diff := float32(avg - int(r))
			orow[x] = imaging.NewARGB(
				a,
				imaging.SaturateChannel(float64(float32(r)+amount*diff)),
				imaging.SaturateChannel(float64(float32(g)+amount*diff)),
				imaging.SaturateChannel(float64(float32(b)+amount*diff)),
			)
		}
	}
	return out, nil
}

// AbsDiff returns |a - b| per colour channel, keeping a's alpha. Both buffers
// must share dimensions.
func AbsDiff(a, b *imaging.Buffer) (*imaging.Buffer, error) {
	if a.Width() != b.Width() || a.Height() != b.Height() {
		return nil, fmt.Errorf("%w: size mismatch %dx%d vs %dx%d",
			imaging.ErrInvalidInput, a.Width(), a.Height(), b.Width(), b.Height())
	}
	out := imaging.MustNew(a.Width(), a.Height())
	for y := 0; y < a.Height(); y++ {
		arow, brow, orow := a.Row(y), b.Row(y), out.Row(y)
		for x := range orow {
			ca, cb := arow[x], brow[x]
			orow[x] = imaging.NewARGB(
				ca.A(),
				absDiff(ca.R(), cb.R()),
				absDiff(ca.G(), cb.G()),
				absDiff(ca.B(), cb.B()),
			)
		}
	}
	return out, nil
}

func mapRGB(in *imaging.Buffer, fn func(uint8) uint8) *imaging.Buffer {
	var lut [256]uint8
	for i := range lut {
		lut[i] = fn(uint8(i))
	}
	out := imaging.MustNew(in.Width(), in.Height())
	for y := 0; y < in.Height(); y++ {
		irow, orow := in.Row(y), out.Row(y)
		for x, c := range irow {
			orow[x] = imaging.NewARGB(c.A(), lut[c.R()], lut[c.G()], lut[c.B()])
		}
	}
	return out
}

func roundClamp(v float64) uint8 {
	return imaging.SaturateChannel(math.Round(v))
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
