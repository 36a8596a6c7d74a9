package filter

import (
	"errors"
	"fmt"
	"math"

	"github.com/bryanchriswhite/FilterCam/internal/imaging"
)

// Defaults for the canonical parameter table.
const (
	DefaultContrast        = 1.5
	DefaultBrightness      = 10
	DefaultSharpenAmount   = 0.5
	DefaultEnhanceGain     = 1.5
	DefaultEnhanceSigma    = 10.0
	DefaultBlurRadius      = 3.0
	DefaultResizeScale     = 4.0
	DefaultLaplacianKernel = 3
	DefaultLaplacianScale  = 1.0
	DefaultLaplacianDelta  = 0.0
	DefaultUnsharpAmount   = 3.0
	DefaultCannyLow        = 50.0
	DefaultCannyHigh       = 150.0
	DefaultGaussianKernel  = 5
)

// Params holds the numeric constants every filter reads. They are fixed per
// pipeline; the selection never carries parameters.
type Params struct {
	// ENHANCE: remap = in*Contrast + Brightness, then
	// out = (EnhanceGain+SharpenAmount)*remap - 0.5*SharpenAmount*blur(remap, EnhanceSigma).
	Contrast      float64
	Brightness    float64
	SharpenAmount float64
	EnhanceGain   float64
	EnhanceSigma  float64

	// BLUR radius in pixels.
	BlurRadius float64

	// RESOLUTION_BOOST scale factor.
	ResizeScale float64

	// LAPLACIAN aperture and output mapping.
	LaplacianKernel int
	LaplacianScale  float64
	LaplacianDelta  float64

	// UNSHARP amount applied to the (mean - red) difference.
	UnsharpAmount float64

	// OUTLINES denoise kernel and hysteresis thresholds.
	GaussianKernel int
	CannyLow       float64
	CannyHigh      float64
}

// DefaultParams returns the canonical parameter table.
func DefaultParams() Params {
	return Params{
		Contrast:        DefaultContrast,
		Brightness:      DefaultBrightness,
		SharpenAmount:   DefaultSharpenAmount,
		EnhanceGain:     DefaultEnhanceGain,
		EnhanceSigma:    DefaultEnhanceSigma,
		BlurRadius:      DefaultBlurRadius,
		ResizeScale:     DefaultResizeScale,
		LaplacianKernel: DefaultLaplacianKernel,
		LaplacianScale:  DefaultLaplacianScale,
		LaplacianDelta:  DefaultLaplacianDelta,
		UnsharpAmount:   DefaultUnsharpAmount,
		GaussianKernel:  DefaultGaussianKernel,
		CannyLow:        DefaultCannyLow,
		CannyHigh:       DefaultCannyHigh,
	}
}

// Validate checks every parameter and joins all violations.
func (p Params) Validate() error {
	var errs []error
	finite := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be finite, got %v", name, v))
		}
	}

	finite("contrast", p.Contrast)
	finite("brightness", p.Brightness)
	finite("sharpen_amount", p.SharpenAmount)
	finite("enhance_gain", p.EnhanceGain)
	finite("laplacian_scale", p.LaplacianScale)
	finite("laplacian_delta", p.LaplacianDelta)
	finite("unsharp_amount", p.UnsharpAmount)

	if !(p.EnhanceSigma >= 0) {
		errs = append(errs, fmt.Errorf("enhance_sigma must be >= 0, got %v", p.EnhanceSigma))
	}
	if !(p.BlurRadius >= 0) {
		errs = append(errs, fmt.Errorf("blur_radius must be >= 0, got %v", p.BlurRadius))
	}
	if !(p.ResizeScale > 0) || math.IsInf(p.ResizeScale, 0) {
		errs = append(errs, fmt.Errorf("resize_scale must be > 0, got %v", p.ResizeScale))
	}
	if _, err := imaging.LaplacianKernel(p.LaplacianKernel); err != nil {
		errs = append(errs, err)
	}
	if p.GaussianKernel < 1 || p.GaussianKernel%2 == 0 {
		errs = append(errs, fmt.Errorf("gaussian_kernel must be odd and >= 1, got %d", p.GaussianKernel))
	}
	if p.CannyLow < 0 || p.CannyHigh < 0 {
		errs = append(errs, fmt.Errorf("canny thresholds must be >= 0, got %v/%v", p.CannyLow, p.CannyHigh))
	}
	return errors.Join(errs...)
}

// blurSigma converts a blur radius to a Gaussian sigma (0.4r + 0.6), the
// mapping used by the platform blur intrinsic the radius originally fed.
func blurSigma(radius float64) float64 {
	if radius <= 0 {
		return 0
	}
	return 0.4*radius + 0.6
}
