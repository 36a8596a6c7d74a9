package config

import (
	"time"

	"github.com/bryanchriswhite/FilterCam/internal/capture"
	"github.com/bryanchriswhite/FilterCam/internal/filter"
)

// Config is the full application configuration.
type Config struct {
	ServerPort int           `json:"server_port" yaml:"server_port" mapstructure:"server_port"`
	LogLevel   string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogPretty  bool          `json:"log_pretty" yaml:"log_pretty" mapstructure:"log_pretty"`
	Capture    CaptureConfig `json:"capture" yaml:"capture" mapstructure:"capture"`
	Output     OutputConfig  `json:"output" yaml:"output" mapstructure:"output"`
	Filters    FiltersConfig `json:"filters" yaml:"filters" mapstructure:"filters"`
}

// CaptureConfig selects and sizes the capture source.
type CaptureConfig struct {
	Backend  string         `json:"backend" yaml:"backend" mapstructure:"backend"`
	Path     string         `json:"path" yaml:"path" mapstructure:"path"`
	Device   string         `json:"device" yaml:"device" mapstructure:"device"`
	Portal   bool           `json:"portal" yaml:"portal" mapstructure:"portal"`
	Rotation int            `json:"rotation" yaml:"rotation" mapstructure:"rotation"`
	Width    int            `json:"width" yaml:"width" mapstructure:"width"`
	Height   int            `json:"height" yaml:"height" mapstructure:"height"`
	Region   capture.Region `json:"region" yaml:"region" mapstructure:"region"`
	// Interval triggers periodic captures in serve mode. Zero means
	// captures only happen on request.
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
}

// OutputConfig controls the stream, the label overlay and the gallery.
type OutputConfig struct {
	Width         int    `json:"width" yaml:"width" mapstructure:"width"`
	Height        int    `json:"height" yaml:"height" mapstructure:"height"`
	FPS           int    `json:"fps" yaml:"fps" mapstructure:"fps"`
	JPEGQuality   int    `json:"jpeg_quality" yaml:"jpeg_quality" mapstructure:"jpeg_quality"`
	Label         bool   `json:"label" yaml:"label" mapstructure:"label"`
	LabelPosition string `json:"label_position" yaml:"label_position" mapstructure:"label_position"`
	GalleryLimit  int    `json:"gallery_limit" yaml:"gallery_limit" mapstructure:"gallery_limit"`
	ExportDir     string `json:"export_dir" yaml:"export_dir" mapstructure:"export_dir"`
	Display       bool   `json:"display" yaml:"display" mapstructure:"display"`
}

// FiltersConfig is the filter parameter table plus the row worker bound.
type FiltersConfig struct {
	Workers         int     `json:"workers" yaml:"workers" mapstructure:"workers"`
	Contrast        float64 `json:"contrast" yaml:"contrast" mapstructure:"contrast"`
	Brightness      float64 `json:"brightness" yaml:"brightness" mapstructure:"brightness"`
	SharpenAmount   float64 `json:"sharpen_amount" yaml:"sharpen_amount" mapstructure:"sharpen_amount"`
	EnhanceGain     float64 `json:"enhance_gain" yaml:"enhance_gain" mapstructure:"enhance_gain"`
	EnhanceSigma    float64 `json:"enhance_sigma" yaml:"enhance_sigma" mapstructure:"enhance_sigma"`
	BlurRadius      float64 `json:"blur_radius" yaml:"blur_radius" mapstructure:"blur_radius"`
	ResizeScale     float64 `json:"resize_scale" yaml:"resize_scale" mapstructure:"resize_scale"`
	LaplacianKernel int     `json:"laplacian_kernel" yaml:"laplacian_kernel" mapstructure:"laplacian_kernel"`
	LaplacianScale  float64 `json:"laplacian_scale" yaml:"laplacian_scale" mapstructure:"laplacian_scale"`
	LaplacianDelta  float64 `json:"laplacian_delta" yaml:"laplacian_delta" mapstructure:"laplacian_delta"`
	UnsharpAmount   float64 `json:"unsharp_amount" yaml:"unsharp_amount" mapstructure:"unsharp_amount"`
	GaussianKernel  int     `json:"gaussian_kernel" yaml:"gaussian_kernel" mapstructure:"gaussian_kernel"`
	CannyLow        float64 `json:"canny_low" yaml:"canny_low" mapstructure:"canny_low"`
	CannyHigh       float64 `json:"canny_high" yaml:"canny_high" mapstructure:"canny_high"`
}

// Params converts the table for filter.New.
func (f FiltersConfig) Params() filter.Params {
	return filter.Params{
		Contrast:        f.Contrast,
		Brightness:      f.Brightness,
		SharpenAmount:   f.SharpenAmount,
		EnhanceGain:     f.EnhanceGain,
		EnhanceSigma:    f.EnhanceSigma,
		BlurRadius:      f.BlurRadius,
		ResizeScale:     f.ResizeScale,
		LaplacianKernel: f.LaplacianKernel,
		LaplacianScale:  f.LaplacianScale,
		LaplacianDelta:  f.LaplacianDelta,
		UnsharpAmount:   f.UnsharpAmount,
		GaussianKernel:  f.GaussianKernel,
		CannyLow:        f.CannyLow,
		CannyHigh:       f.CannyHigh,
	}
}

// defaults is keyed by the dotted viper path. Every key the application
// reads must appear here so environment overrides and Set can find it.
func defaults() map[string]interface{} {
	p := filter.DefaultParams()
	return map[string]interface{}{
		"server_port": 8080,
		"log_level":   "info",
		"log_pretty":  true,

		"capture.backend":       capture.BackendAuto,
		"capture.path":          "",
		"capture.device":        "",
		"capture.portal":        false,
		"capture.rotation":      0,
		"capture.width":         0,
		"capture.height":        0,
		"capture.region.x":      0,
		"capture.region.y":      0,
		"capture.region.width":  0,
		"capture.region.height": 0,
		"capture.interval":      "0s",

		"output.width":          1280,
		"output.height":         720,
		"output.fps":            10,
		"output.jpeg_quality":   90,
		"output.label":          true,
		"output.label_position": "top-left",
		"output.gallery_limit":  50,
		"output.export_dir":     "",
		"output.display":        false,

		"filters.workers":          0,
		"filters.contrast":         p.Contrast,
		"filters.brightness":       p.Brightness,
		"filters.sharpen_amount":   p.SharpenAmount,
		"filters.enhance_gain":     p.EnhanceGain,
		"filters.enhance_sigma":    p.EnhanceSigma,
		"filters.blur_radius":      p.BlurRadius,
		"filters.resize_scale":     p.ResizeScale,
		"filters.laplacian_kernel": p.LaplacianKernel,
		"filters.laplacian_scale":  p.LaplacianScale,
		"filters.laplacian_delta":  p.LaplacianDelta,
		"filters.unsharp_amount":   p.UnsharpAmount,
		"filters.gaussian_kernel":  p.GaussianKernel,
		"filters.canny_low":        p.CannyLow,
		"filters.canny_high":       p.CannyHigh,
	}
}
