package docscan

import "github.com/rusq/docscan/bitmap"

const (
	DefaultContrast   = 30
	DefaultBrightness = 5
	DefaultMaxWidth   = 2000
	DefaultMaxHeight  = 2000
	DefaultQuality    = 0.85
	// DefaultMaxPixels limits the declared pixel count of the input image
	// (roughly 64MP).
	DefaultMaxPixels int64 = 64 * 1024 * 1024
	// maxDimension caps the declared width or height of the input image.
	maxDimension = 32768
)

type options struct {
	contrast   float64 // percent, applied only if enhance is set
	brightness float64 // percent, applied only if enhance is set
	enhance    bool
	maxWidth   int
	maxHeight  int
	quality    float64 // 0..1
	method     string  // binarization method
	maxPixels  int64
}

func defaultOptions() options {
	return options{
		contrast:   DefaultContrast,
		brightness: DefaultBrightness,
		maxWidth:   DefaultMaxWidth,
		maxHeight:  DefaultMaxHeight,
		quality:    DefaultQuality,
		method:     bitmap.DefaultMethod,
		maxPixels:  DefaultMaxPixels,
	}
}

type Option func(*options)

// WithMaxSize sets the bounding box the image is scaled down to.
// Non-positive values keep the default.
func WithMaxSize(width, height int) Option {
	return func(o *options) {
		if width > 0 {
			o.maxWidth = width
		}
		if height > 0 {
			o.maxHeight = height
		}
	}
}

// WithQuality sets the JPEG quality in range [0, 1].  Values outside of the
// range are passed to the encoder, which clamps them.
func WithQuality(q float64) Option {
	return func(o *options) {
		o.quality = q
	}
}

// WithContrast sets the contrast adjustment in percent.
func WithContrast(pct float64) Option {
	return func(o *options) {
		o.contrast = pct
	}
}

// WithBrightness sets the brightness adjustment in percent.
func WithBrightness(pct float64) Option {
	return func(o *options) {
		o.brightness = pct
	}
}

// WithEnhance enables the contrast and brightness pre-pass before the
// grayscale reduction.
func WithEnhance(b bool) Option {
	return func(o *options) {
		o.enhance = b
	}
}

// WithMethod sets the binarization method, see [bitmap.AllMethods].
func WithMethod(name string) Option {
	return func(o *options) {
		if name != "" {
			o.method = name
		}
	}
}

// WithMaxPixels limits the pixel count of the input images.
func WithMaxPixels(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPixels = n
		}
	}
}
