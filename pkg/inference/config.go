package inference

import (
	"image"
	"log/slog"

	"github.com/teslashibe/go-lens/internal/log"
	"gocv.io/x/gocv"
)

// Config holds network input and post-processing settings.
type Config struct {
	// Blob construction
	InputSize image.Point // Network input (width, height)
	Scale     float64     // Pixel multiplier
	Mean      gocv.Scalar // Subtracted per channel before scaling
	SwapRB    bool        // Let the blob swap BGR to RGB

	// Post-processing
	Softmax bool // Normalize logits

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring models.
type Option func(*Config)

// WithInputSize sets the network input size.
func WithInputSize(width, height int) Option {
	return func(c *Config) { c.InputSize = image.Pt(width, height) }
}

// WithScale sets the pixel scale factor (e.g. 1/255).
func WithScale(scale float64) Option {
	return func(c *Config) { c.Scale = scale }
}

// WithMean sets the per-channel mean in BGR order.
func WithMean(b, g, r float64) Option {
	return func(c *Config) { c.Mean = gocv.NewScalar(b, g, r, 0) }
}

// WithSwapRB makes the blob swap the red and blue channels.
func WithSwapRB(swap bool) Option {
	return func(c *Config) { c.SwapRB = swap }
}

// WithSoftmax normalizes raw logits before returning them.
func WithSoftmax(enabled bool) Option {
	return func(c *Config) { c.Softmax = enabled }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults for 224x224 ImageNet-style classifiers.
func DefaultConfig() *Config {
	return &Config{
		InputSize: image.Pt(224, 224),
		Scale:     1.0,
		Logger:    log.Component("inference"),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
