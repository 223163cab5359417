package camera

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/teslashibe/go-lens/internal/log"
	"gocv.io/x/gocv"
)

// Source produces camera frames.
type Source interface {
	// NextFrame returns the next frame. The caller owns the Mat and must Close it.
	// A failed read is reported as *CaptureError.
	NextFrame() (gocv.Mat, error)

	// Close releases the device.
	Close() error
}

// Capture reads frames from a gocv VideoCapture device.
type Capture struct {
	vc     *gocv.VideoCapture
	config Config
	logger *slog.Logger

	mu     sync.Mutex // VideoCapture is not safe for concurrent reads
	closed bool
	frames uint64
}

// Open opens the device described by cfg and applies the requested
// resolution and framerate. A Still config is served by a Static source.
func Open(cfg Config) (Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera config: %s", strings.Join(errs, "; "))
	}

	if cfg.Still != "" {
		return NewStaticFromFile(cfg.Still)
	}

	vc, err := gocv.OpenVideoCapture(cfg.deviceArg())
	if err != nil {
		return nil, fmt.Errorf("open capture %q: %w", cfg.Device, err)
	}

	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	logger := log.Component("camera")
	logger.Info("capture opened",
		"device", cfg.Device,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight),
		"fps", vc.Get(gocv.VideoCaptureFPS))

	return &Capture{
		vc:     vc,
		config: cfg,
		logger: logger,
	}, nil
}

// NextFrame grabs and decodes the next frame.
func (c *Capture) NextFrame() (gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return gocv.Mat{}, &CaptureError{Device: c.config.Device, Err: ErrClosed}
	}

	frame := gocv.NewMat()
	if ok := c.vc.Read(&frame); !ok || frame.Empty() {
		frame.Close()
		return gocv.Mat{}, &CaptureError{Device: c.config.Device, Err: ErrNoFrame}
	}
	c.frames++

	return frame, nil
}

// Frames returns the number of frames read so far.
func (c *Capture) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Close releases the device.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.vc.Close()
}
