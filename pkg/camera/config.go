// Package camera provides frame capture for the edge lambdas.
// Sources hand out gocv Mats in BGR order; the caller owns and closes them.
package camera

import (
	"fmt"
	"strconv"
)

// Config holds capture configuration parameters.
type Config struct {
	// Device is a V4L2 index ("0"), a video file, an RTSP URL or a
	// GStreamer pipeline ending in appsink.
	Device string `yaml:"device" json:"device"`

	// === Resolution ===
	Width     int `yaml:"width" json:"width"`         // Frame width in pixels (0 keeps the device default)
	Height    int `yaml:"height" json:"height"`       // Frame height in pixels (0 keeps the device default)
	Framerate int `yaml:"framerate" json:"framerate"` // Target FPS (0 keeps the device default)

	// Still is a JPEG/PNG served as a synthetic endless stream when set.
	// Device is ignored in that case.
	Still string `yaml:"still,omitempty" json:"still,omitempty"`
}

// Sensor limits for the 4 MP module the appliance ships with
const (
	SensorMaxWidth  = 2688
	SensorMaxHeight = 1520
)

// DefaultConfig returns the 1080p capture configuration.
func DefaultConfig() Config {
	return Config{
		Device:    "0",
		Width:     1920,
		Height:    1080,
		Framerate: 30,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" && c.Still == "" {
		errors = append(errors, "device or still is required")
	}

	// Zero means "device default" for all three
	if c.Width != 0 && (c.Width < 160 || c.Width > SensorMaxWidth) {
		errors = append(errors, fmt.Sprintf("width must be 0 or between 160 and %d", SensorMaxWidth))
	}
	if c.Height != 0 && (c.Height < 120 || c.Height > SensorMaxHeight) {
		errors = append(errors, fmt.Sprintf("height must be 0 or between 120 and %d", SensorMaxHeight))
	}
	if c.Framerate < 0 || c.Framerate > 120 {
		errors = append(errors, "framerate must be between 0 and 120")
	}

	return errors
}

// deviceArg converts Device to what gocv.OpenVideoCapture expects:
// an int for V4L2 indices, the raw string otherwise.
func (c *Config) deviceArg() interface{} {
	if id, err := strconv.Atoi(c.Device); err == nil {
		return id
	}
	return c.Device
}
