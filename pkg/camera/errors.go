package camera

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFrame is returned when the device reports no frame available.
	ErrNoFrame = errors.New("camera: no frame available")

	// ErrClosed is returned when reading from a closed source.
	ErrClosed = errors.New("camera: source closed")
)

// CaptureError reports a failed frame acquisition.
// The inference loop treats it as fatal.
type CaptureError struct {
	Device string
	Err    error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	return fmt.Sprintf("failed to get frame from the stream (%s): %v", e.Device, e.Err)
}

// Unwrap returns the underlying error.
func (e *CaptureError) Unwrap() error {
	return e.Err
}
