package framesink

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("framesink: already started")

	// ErrNotFIFO is returned when the conduit path exists but is not a named pipe.
	ErrNotFIFO = errors.New("framesink: path exists and is not a FIFO")
)

// ConfigurationError reports an unsupported resolution name.
type ConfigurationError struct {
	Resolution string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("framesink: invalid resolution %q (valid: %s)",
		e.Resolution, strings.Join(Resolutions(), ", "))
}

// InvalidFrameError reports a frame that could not be resized or encoded.
type InvalidFrameError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *InvalidFrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("framesink: failed to set frame data: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("framesink: failed to set frame data: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *InvalidFrameError) Unwrap() error {
	return e.Err
}
