package camera

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Static serves copies of a single frame, forever or up to a limit.
// It stands in for the device in synthetic scenes and tests.
type Static struct {
	frame gocv.Mat

	// Limit is the number of frames served before NextFrame fails
	// with ErrNoFrame. Zero means unlimited.
	Limit int

	mu     sync.Mutex
	served int
	closed bool
}

// NewStatic creates a source repeating frame. Static takes ownership of frame.
func NewStatic(frame gocv.Mat) *Static {
	return &Static{frame: frame}
}

// NewStaticFromFile loads an image from disk and repeats it.
func NewStaticFromFile(path string) (*Static, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("read still %s: empty image", path)
	}
	return NewStatic(img), nil
}

// NextFrame returns a clone of the frame.
func (s *Static) NextFrame() (gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return gocv.Mat{}, &CaptureError{Device: "static", Err: ErrClosed}
	}
	if s.Limit > 0 && s.served >= s.Limit {
		return gocv.Mat{}, &CaptureError{Device: "static", Err: ErrNoFrame}
	}
	s.served++

	return s.frame.Clone(), nil
}

// Served returns how many frames were handed out.
func (s *Static) Served() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.served
}

// Close releases the frame.
func (s *Static) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.frame.Close()
}

// Verify sources implement Source at compile time.
var (
	_ Source = (*Capture)(nil)
	_ Source = (*Static)(nil)
)
