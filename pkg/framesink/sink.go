// Package framesink exposes the latest annotated frame to a single streaming
// consumer through a blocking conduit (a named pipe by default).
//
// The producer replaces the current frame with SetFrame; a dedicated goroutine
// keeps writing whatever frame is current. The slot is last-writer-wins: frames
// are skipped when the consumer is slower than the producer and repeated when
// it is faster. SetFrame never waits for the consumer.
//
// The write into the conduit blocks for as long as no consumer is attached.
// That is the only flow control: it stalls the streaming goroutine, never the
// producer, and Stop only takes effect once the in-flight write returns.
package framesink

import (
	"bytes"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/debug"
	"golang.org/x/sys/unix"
	"gocv.io/x/gocv"
)

// Default encoder and retry settings.
const (
	DefaultQuality    = 95
	DefaultRetryDelay = 10 * time.Millisecond
)

// encodedFrame is an immutable JPEG buffer plus its sequence number.
type encodedFrame struct {
	data []byte
	seq  uint64
}

// Sink owns the current frame and streams it to the conduit.
type Sink struct {
	resolution string
	size       image.Point
	quality    int
	conduit    Conduit
	retryDelay time.Duration
	logger     *slog.Logger

	frame   atomic.Pointer[encodedFrame]
	stop    atomic.Bool
	started atomic.Bool
	done    chan struct{}

	errMu sync.Mutex
	err   error

	framesSet   atomic.Uint64
	writes      atomic.Uint64
	writeErrors atomic.Uint64
	reopens     atomic.Uint64
}

// Option configures a Sink.
type Option func(*Sink)

// WithConduit sets where frames are written. Defaults to the FIFO at DefaultFIFOPath.
func WithConduit(c Conduit) Option {
	return func(s *Sink) { s.conduit = c }
}

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option {
	return func(s *Sink) {
		if q >= 1 && q <= 100 {
			s.quality = q
		}
	}
}

// WithRetryDelay sets the pause after a failed write.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Sink) { s.retryDelay = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) { s.logger = l.With("component", "framesink") }
}

// New creates a sink streaming at the named resolution ("480p", "720p" or
// "1080p"). The initial frame is a white canvas at that size.
func New(resolution string, opts ...Option) (*Sink, error) {
	size, err := LookupResolution(resolution)
	if err != nil {
		return nil, err
	}

	s := &Sink{
		resolution: resolution,
		size:       size,
		quality:    DefaultQuality,
		retryDelay: DefaultRetryDelay,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.conduit == nil {
		s.conduit = NewFIFO(DefaultFIFOPath)
	}
	if s.logger == nil {
		s.logger = log.Component("framesink")
	}

	blank := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), size.Y, size.X, gocv.MatTypeCV8UC3)
	defer blank.Close()

	data, err := s.encode(blank)
	if err != nil {
		return nil, &InvalidFrameError{Reason: "encode blank frame", Err: err}
	}
	s.frame.Store(&encodedFrame{data: data})

	return s, nil
}

// Resolution returns the resolution name the sink was built with.
func (s *Sink) Resolution() string {
	return s.resolution
}

// Size returns the fixed output size.
func (s *Sink) Size() image.Point {
	return s.size
}

// Start launches the streaming goroutine. The conduit is opened there, so
// Start returns immediately even when no consumer is attached.
func (s *Sink) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go s.run()
	return nil
}

// SetFrame resizes frame to the output size, encodes it and makes it the
// frame sent on the next write. The caller keeps ownership of frame.
func (s *Sink) SetFrame(frame gocv.Mat) error {
	if frame.Empty() {
		return &InvalidFrameError{Reason: "empty frame"}
	}

	resized := gocv.NewMat()
	defer resized.Close()

	gocv.Resize(frame, &resized, s.size, 0, 0, gocv.InterpolationLinear)
	if resized.Empty() || resized.Cols() != s.size.X || resized.Rows() != s.size.Y {
		return &InvalidFrameError{Reason: "resize"}
	}

	data, err := s.encode(resized)
	if err != nil {
		return &InvalidFrameError{Reason: "encode", Err: err}
	}

	seq := s.framesSet.Add(1)
	s.frame.Store(&encodedFrame{data: data, seq: seq})
	return nil
}

// Frame returns the current encoded frame. The slice must not be modified.
func (s *Sink) Frame() []byte {
	return s.frame.Load().data
}

// Stop asks the streaming goroutine to exit. It does not wait; use Done.
func (s *Sink) Stop() {
	s.stop.Store(true)
}

// Done is closed when the streaming goroutine has exited.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the streaming goroutine, if any.
// Only meaningful after Done is closed.
func (s *Sink) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Stats is a snapshot of sink counters.
type Stats struct {
	FramesSet   uint64 // Successful SetFrame calls
	Writes      uint64 // Frames written to the conduit
	WriteErrors uint64 // Failed writes (retried)
	Reopens     uint64 // Conduit reopened after the consumer went away
}

// Stats returns the current counters.
func (s *Sink) Stats() Stats {
	return Stats{
		FramesSet:   s.framesSet.Load(),
		Writes:      s.writes.Load(),
		WriteErrors: s.writeErrors.Load(),
		Reopens:     s.reopens.Load(),
	}
}

func (s *Sink) encode(m gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, m, []int{int(gocv.IMWriteJpegQuality), s.quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	data := bytes.Clone(buf.GetBytes())
	if len(data) == 0 {
		return nil, errors.New("empty jpeg")
	}
	return data, nil
}

func (s *Sink) fail(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
	s.logger.Error("frame stream stopped", "error", err)
}

// run is the streaming loop.
func (s *Sink) run() {
	defer close(s.done)

	// Blocks until a consumer opens the other end
	w, err := s.conduit.Open()
	if err != nil {
		s.fail(err)
		return
	}
	defer func() {
		if w != nil {
			w.Close()
		}
	}()
	s.logger.Info("consumer attached", "resolution", s.resolution)

	for !s.stop.Load() {
		f := s.frame.Load()

		// Blocks while the consumer is not reading
		if _, err := w.Write(f.data); err != nil {
			s.writeErrors.Add(1)

			if errors.Is(err, unix.EPIPE) {
				// Consumer went away; wait for the next one
				w.Close()
				w = nil
				if s.stop.Load() {
					return
				}
				s.logger.Info("consumer detached, waiting for a new one")
				if w, err = s.conduit.Open(); err != nil {
					w = nil
					s.fail(err)
					return
				}
				s.reopens.Add(1)
				continue
			}

			debug.FrameLog("frame write failed", "error", err)
			time.Sleep(s.retryDelay)
			continue
		}

		s.writes.Add(1)
		debug.FrameLog("frame written", "seq", f.seq, "bytes", len(f.data))
	}
}

// Verify conduits implement Conduit at compile time.
var (
	_ Conduit        = (*FIFO)(nil)
	_ Conduit        = (*WriterConduit)(nil)
	_ io.WriteCloser = nopCloser{}
)
