package framesink

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// DefaultFIFOPath is where the lambda sandbox allows the pipe to live.
// Render it with:
//
//	mplayer -demuxer lavf -lavfdopts format=mjpeg:probesize=32 /tmp/results.mjpeg
const DefaultFIFOPath = "/tmp/results.mjpeg"

// Conduit is the blocking hand-off the sink writes encoded frames into.
type Conduit interface {
	// Open returns a writer for the consumer. It may block until a
	// consumer attaches.
	Open() (io.WriteCloser, error)
}

// FIFO is a filesystem named pipe. Opening it for writing blocks until a
// reader opens the other end.
type FIFO struct {
	Path string
	Perm os.FileMode
}

// NewFIFO returns a FIFO conduit at path with 0666 permissions.
func NewFIFO(path string) *FIFO {
	return &FIFO{Path: path, Perm: 0o666}
}

// Ensure creates the named pipe if it does not exist.
func (f *FIFO) Ensure() error {
	info, err := os.Stat(f.Path)
	switch {
	case err == nil:
		if info.Mode()&os.ModeNamedPipe == 0 {
			return fmt.Errorf("%w: %s", ErrNotFIFO, f.Path)
		}
		return nil
	case os.IsNotExist(err):
		if err := unix.Mkfifo(f.Path, uint32(f.Perm.Perm())); err != nil && !os.IsExist(err) {
			return fmt.Errorf("mkfifo %s: %w", f.Path, err)
		}
		return nil
	default:
		return fmt.Errorf("stat %s: %w", f.Path, err)
	}
}

// Open creates the pipe if needed and opens it for writing.
// This call blocks until a consumer is available.
func (f *FIFO) Open() (io.WriteCloser, error) {
	if err := f.Ensure(); err != nil {
		return nil, err
	}
	return os.OpenFile(f.Path, os.O_WRONLY, 0)
}

// WriterConduit hands out a single pre-opened writer, e.g. one end of an io.Pipe.
// Reopening after the writer failed returns the same writer.
type WriterConduit struct {
	W io.WriteCloser
}

// Open returns the wrapped writer.
func (c *WriterConduit) Open() (io.WriteCloser, error) {
	return nopCloser{c.W}, nil
}

// nopCloser keeps the sink's reopen path from closing a shared writer.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
