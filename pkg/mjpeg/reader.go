// Package mjpeg splits a motion-JPEG byte stream (JPEG images written back
// to back, no multipart headers) into individual frames.
package mjpeg

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// JPEG markers
const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8
	markerEOI    = 0xD9
	markerSOS    = 0xDA
	markerTEM    = 0x01
	markerRST0   = 0xD0
	markerRST7   = 0xD7
)

// DefaultMaxFrameSize bounds a single frame (1080p JPEGs are well below this).
const DefaultMaxFrameSize = 16 << 20

var (
	// ErrFrameTooLarge is returned when a frame exceeds the reader's limit.
	ErrFrameTooLarge = errors.New("mjpeg: frame too large")

	// ErrCorrupt is returned for a malformed segment header.
	ErrCorrupt = errors.New("mjpeg: corrupt stream")
)

// Reader reads JPEG frames from a concatenated stream.
type Reader struct {
	r       *bufio.Reader
	buf     bytes.Buffer
	maxSize int
	skipped uint64
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:       bufio.NewReaderSize(r, 64*1024),
		maxSize: DefaultMaxFrameSize,
	}
}

// SetMaxFrameSize overrides DefaultMaxFrameSize.
func (r *Reader) SetMaxFrameSize(n int) {
	r.maxSize = n
}

// Skipped returns how many bytes were discarded while resynchronizing on SOI.
func (r *Reader) Skipped() uint64 {
	return r.skipped
}

// ReadFrame returns the next complete JPEG (SOI through EOI). The returned
// slice is owned by the caller. io.EOF is returned at a clean frame boundary,
// io.ErrUnexpectedEOF when the stream ends mid-frame.
func (r *Reader) ReadFrame() ([]byte, error) {
	if err := r.syncSOI(); err != nil {
		return nil, err
	}

	r.buf.Reset()
	r.buf.Write([]byte{markerPrefix, markerSOI})

	if err := r.readSegments(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return bytes.Clone(r.buf.Bytes()), nil
}

// syncSOI discards bytes up to and including the next SOI marker.
func (r *Reader) syncSOI() error {
	var n uint64
	prevFF := false
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			r.skipped += n
			return err
		}
		n++
		if prevFF && b == markerSOI {
			r.skipped += n - 2
			return nil
		}
		prevFF = b == markerPrefix
	}
}

// readSegments copies marker segments until EOI.
func (r *Reader) readSegments() error {
	var marker byte
	pending := false
	for {
		if !pending {
			m, err := r.readMarker()
			if err != nil {
				return err
			}
			marker = m
		}
		pending = false

		switch {
		case marker == markerEOI:
			return nil
		case marker == markerTEM || (marker >= markerRST0 && marker <= markerRST7):
			// Standalone markers carry no length
			continue
		}

		if err := r.copySegment(); err != nil {
			return err
		}

		if marker == markerSOS {
			// The scan ends at the next real marker, already consumed
			next, err := r.copyEntropyData()
			if err != nil {
				return err
			}
			marker, pending = next, true
		}
	}
}

// readMarker reads 0xFF, any fill bytes, and the marker code.
func (r *Reader) readMarker() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != markerPrefix {
		return 0, fmt.Errorf("%w: expected marker, got 0x%02x", ErrCorrupt, b)
	}
	for b == markerPrefix {
		if b, err = r.r.ReadByte(); err != nil {
			return 0, err
		}
	}
	if err := r.put(markerPrefix, b); err != nil {
		return 0, err
	}
	return b, nil
}

// copySegment copies a length-prefixed segment body.
func (r *Reader) copySegment() error {
	var hdr [2]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		return err
	}
	length := int(hdr[0])<<8 | int(hdr[1])
	if length < 2 {
		return fmt.Errorf("%w: segment length %d", ErrCorrupt, length)
	}
	if err := r.put(hdr[0], hdr[1]); err != nil {
		return err
	}
	if r.buf.Len()+length-2 > r.maxSize {
		return ErrFrameTooLarge
	}
	_, err := io.CopyN(&r.buf, r.r, int64(length-2))
	return err
}

// copyEntropyData copies scan data until a real marker and returns its code.
// Stuffed bytes (FF00) and restart markers belong to the scan.
func (r *Reader) copyEntropyData() (byte, error) {
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != markerPrefix {
			if err := r.put(b); err != nil {
				return 0, err
			}
			continue
		}

		n, err := r.r.ReadByte()
		if err != nil {
			return 0, err
		}
		for n == markerPrefix {
			if n, err = r.r.ReadByte(); err != nil {
				return 0, err
			}
		}
		if err := r.put(markerPrefix, n); err != nil {
			return 0, err
		}
		if n == 0x00 || (n >= markerRST0 && n <= markerRST7) {
			continue
		}
		return n, nil
	}
}

func (r *Reader) put(b ...byte) error {
	if r.buf.Len()+len(b) > r.maxSize {
		return ErrFrameTooLarge
	}
	r.buf.Write(b)
	return nil
}
