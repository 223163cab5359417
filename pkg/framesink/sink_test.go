package framesink

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/teslashibe/go-lens/pkg/mjpeg"
	"gocv.io/x/gocv"
)

// pipeSink starts a sink writing into an in-memory pipe and returns a frame
// reader for the consumer side.
func pipeSink(t *testing.T, resolution string) (*Sink, *mjpeg.Reader) {
	t.Helper()

	pr, pw := io.Pipe()
	s, err := New(resolution, WithConduit(&WriterConduit{W: pw}), WithRetryDelay(time.Millisecond))
	if err != nil {
		t.Fatalf("New(%q): %v", resolution, err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	t.Cleanup(func() {
		s.Stop()
		pr.Close()
		select {
		case <-s.Done():
		case <-time.After(2 * time.Second):
			t.Error("sink did not stop")
		}
	})

	return s, mjpeg.NewReader(pr)
}

func readImage(t *testing.T, r *mjpeg.Reader) image.Image {
	t.Helper()
	data, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return img
}

// centerRGB returns the 8-bit RGB value at the image center.
func centerRGB(img image.Image) (r, g, b uint8) {
	b0 := img.Bounds()
	cr, cg, cb, _ := img.At(b0.Dx()/2, b0.Dy()/2).RGBA()
	return uint8(cr >> 8), uint8(cg >> 8), uint8(cb >> 8)
}

func solid(bgr gocv.Scalar, w, h int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(bgr, h, w, gocv.MatTypeCV8UC3)
}

var (
	red  = gocv.NewScalar(0, 0, 255, 0)
	blue = gocv.NewScalar(255, 0, 0, 0)
)

func TestNewUnknownResolution(t *testing.T) {
	for _, name := range []string{"", "4k", "1080", "720P"} {
		_, err := New(name, WithConduit(&WriterConduit{W: nopWriteCloser{io.Discard}}))
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("New(%q) error = %v, want *ConfigurationError", name, err)
			continue
		}
		if cfgErr.Resolution != name {
			t.Errorf("ConfigurationError.Resolution = %q, want %q", cfgErr.Resolution, name)
		}
	}
}

func TestInitialFrameIsWhiteAtTargetSize(t *testing.T) {
	tests := []struct {
		resolution string
		w, h       int
	}{
		{Resolution480p, 858, 480},
		{Resolution720p, 1280, 720},
		{Resolution1080p, 1920, 1080},
	}

	for _, tt := range tests {
		t.Run(tt.resolution, func(t *testing.T) {
			s, r := pipeSink(t, tt.resolution)

			if got := s.Size(); got != image.Pt(tt.w, tt.h) {
				t.Errorf("Size() = %v, want %dx%d", got, tt.w, tt.h)
			}

			img := readImage(t, r)
			if b := img.Bounds(); b.Dx() != tt.w || b.Dy() != tt.h {
				t.Errorf("frame size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.w, tt.h)
			}
			if cr, cg, cb := centerRGB(img); cr < 240 || cg < 240 || cb < 240 {
				t.Errorf("initial frame center = (%d,%d,%d), want white", cr, cg, cb)
			}
		})
	}
}

func TestSetFrameResizesToTarget(t *testing.T) {
	s, r := pipeSink(t, Resolution480p)
	readImage(t, r)

	frame := solid(red, 300, 200)
	defer frame.Close()
	if err := s.SetFrame(frame); err != nil {
		t.Fatalf("SetFrame: %v", err)
	}

	// The in-flight write may still carry the old frame
	readImage(t, r)
	img := readImage(t, r)
	if b := img.Bounds(); b.Dx() != 858 || b.Dy() != 480 {
		t.Errorf("frame size = %dx%d, want 858x480", b.Dx(), b.Dy())
	}
	if cr, cg, cb := centerRGB(img); cr < 200 || cg > 60 || cb > 60 {
		t.Errorf("center = (%d,%d,%d), want red", cr, cg, cb)
	}
}

func TestLastWriterWins(t *testing.T) {
	s, r := pipeSink(t, Resolution480p)
	readImage(t, r)

	a := solid(red, 858, 480)
	defer a.Close()
	b := solid(blue, 858, 480)
	defer b.Close()

	if err := s.SetFrame(a); err != nil {
		t.Fatalf("SetFrame(a): %v", err)
	}
	if err := s.SetFrame(b); err != nil {
		t.Fatalf("SetFrame(b): %v", err)
	}

	// One write may already be in flight; the one after it must be B
	readImage(t, r)
	img := readImage(t, r)
	if cr, cg, cb := centerRGB(img); cb < 200 || cr > 60 || cg > 60 {
		t.Errorf("center = (%d,%d,%d), want blue", cr, cg, cb)
	}

	if got := s.Stats().FramesSet; got != 2 {
		t.Errorf("FramesSet = %d, want 2", got)
	}
}

func TestFrameRepeatsWhileUnchanged(t *testing.T) {
	s, r := pipeSink(t, Resolution480p)

	first, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := r.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("write %d differs from the first", i+2)
		}
	}
	if !bytes.Equal(first, s.Frame()) {
		t.Error("Frame() differs from what was written")
	}
}

func TestSetFrameSameInputSameOutput(t *testing.T) {
	s, r := pipeSink(t, Resolution480p)
	readImage(t, r)

	small := solid(red, 300, 200)
	defer small.Close()
	large := solid(blue, 1920, 1080)
	defer large.Close()

	var first []byte
	for i, src := range []gocv.Mat{small, large, small, small} {
		if err := s.SetFrame(src); err != nil {
			t.Fatalf("SetFrame %d: %v", i, err)
		}
		current := s.Frame()

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(current))
		if err != nil {
			t.Fatalf("decode frame %d: %v", i, err)
		}
		if cfg.Width != 858 || cfg.Height != 480 {
			t.Errorf("frame %d is %dx%d, want 858x480", i, cfg.Width, cfg.Height)
		}

		// Whatever is streamed is at the target size too
		if b := readImage(t, r).Bounds(); b.Dx() != 858 || b.Dy() != 480 {
			t.Errorf("streamed frame %d is %dx%d, want 858x480", i, b.Dx(), b.Dy())
		}

		if src.Cols() != 300 {
			continue
		}
		if first == nil {
			first = current
		} else if !bytes.Equal(first, current) {
			t.Errorf("frame %d differs from the first encoding of the same input", i)
		}
	}
}

func TestSetFrameEmpty(t *testing.T) {
	s, err := New(Resolution480p, WithConduit(&WriterConduit{W: nopWriteCloser{io.Discard}}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	empty := gocv.NewMat()
	defer empty.Close()

	err = s.SetFrame(empty)
	var frameErr *InvalidFrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("SetFrame(empty) error = %v, want *InvalidFrameError", err)
	}
	if s.Stats().FramesSet != 0 {
		t.Error("failed SetFrame should not count")
	}
}

func TestStartTwice(t *testing.T) {
	s, _ := pipeSink(t, Resolution480p)
	if err := s.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() = %v, want ErrAlreadyStarted", err)
	}
}

func TestStopAfterInFlightWrite(t *testing.T) {
	s, r := pipeSink(t, Resolution480p)
	readImage(t, r)

	s.Stop()

	// The goroutine is parked in a write until the consumer reads it
	select {
	case <-s.Done():
	case <-time.After(50 * time.Millisecond):
		readImage(t, r)
	}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after the in-flight write completed")
	}

	writes := s.Stats().Writes
	time.Sleep(20 * time.Millisecond)
	if got := s.Stats().Writes; got != writes {
		t.Errorf("writes continued after stop: %d -> %d", writes, got)
	}
	if err := s.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestSetFrameDoesNotWaitForConsumer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.mjpeg")
	s, err := New(Resolution480p, WithConduit(NewFIFO(path)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	frame := solid(red, 640, 480)
	defer frame.Close()

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := s.SetFrame(frame); err != nil {
			t.Fatalf("SetFrame: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("SetFrame took %v with no consumer attached", elapsed)
	}

	// Release the writer blocked in open
	s.Stop()
	waitForFIFO(t, path)
	rd, err := os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer rd.Close()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("sink did not stop")
	}
}

func TestFIFOReopensAfterConsumerLeaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.mjpeg")
	s, err := New(Resolution480p, WithConduit(NewFIFO(path)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForFIFO(t, path)

	consume := func() {
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("open reader: %v", err)
		}
		defer f.Close()
		if _, err := mjpeg.NewReader(f).ReadFrame(); err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
	}

	consume()
	consume()

	if got := s.Stats().Reopens; got < 1 {
		t.Errorf("Reopens = %d, want >= 1", got)
	}

	s.Stop()
	rd, err := os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err == nil {
		defer rd.Close()
	}
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("sink did not stop")
	}
}

func TestFIFOEnsure(t *testing.T) {
	dir := t.TempDir()

	f := NewFIFO(filepath.Join(dir, "pipe"))
	if err := f.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	info, err := os.Stat(f.Path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode()&os.ModeNamedPipe == 0 {
		t.Errorf("mode = %v, want named pipe", info.Mode())
	}
	// Existing pipe is fine
	if err := f.Ensure(); err != nil {
		t.Errorf("second Ensure: %v", err)
	}

	regular := filepath.Join(dir, "regular")
	if err := os.WriteFile(regular, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewFIFO(regular).Ensure(); !errors.Is(err, ErrNotFIFO) {
		t.Errorf("Ensure(regular file) = %v, want ErrNotFIFO", err)
	}
}

func TestLookupResolution(t *testing.T) {
	if _, err := LookupResolution("720p"); err != nil {
		t.Errorf("LookupResolution(720p): %v", err)
	}
	got := Resolutions()
	want := []string{"1080p", "480p", "720p"}
	if len(got) != len(want) {
		t.Fatalf("Resolutions() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Resolutions()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func waitForFIFO(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if info, err := os.Stat(path); err == nil && info.Mode()&os.ModeNamedPipe != 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("fifo %s was not created", path)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
