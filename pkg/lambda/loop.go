// Package lambda drives the capture, infer, annotate, display and publish
// cycle of an edge classification lambda.
package lambda

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/camera"
	"github.com/teslashibe/go-lens/pkg/debug"
	"github.com/teslashibe/go-lens/pkg/inference"
	"github.com/teslashibe/go-lens/pkg/iot"
	"github.com/teslashibe/go-lens/pkg/overlay"
	"gocv.io/x/gocv"
)

// FrameSetter receives annotated frames (framesink.Sink).
type FrameSetter interface {
	SetFrame(frame gocv.Mat) error
}

// Config wires a Loop to its collaborators.
type Config struct {
	Source    camera.Source
	Model     inference.Model
	Sink      FrameSetter
	Publisher iot.Publisher
	Topic     string
	Profile   Profile
	Encoder   iot.Encoder // JSON when nil
	Logger    *slog.Logger
}

func (c Config) validate() error {
	switch {
	case c.Source == nil:
		return errors.New("lambda: source required")
	case c.Model == nil:
		return errors.New("lambda: model required")
	case c.Sink == nil:
		return errors.New("lambda: sink required")
	case c.Publisher == nil:
		return errors.New("lambda: publisher required")
	case c.Topic == "":
		return errors.New("lambda: topic required")
	case c.Profile.Renderer == nil || c.Profile.Summarize == nil:
		return fmt.Errorf("lambda: profile %q incomplete", c.Profile.Name)
	}
	return nil
}

// Loop runs inference cycles back to back.
type Loop struct {
	cfg     Config
	encoder iot.Encoder
	logger  *slog.Logger

	cycles      atomic.Uint64
	lastLatency atomic.Int64
}

// NewLoop validates cfg and returns a loop.
func NewLoop(cfg Config) (*Loop, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Profile.InputSize == (image.Point{}) {
		cfg.Profile.InputSize = DefaultInputSize
	}

	l := &Loop{cfg: cfg, encoder: cfg.Encoder, logger: cfg.Logger}
	if l.encoder == nil {
		l.encoder = iot.JSONEncoder{}
	}
	if l.logger == nil {
		l.logger = log.Component("lambda")
	}
	l.logger = l.logger.With("profile", cfg.Profile.Name)
	return l, nil
}

// Run cycles until a cycle fails or ctx is canceled. Cancellation is only
// observed between cycles.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := l.Cycle(); err != nil {
			return err
		}
	}
}

// Cycle runs one capture, prepare, infer, annotate, display, publish pass.
func (l *Loop) Cycle() error {
	start := time.Now()
	p := l.cfg.Profile

	frame, err := l.cfg.Source.NextFrame()
	if err != nil {
		return err
	}
	defer frame.Close()

	input, err := Prepare(frame, p.InputSize, p.Region, p.SwapRB)
	if err != nil {
		return err
	}
	defer input.Close()

	out, err := l.cfg.Model.Infer(input)
	if err != nil {
		return fmt.Errorf("inference: %w", err)
	}

	results, err := inference.Parse(inference.TaskClassification, out)
	if err != nil {
		return err
	}
	top := inference.TopK(results, p.TopK)

	size := image.Pt(frame.Cols(), frame.Rows())
	if err := overlay.Draw(&frame, p.Renderer.Layout(size, top)); err != nil {
		return err
	}

	if err := l.cfg.Sink.SetFrame(frame); err != nil {
		return err
	}

	payload, err := l.encoder.Encode(p.Summarize(top))
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := l.cfg.Publisher.Publish(l.cfg.Topic, payload); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	latency := time.Since(start)
	n := l.cycles.Add(1)
	l.lastLatency.Store(int64(latency))

	debug.FrameLog("cycle done",
		"cycle", n,
		"top", top[0].Label,
		"prob", top[0].Prob,
		"latency", latency,
	)
	return nil
}

// Stats is a snapshot of loop counters.
type Stats struct {
	Cycles      uint64
	LastLatency time.Duration
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Cycles:      l.cycles.Load(),
		LastLatency: time.Duration(l.lastLatency.Load()),
	}
}

// Prepare builds the model input from frame: an optional centered square crop
// of side region (clamped to the frame), a resize to size, and an optional
// BGR to RGB conversion. The caller owns the returned Mat.
func Prepare(frame gocv.Mat, size image.Point, region int, swapRB bool) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.Mat{}, inference.ErrEmptyInput
	}

	src := frame
	if region > 0 {
		r := overlay.CenteredSquare(image.Pt(frame.Cols(), frame.Rows()), region)
		if r.Empty() {
			return gocv.Mat{}, fmt.Errorf("prepare: crop region %d outside %dx%d frame", region, frame.Cols(), frame.Rows())
		}
		src = frame.Region(r)
		defer src.Close()
	}

	resized := gocv.NewMat()
	gocv.Resize(src, &resized, size, 0, 0, gocv.InterpolationLinear)
	if resized.Empty() {
		resized.Close()
		return gocv.Mat{}, errors.New("prepare: resize failed")
	}

	if swapRB {
		gocv.CvtColor(resized, &resized, gocv.ColorBGRToRGB)
	}
	return resized, nil
}
