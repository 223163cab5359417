// Package app wires an inference lambda together: publisher, model, camera,
// frame sink and the inference session.
package app

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/teslashibe/go-lens/internal/config"
	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/camera"
	"github.com/teslashibe/go-lens/pkg/debug"
	"github.com/teslashibe/go-lens/pkg/framesink"
	"github.com/teslashibe/go-lens/pkg/inference"
	"github.com/teslashibe/go-lens/pkg/iot"
	"github.com/teslashibe/go-lens/pkg/lambda"
)

// Lambda kinds.
const (
	KindHotdog = "hotdog"
	KindTopK   = "topk"
)

// App is one running lambda.
type App struct {
	config *config.Config
	kind   string
	logger *slog.Logger

	profile   lambda.Profile
	publisher iot.Publisher
	encoder   iot.Encoder
	model     inference.Model
	source    camera.Source
	sink      *framesink.Sink
	session   *lambda.Session
}

// Option customizes an App.
type Option func(*App)

// WithPublisher uses pub instead of connecting the configured transport.
func WithPublisher(pub iot.Publisher) Option {
	return func(a *App) { a.publisher = pub }
}

// WithSource uses src instead of opening the configured camera.
func WithSource(src camera.Source) Option {
	return func(a *App) { a.source = src }
}

// WithModel uses m instead of loading the configured model.
func WithModel(m inference.Model) Option {
	return func(a *App) { a.model = m }
}

// WithSink uses a started sink instead of the configured FIFO.
func WithSink(sink *framesink.Sink) Option {
	return func(a *App) { a.sink = sink }
}

// New validates cfg and returns an App for the given kind.
func New(cfg *config.Config, kind string, opts ...Option) (*App, error) {
	if kind != KindHotdog && kind != KindTopK {
		return nil, &config.ConfigError{Field: "kind", Message: fmt.Sprintf("unknown lambda %q", kind)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if kind == KindTopK && cfg.Model.Labels == "" {
		return nil, &config.ConfigError{Field: "Model.Labels", Message: "labels file is required for top-k lambdas"}
	}

	encoder, err := iot.NewEncoder(cfg.Messaging.Encoding)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:  cfg,
		kind:    kind,
		logger:  log.Component("app").With("lambda", kind),
		encoder: encoder,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Topic returns the inference topic.
func (a *App) Topic() string {
	return a.config.Topic()
}

// Profile returns the lambda profile (set by Init).
func (a *App) Profile() lambda.Profile {
	return a.profile
}

// Init connects the publisher, loads the model, opens the camera and starts
// the frame sink. Once the publisher is up, a failure is also reported on the
// topic.
func (a *App) Init(ctx context.Context) error {
	fmt.Printf("🔍 go-lens %s lambda\n", a.kind)
	if debug.Enabled {
		fmt.Println("🐛 Debug mode enabled")
	}

	if a.publisher == nil {
		fmt.Printf("📡 Connecting %s publisher... ", a.config.Messaging.Transport)
		pub, err := NewPublisher(ctx, a.config)
		if err != nil {
			fmt.Println("❌")
			return fmt.Errorf("publisher: %w", err)
		}
		a.publisher = pub
		fmt.Println("✅")
	}

	if err := a.initProfile(); err != nil {
		return a.report(err)
	}
	if err := a.initPipeline(ctx); err != nil {
		return a.report(err)
	}

	session, err := lambda.NewSession(lambda.Config{
		Source:    a.source,
		Model:     a.model,
		Sink:      a.sink,
		Publisher: a.publisher,
		Topic:     a.Topic(),
		Profile:   a.profile,
		Encoder:   a.encoder,
		Logger:    a.logger,
	})
	if err != nil {
		return a.report(err)
	}
	a.session = session
	return nil
}

func (a *App) initProfile() error {
	switch a.kind {
	case KindHotdog:
		a.profile = lambda.Hotdog()
	case KindTopK:
		labels, err := inference.LoadLabels(a.config.Model.Labels)
		if err != nil {
			return err
		}
		a.profile = lambda.TopK(labels, a.config.Model.TopK)
		if a.config.Model.Region > 0 {
			a.profile.Region = a.config.Model.Region
		}
	}
	a.profile.InputSize = image.Pt(a.config.Model.InputWidth, a.config.Model.InputHeight)
	return nil
}

func (a *App) initPipeline(ctx context.Context) error {
	topic := a.Topic()

	if a.model == nil {
		lambda.Announce(a.publisher, topic, a.profile.LoadingStatus)
		fmt.Print("🧠 Loading model... ")
		m, err := LoadModel(ctx, a.config.Model)
		if err != nil {
			fmt.Println("❌")
			return err
		}
		a.model = m
		fmt.Println("✅")
		lambda.Announce(a.publisher, topic, a.profile.LoadedStatus)
	}

	if a.source == nil {
		fmt.Print("📷 Opening camera... ")
		src, err := camera.Open(a.config.Camera)
		if err != nil {
			fmt.Println("❌")
			return err
		}
		a.source = src
		fmt.Println("✅")
	}

	if a.sink == nil {
		d := a.config.Display
		sink, err := framesink.New(d.Resolution,
			framesink.WithConduit(framesink.NewFIFO(d.FIFOPath)),
			framesink.WithQuality(d.Quality),
		)
		if err != nil {
			return err
		}
		if err := sink.Start(); err != nil {
			return err
		}
		a.sink = sink
		fmt.Printf("🖥️  Streaming %s frames to %s\n", d.Resolution, d.FIFOPath)
	}
	return nil
}

// report publishes the diagnostic for a startup failure and returns err.
func (a *App) report(err error) error {
	prefix := a.profile.DiagnosticPrefix
	if prefix == "" {
		prefix = "Error"
	}
	if perr := a.publisher.Publish(a.Topic(), []byte(lambda.Diagnostic(prefix, err))); perr != nil {
		a.logger.Error("diagnostic publish failed", "error", perr)
	}
	return err
}

// Run runs the inference session until it fails or ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	if a.session == nil {
		return fmt.Errorf("app: Run before Init")
	}
	fmt.Println("🔄 Inference loop running (Ctrl+C to stop)")
	return a.session.Run(ctx)
}

// Shutdown stops the sink and releases the model, camera and publisher.
// A sink write blocked on a missing consumer is abandoned.
func (a *App) Shutdown() {
	if a.sink != nil {
		a.sink.Stop()
	}
	if a.source != nil {
		a.source.Close()
	}
	if a.model != nil {
		a.model.Close()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	a.logger.Info("lambda stopped")
}
