package lambda

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/iot"
)

// Session is one inference session: the loop plus its failure handling. The
// first failure ends the session after a single best-effort diagnostic
// publish; there is no retry.
type Session struct {
	loop      *Loop
	publisher iot.Publisher
	topic     string
	prefix    string
	logger    *slog.Logger
}

// NewSession builds the loop for cfg.
func NewSession(cfg Config) (*Session, error) {
	loop, err := NewLoop(cfg)
	if err != nil {
		return nil, err
	}

	prefix := cfg.Profile.DiagnosticPrefix
	if prefix == "" {
		prefix = "Error"
	}

	return &Session{
		loop:      loop,
		publisher: cfg.Publisher,
		topic:     cfg.Topic,
		prefix:    prefix,
		logger:    loop.logger,
	}, nil
}

// Loop returns the underlying loop.
func (s *Session) Loop() *Loop {
	return s.loop
}

// Run runs the loop until it fails or ctx is canceled. On failure the
// diagnostic "<prefix>: <err>" is published once and the error returned.
// Cancellation returns nil and publishes nothing.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("inference session started")

	err := s.loop.Run(ctx)
	if err == nil || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
		s.logger.Info("inference session stopped", "cycles", s.loop.Stats().Cycles)
		return nil
	}

	s.logger.Error("inference session failed",
		"error", err,
		"cycles", s.loop.Stats().Cycles,
	)

	// Best effort; the process exits either way
	if perr := s.publisher.Publish(s.topic, []byte(Diagnostic(s.prefix, err))); perr != nil {
		s.logger.Error("diagnostic publish failed", "error", perr)
	}
	return err
}

// Diagnostic formats the failure message sent to the topic.
func Diagnostic(prefix string, err error) string {
	return fmt.Sprintf("%s: %v", prefix, err)
}

// Announce publishes a plain-text status line such as "Loading hotdog model".
// Failures are logged only.
func Announce(pub iot.Publisher, topic, status string) {
	if status == "" {
		return
	}
	if err := pub.Publish(topic, []byte(status)); err != nil {
		log.Component("lambda").Warn("status publish failed", "status", status, "error", err)
	}
}
