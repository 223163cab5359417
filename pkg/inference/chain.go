package inference

import (
	"errors"
	"log/slog"

	"github.com/teslashibe/go-lens/internal/log"
	"gocv.io/x/gocv"
)

// Chain tries multiple models in order until one succeeds, e.g. the
// GPU-optimized artifact first and the CPU model as fallback.
type Chain struct {
	models []Model
	logger *slog.Logger
}

// NewChain creates a model chain.
// At least one model is required.
func NewChain(models ...Model) (*Chain, error) {
	if len(models) == 0 {
		return nil, ErrNoModels
	}
	return &Chain{
		models: models,
		logger: log.Component("inference.chain"),
	}, nil
}

// NewChainWithLogger creates a model chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, models ...Model) (*Chain, error) {
	chain, err := NewChain(models...)
	if err != nil {
		return nil, err
	}
	chain.logger = logger.With("component", "inference.chain")
	return chain, nil
}

// Infer tries each model until one succeeds.
func (c *Chain) Infer(input gocv.Mat) (Output, error) {
	var errs []error

	for i, m := range c.models {
		out, err := m.Infer(input)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback model succeeded",
					"model_index", i,
				)
			}
			return out, nil
		}

		errs = append(errs, err)
		c.logger.Warn("model failed, trying next",
			"model_index", i,
			"error", err,
		)

		// Bad input fails every model the same way
		if errors.Is(err, ErrEmptyInput) {
			break
		}
	}

	return nil, &ChainError{Errors: errs}
}

// Close closes all models.
func (c *Chain) Close() error {
	var lastErr error
	for _, m := range c.models {
		if err := m.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Models returns the models in the chain.
func (c *Chain) Models() []Model {
	return c.models
}

// Verify Chain implements Model at compile time.
var _ Model = (*Chain)(nil)
