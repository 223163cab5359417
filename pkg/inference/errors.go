package inference

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrUnsupportedTask is returned by Parse for task types other than
	// classification.
	ErrUnsupportedTask = errors.New("inference: unsupported task type")

	// ErrEmptyOutput is returned when the network produced no scores.
	ErrEmptyOutput = errors.New("inference: empty model output")

	// ErrEmptyInput is returned when Infer receives an empty frame.
	ErrEmptyInput = errors.New("inference: empty input frame")

	// ErrModelNotFound is returned when the model artifact does not exist.
	ErrModelNotFound = errors.New("inference: model not found")

	// ErrModelLoad is returned when the network cannot be built.
	ErrModelLoad = errors.New("inference: failed to load model")

	// ErrNoModels is returned when a chain is built without models.
	ErrNoModels = errors.New("inference: no models")

	// ErrClosed is returned by Infer after Close.
	ErrClosed = errors.New("inference: model closed")
)

// TaskError reports an output parser request for an unknown task type.
type TaskError struct {
	Task TaskType
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("inference: unsupported task type %q", e.Task)
}

// Is matches ErrUnsupportedTask.
func (e *TaskError) Is(target error) bool {
	return target == ErrUnsupportedTask
}

// ModelError wraps an error with the model it came from.
type ModelError struct {
	Model string
	Err   error
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	return fmt.Sprintf("inference [%s]: %v", e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModelError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with model context.
func WrapError(model string, err error) error {
	if err == nil {
		return nil
	}
	return &ModelError{Model: model, Err: err}
}

// ChainError aggregates errors from all models in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "inference chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("inference chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("inference chain: all %d models failed, last error: %v",
		len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the chain.
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}
