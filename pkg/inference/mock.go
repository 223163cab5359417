package inference

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Mock implements Model for testing.
type Mock struct {
	// InferFunc is called when Infer is invoked.
	InferFunc func(input gocv.Mat) (Output, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Size   [2]int // Input cols, rows (Infer only)
	Time   time.Time
}

// NewMock creates a mock model that always returns out.
func NewMock(out Output) *Mock {
	return &Mock{
		InferFunc: func(input gocv.Mat) (Output, error) {
			result := make(Output, len(out))
			copy(result, out)
			return result, nil
		},
	}
}

// NewMockScores returns a mock whose output has n classes, all zero except
// the given label scores.
func NewMockScores(n int, scores map[int]float32) *Mock {
	out := make(Output, n)
	for label, p := range scores {
		if label >= 0 && label < n {
			out[label] = p
		}
	}
	return NewMock(out)
}

// Infer calls InferFunc and records the call.
func (m *Mock) Infer(input gocv.Mat) (Output, error) {
	m.record(MockCall{Method: "Infer", Size: [2]int{input.Cols(), input.Rows()}})
	if m.InferFunc != nil {
		return m.InferFunc(input)
	}
	return nil, WrapError("mock", ErrEmptyOutput)
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.record(MockCall{Method: "Close"})
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// record adds a call to the tracking list.
func (m *Mock) record(call MockCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call.Time = time.Now()
	m.calls = append(m.calls, call)
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WithError returns a mock that always returns the given error.
func WithError(err error) *Mock {
	return &Mock{
		InferFunc: func(input gocv.Mat) (Output, error) {
			return nil, err
		},
	}
}

// Verify Mock implements Model at compile time.
var _ Model = (*Mock)(nil)
