package iot

import "sync"

// Message is one recorded publish.
type Message struct {
	Topic   string
	Payload []byte
}

// Recorder is an in-memory Publisher for tests.
type Recorder struct {
	// PublishFunc, when set, decides the result of each Publish. The
	// message is recorded either way.
	PublishFunc func(topic string, payload []byte) error

	mu       sync.Mutex
	messages []Message
	closed   bool
}

// Publish implements Publisher.
func (r *Recorder) Publish(topic string, payload []byte) error {
	r.mu.Lock()
	r.messages = append(r.messages, Message{Topic: topic, Payload: append([]byte(nil), payload...)})
	r.mu.Unlock()

	if r.PublishFunc != nil {
		return r.PublishFunc(topic, payload)
	}
	return nil
}

// Close implements Publisher.
func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Messages returns all recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Message, len(r.messages))
	copy(result, r.messages)
	return result
}

// Last returns the most recent message, or nil if none.
func (r *Recorder) Last() *Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return nil
	}
	m := r.messages[len(r.messages)-1]
	return &m
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Reset clears the recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

var _ Publisher = (*Recorder)(nil)
