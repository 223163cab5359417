package web

import (
	"sync"
	"sync/atomic"
	"time"
)

// Feed holds the latest frame and hands every new one to subscribers. A
// subscriber that has not taken the previous frame gets it replaced.
type Feed struct {
	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	closed bool

	latest  atomic.Pointer[[]byte]
	frames  atomic.Uint64
	updated atomic.Int64 // unix nanos of the last frame
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[chan []byte]struct{})}
}

// Publish makes frame the latest and notifies subscribers.
func (f *Feed) Publish(frame []byte) {
	f.latest.Store(&frame)
	f.frames.Add(1)
	f.updated.Store(time.Now().UnixNano())

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- frame:
		default:
			// Replace the stale frame
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- frame:
			default:
			}
		}
	}
}

// Subscribe returns a channel of frames and a cancel func. The channel is
// closed by cancel or by Close.
func (f *Feed) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	f.subs[ch] = struct{}{}
	// Replay under the lock so a concurrent Publish or Close cannot race it
	if p := f.latest.Load(); p != nil {
		select {
		case ch <- *p:
		default:
		}
	}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[ch]; ok {
				delete(f.subs, ch)
				close(ch)
			}
		})
	}
}

// Latest returns the most recent frame, or nil.
func (f *Feed) Latest() []byte {
	if p := f.latest.Load(); p != nil {
		return *p
	}
	return nil
}

// Frames returns how many frames were published.
func (f *Feed) Frames() uint64 {
	return f.frames.Load()
}

// Updated returns when the last frame arrived (zero if none).
func (f *Feed) Updated() time.Time {
	if n := f.updated.Load(); n != 0 {
		return time.Unix(0, n)
	}
	return time.Time{}
}

// Subscribers returns the number of active subscribers.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close ends every subscription.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
}
