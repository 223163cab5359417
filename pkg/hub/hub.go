// Package hub fans annotated frames and viewer status out to websocket
// clients using the channel-based broadcast pattern.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-lens/internal/log"
)

// Kind is what a message carries.
type Kind int

const (
	// KindFrame is one JPEG frame, sent as a binary websocket message and
	// replayed to clients that join later.
	KindFrame Kind = iota
	// KindStatus is a JSON status document, sent as text.
	KindStatus
)

// opcode returns the websocket message type for k.
func (k Kind) opcode() int {
	if k == KindFrame {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// Message is broadcast to every client.
type Message struct {
	Kind Kind
	Data []byte
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	name   string
	logger *slog.Logger

	clients map[*Client]struct{}
	mu      sync.RWMutex

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client

	// Last binary message, replayed to clients as they join
	latest atomic.Pointer[Message]

	running   atomic.Bool
	done      chan struct{}
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a new Hub
func New(name string) *Hub {
	return &Hub{
		name:       name,
		logger:     log.Component("hub").With("hub", name),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop; call it once, in a goroutine. It returns when
// ctx is canceled, after closing every client.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			if m := h.latest.Load(); m != nil {
				client.send <- *m
			}
			h.logger.Info("client connected", "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "clients", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.delivered.Add(1)
				default:
					// Too slow to keep up; drop it
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for all clients without blocking.
func (h *Hub) Broadcast(msg Message) {
	if msg.Kind == KindFrame {
		h.latest.Store(&msg)
	}
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
	}
}

// BroadcastStatus encodes v as JSON and broadcasts it as a status message.
func (h *Hub) BroadcastStatus(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(Message{Kind: KindStatus, Data: data})
	return nil
}

// BroadcastFrame broadcasts one JPEG frame.
func (h *Hub) BroadcastFrame(jpeg []byte) {
	h.Broadcast(Message{Kind: KindFrame, Data: jpeg})
}

// Latest returns the most recent frame, or nil.
func (h *Hub) Latest() []byte {
	if m := h.latest.Load(); m != nil {
		return m.Data
	}
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether the hub loop is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Stats holds hub counters.
type Stats struct {
	Clients   int    `json:"clients"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
}

// Stats returns the hub counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Clients:   h.ClientCount(),
		Delivered: h.delivered.Load(),
		Dropped:   h.dropped.Load(),
	}
}
