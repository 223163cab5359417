// Package web serves the annotated frame stream read from the lambda's FIFO:
// an MJPEG endpoint for browsers, JPEG snapshots, status, and a websocket
// feed of binary frames.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/hub"
	"github.com/teslashibe/go-lens/pkg/mjpeg"
)

// Boundary separates parts of the multipart MJPEG stream.
const Boundary = "lensframe"

// Server is the frame viewer.
type Server struct {
	app    *fiber.App
	feed   *Feed
	frames *hub.Hub
	source string
	logger *slog.Logger

	started time.Time
	cancel  context.CancelFunc
}

// NewServer creates a viewer for frames read from source (shown in status).
// The websocket hub runs until Shutdown.
func NewServer(source string) *Server {
	s := &Server{
		feed:    NewFeed(),
		frames:  hub.New("frames"),
		source:  source,
		logger:  log.Component("web"),
		started: time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-lens viewer",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	app.Get("/", s.handleIndex)
	app.Get("/stream.mjpeg", s.handleStream)
	app.Get("/snapshot.jpg", s.handleSnapshot)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))

	s.app = app

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.frames.Run(ctx)

	return s
}

// App returns the fiber app (for tests).
func (s *Server) App() *fiber.App {
	return s.app
}

// Feed returns the frame feed.
func (s *Server) Feed() *Feed {
	return s.feed
}

// Publish hands a JPEG frame to every viewer.
func (s *Server) Publish(frame []byte) {
	s.feed.Publish(frame)
	s.frames.BroadcastFrame(frame)
}

// Ingest reads MJPEG frames from r and publishes them until r ends or ctx is
// canceled. A clean end of stream returns nil.
func (s *Server) Ingest(ctx context.Context, r io.Reader) error {
	reader := mjpeg.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := reader.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		s.Publish(frame)
	}
}

// Listen serves on ln until Shutdown.
func (s *Server) Listen(ln net.Listener) error {
	s.logger.Info("viewer listening", "addr", ln.Addr().String(), "source", s.source)
	return s.app.Listener(ln)
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	fmt.Printf("🌐 Viewer: http://localhost%s\n", addr)
	return s.app.Listen(addr)
}

// Shutdown ends open streams and stops the server.
func (s *Server) Shutdown() error {
	s.feed.Close()
	s.cancel()
	return s.app.ShutdownWithTimeout(5 * time.Second)
}
