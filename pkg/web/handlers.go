package web

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-lens/pkg/hub"
)

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>go-lens</title></head>
<body style="margin:0;background:#111">
<img src="/stream.mjpeg" style="width:100%;height:auto" alt="lens stream">
</body>
</html>
`

// Status is returned by /api/status.
type Status struct {
	Source      string    `json:"source"`
	Frames      uint64    `json:"frames"`
	LastFrame   time.Time `json:"last_frame,omitempty"`
	LastSize    int       `json:"last_frame_bytes"`
	Streams     int       `json:"streams"`
	WSClients   int       `json:"ws_clients"`
	WSDropped   uint64    `json:"ws_dropped"`
	UptimeSecs  int64     `json:"uptime_s"`
	HasSnapshot bool      `json:"has_snapshot"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString(indexHTML)
}

// handleStatus returns feed and client counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	latest := s.feed.Latest()
	hs := s.frames.Stats()

	return c.JSON(Status{
		Source:      s.source,
		Frames:      s.feed.Frames(),
		LastFrame:   s.feed.Updated(),
		LastSize:    len(latest),
		Streams:     s.feed.Subscribers(),
		WSClients:   hs.Clients,
		WSDropped:   hs.Dropped,
		UptimeSecs:  int64(time.Since(s.started).Seconds()),
		HasSnapshot: latest != nil,
	})
}

// handleSnapshot returns the latest frame as a JPEG
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	frame := s.feed.Latest()
	if frame == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no frame yet",
		})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(frame)
}

// handleStream serves multipart/x-mixed-replace until the client leaves
func (s *Server) handleStream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary="+Boundary)
	c.Set(fiber.HeaderCacheControl, "no-store")

	frames, cancel := s.feed.Subscribe()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for frame := range frames {
			fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", Boundary, len(frame))
			w.Write(frame)
			w.WriteString("\r\n")
			if err := w.Flush(); err != nil {
				// Client went away
				return
			}
		}
	})
	return nil
}

// handleFramesWS streams binary frames over the hub
func (s *Server) handleFramesWS(c *websocket.Conn) {
	client := hub.NewClient(s.frames, c)
	if client == nil {
		return
	}
	client.Run()
}
