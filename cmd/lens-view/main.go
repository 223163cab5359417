// Lens View - browser viewer for the lambda's annotated frames
//
// Reads the MJPEG stream the lambda writes into its FIFO and serves it at
// /stream.mjpeg, /snapshot.jpg and /ws/frames. The FIFO is reopened whenever
// the lambda restarts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-lens/internal/config"
	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/debug"
	"github.com/teslashibe/go-lens/pkg/framesink"
	"github.com/teslashibe/go-lens/pkg/web"
)

func main() {
	configPath := flag.String("config", os.Getenv("LENS_CONFIG"), "YAML config file")
	fifoPath := flag.String("fifo", "", "FIFO to read (overrides display.fifo_path)")
	listen := flag.String("listen", "", "HTTP listen address (overrides viewer.listen)")
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(2)
	}
	if *fifoPath != "" {
		cfg.Display.FIFOPath = *fifoPath
	}
	if *listen != "" {
		cfg.Viewer.Listen = *listen
	}
	debug.Enabled = *debugFlag
	if debug.Enabled {
		cfg.LogLevel = "debug"
	}
	log.Init(cfg.LogLevel)

	fmt.Println("📺 go-lens viewer")
	fmt.Println("=================")
	fmt.Printf("FIFO: %s\n", cfg.Display.FIFOPath)

	fifo := framesink.NewFIFO(cfg.Display.FIFOPath)
	if err := fifo.Ensure(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := web.NewServer(cfg.Display.FIFOPath)
	go ingest(ctx, server, cfg.Display.FIFOPath)

	go func() {
		<-ctx.Done()
		fmt.Println("\n👋 Goodbye!")
		server.Shutdown()
	}()

	if err := server.Start(cfg.Viewer.Listen); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Server error: %v\n", err)
		os.Exit(1)
	}
}

// ingest reads the FIFO until ctx is done, reopening it each time the
// writer goes away.
func ingest(ctx context.Context, server *web.Server, path string) {
	logger := log.Component("lens-view")

	for ctx.Err() == nil {
		// Blocks until the lambda opens its end
		f, err := os.Open(path)
		if err != nil {
			logger.Error("open fifo failed", "path", path, "error", err)
			time.Sleep(time.Second)
			continue
		}
		logger.Info("producer attached", "path", path)

		stop := context.AfterFunc(ctx, func() { f.Close() })
		err = server.Ingest(ctx, f)
		stop()
		f.Close()

		switch {
		case err == nil:
			logger.Info("producer detached, waiting for a new one")
		case errors.Is(err, context.Canceled):
			return
		default:
			logger.Warn("frame stream broken", "error", err)
			time.Sleep(100 * time.Millisecond)
		}
	}
}
