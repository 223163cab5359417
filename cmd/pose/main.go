// Pose - top-K classifier over a centered detection region
//
// Crops the centered square region of every frame, classifies it against a
// label map (yoga poses, caltech256), shows the top label or a "Take your
// pose" prompt, and publishes label -> probability for the top k.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/teslashibe/go-lens/internal/config"
	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/app"
	"github.com/teslashibe/go-lens/pkg/camera"
	"github.com/teslashibe/go-lens/pkg/debug"
)

func main() {
	cfg := parseFlags()

	lambda, err := app.New(cfg, app.KindTopK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(2)
	}
	defer lambda.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := lambda.Init(ctx); err != nil {
		log.Error("initialization failed", "error", err)
		fmt.Fprintf(os.Stderr, "❌ Initialization failed: %v\n", err)
		lambda.Shutdown()
		os.Exit(1)
	}

	if err := lambda.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Runtime error: %v\n", err)
		lambda.Shutdown()
		os.Exit(1)
	}
	fmt.Println("\n👋 Goodbye!")
}

// parseFlags loads the config file and applies command line overrides.
func parseFlags() *config.Config {
	configPath := flag.String("config", os.Getenv("LENS_CONFIG"), "YAML config file")
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	debugFrames := flag.Bool("debug-frames", false, "Log every frame (very verbose)")
	modelPath := flag.String("model", "", "Model file or URL (overrides model.path)")
	resolution := flag.String("resolution", "", "Display resolution: 480p, 720p, 1080p")
	transport := flag.String("transport", "", "Publisher: mqtt, pubsub, log")
	still := flag.String("still", "", "Serve this image instead of the camera")
	preset := flag.String("camera-preset", "", "Capture preset: "+strings.Join(camera.PresetNames(), ", "))
	labels := flag.String("labels", "", "Label file, one class per line (overrides model.labels)")
	topK := flag.Int("top-k", 0, "Number of classes published (overrides model.top_k)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(2)
	}

	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}
	if *resolution != "" {
		cfg.Display.Resolution = *resolution
	}
	if *transport != "" {
		cfg.Messaging.Transport = *transport
	}
	if *still != "" {
		cfg.Camera.Still = *still
	}
	if *preset != "" {
		if err := cfg.ApplyCameraPreset(*preset); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(2)
		}
	}
	if *labels != "" {
		cfg.Model.Labels = *labels
	}
	if *topK > 0 {
		cfg.Model.TopK = *topK
	}

	debug.Enabled, debug.Frames = *debugFlag, *debugFrames
	if debug.Enabled {
		cfg.LogLevel = "debug"
	}
	log.Init(cfg.LogLevel)
	return cfg
}
