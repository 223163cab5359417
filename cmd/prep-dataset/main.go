// Prep Dataset - builds MXNet RecordIO files from image folders
//
// Lists and packs a train and a validation folder (one subfolder per class)
// with $MXNET_HOME/tools/im2rec.py, writing train.{lst,rec,idx} and
// validation.{lst,rec,idx} into the output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-lens/internal/config"
	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/dataset"
)

func main() {
	configPath := flag.String("config", os.Getenv("LENS_CONFIG"), "YAML config file")
	train := flag.String("train", "", "Training images folder")
	validation := flag.String("validation", "", "Validation images folder")
	out := flag.String("out", ".", "Output directory for .lst/.rec/.idx files")
	threads := flag.Int("threads", 0, "im2rec worker threads (overrides dataset.threads)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(2)
	}
	if *threads > 0 {
		cfg.Dataset.Threads = *threads
	}
	log.Init(cfg.LogLevel)

	if *train == "" || *validation == "" {
		fmt.Fprintln(os.Stderr, "❌ -train and -validation are required")
		flag.Usage()
		os.Exit(2)
	}
	if err := cfg.ValidateDataset(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(2)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	im2rec := dataset.New(cfg.Dataset.MXNetHome)
	im2rec.Python = cfg.Dataset.Python
	im2rec.Threads = cfg.Dataset.Threads

	fmt.Printf("📦 im2rec: %s\n", im2rec.Tool)
	if err := im2rec.Run(ctx, dataset.Jobs(*train, *validation, *out)); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Records written to", *out)
}
