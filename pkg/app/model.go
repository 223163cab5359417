package app

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-lens/internal/config"
	"github.com/teslashibe/go-lens/pkg/inference"
)

// LoadModel resolves, optionally optimizes, and loads the configured model.
// With gpu set the accelerator is tried first and the CPU kept as fallback.
// Frames reach the model already in the channel order it expects.
func LoadModel(ctx context.Context, mc config.ModelConfig) (inference.Model, error) {
	path, err := inference.Resolve(ctx, mc.Path, mc.CacheDir)
	if err != nil {
		return nil, err
	}

	input := image.Pt(mc.InputWidth, mc.InputHeight)

	if mc.Optimize {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		opt := inference.NewOptimizer(filepath.Join(mc.CacheDir, "ir"))
		if path, err = opt.Optimize(ctx, path, name, input); err != nil {
			return nil, err
		}
	}

	opts := []inference.Option{
		inference.WithInputSize(input.X, input.Y),
		inference.WithSoftmax(mc.Softmax),
	}

	cpu := inference.DeviceOptions{}
	if !mc.GPU {
		return inference.LoadModel(path, cpu, opts...)
	}

	var models []inference.Model
	gpu, err := inference.LoadModel(path, inference.DeviceOptions{GPU: true, FP16: mc.FP16}, opts...)
	if err != nil {
		fmt.Printf("⚠️  GPU load failed, using CPU: %v\n", err)
	} else {
		models = append(models, gpu)
	}

	fallback, err := inference.LoadModel(path, cpu, opts...)
	if err != nil {
		if len(models) == 0 {
			return nil, err
		}
	} else {
		models = append(models, fallback)
	}
	return inference.NewChain(models...)
}
