package inference

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/teslashibe/go-lens/internal/command"
	"github.com/teslashibe/go-lens/internal/log"
)

// Optimizer converts a trained model into an OpenVINO IR artifact with the
// model-optimizer command line tool.
type Optimizer struct {
	Command   string // Defaults to "mo"
	OutputDir string // Where <name>.xml/.bin are written
	DataType  string // Defaults to "FP16"
	Runner    command.Runner
	Logger    *slog.Logger
}

// NewOptimizer returns an optimizer writing into outputDir.
func NewOptimizer(outputDir string) *Optimizer {
	return &Optimizer{
		Command:   "mo",
		OutputDir: outputDir,
		DataType:  "FP16",
		Runner:    command.Exec{},
		Logger:    log.Component("inference.optimizer"),
	}
}

// Artifact returns the IR path produced for name.
func (o *Optimizer) Artifact(name string) string {
	return filepath.Join(o.OutputDir, name+".xml")
}

// Optimize produces the IR for modelPath at the given input size and returns
// its path. Nothing is run when the artifact already exists.
func (o *Optimizer) Optimize(ctx context.Context, modelPath, name string, input image.Point) (string, error) {
	artifact := o.Artifact(name)
	if _, err := os.Stat(artifact); err == nil {
		o.logger().Info("optimized model present", "artifact", artifact)
		return artifact, nil
	}

	if err := os.MkdirAll(o.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	cmd := o.Command
	if cmd == "" {
		cmd = "mo"
	}
	dataType := o.DataType
	if dataType == "" {
		dataType = "FP16"
	}
	runner := o.Runner
	if runner == nil {
		runner = command.Exec{}
	}

	args := []string{
		"--input_model", modelPath,
		"--input_shape", fmt.Sprintf("[1,3,%d,%d]", input.Y, input.X),
		"--data_type", dataType,
		"--output_dir", o.OutputDir,
		"--model_name", name,
	}

	o.logger().Info("optimizing model", "model", modelPath, "artifact", artifact)
	if _, err := runner.Run(ctx, cmd, args...); err != nil {
		return "", fmt.Errorf("optimize %s: %w", modelPath, err)
	}

	if _, err := os.Stat(artifact); err != nil {
		return "", fmt.Errorf("optimize %s: %w: %s", modelPath, ErrModelNotFound, artifact)
	}
	return artifact, nil
}

func (o *Optimizer) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Component("inference.optimizer")
}
