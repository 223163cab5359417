// Package dataset turns image folders into RecordIO training files with
// MXNet's im2rec tool.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/teslashibe/go-lens/internal/command"
	"github.com/teslashibe/go-lens/internal/log"
)

// Defaults for Im2Rec.
const (
	DefaultPython  = "python3"
	DefaultThreads = 8
)

// Step is what a job asks im2rec to do.
type Step string

const (
	// StepList writes a .lst index of the images under the root.
	StepList Step = "list"
	// StepPack packs the listed images into .rec/.idx files.
	StepPack Step = "pack"
)

// Job is one im2rec invocation.
type Job struct {
	Step   Step
	Prefix string // Output prefix; im2rec appends .lst, .rec, .idx
	Root   string // Image folder, one subfolder per class
}

// Name returns a short label for logs.
func (j Job) Name() string {
	return fmt.Sprintf("%s %s", j.Step, filepath.Base(j.Prefix))
}

// Jobs returns the four invocations that build train and validation records:
// both lists first, then both packs.
func Jobs(trainSrc, validationSrc, outDir string) []Job {
	train := filepath.Join(outDir, "train")
	validation := filepath.Join(outDir, "validation")
	return []Job{
		{Step: StepList, Prefix: train, Root: trainSrc},
		{Step: StepList, Prefix: validation, Root: validationSrc},
		{Step: StepPack, Prefix: train, Root: trainSrc},
		{Step: StepPack, Prefix: validation, Root: validationSrc},
	}
}

// Im2Rec runs tools/im2rec.py from an MXNet checkout.
type Im2Rec struct {
	Python  string
	Tool    string // Path to im2rec.py
	Threads int
	Runner  command.Runner
	Logger  *slog.Logger
}

// New returns an Im2Rec using the tool under mxnetHome.
func New(mxnetHome string) *Im2Rec {
	return &Im2Rec{
		Python:  DefaultPython,
		Tool:    ToolPath(mxnetHome),
		Threads: DefaultThreads,
		Runner:  command.Exec{},
		Logger:  log.Component("dataset"),
	}
}

// ToolPath returns the im2rec.py location inside an MXNet checkout.
func ToolPath(mxnetHome string) string {
	return filepath.Join(mxnetHome, "tools", "im2rec.py")
}

// Args returns the command line for job, excluding the interpreter.
func (m *Im2Rec) Args(job Job) []string {
	threads := m.Threads
	if threads <= 0 {
		threads = DefaultThreads
	}

	args := []string{m.Tool, job.Prefix, job.Root, "--recursive"}
	switch job.Step {
	case StepList:
		args = append(args, "--list")
	case StepPack:
		args = append(args, "--pass-through", "--pack-label")
	}
	return append(args, "--num-thread", strconv.Itoa(threads))
}

// Run executes every job in order, even after a failure, and returns the
// failures joined.
func (m *Im2Rec) Run(ctx context.Context, jobs []Job) error {
	python := m.Python
	if python == "" {
		python = DefaultPython
	}
	logger := m.Logger
	if logger == nil {
		logger = log.Component("dataset")
	}
	runner := m.Runner
	if runner == nil {
		runner = command.Exec{}
	}

	var errs []error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		start := time.Now()
		_, err := runner.Run(ctx, python, m.Args(job)...)
		if err != nil {
			logger.Error("im2rec failed", "job", job.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", job.Name(), err))
			continue
		}
		logger.Info("im2rec done", "job", job.Name(), "root", job.Root, "duration", time.Since(start).Round(time.Millisecond))
	}
	return errors.Join(errs...)
}
