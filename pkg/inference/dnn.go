package inference

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/teslashibe/go-lens/pkg/debug"
	"gocv.io/x/gocv"
)

// DeviceOptions selects where the network runs.
type DeviceOptions struct {
	GPU  bool // Use the OpenVINO backend on the integrated GPU
	FP16 bool // Half-precision target (requires an FP16 artifact)
}

// String returns a short device name for logs.
func (d DeviceOptions) String() string {
	switch {
	case d.GPU && d.FP16:
		return "gpu-fp16"
	case d.GPU:
		return "gpu"
	default:
		return "cpu"
	}
}

// DNNModel is a network loaded through OpenCV's dnn module.
type DNNModel struct {
	net    gocv.Net
	path   string
	device DeviceOptions
	config *Config
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// LoadModel reads a network from path. ONNX, TensorFlow and Caffe models are
// read from a single file; OpenVINO IR (.xml) and Caffe (.prototxt) pick up
// their weights file next to the definition.
func LoadModel(path string, device DeviceOptions, opts ...Option) (*DNNModel, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
	}

	model, config := artifactPair(path)
	net := gocv.ReadNet(model, config)
	if net.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, path)
	}

	if device.GPU {
		net.SetPreferableBackend(gocv.NetBackendOpenVINO)
		if device.FP16 {
			net.SetPreferableTarget(gocv.NetTargetFP16)
		} else {
			net.SetPreferableTarget(gocv.NetTargetFP32)
		}
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}

	cfg.Logger.Info("model loaded",
		"path", path,
		"device", device.String(),
		"input", fmt.Sprintf("%dx%d", cfg.InputSize.X, cfg.InputSize.Y),
	)

	return &DNNModel{
		net:    net,
		path:   path,
		device: device,
		config: cfg,
		logger: cfg.Logger,
	}, nil
}

// artifactPair maps a definition file to the (model, config) arguments
// ReadNet expects.
func artifactPair(path string) (model, config string) {
	ext := strings.ToLower(filepath.Ext(path))
	base := strings.TrimSuffix(path, filepath.Ext(path))

	switch ext {
	case ".xml":
		return base + ".bin", path
	case ".prototxt":
		return base + ".caffemodel", path
	default:
		return path, ""
	}
}

// Path returns the model file.
func (m *DNNModel) Path() string {
	return m.path
}

// Device returns the device options the model was loaded with.
func (m *DNNModel) Device() DeviceOptions {
	return m.device
}

// Infer runs a forward pass on input.
func (m *DNNModel) Infer(input gocv.Mat) (Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if input.Empty() {
		return nil, ErrEmptyInput
	}

	blob := gocv.BlobFromImage(input, m.config.Scale, m.config.InputSize, m.config.Mean, m.config.SwapRB, false)
	defer blob.Close()

	m.net.SetInput(blob, "")

	output := m.net.Forward("")
	defer output.Close()

	if output.Empty() {
		return nil, WrapError(m.path, ErrEmptyOutput)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, WrapError(m.path, err)
	}

	// data aliases the Mat; copy before it is closed
	out := make(Output, len(data))
	copy(out, data)

	if m.config.Softmax {
		out = Softmax(out)
	}

	debug.FrameLog("inference done", "model", m.path, "scores", len(out))
	return out, nil
}

// Close releases the network.
func (m *DNNModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.net.Close()
}

// Verify DNNModel implements Model at compile time.
var _ Model = (*DNNModel)(nil)
