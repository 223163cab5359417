// Package config loads go-lens configuration: a YAML file, environment
// overrides, then command flags applied by each main.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-lens/pkg/camera"
	"github.com/teslashibe/go-lens/pkg/framesink"
	"github.com/teslashibe/go-lens/pkg/iot"
)

// Transports accepted in messaging.transport.
const (
	TransportMQTT   = "mqtt"
	TransportPubSub = "pubsub"
	TransportLog    = "log"
)

// Config is the complete go-lens configuration.
type Config struct {
	ThingName string `yaml:"thing_name"` // AWS IoT thing; names the inference topic
	LogLevel  string `yaml:"log_level"`

	Camera    camera.Config   `yaml:"camera"`
	Display   DisplayConfig   `yaml:"display"`
	Model     ModelConfig     `yaml:"model"`
	Messaging MessagingConfig `yaml:"messaging"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Dataset   DatasetConfig   `yaml:"dataset"`
}

// DisplayConfig configures the frame sink.
type DisplayConfig struct {
	Resolution string `yaml:"resolution"` // 480p, 720p, 1080p
	FIFOPath   string `yaml:"fifo_path"`
	Quality    int    `yaml:"jpeg_quality"`
}

// ModelConfig configures the classification model.
type ModelConfig struct {
	Path     string `yaml:"path"`      // Local file or http(s) URL
	Labels   string `yaml:"labels"`    // One label per line (top-K lambdas)
	CacheDir string `yaml:"cache_dir"` // Downloads and optimized artifacts

	GPU      bool `yaml:"gpu"`
	FP16     bool `yaml:"fp16"`
	Optimize bool `yaml:"optimize"` // Run the model optimizer before loading

	InputWidth  int  `yaml:"input_width"`
	InputHeight int  `yaml:"input_height"`
	TopK        int  `yaml:"top_k"`
	Region      int  `yaml:"region"` // Centered crop side; 0 keeps the profile default
	Softmax     bool `yaml:"softmax"`
}

// MessagingConfig selects and configures the publisher.
type MessagingConfig struct {
	Transport string `yaml:"transport"` // mqtt, pubsub, log
	Encoding  string `yaml:"encoding"`  // json, msgpack

	MQTT   MQTTConfig   `yaml:"mqtt"`
	PubSub PubSubConfig `yaml:"pubsub"`
}

// MQTTConfig holds broker settings.
type MQTTConfig struct {
	Endpoint string `yaml:"endpoint"` // host:port
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
}

// PubSubConfig holds Google Cloud Pub/Sub settings.
type PubSubConfig struct {
	Project  string `yaml:"project"`
	Topic    string `yaml:"topic"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// ViewerConfig configures cmd/lens-view.
type ViewerConfig struct {
	Listen string `yaml:"listen"`
}

// DatasetConfig configures cmd/prep-dataset.
type DatasetConfig struct {
	MXNetHome string `yaml:"mxnet_home"`
	Python    string `yaml:"python"`
	Threads   int    `yaml:"threads"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	home, _ := os.UserHomeDir()

	return Config{
		LogLevel: "info",
		Camera:   camera.DefaultConfig(),
		Display: DisplayConfig{
			Resolution: framesink.Resolution480p,
			FIFOPath:   framesink.DefaultFIFOPath,
			Quality:    framesink.DefaultQuality,
		},
		Model: ModelConfig{
			CacheDir:    filepath.Join(os.TempDir(), "lens-models"),
			InputWidth:  224,
			InputHeight: 224,
		},
		Messaging: MessagingConfig{
			Transport: TransportMQTT,
			Encoding:  iot.EncodingJSON,
			MQTT:      MQTTConfig{Endpoint: "localhost:1883"},
		},
		Viewer: ViewerConfig{Listen: ":8080"},
		Dataset: DatasetConfig{
			MXNetHome: filepath.Join(home, "incubator-mxnet"),
			Python:    "python3",
			Threads:   8,
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path yields the defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.LoadEnvConfig()
	return &cfg, nil
}

// LoadEnvConfig applies environment overrides.
func (c *Config) LoadEnvConfig() {
	if v := os.Getenv("AWS_IOT_THING_NAME"); v != "" {
		c.ThingName = v
	}
	if v := os.Getenv("LENS_MQTT_ENDPOINT"); v != "" {
		c.Messaging.MQTT.Endpoint = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MXNET_HOME"); v != "" {
		c.Dataset.MXNetHome = v
	}
	if v := os.Getenv("LENS_MODEL_GPU"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Model.GPU = b
		}
	}
}

// ApplyCameraPreset replaces the capture size and framerate with a named
// preset, keeping the configured device and still image.
func (c *Config) ApplyCameraPreset(name string) error {
	preset := camera.GetPreset(name)
	if preset == nil {
		return &ConfigError{
			Field:   "Camera.Preset",
			Message: fmt.Sprintf("unknown camera preset %q (%s)", name, strings.Join(camera.PresetNames(), ", ")),
		}
	}
	preset.Device, preset.Still = c.Camera.Device, c.Camera.Still
	c.Camera = *preset
	return nil
}

// Topic returns the inference topic for the configured thing.
func (c *Config) Topic() string {
	return iot.Topic(c.ThingName)
}

// Validate checks the settings an inference lambda needs.
func (c *Config) Validate() error {
	if c.ThingName == "" {
		return &ConfigError{Field: "ThingName", Message: "AWS_IOT_THING_NAME environment variable or thing_name is required"}
	}
	if _, err := framesink.LookupResolution(c.Display.Resolution); err != nil {
		return &ConfigError{Field: "Display.Resolution", Message: err.Error()}
	}
	if c.Display.Quality < 1 || c.Display.Quality > 100 {
		return &ConfigError{Field: "Display.Quality", Message: fmt.Sprintf("jpeg_quality must be 1-100, got %d", c.Display.Quality)}
	}
	if errs := c.Camera.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "Camera", Message: "camera: " + strings.Join(errs, "; ")}
	}
	if c.Model.Path == "" {
		return &ConfigError{Field: "Model.Path", Message: "model path is required"}
	}
	if c.Model.InputWidth <= 0 || c.Model.InputHeight <= 0 {
		return &ConfigError{Field: "Model.Input", Message: "model input size must be positive"}
	}
	if c.Model.FP16 && !c.Model.GPU {
		return &ConfigError{Field: "Model.FP16", Message: "fp16 requires gpu"}
	}
	if _, err := iot.NewEncoder(c.Messaging.Encoding); err != nil {
		return &ConfigError{Field: "Messaging.Encoding", Message: err.Error()}
	}

	switch c.Messaging.Transport {
	case TransportMQTT:
		m := c.Messaging.MQTT
		if m.Endpoint == "" {
			return &ConfigError{Field: "Messaging.MQTT.Endpoint", Message: "mqtt endpoint is required"}
		}
		if (m.CertFile == "") != (m.KeyFile == "") {
			return &ConfigError{Field: "Messaging.MQTT", Message: "cert_file and key_file go together"}
		}
	case TransportPubSub:
		if c.Messaging.PubSub.Project == "" || c.Messaging.PubSub.Topic == "" {
			return &ConfigError{Field: "Messaging.PubSub", Message: "pubsub project and topic are required"}
		}
	case TransportLog:
	default:
		return &ConfigError{Field: "Messaging.Transport", Message: fmt.Sprintf("unknown transport %q (mqtt, pubsub, log)", c.Messaging.Transport)}
	}
	return nil
}

// ValidateDataset checks the settings cmd/prep-dataset needs.
func (c *Config) ValidateDataset() error {
	if c.Dataset.MXNetHome == "" {
		return &ConfigError{Field: "Dataset.MXNetHome", Message: "MXNET_HOME environment variable or dataset.mxnet_home is required"}
	}
	if c.Dataset.Threads <= 0 {
		return &ConfigError{Field: "Dataset.Threads", Message: "threads must be positive"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// IsConfigError reports whether err is a *ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
