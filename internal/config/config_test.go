package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	cfg := Default()
	cfg.ThingName = "deeplens_test"
	cfg.Model.Path = "models/squeezenet.onnx"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Display.Resolution != "480p" {
		t.Errorf("Resolution = %q, want 480p", cfg.Display.Resolution)
	}
	if cfg.Display.FIFOPath != "/tmp/results.mjpeg" {
		t.Errorf("FIFOPath = %q", cfg.Display.FIFOPath)
	}
	if cfg.Messaging.Transport != TransportMQTT || cfg.Messaging.Encoding != "json" {
		t.Errorf("Messaging = %+v", cfg.Messaging)
	}
	if cfg.Dataset.Threads != 8 {
		t.Errorf("Dataset.Threads = %d, want 8", cfg.Dataset.Threads)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lens.yaml")
	data := `
thing_name: deeplens_abc
display:
  resolution: 1080p
model:
  path: https://example.com/pose.onnx
  labels: labels.txt
  gpu: true
  top_k: 5
messaging:
  transport: pubsub
  encoding: msgpack
  pubsub:
    project: lens
    topic: inference
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AWS_IOT_THING_NAME", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ThingName != "deeplens_abc" || cfg.Display.Resolution != "1080p" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.Model.GPU || cfg.Model.TopK != 5 {
		t.Errorf("Model = %+v", cfg.Model)
	}
	// Unset keys keep their defaults
	if cfg.Display.FIFOPath != "/tmp/results.mjpeg" || cfg.Model.InputWidth != 224 {
		t.Errorf("defaults lost: %+v %+v", cfg.Display, cfg.Model)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if cfg.Topic() != "$aws/things/deeplens_abc/infer" {
		t.Errorf("Topic() = %q", cfg.Topic())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("display: [unclosed"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AWS_IOT_THING_NAME", "deeplens_env")
	t.Setenv("LENS_MQTT_ENDPOINT", "a1b2c3-ats.iot.us-east-1.amazonaws.com:8883")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MXNET_HOME", "/opt/mxnet")
	t.Setenv("LENS_MODEL_GPU", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ThingName != "deeplens_env" {
		t.Errorf("ThingName = %q", cfg.ThingName)
	}
	if cfg.Messaging.MQTT.Endpoint != "a1b2c3-ats.iot.us-east-1.amazonaws.com:8883" {
		t.Errorf("Endpoint = %q", cfg.Messaging.MQTT.Endpoint)
	}
	if cfg.LogLevel != "debug" || cfg.Dataset.MXNetHome != "/opt/mxnet" || !cfg.Model.GPU {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no thing", func(c *Config) { c.ThingName = "" }, "ThingName"},
		{"bad resolution", func(c *Config) { c.Display.Resolution = "4k" }, "Display.Resolution"},
		{"bad quality", func(c *Config) { c.Display.Quality = 0 }, "Display.Quality"},
		{"no model", func(c *Config) { c.Model.Path = "" }, "Model.Path"},
		{"fp16 without gpu", func(c *Config) { c.Model.FP16 = true }, "Model.FP16"},
		{"bad encoding", func(c *Config) { c.Messaging.Encoding = "xml" }, "Messaging.Encoding"},
		{"bad transport", func(c *Config) { c.Messaging.Transport = "kafka" }, "Messaging.Transport"},
		{"cert without key", func(c *Config) { c.Messaging.MQTT.CertFile = "cert.pem" }, "Messaging.MQTT"},
		{"pubsub without topic", func(c *Config) { c.Messaging.Transport = TransportPubSub }, "Messaging.PubSub"},
		{"log transport", func(c *Config) { c.Messaging.Transport = TransportLog }, ""},
		{"bad camera", func(c *Config) { c.Camera.Device = "" }, "Camera"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
			if !IsConfigError(err) {
				t.Error("IsConfigError = false")
			}
		})
	}
}

func TestValidateDataset(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateDataset(); err != nil {
		t.Errorf("ValidateDataset() = %v", err)
	}
	cfg.Dataset.MXNetHome = ""
	if err := cfg.ValidateDataset(); !IsConfigError(err) {
		t.Errorf("ValidateDataset() = %v, want *ConfigError", err)
	}
}

func TestApplyCameraPreset(t *testing.T) {
	cfg := validConfig()
	cfg.Camera.Device = "rtsp://camera.local/stream"

	if err := cfg.ApplyCameraPreset("4mp"); err != nil {
		t.Fatalf("ApplyCameraPreset: %v", err)
	}
	if cfg.Camera.Width != 2688 || cfg.Camera.Height != 1520 || cfg.Camera.Framerate != 15 {
		t.Errorf("Camera = %+v, want the full sensor", cfg.Camera)
	}
	if cfg.Camera.Device != "rtsp://camera.local/stream" {
		t.Errorf("Device = %q, preset must keep it", cfg.Camera.Device)
	}

	if err := cfg.ApplyCameraPreset("8k"); !IsConfigError(err) {
		t.Errorf("unknown preset: err = %v, want *ConfigError", err)
	}
}
