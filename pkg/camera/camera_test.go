package camera

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("DefaultConfig should be valid, got %v", errs)
	}
}

func TestPresets_AllValid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %q listed but not found", name)
		}
		if errs := cfg.Validate(); len(errs) != 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}

	if GetPreset("8k") != nil {
		t.Error("Expected nil for unknown preset")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"device defaults", func(c *Config) { c.Width, c.Height, c.Framerate = 0, 0, 0 }, false},
		{"still only", func(c *Config) { c.Device, c.Still = "", "scene.jpg" }, false},
		{"no device", func(c *Config) { c.Device = "" }, true},
		{"width too small", func(c *Config) { c.Width = 100 }, true},
		{"height too large", func(c *Config) { c.Height = 4000 }, true},
		{"negative fps", func(c *Config) { c.Framerate = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			errs := cfg.Validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestConfig_DeviceArg(t *testing.T) {
	cfg := Config{Device: "2"}
	if id, ok := cfg.deviceArg().(int); !ok || id != 2 {
		t.Errorf("Expected int device 2, got %#v", cfg.deviceArg())
	}

	cfg.Device = "rtsp://10.0.0.5/stream"
	if s, ok := cfg.deviceArg().(string); !ok || s != cfg.Device {
		t.Errorf("Expected URL passthrough, got %#v", cfg.deviceArg())
	}
}

func TestStatic_Limit(t *testing.T) {
	src := NewStatic(gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 255, 0), 48, 64, gocv.MatTypeCV8UC3))
	src.Limit = 2
	defer src.Close()

	for i := 0; i < 2; i++ {
		frame, err := src.NextFrame()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if frame.Cols() != 64 || frame.Rows() != 48 {
			t.Errorf("frame %d: got %dx%d", i, frame.Cols(), frame.Rows())
		}
		frame.Close()
	}

	_, err := src.NextFrame()
	var capErr *CaptureError
	if !errors.As(err, &capErr) {
		t.Fatalf("Expected CaptureError, got %v", err)
	}
	if !errors.Is(err, ErrNoFrame) {
		t.Errorf("Expected ErrNoFrame, got %v", err)
	}
	if src.Served() != 2 {
		t.Errorf("Expected 2 frames served, got %d", src.Served())
	}
}

func TestStatic_Closed(t *testing.T) {
	src := NewStatic(gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3))
	src.Close()

	if _, err := src.NextFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	// Second close is a no-op
	if err := src.Close(); err != nil {
		t.Errorf("Close twice: %v", err)
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Expected error for empty config")
	}
}
