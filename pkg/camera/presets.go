package camera

// Preset names for common capture configurations
const (
	PresetDefault = "default"
	PresetLegacy  = "legacy"
	Preset480p    = "480p"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
	Preset4MP     = "4mp"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetLegacy:  LegacyConfig(),
		Preset480p:    SD480Config(),
		Preset720p:    HD720Config(),
		Preset1080p:   HD1080Config(),
		Preset4MP:     FullSensorConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLegacy,
		Preset480p,
		Preset720p,
		Preset1080p,
		Preset4MP,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// LegacyConfig returns 640x480.
// Use this if the device rejects higher resolutions.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// SD480Config returns 858x480, the smallest project-stream size.
func SD480Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 858
	cfg.Height = 480
	return cfg
}

// HD720Config returns 720p HD configuration.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// FullSensorConfig returns the full 4 MP sensor.
// Needed when the crop region is larger than 1080 pixels.
func FullSensorConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = SensorMaxWidth
	cfg.Height = SensorMaxHeight
	cfg.Framerate = 15
	return cfg
}
