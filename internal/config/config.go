package config

import (
	_ "embed"
	"os"

	"gopkg.in/yaml.v3"

	"manifold/internal/services"
)

//go:embed sample_config.yaml
var sampleConfig string

// StreamToggle enables or disables extraction for one sensor category.
type StreamToggle struct {
	Export bool `yaml:"export"`
}

// RGB configures image frame extraction.
type RGB struct {
	Export    bool  `yaml:"export"`
	Downscale []int `yaml:"downscale"` // optional [width, height]
}

// ET configures eye-tracking frame extraction.
type ET struct {
	Export    bool  `yaml:"export"`
	Left      bool  `yaml:"left"`
	Right     bool  `yaml:"right"`
	Downscale []int `yaml:"downscale"`
}

// Audio configures microphone chunk extraction.
type Audio struct {
	Export       bool `yaml:"export"`
	ChunkSamples int  `yaml:"chunk_samples"`
}

// Paths overrides the output directory layout relative to the output root.
type Paths struct {
	RGBFrames   string `yaml:"rgb_frames"`
	ETLeft      string `yaml:"et_left"`
	ETRight     string `yaml:"et_right"`
	AudioChunks string `yaml:"audio_chunks"`
	SensorsDir  string `yaml:"sensors_dir"`
	ManifestDir string `yaml:"manifest_dir"`
}

// PartitionKeys seeds the manifest partition block. A dt of "auto" derives
// the date from the earliest extracted timestamp.
type PartitionKeys struct {
	DT          string `yaml:"dt"`
	DeviceID    string `yaml:"device_id"`
	RecordingID string `yaml:"recording_id"`
}

// QualityFlags lists the enabled flag names in evaluation order.
type QualityFlags struct {
	Enabled []string `yaml:"enabled"`
}

// Logging tunes log output.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// Config is the root pipeline configuration.
type Config struct {
	DeviceID    string `yaml:"device_id"`
	RecordingID string `yaml:"recording_id"`
	OutputRoot  string `yaml:"output_root"`

	RGB   RGB          `yaml:"rgb"`
	ET    ET           `yaml:"et"`
	Audio Audio        `yaml:"audio"`
	IMU   StreamToggle `yaml:"imu"`
	GPS   StreamToggle `yaml:"gps"`
	Wifi  StreamToggle `yaml:"wifi"`
	BT    StreamToggle `yaml:"bt"`

	Paths         Paths         `yaml:"paths"`
	PartitionKeys PartitionKeys `yaml:"partition_keys"`
	QualityFlags  QualityFlags  `yaml:"quality_flags"`
	Logging       Logging       `yaml:"logging"`
}

// Load reads the YAML document at path, overlays it on Default, and
// validates the result. All failures carry the configuration error class
// so they classify as ExitConfiguration at the process boundary.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, services.Wrap(services.ErrConfiguration, "", "read config", path, err)
	}
	return Parse(raw)
}

// Parse overlays a YAML document on Default and validates the result.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, services.Wrap(services.ErrConfiguration, "", "parse config", "", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, services.Wrap(services.ErrConfiguration, "", "validate config", "", err)
	}
	return cfg, nil
}

// Sample returns the embedded sample configuration document.
func Sample() string {
	return sampleConfig
}
