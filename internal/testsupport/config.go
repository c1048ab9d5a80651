package testsupport

import (
	"testing"

	"manifold/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config rooted at a unique temp directory per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.DeviceID = "test-device"
	cfg.RecordingID = "test-recording"
	cfg.OutputRoot = t.TempDir()

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithQualityFlags overrides the enabled quality flag order.
func WithQualityFlags(names ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.QualityFlags.Enabled = names
	}
}

// WithoutOptionalSensors disables the gps, wifi, and bt exports.
func WithoutOptionalSensors() ConfigOption {
	return func(cfg *config.Config) {
		cfg.GPS.Export = false
		cfg.Wifi.Export = false
		cfg.BT.Export = false
	}
}
