package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := validateDownscale("rgb.downscale", c.RGB.Downscale); err != nil {
		return err
	}
	if err := validateDownscale("et.downscale", c.ET.Downscale); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateQualityFlags(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSession() error {
	if strings.TrimSpace(c.DeviceID) == "" {
		return errors.New("device_id must be set")
	}
	if strings.TrimSpace(c.RecordingID) == "" {
		return errors.New("recording_id must be set")
	}
	if strings.TrimSpace(c.OutputRoot) == "" {
		return errors.New("output_root must be set")
	}
	return nil
}

func (c *Config) validateAudio() error {
	switch c.Audio.ChunkSamples {
	case 2048, 4096:
		return nil
	default:
		return fmt.Errorf("audio.chunk_samples must be either 2048 or 4096, got %d", c.Audio.ChunkSamples)
	}
}

func (c *Config) validateQualityFlags() error {
	seen := make(map[string]struct{}, len(c.QualityFlags.Enabled))
	for _, name := range c.QualityFlags.Enabled {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return errors.New("quality_flags.enabled must not contain empty names")
		}
		if _, dup := seen[trimmed]; dup {
			return fmt.Errorf("quality_flags.enabled contains duplicate flag %q", trimmed)
		}
		seen[trimmed] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func validateDownscale(field string, pair []int) error {
	if pair == nil {
		return nil
	}
	if len(pair) != 2 {
		return fmt.Errorf("%s must be a pair of two integers or null", field)
	}
	if pair[0] <= 0 || pair[1] <= 0 {
		return fmt.Errorf("%s dimensions must be positive, got %dx%d", field, pair[0], pair[1])
	}
	return nil
}
