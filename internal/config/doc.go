// Package config loads and validates the YAML pipeline configuration.
//
// A configuration document names the capture session (device, recording,
// output root), toggles per-sensor extraction, overrides the output
// directory layout, seeds partition keys and quality flags, and tunes
// logging. Load overlays the document on top of Default so absent keys keep
// their repository defaults; Validate rejects unusable values before any
// output I/O happens.
package config
