// Package layout maps pipeline configuration to deterministic output
// locations. The mapping is pure: no side effects, safe to recompute.
package layout

import (
	"errors"
	"strings"

	"manifold/internal/config"
	"manifold/internal/fsio"
)

// OutputLayout holds every output location one recording's pipeline writes.
type OutputLayout struct {
	Root        string
	SensorsDir  string
	RGBDir      string
	ETLeftDir   string
	ETRightDir  string
	AudioDir    string
	ManifestDir string
}

// FromConfig derives the layout from the configured output root and path
// overrides. A trailing separator on the root is trimmed so joins stay
// stable across local paths and object-store URIs.
func FromConfig(cfg *config.Config) OutputLayout {
	root := strings.TrimRight(cfg.OutputRoot, "/")
	return OutputLayout{
		Root:        root,
		SensorsDir:  fsio.Join(root, cfg.Paths.SensorsDir),
		RGBDir:      fsio.Join(root, cfg.Paths.RGBFrames),
		ETLeftDir:   fsio.Join(root, cfg.Paths.ETLeft),
		ETRightDir:  fsio.Join(root, cfg.Paths.ETRight),
		AudioDir:    fsio.Join(root, cfg.Paths.AudioChunks),
		ManifestDir: fsio.Join(root, cfg.Paths.ManifestDir),
	}
}

// SensorFile returns the location of one per-sensor JSONL file.
func (l OutputLayout) SensorFile(filename string) string {
	return fsio.Join(l.SensorsDir, filename)
}

// ManifestFile returns the location of one manifest document.
func (l OutputLayout) ManifestFile(filename string) string {
	return fsio.Join(l.ManifestDir, filename)
}

// LocalRoot returns the root as a local path, failing for remote layouts.
// The run lock can only guard local roots.
func (l OutputLayout) LocalRoot() (string, error) {
	if fsio.IsRemote(l.Root) {
		return "", errors.New("local root requested for remote output layout")
	}
	return l.Root, nil
}
