package layout

import (
	"path/filepath"
	"testing"

	"manifold/internal/config"
)

func testConfig(root string) *config.Config {
	cfg := config.Default()
	cfg.DeviceID = "dev"
	cfg.RecordingID = "rec"
	cfg.OutputRoot = root
	return &cfg
}

func TestFromConfigLocal(t *testing.T) {
	l := FromConfig(testConfig("/data/out/"))
	if l.Root != "/data/out" {
		t.Fatalf("root = %q, trailing separator not trimmed", l.Root)
	}
	if want := filepath.Join("/data/out", "sensors"); l.SensorsDir != want {
		t.Fatalf("sensors dir = %q, want %q", l.SensorsDir, want)
	}
	if want := filepath.Join("/data/out", "rgb", "frames"); l.RGBDir != want {
		t.Fatalf("rgb dir = %q, want %q", l.RGBDir, want)
	}
	if _, err := l.LocalRoot(); err != nil {
		t.Fatalf("local root rejected: %v", err)
	}
}

func TestFromConfigRemote(t *testing.T) {
	l := FromConfig(testConfig("s3://bucket/extracts/rec-1/"))
	if l.SensorsDir != "s3://bucket/extracts/rec-1/sensors" {
		t.Fatalf("sensors dir = %q", l.SensorsDir)
	}
	if l.SensorFile("rgb.jsonl") != "s3://bucket/extracts/rec-1/sensors/rgb.jsonl" {
		t.Fatalf("sensor file = %q", l.SensorFile("rgb.jsonl"))
	}
	if _, err := l.LocalRoot(); err == nil {
		t.Fatal("remote layout must reject LocalRoot")
	}
}

func TestFromConfigIsStable(t *testing.T) {
	cfg := testConfig("/data/out")
	if FromConfig(cfg) != FromConfig(cfg) {
		t.Fatal("layout derivation must be deterministic")
	}
}
