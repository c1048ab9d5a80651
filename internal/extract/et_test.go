package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"manifold/internal/provider"
	"manifold/internal/record"
	"manifold/internal/testsupport"
)

func TestETExtractionSplitsEyes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	left := testsupport.GrayFrame(100, "247-1", 4, 4)
	right := testsupport.GrayFrame(150, "247-2", 4, 4)
	right.Image.GazeVector = [3]float64{0.1, 0.2, 0.9}
	right.Image.GazeValid = true
	src := &testsupport.Source{
		StreamInfos: []provider.StreamInfo{
			{ID: "247-1", Label: "camera-et-left", Kind: record.KindImage},
			{ID: "247-2", Label: "camera-et-right", Kind: record.KindImage},
		},
		Records: []record.Record{left, right},
	}
	env := newEnv(t, cfg, src)

	if err := Run(context.Background(), env, ETSpec()); err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := readLines(t, filepath.Join(cfg.OutputRoot, "sensors", "et.jsonl"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["eye"] != "left" || lines[1]["eye"] != "right" {
		t.Fatalf("eye attribution wrong: %v / %v", lines[0], lines[1])
	}
	if lines[0]["gaze_vector"] != nil {
		t.Fatalf("left frame has no gaze, got %v", lines[0]["gaze_vector"])
	}
	if lines[1]["gaze_vector"] == nil {
		t.Fatal("right frame gaze missing")
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputRoot, "et", "left", "frame_000000.jpg")); err != nil {
		t.Fatalf("left frame missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputRoot, "et", "right", "frame_000000.jpg")); err != nil {
		t.Fatalf("right frame missing: %v", err)
	}

	summary, _ := env.Tracker.ReadSummary(context.Background(), "extract_et")
	if len(summary.Artifacts) != 2 {
		t.Fatalf("expected per-eye artifacts, got %+v", summary.Artifacts)
	}
	if summary.Artifacts[0].Eye != "left" || summary.Artifacts[1].Eye != "right" {
		t.Fatalf("artifact eyes wrong: %+v", summary.Artifacts)
	}
}

func TestETMonoStreamFallsBackToLeftDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	src := &testsupport.Source{
		StreamInfos: []provider.StreamInfo{
			{ID: "247-1", Label: "camera-et", Kind: record.KindImage},
		},
		Records: []record.Record{testsupport.GrayFrame(100, "247-1", 4, 4)},
	}
	env := newEnv(t, cfg, src)

	if err := Run(context.Background(), env, ETSpec()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputRoot, "et", "left", "frame_000000.jpg")); err != nil {
		t.Fatalf("mono frame should land in the left dir: %v", err)
	}
	lines := readLines(t, filepath.Join(cfg.OutputRoot, "sensors", "et.jsonl"))
	if lines[0]["eye"] != "mono" {
		t.Fatalf("mono eye attribution wrong: %v", lines[0])
	}
}
