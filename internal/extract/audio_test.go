package extract

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"manifold/internal/provider"
	"manifold/internal/record"
	"manifold/internal/testsupport"
)

func micSource(records ...record.Record) *testsupport.Source {
	return &testsupport.Source{
		StreamInfos: []provider.StreamInfo{
			{ID: "231-1", Label: "mic", Kind: record.KindAudio},
		},
		Records: records,
	}
}

func TestAudioExtractionWritesChunks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Audio.ChunkSamples = 2048
	src := micSource(
		testsupport.AudioChunk(10, "231-1", 48000, make([]int32, 2048)...),
		testsupport.AudioChunk(20, "231-1", 48000, make([]int32, 2048)...),
	)
	env := newEnv(t, cfg, src)

	if err := Run(context.Background(), env, AudioSpec()); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := readLines(t, filepath.Join(cfg.OutputRoot, "sensors", "mic.jsonl"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(lines))
	}
	first := lines[0]
	if first["sensor"] != "mic" || first["chunk_samples"].(float64) != 2048 {
		t.Fatalf("unexpected payload: %v", first)
	}
	wantMs := 2048.0 * 1000 / 48000
	if got := first["duration_ms"].(float64); math.Abs(got-wantMs) > 1e-9 {
		t.Fatalf("duration_ms = %v, want %v", got, wantMs)
	}

	summary, _ := env.Tracker.ReadSummary(context.Background(), "extract_audio")
	wantBytes := int64(2 * (wavHeaderSize + 2048*4))
	if summary.Bytes != wantBytes {
		t.Fatalf("summary bytes %d, want encoded artifact bytes %d", summary.Bytes, wantBytes)
	}
}

func TestAudioClippingAssistFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	clippedChunk := testsupport.AudioChunk(10, "231-1", 48000, 0, math.MaxInt32, 0, 0)
	cleanChunk := testsupport.AudioChunk(20, "231-1", 48000, 0, 1, 2, 3)
	env := newEnv(t, cfg, micSource(clippedChunk, cleanChunk))

	if err := Run(context.Background(), env, AudioSpec()); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := readLines(t, filepath.Join(cfg.OutputRoot, "sensors", "mic.jsonl"))
	flags := lines[0]["quality_flags"].([]any)
	if len(flags) != 1 || flags[0] != "audio_clipping" {
		t.Fatalf("clipped chunk should carry audio_clipping, got %v", flags)
	}
	if clean := lines[1]["quality_flags"].([]any); len(clean) != 0 {
		t.Fatalf("clean chunk should carry no flags, got %v", clean)
	}
}

func TestAudioClippingAssistRespectsEnabledSet(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQualityFlags("blur"))
	clippedChunk := testsupport.AudioChunk(10, "231-1", 48000, math.MinInt32, 0)
	env := newEnv(t, cfg, micSource(clippedChunk))

	if err := Run(context.Background(), env, AudioSpec()); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := readLines(t, filepath.Join(cfg.OutputRoot, "sensors", "mic.jsonl"))
	if flags := lines[0]["quality_flags"].([]any); len(flags) != 0 {
		t.Fatalf("disabled flag must not be appended, got %v", flags)
	}
}
