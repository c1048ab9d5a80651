package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"manifold/internal/config"
	"manifold/internal/fsio"
	"manifold/internal/logging"
	"manifold/internal/provider"
	"manifold/internal/services"
	"manifold/internal/status"
)

// AudioSpec extracts the microphone stream into WAV chunk files plus a
// mic.jsonl index.
func AudioSpec() Spec {
	return Spec{
		Step:    "extract_audio",
		Sensor:  "mic",
		JSONL:   "mic.jsonl",
		Enabled: func(cfg *config.Config) bool { return cfg.Audio.Export },
		Extract: extractAudio,
	}
}

// clipped reports whether any sample sits at the int32 rail.
func clipped(samples []int32) bool {
	for _, s := range samples {
		if s == math.MaxInt32 || s == math.MinInt32 {
			return true
		}
	}
	return false
}

func extractAudio(ctx context.Context, env *Env, log *slog.Logger) (*status.Summary, error) {
	const step = "extract_audio"

	info, err := provider.ResolveAudioStream(env.Source)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, step, "resolve stream", "", err)
	}
	if err := fsio.EnsureDirectory(ctx, env.FS, env.Layout.AudioDir); err != nil {
		return nil, services.Wrap(services.ErrTransient, step, "prepare chunk dir", "", err)
	}

	summary := &status.Summary{Sensor: "mic", JSONL: "mic.jsonl", Streams: []string{info.ID}}
	emitter, err := newEmitter(ctx, env, summary, false)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, step, "create jsonl", "", err)
	}
	defer emitter.Close()

	it, err := deliver(ctx, env, step, info.ID)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	artifact := status.Artifact{Kind: "audio_chunks", URI: env.Layout.AudioDir, StreamID: info.ID}
	var index int64
	for {
		rec, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, step, "read record", "", err)
		}
		chunk := rec.Audio
		if !chunk.Valid() {
			log.Warn("skipping unusable audio chunk", logging.Int64("ts_ns", rec.TsNs))
			continue
		}
		frames := len(chunk.Samples) / chunk.Channels
		if frames != env.Config.Audio.ChunkSamples {
			log.Warn("chunk size differs from configured chunk_samples",
				logging.Int("got", frames),
				logging.Int("want", env.Config.Audio.ChunkSamples))
		}
		body := EncodeWAV(chunk.Samples, chunk.SampleRate, chunk.Channels)
		uri := fsio.Join(env.Layout.AudioDir, fmt.Sprintf("chunk_%06d.wav", index))
		if err := writeArtifact(ctx, env.FS, uri, body); err != nil {
			return nil, services.Wrap(services.ErrTransient, step, "write chunk", "", err)
		}
		index++
		artifact.Count++
		artifact.Bytes += int64(len(body))
		summary.Bytes += int64(len(body))

		payload := map[string]any{
			"ts_ns":         rec.TsNs,
			"sensor":        "mic",
			"clip_uri":      uri,
			"duration_ms":   float64(frames) * 1000 / float64(chunk.SampleRate),
			"channels":      chunk.Channels,
			"chunk_samples": frames,
			"stream_id":     rec.StreamID,
		}
		var assist []string
		if clipped(chunk.Samples) {
			assist = append(assist, "audio_clipping")
		}
		if err := emitter.Emit(rec.TsNs, payload, assist...); err != nil {
			return nil, services.Wrap(services.ErrTransient, step, "write jsonl line", "", err)
		}
	}
	if err := emitter.Close(); err != nil {
		return nil, services.Wrap(services.ErrTransient, step, "finalize jsonl", "", err)
	}
	summary.Artifacts = []status.Artifact{artifact}
	return summary, nil
}
