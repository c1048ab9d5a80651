package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"manifold/internal/config"
	"manifold/internal/fsio"
	"manifold/internal/logging"
	"manifold/internal/provider"
	"manifold/internal/services"
	"manifold/internal/status"
)

// RGBSpec extracts the RGB camera stream: one JPEG per frame plus a
// rgb.jsonl index.
func RGBSpec() Spec {
	return Spec{
		Step:    "extract_rgb",
		Sensor:  "rgb",
		JSONL:   "rgb.jsonl",
		Enabled: func(cfg *config.Config) bool { return cfg.RGB.Export },
		Extract: extractRGB,
	}
}

func extractRGB(ctx context.Context, env *Env, log *slog.Logger) (*status.Summary, error) {
	const step = "extract_rgb"

	info, err := provider.ResolveRGBStream(env.Source)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, step, "resolve stream", "", err)
	}
	if err := fsio.EnsureDirectory(ctx, env.FS, env.Layout.RGBDir); err != nil {
		return nil, services.Wrap(services.ErrTransient, step, "prepare frame dir", "", err)
	}

	summary := &status.Summary{Sensor: "rgb", JSONL: "rgb.jsonl", Streams: []string{info.ID}}
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

	artifact := status.Artifact{Kind: "rgb_frames", URI: env.Layout.RGBDir, StreamID: info.ID}
	var index int64
	for {
		rec, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, step, "read record", "", err)
		}
		if !rec.Image.Valid() {
			log.Warn("skipping unusable frame", logging.Int64("ts_ns", rec.TsNs))
			continue
		}
		body, err := EncodeJPEG(rec.Image, env.Config.RGB.Downscale)
		if err != nil {
			log.Warn("skipping frame that failed to encode",
				logging.Int64("ts_ns", rec.TsNs), logging.Error(err))
			continue
		}
		frameID := index
		if rec.Image.FrameValid {
			frameID = rec.Image.FrameNumber
		}
		uri := fsio.Join(env.Layout.RGBDir, fmt.Sprintf("frame_%06d.jpg", frameID))
		if err := writeArtifact(ctx, env.FS, uri, body); err != nil {
			return nil, services.Wrap(services.ErrTransient, step, "write frame", "", err)
		}
		index++
		artifact.Count++
		artifact.Bytes += int64(len(body))
		summary.Bytes += int64(len(body))

		width, height := savedGeometry(rec.Image, env.Config.RGB.Downscale)
		payload := map[string]any{
			"ts_ns":     rec.TsNs,
			"sensor":    "rgb",
			"frame_id":  frameID,
			"uri":       uri,
			"width":     width,
			"height":    height,
			"stream_id": rec.StreamID,
		}
		if err := emitter.Emit(rec.TsNs, payload); err != nil {
			return nil, services.Wrap(services.ErrTransient, step, "write jsonl line", "", err)
		}
	}
	if err := emitter.Close(); err != nil {
		return nil, services.Wrap(services.ErrTransient, step, "finalize jsonl", "", err)
	}
	summary.Artifacts = []status.Artifact{artifact}
	return summary, nil
}
