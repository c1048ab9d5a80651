package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"manifold/internal/config"
	"manifold/internal/fsio"
	"manifold/internal/logging"
	"manifold/internal/provider"
	"manifold/internal/services"
	"manifold/internal/status"
)

// ETSpec extracts the eye-tracking camera streams: per-eye JPEG frame
// directories plus a shared et.jsonl index. A mono stream covering both
// eyes lands in the left-eye directory.
func ETSpec() Spec {
	return Spec{
		Step:    "extract_et",
		Sensor:  "et",
		JSONL:   "et.jsonl",
		Enabled: func(cfg *config.Config) bool { return cfg.ET.Export },
		Extract: extractET,
	}
}

type eyeSink struct {
	eye      string
	dir      string
	index    int64
	artifact status.Artifact
}

func extractET(ctx context.Context, env *Env, log *slog.Logger) (*status.Summary, error) {
	const step = "extract_et"

	selection, err := provider.ResolveEyeStreams(env.Source)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, step, "resolve streams", "", err)
	}
	if !env.Config.ET.Left {
		delete(selection, "left")
	}
	if !env.Config.ET.Right {
		delete(selection, "right")
	}
	if len(selection) == 0 {
		return nil, services.Wrap(services.ErrProvider, step, "resolve streams",
			"every discovered eye stream is disabled in the configuration", nil)
	}

	sinks := map[string]*eyeSink{}
	var streamIDs, eyes []string
	for eye := range selection {
		eyes = append(eyes, eye)
	}
	sort.Strings(eyes)
	for _, eye := range eyes {
		info := selection[eye]
		dir := env.Layout.ETLeftDir
		if eye == "right" {
			dir = env.Layout.ETRightDir
		}
		if err := fsio.EnsureDirectory(ctx, env.FS, dir); err != nil {
			return nil, services.Wrap(services.ErrTransient, step, "prepare frame dir", "", err)
		}
		sinks[info.ID] = &eyeSink{
			eye: eye,
			dir: dir,
			artifact: status.Artifact{
				Kind:     "et_frames",
				Eye:      eye,
				URI:      dir,
				StreamID: info.ID,
			},
		}
		streamIDs = append(streamIDs, info.ID)
	}

	summary := &status.Summary{Sensor: "et", JSONL: "et.jsonl", Streams: streamIDs}
	emitter, err := newEmitter(ctx, env, summary, false)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, step, "create jsonl", "", err)
	}
	defer emitter.Close()

	it, err := deliver(ctx, env, step, streamIDs...)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	for {
		rec, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, step, "read record", "", err)
		}
		sink, ok := sinks[rec.StreamID]
		if !ok || !rec.Image.Valid() {
			log.Warn("skipping unusable frame", logging.Int64("ts_ns", rec.TsNs))
			continue
		}
		body, err := EncodeJPEG(rec.Image, env.Config.ET.Downscale)
		if err != nil {
			log.Warn("skipping frame that failed to encode",
				logging.Int64("ts_ns", rec.TsNs), logging.Error(err))
			continue
		}
		frameID := sink.index
		if rec.Image.FrameValid {
			frameID = rec.Image.FrameNumber
		}
		uri := fsio.Join(sink.dir, fmt.Sprintf("frame_%06d.jpg", frameID))
		if err := writeArtifact(ctx, env.FS, uri, body); err != nil {
			return nil, services.Wrap(services.ErrTransient, step, "write frame", "", err)
		}
		sink.index++
		sink.artifact.Count++
		sink.artifact.Bytes += int64(len(body))
		summary.Bytes += int64(len(body))

		var gaze any
		if rec.Image.GazeValid {
			gaze = rec.Image.GazeVector[:]
		}
		var confidence any
		if rec.Image.ConfidenceValid {
			confidence = rec.Image.GazeConfidence
		}
		width, height := savedGeometry(rec.Image, env.Config.ET.Downscale)
		payload := map[string]any{
			"ts_ns":       rec.TsNs,
			"sensor":      "et",
			"eye":         sink.eye,
			"frame_id":    frameID,
			"uri":         uri,
			"width":       width,
			"height":      height,
			"gaze_vector": gaze,
			"confidence":  confidence,
			"stream_id":   rec.StreamID,
		}
		if err := emitter.Emit(rec.TsNs, payload); err != nil {
			return nil, services.Wrap(services.ErrTransient, step, "write jsonl line", "", err)
		}
	}
	if err := emitter.Close(); err != nil {
		return nil, services.Wrap(services.ErrTransient, step, "finalize jsonl", "", err)
	}
	for _, eye := range eyes {
		info := selection[eye]
		summary.Artifacts = append(summary.Artifacts, sinks[info.ID].artifact)
	}
	return summary, nil
}
