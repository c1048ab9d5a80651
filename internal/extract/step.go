package extract

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"manifold/internal/config"
	"manifold/internal/fsio"
	"manifold/internal/layout"
	"manifold/internal/logging"
	"manifold/internal/provider"
	"manifold/internal/quality"
	"manifold/internal/services"
	"manifold/internal/status"
)

// Env is the shared wiring every extraction step runs against.
type Env struct {
	FS      fsio.Filesystem
	Layout  layout.OutputLayout
	Tracker *status.Tracker
	Flagger *quality.Flagger
	Source  provider.Source
	Config  *config.Config
	Logger  *slog.Logger
	Force   bool
}

// Spec parametrizes the extraction template for one sensor kind.
type Spec struct {
	// Step is the marker name, e.g. "extract_rgb".
	Step string
	// Sensor is the payload sensor label, e.g. "rgb".
	Sensor string
	// JSONL is the per-sensor output filename under the sensors directory.
	JSONL string
	// Enabled consults the per-sensor export toggle.
	Enabled func(cfg *config.Config) bool
	// Extract consumes the source and returns the completion summary. A
	// nil summary with a nil error means the step produced nothing and no
	// marker should be written (optional kind with no stream).
	Extract func(ctx context.Context, env *Env, log *slog.Logger) (*status.Summary, error)
}

// Steps returns every extraction step in canonical pipeline order.
func Steps() []Spec {
	return []Spec{
		RGBSpec(),
		ETSpec(),
		AudioSpec(),
		IMUSpec(),
		GPSSpec(),
		WifiSpec(),
		BTSpec(),
	}
}

// Run executes one extraction step: disabled and already-done short
// circuits, force marker clearing, extraction, and marker persistence.
func Run(ctx context.Context, env *Env, spec Spec) error {
	log := logging.NewComponentLogger(env.Logger, "extract").
		With(logging.String(logging.FieldStep, spec.Step))

	if !spec.Enabled(env.Config) {
		log.Info("export disabled; skipping")
		return nil
	}
	done, err := env.Tracker.IsDone(ctx, spec.Step)
	if err != nil {
		return services.Wrap(services.ErrTransient, spec.Step, "check marker", "", err)
	}
	if done {
		if !env.Force {
			log.Info("already complete; skipping")
			return nil
		}
		if err := env.Tracker.ClearDone(ctx, spec.Step); err != nil {
			return services.Wrap(services.ErrTransient, spec.Step, "clear marker", "", err)
		}
	}
	if err := fsio.EnsureDirectory(ctx, env.FS, env.Layout.SensorsDir); err != nil {
		return services.Wrap(services.ErrTransient, spec.Step, "prepare sensors dir", "", err)
	}

	summary, err := spec.Extract(ctx, env, log)
	if err != nil {
		return err
	}
	if summary == nil {
		return nil
	}
	payload, err := summary.Encode()
	if err != nil {
		return services.Wrap(services.ErrTransient, spec.Step, "encode summary", "", err)
	}
	if err := env.Tracker.MarkDone(ctx, spec.Step, payload); err != nil {
		return services.Wrap(services.ErrTransient, spec.Step, "write marker", "", err)
	}
	log.Info("extraction complete",
		logging.Int64("records", summary.Count),
		logging.Int64("bytes", summary.Bytes))
	return nil
}

// jsonlEmitter serializes record payloads to one sensor JSONL file while
// folding quality flags and summary bookkeeping into each line.
type jsonlEmitter struct {
	file    io.WriteCloser
	buf     *bufio.Writer
	flagger *quality.Flagger
	summary *status.Summary

	// countLines adds serialized line bytes (newline included) to the
	// summary; artifact-bearing kinds account encoded artifact bytes
	// instead.
	countLines bool
}

func newEmitter(ctx context.Context, env *Env, summary *status.Summary, countLines bool) (*jsonlEmitter, error) {
	uri := env.Layout.SensorFile(summary.JSONL)
	f, err := env.FS.Create(ctx, uri)
	if err != nil {
		return nil, err
	}
	summary.JSONL = uri
	return &jsonlEmitter{
		file:       f,
		buf:        bufio.NewWriter(f),
		flagger:    env.Flagger,
		summary:    summary,
		countLines: countLines,
	}, nil
}

// Emit evaluates quality flags over the payload, appends any assist flags
// that are enabled and not already present, and writes one JSONL line.
func (e *jsonlEmitter) Emit(ts int64, payload map[string]any, assist ...string) error {
	flags := e.flagger.Evaluate(payload)
	for _, name := range assist {
		if !e.flagger.IsEnabled(name) {
			continue
		}
		found := false
		for _, have := range flags {
			if have == name {
				found = true
				break
			}
		}
		if !found {
			flags = append(flags, name)
		}
	}
	payload["quality_flags"] = flags

	line, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := e.buf.Write(line); err != nil {
		return err
	}
	if err := e.buf.WriteByte('\n'); err != nil {
		return err
	}
	e.summary.Count++
	if e.countLines {
		e.summary.Bytes += int64(len(line) + 1)
	}
	e.summary.ObserveTimestamp(ts)
	return nil
}

func (e *jsonlEmitter) Close() error {
	if err := e.buf.Flush(); err != nil {
		e.file.Close()
		return err
	}
	return e.file.Close()
}

// writeArtifact persists one encoded artifact body.
func writeArtifact(ctx context.Context, fs fsio.Filesystem, uri string, body []byte) error {
	w, err := fs.Create(ctx, uri)
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// deliver opens a record iterator over the named streams, classifying
// open failures as provider errors.
func deliver(ctx context.Context, env *Env, step string, streamIDs ...string) (provider.Iterator, error) {
	it, err := env.Source.Deliver(ctx, streamIDs...)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, step, "deliver records", "", err)
	}
	return it, nil
}
