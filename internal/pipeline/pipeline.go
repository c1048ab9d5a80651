// Package pipeline sequences the extraction, merge, and manifest steps
// for one output root. Execution is single-threaded; marker presence is
// the only barrier between steps. A per-invocation advisory lock keeps
// two pipelines off the same local root.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"manifold/internal/config"
	"manifold/internal/extract"
	"manifold/internal/fsio"
	"manifold/internal/layout"
	"manifold/internal/logging"
	"manifold/internal/manifest"
	"manifold/internal/merge"
	"manifold/internal/provider"
	"manifold/internal/quality"
	"manifold/internal/services"
	"manifold/internal/status"
)

// LockFileName is the advisory lock under the marker directory.
const LockFileName = "run.lock"

// Options wire a pipeline together.
type Options struct {
	Config *config.Config
	FS     fsio.Filesystem
	Logger *slog.Logger
	Force  bool
}

// Pipeline executes steps against one output root.
type Pipeline struct {
	cfg     *config.Config
	fs      fsio.Filesystem
	layout  layout.OutputLayout
	tracker *status.Tracker
	flagger *quality.Flagger
	log     *slog.Logger
	runID   string
	force   bool

	lock *flock.Flock
}

// New builds a pipeline and stamps it with a fresh run ID.
func New(opts Options) *Pipeline {
	lay := layout.FromConfig(opts.Config)
	runID := uuid.NewString()
	logger := logging.NewComponentLogger(opts.Logger, "pipeline").
		With(logging.String(logging.FieldRunID, runID))
	return &Pipeline{
		cfg:     opts.Config,
		fs:      opts.FS,
		layout:  lay,
		tracker: status.NewTracker(opts.FS, lay.Root),
		flagger: quality.NewFlagger(opts.Config.QualityFlags.Enabled),
		log:     logger,
		runID:   runID,
		force:   opts.Force,
	}
}

// RunID returns the identifier stamped on this invocation's logs.
func (p *Pipeline) RunID() string { return p.runID }

// Acquire takes the advisory run lock for a local root. Contention is a
// validation error so a second invocation fails fast instead of
// interleaving writes. Remote roots are not lockable and are skipped.
func (p *Pipeline) Acquire(ctx context.Context) error {
	root, err := p.layout.LocalRoot()
	if err != nil {
		p.log.Debug("remote output root; skipping run lock")
		return nil
	}
	lockPath := fsio.Join(root, status.DoneDirName, LockFileName)
	if err := fsio.EnsureDirectory(ctx, p.fs, fsio.Parent(lockPath)); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "prepare lock dir", root, err)
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "acquire run lock", lockPath, err)
	}
	if !ok {
		return services.Wrap(services.ErrValidation, "pipeline", "acquire run lock",
			"another run already owns this output root", nil)
	}
	p.lock = lock
	return nil
}

// Release drops the run lock if held.
func (p *Pipeline) Release() {
	if p.lock == nil {
		return
	}
	if err := p.lock.Unlock(); err != nil {
		p.log.Warn("failed to release run lock", logging.Error(err))
	}
	p.lock = nil
}

// env assembles the extraction environment around a record source.
func (p *Pipeline) env(src provider.Source) *extract.Env {
	return &extract.Env{
		FS:      p.fs,
		Layout:  p.layout,
		Tracker: p.tracker,
		Flagger: p.flagger,
		Source:  src,
		Config:  p.cfg,
		Logger:  p.log,
		Force:   p.force,
	}
}

// stepContext threads run and session identity through a step's context.
func (p *Pipeline) stepContext(ctx context.Context, step string) context.Context {
	ctx = services.WithRunID(ctx, p.runID)
	ctx = services.WithStep(ctx, step)
	return services.WithSession(ctx, p.cfg.DeviceID, p.cfg.RecordingID)
}

// timed logs step boundaries with the elapsed duration.
func (p *Pipeline) timed(ctx context.Context, step string, fn func(context.Context) error) error {
	ctx = p.stepContext(ctx, step)
	log := p.log.With(logging.String(logging.FieldStep, step))
	log.Info("step started")
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		log.Error("step failed", logging.Duration("elapsed", elapsed), logging.Error(err))
		return err
	}
	log.Info("step completed", logging.Duration("elapsed", elapsed))
	return nil
}

// RunExtraction executes one extraction step against the source.
func (p *Pipeline) RunExtraction(ctx context.Context, src provider.Source, spec extract.Spec) error {
	env := p.env(src)
	return p.timed(ctx, spec.Step, func(ctx context.Context) error {
		return extract.Run(ctx, env, spec)
	})
}

// RunMerge executes the event merge step.
func (p *Pipeline) RunMerge(ctx context.Context) error {
	merger := merge.New(p.fs, p.layout, p.tracker, p.log, p.force)
	return p.timed(ctx, merge.StepName, merger.Run)
}

// RunManifest executes the manifest step.
func (p *Pipeline) RunManifest(ctx context.Context, params manifest.Params) error {
	builder := manifest.NewBuilder(p.fs, p.layout, p.tracker, p.log)
	return p.timed(ctx, manifest.StepName, func(ctx context.Context) error {
		return builder.Run(ctx, params)
	})
}

// RunAll executes the full pipeline: every extraction step in canonical
// order, then merge, then manifest.
func (p *Pipeline) RunAll(ctx context.Context, src provider.Source, params manifest.Params) error {
	for _, spec := range extract.Steps() {
		if err := p.RunExtraction(ctx, src, spec); err != nil {
			return err
		}
	}
	if err := p.RunMerge(ctx); err != nil {
		return err
	}
	return p.RunManifest(ctx, params)
}

// StepState is one step's marker state, consumed by the status command.
type StepState struct {
	Step    string
	Done    bool
	Summary *status.Summary
}

// States lists every pipeline step with its completion state.
func (p *Pipeline) States(ctx context.Context) ([]StepState, error) {
	steps := append(append([]string{}, merge.CandidateSteps...), merge.StepName, manifest.StepName)
	states := make([]StepState, 0, len(steps))
	for _, step := range steps {
		done, err := p.tracker.IsDone(ctx, step)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "pipeline", "check marker", step, err)
		}
		var summary *status.Summary
		if done {
			if summary, err = p.tracker.ReadSummary(ctx, step); err != nil {
				return nil, services.Wrap(services.ErrTransient, "pipeline", "read marker", step, err)
			}
		}
		states = append(states, StepState{Step: step, Done: done, Summary: summary})
	}
	return states, nil
}
