// Package status persists the on-disk completion markers that give every
// pipeline step its idempotency. A marker's presence is the only readiness
// signal between steps; its payload is an opaque summary consumed by later
// steps in the same pipeline.
package status

import (
	"context"
	"io"

	"manifold/internal/fsio"
)

// DoneDirName is the marker directory under the output root.
const DoneDirName = "_status"

// Tracker reads and writes completion markers for one output root.
type Tracker struct {
	fs   fsio.Filesystem
	root string
}

// NewTracker binds a tracker to an output root.
func NewTracker(fs fsio.Filesystem, root string) *Tracker {
	return &Tracker{fs: fs, root: root}
}

// MarkerPath returns the marker location for a step.
func (t *Tracker) MarkerPath(step string) string {
	return fsio.Join(t.root, DoneDirName, step+".done")
}

// IsDone reports whether the step's marker exists.
func (t *Tracker) IsDone(ctx context.Context, step string) (bool, error) {
	return t.fs.Exists(ctx, t.MarkerPath(step))
}

// MarkDone creates the marker directory if absent and writes (or
// overwrites) the marker with the given payload. An empty payload writes
// the literal "ok".
func (t *Tracker) MarkDone(ctx context.Context, step string, payload []byte) error {
	marker := t.MarkerPath(step)
	if err := t.fs.MakeDirs(ctx, fsio.Parent(marker)); err != nil {
		return err
	}
	if len(payload) == 0 {
		payload = []byte("ok")
	}
	w, err := t.fs.Create(ctx, marker)
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// ClearDone deletes the marker if present; clearing an absent marker is a
// no-op.
func (t *Tracker) ClearDone(ctx context.Context, step string) error {
	marker := t.MarkerPath(step)
	ok, err := t.fs.Exists(ctx, marker)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return t.fs.Remove(ctx, marker)
}

// ReadPayload returns the raw marker payload, or nil when the marker is
// absent or empty.
func (t *Tracker) ReadPayload(ctx context.Context, step string) ([]byte, error) {
	marker := t.MarkerPath(step)
	ok, err := t.fs.Exists(ctx, marker)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	r, err := t.fs.Open(ctx, marker)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}
