// Package merge folds the per-sensor JSONL streams into one global
// time-ordered event stream. Each input file is already sorted, so a
// k-way heap merge holds at most one buffered line per input.
package merge

import (
	"bufio"
	"container/heap"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"manifold/internal/fsio"
	"manifold/internal/layout"
	"manifold/internal/logging"
	"manifold/internal/services"
	"manifold/internal/status"
	"manifold/internal/timeutil"
)

// StepName is the marker name of the merge step.
const StepName = "merge_events"

// OutputName is the merged stream filename.
const OutputName = "events.jsonl"

// CandidateSteps are the extraction markers consulted for merge inputs, in
// priority order. The index doubles as the tie-break key for records with
// equal timestamps.
var CandidateSteps = []string{
	"extract_rgb",
	"extract_et",
	"extract_audio",
	"extract_imu",
	"extract_gps",
	"extract_wifi",
	"extract_bt",
}

// Merger merges completed sensor streams into events.jsonl.
type Merger struct {
	fs      fsio.Filesystem
	layout  layout.OutputLayout
	tracker *status.Tracker
	log     *slog.Logger
	force   bool
}

// New builds a merger over one output root.
func New(fs fsio.Filesystem, lay layout.OutputLayout, tracker *status.Tracker, logger *slog.Logger, force bool) *Merger {
	return &Merger{
		fs:      fs,
		layout:  lay,
		tracker: tracker,
		log:     logging.NewComponentLogger(logger, "merge").With(logging.String(logging.FieldStep, StepName)),
		force:   force,
	}
}

// Run discovers completed sensor streams and merges them. Zero usable
// inputs is a warning, not a failure: no output and no marker are written.
func (m *Merger) Run(ctx context.Context) error {
	done, err := m.tracker.IsDone(ctx, StepName)
	if err != nil {
		return services.Wrap(services.ErrTransient, StepName, "check marker", "", err)
	}
	if done && !m.force {
		m.log.Info("already complete; skipping")
		return nil
	}
	if done {
		if err := m.tracker.ClearDone(ctx, StepName); err != nil {
			return services.Wrap(services.ErrTransient, StepName, "clear marker", "", err)
		}
	}

	inputs, err := m.discoverInputs(ctx)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		m.log.Warn("no completed sensor streams found; nothing to merge")
		return nil
	}

	outURI := fsio.Join(fsio.Parent(inputs[0]), OutputName)
	if m.force {
		if err := m.fs.Remove(ctx, outURI); err != nil {
			return services.Wrap(services.ErrTransient, StepName, "remove previous output", "", err)
		}
	}

	summary, err := m.mergeInputs(ctx, inputs, outURI)
	if err != nil {
		return err
	}
	payload, err := summary.Encode()
	if err != nil {
		return services.Wrap(services.ErrTransient, StepName, "encode summary", "", err)
	}
	if err := m.tracker.MarkDone(ctx, StepName, payload); err != nil {
		return services.Wrap(services.ErrTransient, StepName, "write marker", "", err)
	}
	attrs := []logging.Attr{
		logging.Int("sources", len(inputs)),
		logging.Int64("events", summary.Count),
	}
	if summary.TsFirst != nil && summary.TsLast != nil {
		attrs = append(attrs,
			logging.String("ts_first", timeutil.NsToISO8601(*summary.TsFirst)),
			logging.String("ts_last", timeutil.NsToISO8601(*summary.TsLast)))
	}
	m.log.Info("merge complete", logging.Args(attrs...)...)
	return nil
}

// discoverInputs walks the candidate markers in priority order, keeping
// every summary whose JSONL file still exists.
func (m *Merger) discoverInputs(ctx context.Context) ([]string, error) {
	var inputs []string
	for _, step := range CandidateSteps {
		summary, err := m.tracker.ReadSummary(ctx, step)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, StepName, "read marker", step, err)
		}
		if summary == nil || summary.JSONL == "" {
			continue
		}
		ok, err := m.fs.Exists(ctx, summary.JSONL)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, StepName, "probe input", summary.JSONL, err)
		}
		if !ok {
			m.log.Warn("marker references a missing stream; skipping",
				logging.String("jsonl", summary.JSONL))
			continue
		}
		inputs = append(inputs, summary.JSONL)
	}
	return inputs, nil
}

// mergeItem is one buffered line in the merge heap.
type mergeItem struct {
	ts     int64
	source int
	line   []byte
}

type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	if h[i].ts != h[j].ts {
		return h[i].ts < h[j].ts
	}
	return h[i].source < h[j].source
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(mergeItem)) }

func (h *mergeHeap) Pop() any {
	old := *h
	item := old[len(old)-1]
	*h = old[:len(old)-1]
	return item
}

type mergeInput struct {
	scanner *bufio.Scanner
	closer  io.Closer
	skipped int
}

// advance pushes the input's next usable line onto the heap. Lines that
// fail to parse or carry no ts_ns are skipped and counted.
func (in *mergeInput) advance(h *mergeHeap, source int) {
	for in.scanner.Scan() {
		raw := in.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var probe struct {
			TsNs *int64 `json:"ts_ns"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil || probe.TsNs == nil {
			in.skipped++
			continue
		}
		line := make([]byte, len(raw))
		copy(line, raw)
		heap.Push(h, mergeItem{ts: *probe.TsNs, source: source, line: line})
		return
	}
}

func (m *Merger) mergeInputs(ctx context.Context, inputs []string, outURI string) (*status.Summary, error) {
	opened := make([]*mergeInput, 0, len(inputs))
	defer func() {
		for _, in := range opened {
			in.closer.Close()
		}
	}()

	h := &mergeHeap{}
	for i, uri := range inputs {
		r, err := m.fs.Open(ctx, uri)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, StepName, "open input", uri, err)
		}
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
		in := &mergeInput{scanner: scanner, closer: r}
		opened = append(opened, in)
		in.advance(h, i)
	}
	heap.Init(h)

	out, err := m.fs.Create(ctx, outURI)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, StepName, "create output", outURI, err)
	}
	buf := bufio.NewWriter(out)

	summary := &status.Summary{Sensor: "events", JSONL: outURI, Sources: inputs}
	for h.Len() > 0 {
		item := heap.Pop(h).(mergeItem)
		if _, err := buf.Write(item.line); err != nil {
			out.Close()
			return nil, services.Wrap(services.ErrTransient, StepName, "write output", "", err)
		}
		if err := buf.WriteByte('\n'); err != nil {
			out.Close()
			return nil, services.Wrap(services.ErrTransient, StepName, "write output", "", err)
		}
		summary.Count++
		summary.ObserveTimestamp(item.ts)
		opened[item.source].advance(h, item.source)
	}
	if err := buf.Flush(); err != nil {
		out.Close()
		return nil, services.Wrap(services.ErrTransient, StepName, "flush output", "", err)
	}
	if err := out.Close(); err != nil {
		return nil, services.Wrap(services.ErrTransient, StepName, "finalize output", "", err)
	}

	var skipped int
	for _, in := range opened {
		if err := in.scanner.Err(); err != nil {
			return nil, services.Wrap(services.ErrTransient, StepName, "read input", "", err)
		}
		skipped += in.skipped
	}
	if skipped > 0 {
		m.log.Warn("skipped unusable input lines", logging.Int("lines", skipped))
	}
	return summary, nil
}
