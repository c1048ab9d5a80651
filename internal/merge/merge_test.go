package merge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"manifold/internal/fsio"
	"manifold/internal/layout"
	"manifold/internal/logging"
	"manifold/internal/status"
	"manifold/internal/testsupport"
)

type fixture struct {
	root    string
	fs      fsio.Local
	tracker *status.Tracker
	merger  *Merger
}

func newFixture(t *testing.T, force bool) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	fs := fsio.NewLocal()
	tracker := status.NewTracker(fs, cfg.OutputRoot)
	lay := layout.FromConfig(cfg)
	if err := os.MkdirAll(lay.SensorsDir, 0o755); err != nil {
		t.Fatalf("mkdir sensors: %v", err)
	}
	return &fixture{
		root:    cfg.OutputRoot,
		fs:      fs,
		tracker: tracker,
		merger:  New(fs, lay, tracker, logging.NewNop(), force),
	}
}

// completeStep writes a sensor JSONL with one line per timestamp and the
// matching completion marker.
func (f *fixture) completeStep(t *testing.T, step, sensor, filename string, timestamps ...int64) string {
	t.Helper()
	path := filepath.Join(f.root, "sensors", filename)
	var body strings.Builder
	for _, ts := range timestamps {
		fmt.Fprintf(&body, `{"ts_ns":%d,"sensor":%q}`+"\n", ts, sensor)
	}
	if err := os.WriteFile(path, []byte(body.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
	summary := status.Summary{Sensor: sensor, JSONL: path, Count: int64(len(timestamps))}
	payload, err := summary.Encode()
	if err != nil {
		t.Fatalf("encode summary: %v", err)
	}
	if err := f.tracker.MarkDone(context.Background(), step, payload); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	return path
}

func readEvents(t *testing.T, path string) []map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	var events []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if line == "" {
			continue
		}
		var event map[string]any
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		events = append(events, event)
	}
	return events
}

func TestMergeOrdersAcrossStreams(t *testing.T) {
	f := newFixture(t, false)
	f.completeStep(t, "extract_rgb", "rgb", "rgb.jsonl", 1, 5)
	f.completeStep(t, "extract_imu", "imu", "imu.jsonl", 2, 3)

	if err := f.merger.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	events := readEvents(t, filepath.Join(f.root, "sensors", "events.jsonl"))
	var got []int64
	for _, event := range events {
		got = append(got, int64(event["ts_ns"].(float64)))
	}
	want := []int64{1, 2, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("event count %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event order %v, want %v", got, want)
		}
	}

	summary, err := f.tracker.ReadSummary(context.Background(), StepName)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if summary == nil || summary.Count != 4 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if *summary.TsFirst != 1 || *summary.TsLast != 5 {
		t.Fatalf("timestamp range wrong: %+v", summary)
	}
	if len(summary.Sources) != 2 {
		t.Fatalf("sources wrong: %v", summary.Sources)
	}
}

func TestMergeTieBreaksByCandidateOrder(t *testing.T) {
	f := newFixture(t, false)
	f.completeStep(t, "extract_imu", "imu", "imu.jsonl", 10)
	f.completeStep(t, "extract_rgb", "rgb", "rgb.jsonl", 10)

	if err := f.merger.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	events := readEvents(t, filepath.Join(f.root, "sensors", "events.jsonl"))
	if events[0]["sensor"] != "rgb" || events[1]["sensor"] != "imu" {
		t.Fatalf("equal timestamps must favor the earlier candidate: %v", events)
	}
}

func TestMergeSkipsUnusableLines(t *testing.T) {
	f := newFixture(t, false)
	path := filepath.Join(f.root, "sensors", "gps.jsonl")
	body := `{"ts_ns":7,"sensor":"gps"}` + "\n" +
		"not json\n" +
		`{"sensor":"gps"}` + "\n" +
		`{"ts_ns":9,"sensor":"gps"}` + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write gps.jsonl: %v", err)
	}
	summary := status.Summary{Sensor: "gps", JSONL: path}
	payload, _ := summary.Encode()
	if err := f.tracker.MarkDone(context.Background(), "extract_gps", payload); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	if err := f.merger.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	events := readEvents(t, filepath.Join(f.root, "sensors", "events.jsonl"))
	if len(events) != 2 {
		t.Fatalf("expected 2 usable events, got %d", len(events))
	}
}

func TestMergeWithoutInputsLeavesNoMarker(t *testing.T) {
	f := newFixture(t, false)

	if err := f.merger.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	done, _ := f.tracker.IsDone(context.Background(), StepName)
	if done {
		t.Fatal("merge with no inputs must not write a marker")
	}
	if _, err := os.Stat(filepath.Join(f.root, "sensors", "events.jsonl")); !os.IsNotExist(err) {
		t.Fatal("merge with no inputs must not write output")
	}
}

func TestMergeForceReplacesOutput(t *testing.T) {
	f := newFixture(t, false)
	f.completeStep(t, "extract_rgb", "rgb", "rgb.jsonl", 1)

	ctx := context.Background()
	if err := f.merger.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	f.completeStep(t, "extract_imu", "imu", "imu.jsonl", 2)

	if err := f.merger.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if events := readEvents(t, filepath.Join(f.root, "sensors", "events.jsonl")); len(events) != 1 {
		t.Fatal("non-forced rerun must not rewrite the merged stream")
	}

	forced := New(f.fs, layout.OutputLayout{Root: f.root, SensorsDir: filepath.Join(f.root, "sensors")}, f.tracker, logging.NewNop(), true)
	if err := forced.Run(ctx); err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if events := readEvents(t, filepath.Join(f.root, "sensors", "events.jsonl")); len(events) != 2 {
		t.Fatalf("forced rerun should include both streams, got %d events", len(events))
	}
}
