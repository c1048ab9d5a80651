package manifest

import (
	"context"
	"encoding/json"
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
	tracker *status.Tracker
	builder *Builder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	fs := fsio.NewLocal()
	tracker := status.NewTracker(fs, cfg.OutputRoot)
	lay := layout.FromConfig(cfg)
	return &fixture{
		root:    cfg.OutputRoot,
		tracker: tracker,
		builder: NewBuilder(fs, lay, tracker, logging.NewNop()),
	}
}

func (f *fixture) markSummary(t *testing.T, step string, summary status.Summary) {
	t.Helper()
	payload, err := summary.Encode()
	if err != nil {
		t.Fatalf("encode summary: %v", err)
	}
	if err := f.tracker.MarkDone(context.Background(), step, payload); err != nil {
		t.Fatalf("mark done: %v", err)
	}
}

func ts(v int64) *int64 { return &v }

func (f *fixture) readManifest(t *testing.T) Document {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(f.root, "manifest", "manifest.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if !strings.HasSuffix(string(raw), "\n") {
		t.Fatal("manifest must end with a newline")
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	return doc
}

func TestManifestEntryCardinality(t *testing.T) {
	f := newFixture(t)

	imuPath := filepath.Join(f.root, "sensors", "imu.jsonl")
	testsupport.WriteFile(t, imuPath, 64)
	f.markSummary(t, "extract_imu", status.Summary{
		Sensor: "imu", JSONL: imuPath, Count: 1, TsFirst: ts(10), TsLast: ts(10),
	})

	frameDir := filepath.Join(f.root, "rgb", "frames")
	testsupport.WriteFile(t, filepath.Join(frameDir, "frame_000000.jpg"), 128)
	testsupport.WriteFile(t, filepath.Join(frameDir, "frame_000001.jpg"), 256)
	f.markSummary(t, "extract_rgb", status.Summary{
		Sensor: "rgb", Count: 2, TsFirst: ts(5), TsLast: ts(20),
		Artifacts: []status.Artifact{{Kind: "rgb_frames", URI: frameDir, Count: 2}},
	})

	if err := f.builder.Run(context.Background(), Params{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	doc := f.readManifest(t)
	if len(doc.Files) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(doc.Files))
	}

	artifact := doc.Files[0] // extract_rgb precedes extract_imu in candidate order
	if artifact.StreamType != "rgb" || !strings.HasSuffix(artifact.LogicalPath, "/") {
		t.Fatalf("unexpected artifact entry: %+v", artifact)
	}
	if artifact.Count != 2 || artifact.Bytes != 128+256 {
		t.Fatalf("artifact accounting wrong: %+v", artifact)
	}
	if artifact.Checksum.SHA256 == "" || artifact.Checksum.MD5 == "" {
		t.Fatal("artifact aggregate checksums missing")
	}

	jsonl := doc.Files[1]
	if jsonl.StreamType != "imu" || jsonl.LogicalPath != "sensors/imu.jsonl" {
		t.Fatalf("unexpected jsonl entry: %+v", jsonl)
	}
	if jsonl.Bytes != 64 || jsonl.Count != 1 {
		t.Fatalf("jsonl entry accounting wrong: %+v", jsonl)
	}
	if *jsonl.TsRangeNs.Start != 10 || *jsonl.TsRangeNs.End != 10 {
		t.Fatalf("ts range wrong: %+v", jsonl.TsRangeNs)
	}
}

func TestManifestPartitionDate(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.root, "sensors", "imu.jsonl")
	testsupport.WriteFile(t, path, 8)
	f.markSummary(t, "extract_imu", status.Summary{
		Sensor: "imu", JSONL: path, Count: 1,
		TsFirst: ts(1_700_000_000_000_000_000),
		TsLast:  ts(1_700_000_000_000_000_000),
	})

	if err := f.builder.Run(context.Background(), Params{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	doc := f.readManifest(t)
	if doc.PartitionKeys.DT != "2023/11/14" {
		t.Fatalf("dt = %q, want 2023/11/14", doc.PartitionKeys.DT)
	}
	if doc.SchemaVersion != "1.0.0" {
		t.Fatalf("schema version = %q", doc.SchemaVersion)
	}
}

func TestManifestPartitionFallbacks(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.root, "sensors", "gps.jsonl")
	testsupport.WriteFile(t, path, 8)
	f.markSummary(t, "extract_gps", status.Summary{Sensor: "gps", JSONL: path})

	if err := f.builder.Run(context.Background(), Params{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	doc := f.readManifest(t)
	if doc.PartitionKeys.DT != "unknown" {
		t.Fatalf("dt = %q, want unknown", doc.PartitionKeys.DT)
	}
	if doc.Session.DeviceID != "unknown_device" {
		t.Fatalf("device fallback wrong: %q", doc.Session.DeviceID)
	}
	if want := filepath.Base(f.root); doc.Session.RecordingID != want {
		t.Fatalf("recording id = %q, want root segment %q", doc.Session.RecordingID, want)
	}
}

func TestManifestWriteOnce(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.root, "sensors", "imu.jsonl")
	testsupport.WriteFile(t, path, 8)
	f.markSummary(t, "extract_imu", status.Summary{Sensor: "imu", JSONL: path, Count: 1})

	ctx := context.Background()
	if err := f.builder.Run(ctx, Params{Owner: "team-a"}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	manifestPath := filepath.Join(f.root, "manifest", "manifest.json")
	before, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	if err := f.builder.Run(ctx, Params{Owner: "team-b"}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	after, _ := os.ReadFile(manifestPath)
	if string(before) != string(after) {
		t.Fatal("second run must not rewrite the manifest")
	}
}

func TestManifestOmitsMissingFiles(t *testing.T) {
	f := newFixture(t)
	present := filepath.Join(f.root, "sensors", "imu.jsonl")
	testsupport.WriteFile(t, present, 8)
	f.markSummary(t, "extract_imu", status.Summary{Sensor: "imu", JSONL: present, Count: 1})
	f.markSummary(t, "extract_gps", status.Summary{
		Sensor: "gps", JSONL: filepath.Join(f.root, "sensors", "gps.jsonl"),
		Artifacts: []status.Artifact{{Kind: "ghost", URI: filepath.Join(f.root, "ghost")}},
	})

	if err := f.builder.Run(context.Background(), Params{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	doc := f.readManifest(t)
	if len(doc.Files) != 1 || doc.Files[0].StreamType != "imu" {
		t.Fatalf("missing files must be omitted, got %+v", doc.Files)
	}
}

func TestManifestWithoutSummariesWritesNothing(t *testing.T) {
	f := newFixture(t)

	if err := f.builder.Run(context.Background(), Params{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.root, "manifest", "manifest.json")); !os.IsNotExist(err) {
		t.Fatal("no summaries must write no manifest")
	}
	done, _ := f.tracker.IsDone(context.Background(), StepName)
	if done {
		t.Fatal("no summaries must leave no marker")
	}
}

func TestManifestLineagePassthrough(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.root, "sensors", "imu.jsonl")
	testsupport.WriteFile(t, path, 8)
	f.markSummary(t, "extract_imu", status.Summary{Sensor: "imu", JSONL: path, Count: 1})

	params := Params{
		Owner:       "data-platform",
		ToolVersion: "1.2.3",
		Upstream:    []string{"capture://rec-1"},
		Transform:   "sensor-extraction",
		DeviceID:    "glasses-7",
		RecordingID: "rec-1",
		PartitionDT: "2024/01/02",
	}
	if err := f.builder.Run(context.Background(), params); err != nil {
		t.Fatalf("run: %v", err)
	}
	doc := f.readManifest(t)
	if doc.Lineage.Owner != "data-platform" || doc.Lineage.Transform != "sensor-extraction" {
		t.Fatalf("lineage wrong: %+v", doc.Lineage)
	}
	if len(doc.Lineage.Upstream) != 1 || doc.Lineage.Upstream[0] != "capture://rec-1" {
		t.Fatalf("upstream wrong: %+v", doc.Lineage.Upstream)
	}
	if doc.PartitionKeys.DT != "2024/01/02" || doc.PartitionKeys.DeviceID != "glasses-7" {
		t.Fatalf("partition override wrong: %+v", doc.PartitionKeys)
	}
	if doc.Files[0].ToolVersion != "1.2.3" {
		t.Fatalf("tool version not carried: %+v", doc.Files[0])
	}
}
