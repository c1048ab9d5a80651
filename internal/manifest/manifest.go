// Package manifest aggregates completed step summaries into a single
// checksum-verified manifest document describing every dataset file.
package manifest

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"manifold/internal/fsio"
	"manifold/internal/layout"
	"manifold/internal/logging"
	"manifold/internal/merge"
	"manifold/internal/services"
	"manifold/internal/status"
	"manifold/internal/timeutil"
)

// StepName is the marker name of the manifest step.
const StepName = "write_manifest"

// SchemaVersion identifies the manifest document shape.
const SchemaVersion = "1.0.0"

// FileName is the manifest document filename under the manifest dir.
const FileName = "manifest.json"

// Checksum carries the two content digests every entry records.
type Checksum struct {
	SHA256 string `json:"sha256"`
	MD5    string `json:"md5"`
}

// TsRange is the inclusive device-time span of one entry, null-ended when
// the owning step saw no records.
type TsRange struct {
	Start *int64 `json:"start"`
	End   *int64 `json:"end"`
}

// Entry describes one dataset file or artifact directory.
type Entry struct {
	LogicalPath string   `json:"logical_path"`
	PhysicalURI string   `json:"physical_uri"`
	StreamType  string   `json:"stream_type"`
	Bytes       int64    `json:"bytes"`
	Count       int64    `json:"count"`
	Checksum    Checksum `json:"checksum"`
	TsRangeNs   TsRange  `json:"ts_range_ns"`
	ToolVersion string   `json:"tool_version"`
	Source      string   `json:"source"`
	Notes       string   `json:"notes"`
}

// Session identifies the recording the manifest describes.
type Session struct {
	Project     string `json:"project"`
	RecordingID string `json:"recording_id"`
	DeviceID    string `json:"device_id"`
	SessionID   string `json:"session_id"`
}

// PartitionKeys place the manifest in a logical dataset hierarchy.
type PartitionKeys struct {
	DT          string `json:"dt"`
	DeviceID    string `json:"device_id"`
	RecordingID string `json:"recording_id"`
}

// Lineage is the caller-supplied provenance block; nothing in it is
// computed here.
type Lineage struct {
	Upstream  []string `json:"upstream"`
	Transform string   `json:"transform"`
	Owner     string   `json:"owner"`
}

// Document is the full manifest.
type Document struct {
	SchemaVersion string        `json:"schema_version"`
	CreatedUTC    string        `json:"created_utc"`
	Session       Session       `json:"session"`
	Files         []Entry       `json:"files"`
	PartitionKeys PartitionKeys `json:"partition_keys"`
	Lineage       Lineage       `json:"lineage"`
}

// Params carry the caller-supplied manifest inputs.
type Params struct {
	Project     string
	Owner       string
	ToolVersion string
	Upstream    []string
	Transform   string
	DeviceID    string
	RecordingID string
	PartitionDT string
}

// sourceLabel records how every entry's bytes came to exist.
const sourceLabel = "extracted_from_capture"

// candidateSteps are consulted in order; the merge step comes last so its
// entry follows the per-sensor ones.
var candidateSteps = append(append([]string{}, merge.CandidateSteps...), merge.StepName)

// Builder writes the manifest for one output root.
type Builder struct {
	fs      fsio.Filesystem
	layout  layout.OutputLayout
	tracker *status.Tracker
	log     *slog.Logger
}

// NewBuilder builds a manifest builder over one output root.
func NewBuilder(fs fsio.Filesystem, lay layout.OutputLayout, tracker *status.Tracker, logger *slog.Logger) *Builder {
	return &Builder{
		fs:      fs,
		layout:  lay,
		tracker: tracker,
		log:     logging.NewComponentLogger(logger, "manifest").With(logging.String(logging.FieldStep, StepName)),
	}
}

// Run writes the manifest once per root. A present marker short-circuits;
// no force flag is offered for this step.
func (b *Builder) Run(ctx context.Context, params Params) error {
	done, err := b.tracker.IsDone(ctx, StepName)
	if err != nil {
		return services.Wrap(services.ErrTransient, StepName, "check marker", "", err)
	}
	if done {
		b.log.Info("manifest already generated")
		return nil
	}

	var summaries []*status.Summary
	for _, step := range candidateSteps {
		summary, err := b.tracker.ReadSummary(ctx, step)
		if err != nil {
			return services.Wrap(services.ErrTransient, StepName, "read marker", step, err)
		}
		if summary != nil {
			summaries = append(summaries, summary)
		}
	}
	if len(summaries) == 0 {
		b.log.Warn("no step summaries found; manifest not written")
		return nil
	}

	if err := fsio.EnsureDirectory(ctx, b.fs, b.layout.ManifestDir); err != nil {
		return services.Wrap(services.ErrTransient, StepName, "prepare manifest dir", "", err)
	}
	manifestURI := b.layout.ManifestFile(FileName)

	var entries []Entry
	for _, summary := range summaries {
		entry, ok, err := b.jsonlEntry(ctx, summary, params.ToolVersion)
		if err != nil {
			return err
		}
		if ok {
			entries = append(entries, entry)
		}
		artifactEntries, err := b.artifactEntries(ctx, summary, params.ToolVersion)
		if err != nil {
			return err
		}
		entries = append(entries, artifactEntries...)
	}

	doc := Document{
		SchemaVersion: SchemaVersion,
		CreatedUTC:    timeutil.NowUTC(),
		Session:       b.session(params),
		Files:         entries,
		PartitionKeys: b.partitionKeys(params, summaries),
		Lineage: Lineage{
			Upstream:  params.Upstream,
			Transform: params.Transform,
			Owner:     params.Owner,
		},
	}
	if err := b.write(ctx, manifestURI, doc); err != nil {
		return err
	}

	marker, err := json.Marshal(map[string]any{"manifest": manifestURI, "files": len(entries)})
	if err != nil {
		return services.Wrap(services.ErrTransient, StepName, "encode marker", "", err)
	}
	if err := b.tracker.MarkDone(ctx, StepName, marker); err != nil {
		return services.Wrap(services.ErrTransient, StepName, "write marker", "", err)
	}
	b.log.Info("manifest written",
		logging.String("manifest", manifestURI),
		logging.Int("files", len(entries)))
	return nil
}

func (b *Builder) session(params Params) Session {
	recordingID := params.RecordingID
	if recordingID == "" {
		recordingID = rootRecordingID(b.layout.Root)
	}
	deviceID := params.DeviceID
	if deviceID == "" {
		deviceID = "unknown_device"
	}
	project := params.Project
	if project == "" {
		project = "manifold"
	}
	return Session{
		Project:     project,
		RecordingID: recordingID,
		DeviceID:    deviceID,
		SessionID:   recordingID,
	}
}

func (b *Builder) partitionKeys(params Params, summaries []*status.Summary) PartitionKeys {
	session := b.session(params)
	dt := params.PartitionDT
	if dt == "" {
		var minTs *int64
		for _, summary := range summaries {
			if summary.TsFirst == nil {
				continue
			}
			if minTs == nil || *summary.TsFirst < *minTs {
				minTs = summary.TsFirst
			}
		}
		if minTs != nil {
			dt = timeutil.PartitionDate(*minTs)
		}
	}
	if dt == "" {
		dt = "unknown"
	}
	return PartitionKeys{
		DT:          dt,
		DeviceID:    session.DeviceID,
		RecordingID: session.RecordingID,
	}
}

// jsonlEntry builds the entry for one summary's JSONL file. A summary
// whose file no longer exists yields no entry; the gap is not fatal.
func (b *Builder) jsonlEntry(ctx context.Context, summary *status.Summary, toolVersion string) (Entry, bool, error) {
	if summary.JSONL == "" {
		return Entry{}, false, nil
	}
	ok, err := b.fs.Exists(ctx, summary.JSONL)
	if err != nil {
		return Entry{}, false, services.Wrap(services.ErrTransient, StepName, "probe jsonl", summary.JSONL, err)
	}
	if !ok {
		b.log.Warn("summary references a missing jsonl; entry omitted",
			logging.String("jsonl", summary.JSONL))
		return Entry{}, false, nil
	}
	info, err := b.fs.Checksums(ctx, summary.JSONL)
	if err != nil {
		return Entry{}, false, services.Wrap(services.ErrTransient, StepName, "checksum jsonl", summary.JSONL, err)
	}
	streamType := summary.Sensor
	if streamType == "" {
		streamType = "events"
	}
	return Entry{
		LogicalPath: logicalPath(b.layout.Root, summary.JSONL),
		PhysicalURI: summary.JSONL,
		StreamType:  streamType,
		Bytes:       info.Size,
		Count:       summary.Count,
		Checksum:    Checksum{SHA256: info.SHA256, MD5: info.MD5},
		TsRangeNs:   TsRange{Start: summary.TsFirst, End: summary.TsLast},
		ToolVersion: toolVersion,
		Source:      sourceLabel,
		Notes:       "",
	}, true, nil
}

// artifactEntries builds one aggregate entry per still-existing artifact
// directory. Count and bytes come from the directory listing, not the
// summary, so the integrity claim is self-consistent.
func (b *Builder) artifactEntries(ctx context.Context, summary *status.Summary, toolVersion string) ([]Entry, error) {
	var entries []Entry
	for _, artifact := range summary.Artifacts {
		if artifact.URI == "" {
			continue
		}
		ok, err := b.fs.Exists(ctx, artifact.URI)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, StepName, "probe artifact dir", artifact.URI, err)
		}
		if !ok {
			b.log.Warn("summary references a missing artifact dir; entry omitted",
				logging.String("uri", artifact.URI))
			continue
		}
		count, totalBytes, checksum, err := b.directoryChecksums(ctx, artifact.URI)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			LogicalPath: logicalPath(b.layout.Root, artifact.URI) + "/",
			PhysicalURI: artifact.URI,
			StreamType:  summary.Sensor,
			Bytes:       totalBytes,
			Count:       count,
			Checksum:    checksum,
			TsRangeNs:   TsRange{Start: summary.TsFirst, End: summary.TsLast},
			ToolVersion: toolVersion,
			Source:      sourceLabel,
			Notes:       "",
		})
	}
	return entries, nil
}

// directoryChecksums folds per-file digests into one aggregate digest per
// algorithm by streaming "<path>:<hex>" for each file, in sorted path
// order, through a fresh digest. The chained paths are the full URIs, not
// root-relative ones, so the aggregate is sensitive to where the root is
// mounted.
func (b *Builder) directoryChecksums(ctx context.Context, dirURI string) (int64, int64, Checksum, error) {
	files, err := b.fs.ListFiles(ctx, dirURI)
	if err != nil {
		return 0, 0, Checksum{}, services.Wrap(services.ErrTransient, StepName, "list artifact dir", dirURI, err)
	}
	sort.Strings(files)

	sha := sha256.New()
	sum := md5.New()
	var count, totalBytes int64
	for _, file := range files {
		info, err := b.fs.Checksums(ctx, file)
		if err != nil {
			return 0, 0, Checksum{}, services.Wrap(services.ErrTransient, StepName, "checksum artifact", file, err)
		}
		fmt.Fprintf(sha, "%s:%s", file, info.SHA256)
		fmt.Fprintf(sum, "%s:%s", file, info.MD5)
		count++
		totalBytes += info.Size
	}
	return count, totalBytes, Checksum{
		SHA256: hex.EncodeToString(sha.Sum(nil)),
		MD5:    hex.EncodeToString(sum.Sum(nil)),
	}, nil
}

func (b *Builder) write(ctx context.Context, uri string, doc Document) error {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrTransient, StepName, "encode manifest", "", err)
	}
	body = append(body, '\n')
	w, err := b.fs.Create(ctx, uri)
	if err != nil {
		return services.Wrap(services.ErrTransient, StepName, "create manifest", uri, err)
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return services.Wrap(services.ErrTransient, StepName, "write manifest", uri, err)
	}
	if err := w.Close(); err != nil {
		return services.Wrap(services.ErrTransient, StepName, "finalize manifest", uri, err)
	}
	return nil
}

// logicalPath maps a URI to its root-relative dataset path, falling back
// to the raw URI when root and target share no common prefix or scheme.
func logicalPath(root, uri string) string {
	if uri == "" {
		return ""
	}
	rootStr := strings.TrimRight(root, "/")
	if strings.HasPrefix(uri, rootStr) {
		return strings.TrimLeft(uri[len(rootStr):], "/")
	}
	parsedRoot, errRoot := url.Parse(root)
	parsedURI, errURI := url.Parse(uri)
	if errRoot == nil && errURI == nil && parsedRoot.Scheme != "" && parsedRoot.Scheme == parsedURI.Scheme {
		return strings.TrimLeft(strings.TrimPrefix(parsedURI.Path, parsedRoot.Path), "/")
	}
	return uri
}

// rootRecordingID infers the recording ID from the output root's last
// path segment.
func rootRecordingID(root string) string {
	segment := fsio.LastSegment(root)
	if segment == "" {
		return "unknown_recording"
	}
	return segment
}
