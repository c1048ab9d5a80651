package status

import (
	"context"
	"encoding/json"
)

// Artifact describes one side-channel output directory owned by a step.
type Artifact struct {
	Kind     string `json:"kind"`
	Eye      string `json:"eye,omitempty"`
	URI      string `json:"uri"`
	StreamID string `json:"stream_id"`
	Count    int64  `json:"count"`
	Bytes    int64  `json:"bytes"`
}

// Summary is the completion payload one step hands to the next. Created
// once at step completion; immutable afterward unless the step is
// force-rerun.
type Summary struct {
	Sensor    string     `json:"sensor"`
	JSONL     string     `json:"jsonl,omitempty"`
	Sources   []string   `json:"sources,omitempty"`
	Count     int64      `json:"count"`
	Bytes     int64      `json:"bytes"`
	TsFirst   *int64     `json:"ts_first"`
	TsLast    *int64     `json:"ts_last"`
	Streams   []string   `json:"streams,omitempty"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// ObserveTimestamp folds one record timestamp into the summary range.
func (s *Summary) ObserveTimestamp(ts int64) {
	if s.TsFirst == nil || ts < *s.TsFirst {
		first := ts
		s.TsFirst = &first
	}
	if s.TsLast == nil || ts > *s.TsLast {
		last := ts
		s.TsLast = &last
	}
}

// Encode serializes the summary as a marker payload.
func (s *Summary) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// ReadSummary decodes the step's marker payload as a Summary. Returns nil
// without error when the marker is absent, empty, or not valid JSON —
// discovery treats those the same as "no summary".
func (t *Tracker) ReadSummary(ctx context.Context, step string) (*Summary, error) {
	raw, err := t.ReadPayload(ctx, step)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var summary Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, nil
	}
	return &summary, nil
}
