package testsupport

import (
	"context"
	"io"

	"manifold/internal/provider"
	"manifold/internal/record"
)

// Source is a scripted record source for tests: declared streams plus a
// fixed record sequence delivered in order.
type Source struct {
	StreamInfos []provider.StreamInfo
	Records     []record.Record
}

func (s *Source) Streams() []provider.StreamInfo {
	return append([]provider.StreamInfo{}, s.StreamInfos...)
}

func (s *Source) Deliver(_ context.Context, streamIDs ...string) (provider.Iterator, error) {
	wanted := make(map[string]struct{}, len(streamIDs))
	for _, id := range streamIDs {
		wanted[id] = struct{}{}
	}
	var records []record.Record
	for _, rec := range s.Records {
		if _, ok := wanted[rec.StreamID]; ok {
			records = append(records, rec)
		}
	}
	return &sliceIterator{records: records}, nil
}

func (s *Source) Close() error { return nil }

type sliceIterator struct {
	records []record.Record
	next    int
}

func (it *sliceIterator) Next() (record.Record, error) {
	if it.next >= len(it.records) {
		return record.Record{}, io.EOF
	}
	rec := it.records[it.next]
	it.next++
	return rec, nil
}

func (it *sliceIterator) Close() error { return nil }

// GrayFrame builds a valid single-channel image record.
func GrayFrame(ts int64, streamID string, width, height int) record.Record {
	pixels := make([]byte, width*height)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	return record.Record{
		TsNs:     ts,
		StreamID: streamID,
		Kind:     record.KindImage,
		Image:    &record.Image{Pixels: pixels, Width: width, Height: height, Channels: 1},
	}
}

// AudioChunk builds a valid mono audio record with the given samples.
func AudioChunk(ts int64, streamID string, sampleRate int, samples ...int32) record.Record {
	return record.Record{
		TsNs:     ts,
		StreamID: streamID,
		Kind:     record.KindAudio,
		Audio:    &record.Audio{Samples: samples, SampleRate: sampleRate, Channels: 1},
	}
}
