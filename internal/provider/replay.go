package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"manifold/internal/record"
)

func init() {
	RegisterFormat("replay", openReplay)
}

// replayLine is the JSONL shape of one decoded record in a replay capture.
// Optional fields use pointers so absence maps onto the record validity
// flags.
type replayLine struct {
	TsNs     int64  `json:"ts_ns"`
	StreamID string `json:"stream_id"`
	Label    string `json:"label,omitempty"`
	Kind     string `json:"kind"`

	// image
	Pixels      []byte `json:"pixels,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Channels    int    `json:"channels,omitempty"`
	FrameNumber *int64 `json:"frame_number,omitempty"`

	GazeVector     *[3]float64 `json:"gaze_vector,omitempty"`
	GazeConfidence *float64    `json:"gaze_confidence,omitempty"`

	// audio
	Samples    []int32 `json:"samples,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
	AudioChans int     `json:"audio_channels,omitempty"`

	// motion
	Accel *[3]float64 `json:"acc,omitempty"`
	Gyro  *[3]float64 `json:"gyro,omitempty"`
	Mag   *[3]float64 `json:"mag,omitempty"`

	// gps
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	Alt      *float64 `json:"alt,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
	Accuracy *float64 `json:"accuracy,omitempty"`
	Fix      string   `json:"fix,omitempty"`

	// wifi
	APMac   string   `json:"ap_mac,omitempty"`
	SSID    string   `json:"ssid,omitempty"`
	RSSI    *float64 `json:"rssi,omitempty"`
	FreqMHz *float64 `json:"freq_mhz,omitempty"`

	// bluetooth
	BeaconID string   `json:"beacon_id,omitempty"`
	TxPower  *float64 `json:"tx_power,omitempty"`
}

// replaySource replays a JSONL dump of decoded records. The dump is
// expected to be in device-time order, matching what a real capture
// container delivers.
type replaySource struct {
	path    string
	streams []StreamInfo
}

func openReplay(_ context.Context, path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay capture: %w", err)
	}
	defer f.Close()

	// One prescan builds the stream table; delivery re-reads the file.
	seen := map[string]int{}
	var streams []StreamInfo
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rl replayLine
		if err := json.Unmarshal(line, &rl); err != nil {
			continue
		}
		if rl.StreamID == "" {
			continue
		}
		if _, ok := seen[rl.StreamID]; ok {
			continue
		}
		seen[rl.StreamID] = len(streams)
		streams = append(streams, StreamInfo{
			ID:    rl.StreamID,
			Label: rl.Label,
			Kind:  record.Kind(rl.Kind),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan replay capture: %w", err)
	}
	return &replaySource{path: path, streams: streams}, nil
}

func (s *replaySource) Streams() []StreamInfo {
	return append([]StreamInfo{}, s.streams...)
}

func (s *replaySource) Deliver(_ context.Context, streamIDs ...string) (Iterator, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open replay capture: %w", err)
	}
	wanted := make(map[string]struct{}, len(streamIDs))
	for _, id := range streamIDs {
		wanted[id] = struct{}{}
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	return &replayIterator{file: f, scanner: scanner, wanted: wanted}, nil
}

func (s *replaySource) Close() error {
	return nil
}

type replayIterator struct {
	file    *os.File
	scanner *bufio.Scanner
	wanted  map[string]struct{}
}

func (it *replayIterator) Next() (record.Record, error) {
	for it.scanner.Scan() {
		line := it.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rl replayLine
		if err := json.Unmarshal(line, &rl); err != nil {
			continue
		}
		if _, ok := it.wanted[rl.StreamID]; !ok {
			continue
		}
		return rl.toRecord(), nil
	}
	if err := it.scanner.Err(); err != nil {
		return record.Record{}, err
	}
	return record.Record{}, io.EOF
}

func (it *replayIterator) Close() error {
	return it.file.Close()
}

func (rl *replayLine) toRecord() record.Record {
	rec := record.Record{
		TsNs:     rl.TsNs,
		StreamID: rl.StreamID,
		Kind:     record.Kind(rl.Kind),
	}
	switch rec.Kind {
	case record.KindImage:
		img := &record.Image{
			Pixels:   rl.Pixels,
			Width:    rl.Width,
			Height:   rl.Height,
			Channels: rl.Channels,
		}
		if rl.FrameNumber != nil {
			img.FrameNumber = *rl.FrameNumber
			img.FrameValid = true
		}
		if rl.GazeVector != nil {
			img.GazeVector = *rl.GazeVector
			img.GazeValid = true
		}
		if rl.GazeConfidence != nil {
			img.GazeConfidence = *rl.GazeConfidence
			img.ConfidenceValid = true
		}
		rec.Image = img
	case record.KindAudio:
		rec.Audio = &record.Audio{
			Samples:    rl.Samples,
			SampleRate: rl.SampleRate,
			Channels:   rl.AudioChans,
		}
	case record.KindMotion:
		motion := &record.Motion{}
		if rl.Accel != nil {
			motion.Accel = *rl.Accel
			motion.AccelValid = true
		}
		if rl.Gyro != nil {
			motion.Gyro = *rl.Gyro
			motion.GyroValid = true
		}
		if rl.Mag != nil {
			motion.Mag = *rl.Mag
			motion.MagValid = true
		}
		rec.Motion = motion
	case record.KindGPS:
		gps := &record.GPS{Provider: rl.Fix}
		if rl.Lat != nil && rl.Lon != nil {
			gps.Latitude = *rl.Lat
			gps.Longitude = *rl.Lon
			gps.LatLonValid = true
		}
		if rl.Alt != nil {
			gps.Altitude = *rl.Alt
			gps.AltValid = true
		}
		if rl.Speed != nil {
			gps.Speed = *rl.Speed
			gps.SpeedValid = true
		}
		if rl.Accuracy != nil {
			gps.Accuracy = *rl.Accuracy
			gps.AccuracyValid = true
		}
		rec.GPS = gps
	case record.KindWifi:
		wifi := &record.Wifi{APMac: rl.APMac, SSID: rl.SSID}
		if rl.RSSI != nil {
			wifi.RSSI = *rl.RSSI
			wifi.RSSIValid = true
		}
		if rl.FreqMHz != nil {
			wifi.FreqMHz = *rl.FreqMHz
			wifi.FreqValid = true
		}
		rec.Wifi = wifi
	case record.KindBluetooth:
		bt := &record.Bluetooth{BeaconID: rl.BeaconID}
		if rl.RSSI != nil {
			bt.RSSI = *rl.RSSI
			bt.RSSIValid = true
		}
		if rl.TxPower != nil {
			bt.TxPower = *rl.TxPower
			bt.TxPowerValid = true
		}
		if rl.FreqMHz != nil {
			bt.FreqMHz = *rl.FreqMHz
			bt.FreqValid = true
		}
		rec.Bluetooth = bt
	}
	return rec
}
