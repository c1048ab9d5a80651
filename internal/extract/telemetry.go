package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"manifold/internal/config"
	"manifold/internal/logging"
	"manifold/internal/provider"
	"manifold/internal/record"
	"manifold/internal/services"
	"manifold/internal/status"
)

// IMUSpec extracts every motion stream into imu.jsonl.
func IMUSpec() Spec {
	return Spec{
		Step:    "extract_imu",
		Sensor:  "imu",
		JSONL:   "imu.jsonl",
		Enabled: func(cfg *config.Config) bool { return cfg.IMU.Export },
		Extract: func(ctx context.Context, env *Env, log *slog.Logger) (*status.Summary, error) {
			return extractTelemetry(ctx, env, log, telemetryKind{
				step:      "extract_imu",
				sensor:    "imu",
				jsonl:     "imu.jsonl",
				kind:      record.KindMotion,
				mandatory: true,
				payload:   motionPayload,
			})
		},
	}
}

// GPSSpec extracts location fixes into gps.jsonl. GPS is optional: a
// capture without fixes leaves no output and no marker.
func GPSSpec() Spec {
	return Spec{
		Step:    "extract_gps",
		Sensor:  "gps",
		JSONL:   "gps.jsonl",
		Enabled: func(cfg *config.Config) bool { return cfg.GPS.Export },
		Extract: func(ctx context.Context, env *Env, log *slog.Logger) (*status.Summary, error) {
			return extractTelemetry(ctx, env, log, telemetryKind{
				step:    "extract_gps",
				sensor:  "gps",
				jsonl:   "gps.jsonl",
				kind:    record.KindGPS,
				payload: gpsPayload,
			})
		},
	}
}

// WifiSpec extracts access-point scans into wifi.jsonl. Optional.
func WifiSpec() Spec {
	return Spec{
		Step:    "extract_wifi",
		Sensor:  "wifi",
		JSONL:   "wifi.jsonl",
		Enabled: func(cfg *config.Config) bool { return cfg.Wifi.Export },
		Extract: func(ctx context.Context, env *Env, log *slog.Logger) (*status.Summary, error) {
			return extractTelemetry(ctx, env, log, telemetryKind{
				step:    "extract_wifi",
				sensor:  "wifi",
				jsonl:   "wifi.jsonl",
				kind:    record.KindWifi,
				payload: wifiPayload,
			})
		},
	}
}

// BTSpec extracts beacon readings into bt.jsonl. Optional.
func BTSpec() Spec {
	return Spec{
		Step:    "extract_bt",
		Sensor:  "bt",
		JSONL:   "bt.jsonl",
		Enabled: func(cfg *config.Config) bool { return cfg.BT.Export },
		Extract: func(ctx context.Context, env *Env, log *slog.Logger) (*status.Summary, error) {
			return extractTelemetry(ctx, env, log, telemetryKind{
				step:    "extract_bt",
				sensor:  "bt",
				jsonl:   "bt.jsonl",
				kind:    record.KindBluetooth,
				payload: btPayload,
			})
		},
	}
}

// telemetryKind parametrizes the JSONL-only extraction path shared by the
// sensors with no side-channel artifacts. Byte accounting for these kinds
// is serialized line bytes, newline included.
type telemetryKind struct {
	step      string
	sensor    string
	jsonl     string
	kind      record.Kind
	mandatory bool
	// payload maps one record to its JSONL fields, or nil to skip it.
	payload func(rec record.Record) map[string]any
}

func extractTelemetry(ctx context.Context, env *Env, log *slog.Logger, kind telemetryKind) (*status.Summary, error) {
	streams := provider.StreamsByKind(env.Source, kind.kind)
	if len(streams) == 0 {
		if kind.mandatory {
			return nil, services.Wrap(services.ErrProvider, kind.step, "resolve streams",
				"no "+kind.sensor+" streams present", nil)
		}
		log.Warn("no streams present; nothing to extract",
			logging.String("sensor", kind.sensor))
		return nil, nil
	}

	streamIDs := make([]string, 0, len(streams))
	for _, info := range streams {
		streamIDs = append(streamIDs, info.ID)
	}
	summary := &status.Summary{Sensor: kind.sensor, JSONL: kind.jsonl, Streams: streamIDs}
	emitter, err := newEmitter(ctx, env, summary, true)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, kind.step, "create jsonl", "", err)
	}
	defer emitter.Close()

	it, err := deliver(ctx, env, kind.step, streamIDs...)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	for {
		rec, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, kind.step, "read record", "", err)
		}
		payload := kind.payload(rec)
		if payload == nil {
			log.Warn("skipping unusable record", logging.Int64("ts_ns", rec.TsNs))
			continue
		}
		payload["ts_ns"] = rec.TsNs
		payload["sensor"] = kind.sensor
		payload["stream_id"] = rec.StreamID
		if err := emitter.Emit(rec.TsNs, payload); err != nil {
			return nil, services.Wrap(services.ErrTransient, kind.step, "write jsonl line", "", err)
		}
	}
	if err := emitter.Close(); err != nil {
		return nil, services.Wrap(services.ErrTransient, kind.step, "finalize jsonl", "", err)
	}
	return summary, nil
}

func motionPayload(rec record.Record) map[string]any {
	m := rec.Motion
	if m == nil {
		return nil
	}
	var acc, gyro, mag any
	if m.AccelValid {
		acc = m.Accel[:]
	}
	if m.GyroValid {
		gyro = m.Gyro[:]
	}
	if m.MagValid {
		mag = m.Mag[:]
	}
	return map[string]any{"acc": acc, "gyro": gyro, "mag": mag}
}

func gpsPayload(rec record.Record) map[string]any {
	g := rec.GPS
	if g == nil {
		return nil
	}
	var lat, lon, alt, speed, accuracy any
	if g.LatLonValid {
		lat, lon = g.Latitude, g.Longitude
	}
	if g.AltValid {
		alt = g.Altitude
	}
	if g.SpeedValid {
		speed = g.Speed
	}
	if g.AccuracyValid {
		accuracy = g.Accuracy
	}
	return map[string]any{
		"lat":      lat,
		"lon":      lon,
		"alt":      alt,
		"fix":      g.Provider,
		"speed":    speed,
		"accuracy": accuracy,
	}
}

func wifiPayload(rec record.Record) map[string]any {
	w := rec.Wifi
	if w == nil {
		return nil
	}
	var rssi, freq any
	if w.RSSIValid {
		rssi = w.RSSI
	}
	if w.FreqValid {
		freq = w.FreqMHz
	}
	return map[string]any{
		"ap_mac":   w.APMac,
		"ssid":     w.SSID,
		"rssi":     rssi,
		"freq_mhz": freq,
	}
}

func btPayload(rec record.Record) map[string]any {
	b := rec.Bluetooth
	if b == nil {
		return nil
	}
	var rssi, tx, freq any
	if b.RSSIValid {
		rssi = b.RSSI
	}
	if b.TxPowerValid {
		tx = b.TxPower
	}
	if b.FreqValid {
		freq = b.FreqMHz
	}
	return map[string]any{
		"beacon_id": b.BeaconID,
		"rssi":      rssi,
		"tx_power":  tx,
		"freq_mhz":  freq,
	}
}
