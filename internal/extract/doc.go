// Package extract implements the per-sensor extraction steps. Every step
// is an instance of one parametrized template: resolve the sensor's
// streams, consume records in device-time order, encode side-channel
// artifacts where the sensor has them, serialize one JSONL line per
// usable record, and persist a completion marker whose payload summarizes
// what was written. Marker presence makes each step idempotent and
// individually re-runnable.
package extract
