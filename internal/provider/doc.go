// Package provider defines the record-source collaborator boundary: an
// opened capture session exposes its streams and delivers decoded sensor
// records ordered by device time. Decoding of the proprietary capture
// container itself lives behind this interface and is not reimplemented
// here; backends register themselves by format name.
//
// The built-in "replay" backend reads a JSONL dump of decoded records,
// which is what integration tests and local development run against.
package provider
