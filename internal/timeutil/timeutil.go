// Package timeutil converts device-time nanosecond timestamps to calendar
// representations used by logs and the manifest.
package timeutil

import "time"

// NsToISO8601 converts nanoseconds since the Unix epoch to an ISO 8601
// string in UTC.
func NsToISO8601(ns int64) string {
	sec := ns / 1e9
	nsec := ns % 1e9
	return time.Unix(sec, nsec).UTC().Format(time.RFC3339Nano)
}

// PartitionDate converts nanoseconds since the Unix epoch to the UTC
// calendar date formatted as year/month/day, the manifest partition layout.
func PartitionDate(ns int64) string {
	return time.Unix(ns/1e9, 0).UTC().Format("2006/01/02")
}

// NowUTC returns the current time in UTC formatted as RFC 3339. Split out so
// tests can pin manifest creation times.
var NowUTC = func() string {
	return time.Now().UTC().Format(time.RFC3339)
}
