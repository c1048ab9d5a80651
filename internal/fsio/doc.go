// Package fsio provides the uniform filesystem surface the pipeline writes
// through: plain local paths and scheme-qualified object-store URIs behave
// the same for the handful of operations the steps need.
//
// The Filesystem interface is intentionally small (exists, makedirs, open,
// create, remove, list, checksums). Local paths are served by Local;
// s3:// URIs by the S3 backend; Mux routes per call so a single value can
// serve an arbitrary output root.
package fsio
