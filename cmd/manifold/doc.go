// Command manifold extracts multi-sensor capture recordings into
// per-sensor JSONL streams, merges them into a global event stream, and
// writes a checksum-verified dataset manifest.
package main
