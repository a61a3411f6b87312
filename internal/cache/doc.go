// Package cache provides a file-based cache for review results.
//
// Entries are keyed by a SHA-256 hash of the file path, diff content, and
// the pipeline version tag, so any change to the diff or the output contract
// produces a new key. Each entry is one JSON file holding a timestamp and
// the cached comments. Reads treat missing, malformed, or expired entries
// as misses and delete the file; writes go through a temp-file rename so
// concurrent runs never see torn entries.
package cache
