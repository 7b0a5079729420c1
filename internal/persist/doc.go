// Package persist serializes index snapshots to SQLite, keyed by corpus
// fingerprint.
//
// A fingerprint summarizes the corpus as a hash over every file's (path,
// content hash, modification time); any change to any file produces a new
// fingerprint and therefore a cache miss on the old snapshot. Snapshots
// round-trip exactly: records come back in insertion order with their
// vectors, metadata, and (for the feature-heuristic backend) the frozen
// vocabulary.
//
// Persistence is strictly a cache. Missing, corrupt, or version-mismatched
// snapshots all surface as types.ErrSnapshotNotFound and the caller rebuilds
// from source; no failure here is fatal.
//
// Two SQLite drivers are supported behind build tags: modernc.org/sqlite for
// pure Go builds (the default) and mattn/go-sqlite3 with the sqlite_cgo tag.
package persist
