package types

import "errors"

var (
	// ErrBackendUnavailable signals that a backend tier could not be
	// constructed. It triggers selector fallback and is never surfaced to
	// the end caller.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrSnapshotNotFound is returned by the persistence store when no
	// usable snapshot exists for a corpus fingerprint. Corrupt or
	// mismatched snapshots are reported the same way.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
