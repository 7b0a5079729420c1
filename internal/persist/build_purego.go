//go:build purego || !sqlite_cgo

package persist

// Compiled when building without CGO. Uses the pure Go SQLite driver, which
// needs no C compiler and cross-compiles everywhere.
//
// Build command:
//
//	CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver registered for this build.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
