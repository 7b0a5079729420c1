//go:build sqlite_cgo

package persist

// Compiled when building with CGO and the sqlite_cgo tag. Uses the C SQLite
// driver, which is faster for large snapshots.
//
// Build command:
//
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver registered for this build.
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)
