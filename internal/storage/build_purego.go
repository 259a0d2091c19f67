//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package storage

// Default build. modernc.org/sqlite ships FTS5 and JSON1; cosine
// similarity is computed in Go over the filtered candidate rows.

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
