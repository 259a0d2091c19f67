//go:build sqlite_vec
// +build sqlite_vec

package storage

// Compiled with CGO and the sqlite_vec tag. Vector search runs
// vec_distance_cosine inside SQLite; FTS5 needs the sqlite_fts5 tag too:
//
//   CGO_ENABLED=1 go build -tags "sqlite_vec,sqlite_fts5" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
