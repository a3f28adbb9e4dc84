// Package migrations embeds the versioned SQL schema for each storage backend.
package migrations

import "embed"

// FS holds the sqlite/ and postgres/ migration sets. Files are named NNN_name.sql.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
