// Package migrations contains embedded SQL migrations for the SQLite store.
package migrations

import "embed"

// StateFS holds the room snapshot and action log schema.
//
//go:embed state/*.sql
var StateFS embed.FS
