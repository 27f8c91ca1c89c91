// Package migrations embeds the SQLite schema applied with goose.
package migrations

import "embed"

// FS holds all the migration files.
//
//go:embed *.sql
var FS embed.FS
