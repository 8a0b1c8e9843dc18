package migrations

import "embed"

// FS contains embedded SQLite schema files for task storage.
//
//go:embed *.sql
var FS embed.FS
