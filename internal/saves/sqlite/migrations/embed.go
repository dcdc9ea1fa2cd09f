package migrations

import "embed"

// FS contains embedded SQLite migrations for save-slot storage.
//
//go:embed *.sql
var FS embed.FS
