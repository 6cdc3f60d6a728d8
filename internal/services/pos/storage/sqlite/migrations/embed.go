package migrations

import "embed"

// FS contains embedded SQLite migrations for POS storage.
//
//go:embed *.sql
var FS embed.FS
