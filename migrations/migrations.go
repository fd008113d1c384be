// Package migrations embeds the database schema so the binary can apply it
// on startup without external tooling.
package migrations

import "embed"

// FS holds the ordered *.up.sql migration files.
//
//go:embed *.up.sql
var FS embed.FS
