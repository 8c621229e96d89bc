// Package migrations embeds the goose SQL migrations so the binary carries its schema.
// Statements stay within the subset PostgreSQL and SQLite share; timestamps are
// BIGINT unix microseconds.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
