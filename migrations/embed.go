// Package migrations embeds the schema migration files.
package migrations

import "embed"

//go:embed sql/*.sql
var FS embed.FS
