// Package migrations embeds the schema applied at startup by
// database.RunMigrations.
package migrations

import "embed"

// FS holds the *.up.sql files in name order.
//
//go:embed *.up.sql
var FS embed.FS
