// Package migrations embeds the SQL migration files into the binary so the
// viewer can migrate its database without the files on disk.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var files embed.FS

// FS holds the migration files at its root, ready for database.DB.Migrate.
var FS fs.FS = files
