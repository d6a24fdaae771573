package migrations

import (
	"embed"
	"io/fs"
)

// FS holds the schema migrations, one directory per dialect
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// For returns the migrations of one dialect ("sqlite" or "postgres")
func For(dialect string) (fs.FS, error) {
	return fs.Sub(FS, dialect)
}
