package migrations

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the session schema for postgres plus the sqlite
// alternatives under data/sql/migrations/sqlite.
//
//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

// FS returns the embedded migration tree rooted above data/.
func FS() fs.FS {
	return migrationsFS
}
