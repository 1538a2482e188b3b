package authclient

import (
	"io/fs"

	"github.com/goliatone/go-authclient/migrations"
)

// GetMigrationsFS returns the embedded session credential migrations, including
// the sqlite alternatives under data/sql/migrations/sqlite.
func GetMigrationsFS() fs.FS {
	return migrations.FS()
}
