package migrations

import (
	"fmt"
	"io/fs"
	"strings"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const rootPath = "data/sql/migrations"

// DialectFS is the session credential migration tree for one SQL dialect.
type DialectFS struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Filesystems lists the embedded migration trees. Postgres lives at the root
// and sqlite under sqlite/; each must hold at least one *.up.sql file.
func Filesystems() ([]DialectFS, error) {
	base, err := fs.Sub(FS(), rootPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", rootPath, err)
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	filesystems := []DialectFS{
		{Dialect: DialectPostgres, Path: rootPath, FS: base},
		{Dialect: DialectSQLite, Path: rootPath + "/sqlite", FS: sqliteFS},
	}
	for _, entry := range filesystems {
		matches, err := fs.Glob(entry.FS, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s %s: %w", entry.Dialect, entry.Path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", entry.Dialect, entry.Path)
		}
	}
	return filesystems, nil
}

// ForDialect returns the migration tree for dialect. The sqlite3 driver name is
// accepted for sqlite.
func ForDialect(dialect string) (fs.FS, error) {
	want := strings.TrimSpace(strings.ToLower(dialect))
	if want == "sqlite3" {
		want = DialectSQLite
	}
	filesystems, err := Filesystems()
	if err != nil {
		return nil, err
	}
	for _, entry := range filesystems {
		if entry.Dialect == want {
			return entry.FS, nil
		}
	}
	return nil, fmt.Errorf("migrations: no migrations for dialect %q", dialect)
}
