package sqlstore

import (
	"embed"
	"io/fs"

	persistence "github.com/goliatone/go-persistence-bun"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsFS exposes the credential schema migrations so callers embedding
// this package in a larger application can register them with their own
// persistence client.
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return migrationsFS
	}
	return sub
}

// RegisterMigrations attaches the credential schema to the client; run
// client.Migrate afterwards.
func RegisterMigrations(client *persistence.Client) {
	if client == nil {
		return
	}
	client.RegisterSQLMigrations(MigrationsFS())
}
