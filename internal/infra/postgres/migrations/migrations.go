package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the bun migration set; each file registers itself in init.
var Migrations = migrate.NewMigrations()
