package db

import "embed"

// MigrationFS embeds the SQL migrations in internal/db/migrations.
// Applied by the migrate runner (cmd/migrate).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
