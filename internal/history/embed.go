package history

import "embed"

// migrationsFS contains the embedded SQL migration files.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS
