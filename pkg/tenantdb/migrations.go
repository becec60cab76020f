package tenantdb

import "embed"

// Migrations holds the goose migrations for the tenants table, the
// app_current_tenant() helper and the notes table used by the demo service.
// Apply them with pg.MigrateFS(ctx, pool, tenantdb.Migrations, MigrationsDir, cfg, log).
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations that holds the files.
const MigrationsDir = "migrations"
