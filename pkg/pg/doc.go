// Package pg provides PostgreSQL plumbing on top of pgx: pool construction
// with retries, goose migrations from embedded filesystems, health checks and
// helpers that classify driver errors.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//
//	if err := pg.MigrateFS(ctx, pool, tenantdb.Migrations, "migrations", cfg, log); err != nil { ... }
package pg
