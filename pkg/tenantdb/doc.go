// Package tenantdb binds tenant scopes to PostgreSQL transactions.
//
// A Runner starts one transaction per unit of work and marks it with
// set_config('app.current_tenant', id, true). The setting is local to the
// transaction, so it disappears on commit or rollback and can never leak to
// the next user of a pooled connection. Row-level security policies read it
// through the app_current_tenant() SQL function installed by Migrations.
//
// DB is the handle application code queries through. Each call goes to the
// transaction of the scope found in its context, or to the pool when there is
// none:
//
//	runner := tenantdb.NewRunner(pool)
//	db := tenantdb.NewDB(pool)
//
//	err := runner.RunWithTenant(ctx, tenantID, func(ctx context.Context) error {
//		_, err := db.Exec(ctx, `INSERT INTO notes (body) VALUES ($1)`, body)
//		return err
//	})
//
// Registry stores tenants in the tenants table, and BatchRunner runs a unit of
// work for every tenant in turn.
package tenantdb
