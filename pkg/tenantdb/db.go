package tenantdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pool is satisfied by *pgxpool.Pool.
type Pool interface {
	Querier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// DB is a database handle that forwards every call to the transaction of the
// active tenant scope, or to the pool when the context carries none.
// The decision is made per call from the context argument, so a single DB
// value can be shared by concurrent requests.
//
// Within one scope every call lands on the same connection. A pgx connection
// runs one statement at a time, so goroutines that inherit a scoped context
// must take turns: issue a call only after the previous one, including any
// rows it returned, has finished.
type DB struct {
	pool Querier
}

var _ Querier = (*DB)(nil)

// NewDB wraps pool. Panics if pool is nil.
func NewDB(pool Querier) *DB {
	if pool == nil {
		panic(ErrNilPool)
	}
	return &DB{pool: pool}
}

// Querier returns the target that a call made with ctx will use.
func (d *DB) Querier(ctx context.Context) Querier {
	if scope, ok := tenant.ScopeFromContext(ctx); ok && scope.Tx != nil {
		return scope.Tx
	}
	return d.pool
}

// InScope reports whether calls made with ctx run inside a tenant transaction.
func (d *DB) InScope(ctx context.Context) bool {
	scope, ok := tenant.ScopeFromContext(ctx)
	return ok && scope.Tx != nil
}

func (d *DB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return d.Querier(ctx).Exec(ctx, sql, args...)
}

func (d *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return d.Querier(ctx).Query(ctx, sql, args...)
}

func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return d.Querier(ctx).QueryRow(ctx, sql, args...)
}

func (d *DB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return d.Querier(ctx).SendBatch(ctx, b)
}

func (d *DB) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return d.Querier(ctx).CopyFrom(ctx, tableName, columnNames, rowSrc)
}

// Begin starts a transaction on the pool, or a savepoint inside the active
// tenant transaction. A savepoint inherits the tenant setting.
func (d *DB) Begin(ctx context.Context) (pgx.Tx, error) {
	return d.Querier(ctx).Begin(ctx)
}
