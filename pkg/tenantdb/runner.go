package tenantdb

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// DefaultSettingKey is the transaction-local setting that row-level security
// policies read the current tenant from.
const DefaultSettingKey = "app.current_tenant"

const setTenantSQL = `SELECT set_config($1, $2, true)`

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSettingKey overrides the session setting name.
func WithSettingKey(key string) RunnerOption {
	return func(r *Runner) {
		if key != "" {
			r.settingKey = key
		}
	}
}

// WithTxOptions sets the options every tenant transaction is started with.
func WithTxOptions(opts pgx.TxOptions) RunnerOption {
	return func(r *Runner) { r.txOptions = opts }
}

// WithRunnerLogger sets the logger used for rollback failures.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// Runner executes units of work inside a tenant-scoped transaction.
type Runner struct {
	pool       TxBeginner
	settingKey string
	txOptions  pgx.TxOptions
	logger     *slog.Logger
}

var _ tenant.Runner = (*Runner)(nil)

// NewRunner creates a runner on top of pool. Panics if pool is nil.
func NewRunner(pool TxBeginner, opts ...RunnerOption) *Runner {
	if pool == nil {
		panic(ErrNilPool)
	}
	r := &Runner{
		pool:       pool,
		settingKey: DefaultSettingKey,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SettingKey returns the name of the session setting the runner writes.
func (r *Runner) SettingKey() string { return r.settingKey }

// RunWithTenant begins a transaction, marks it with tenantID and calls fn with
// a context carrying the scope. The transaction commits when fn returns nil and
// rolls back when fn returns an error or panics. The error from fn is returned
// unchanged; a failed commit is reported as ErrCommitFailed.
//
// Scopes do not nest: calling RunWithTenant with a context that already
// carries a scope returns ErrNestedScope.
func (r *Runner) RunWithTenant(ctx context.Context, tenantID uuid.UUID, fn func(ctx context.Context) error) (err error) {
	if tenantID == uuid.Nil {
		return ErrNilTenant
	}
	if _, ok := tenant.ScopeFromContext(ctx); ok {
		return ErrNestedScope
	}

	tx, err := r.pool.BeginTx(ctx, r.txOptions)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginFailed, err)
	}

	done := false
	defer func() {
		if done {
			return
		}
		// The caller's context may already be cancelled.
		rbErr := tx.Rollback(context.WithoutCancel(ctx))
		if rbErr != nil && !pg.IsTxClosedError(rbErr) {
			r.logger.ErrorContext(ctx, "tenant transaction rollback failed",
				logger.TenantID(tenantID.String()),
				logger.Error(rbErr))
		}
	}()

	if _, err := tx.Exec(ctx, setTenantSQL, r.settingKey, tenantID.String()); err != nil {
		return fmt.Errorf("%w: %w", ErrSetTenantFailed, err)
	}

	if err := fn(tenant.WithScope(ctx, tenant.Scope{TenantID: tenantID, Tx: tx})); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	done = true
	return nil
}

// Run is RunWithTenant for units of work that produce a value.
func Run[T any](ctx context.Context, runner tenant.Runner, tenantID uuid.UUID, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := runner.RunWithTenant(ctx, tenantID, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
