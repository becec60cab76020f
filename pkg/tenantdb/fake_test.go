package tenantdb_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errNotImplemented = errors.New("not implemented")

// fakeConn models the session state of a pooled connection.
type fakeConn struct {
	mu      sync.Mutex
	session map[string]string
}

func (c *fakeConn) get(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session[key]
}

func (c *fakeConn) set(key, val string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session[key] = val
}

type stmt struct {
	sql  string
	args []any
}

// fakeTx satisfies pgx.Tx. set_config with is_local = true writes to a map
// that disappears with the transaction, as in PostgreSQL.
type fakeTx struct {
	id        int
	conn      *fakeConn
	commitErr error
	execErr   error

	mu             sync.Mutex
	local          map[string]string
	stmts          []stmt
	closed         bool
	committed      bool
	rolledBack     bool
	rollbackCtxErr error
}

func (f *fakeTx) record(sql string, args []any) {
	f.mu.Lock()
	f.stmts = append(f.stmts, stmt{sql: sql, args: args})
	f.mu.Unlock()
}

func (f *fakeTx) statements() []stmt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stmt(nil), f.stmts...)
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) { return nil, errNotImplemented }

func (f *fakeTx) Commit(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return pgx.ErrTxClosed
	}
	f.closed = true
	f.local = nil
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollbackCtxErr = ctx.Err()
	if f.closed {
		return pgx.ErrTxClosed
	}
	f.closed = true
	f.local = nil
	f.rolledBack = true
	return nil
}

func (f *fakeTx) CopyFrom(_ context.Context, table pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	f.record("COPY "+table.Sanitize(), nil)
	return 0, nil
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (f *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errNotImplemented
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errNotImplemented
}

func (f *fakeTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.record(sql, args)
	if strings.Contains(sql, "current_setting") {
		key, _ := args[0].(string)
		f.mu.Lock()
		val, ok := f.local[key]
		f.mu.Unlock()
		if !ok {
			val = f.conn.get(key)
		}
		return fakeRow{val: val}
	}
	return fakeRow{err: errNotImplemented}
}

func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.record(sql, args)
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	if strings.Contains(sql, "set_config") {
		key, _ := args[0].(string)
		val, _ := args[1].(string)
		if strings.Contains(sql, "true)") {
			f.mu.Lock()
			f.local[key] = val
			f.mu.Unlock()
		} else {
			f.conn.set(key, val)
		}
	}
	return pgconn.NewCommandTag("SELECT 1"), nil
}

func (f *fakeTx) Conn() *pgx.Conn { return nil }

// fakePool hands out transactions on a single shared connection.
type fakePool struct {
	conn      *fakeConn
	beginErr  error
	commitErr error
	execErr   error

	mu    sync.Mutex
	txs   []*fakeTx
	stmts []stmt
}

func newFakePool() *fakePool {
	return &fakePool{conn: &fakeConn{session: map[string]string{}}}
}

func (p *fakePool) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	tx := &fakeTx{
		id:        len(p.txs) + 1,
		conn:      p.conn,
		commitErr: p.commitErr,
		execErr:   p.execErr,
		local:     map[string]string{},
	}
	p.txs = append(p.txs, tx)
	return tx, nil
}

func (p *fakePool) transactions() []*fakeTx {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*fakeTx(nil), p.txs...)
}

func (p *fakePool) record(sql string, args []any) {
	p.mu.Lock()
	p.stmts = append(p.stmts, stmt{sql: sql, args: args})
	p.mu.Unlock()
}

func (p *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.record(sql, args)
	return pgconn.NewCommandTag("SELECT 1"), nil
}

func (p *fakePool) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.record(sql, args)
	return nil, errNotImplemented
}

func (p *fakePool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	p.record(sql, args)
	if strings.Contains(sql, "current_setting") {
		key, _ := args[0].(string)
		return fakeRow{val: p.conn.get(key)}
	}
	return fakeRow{err: errNotImplemented}
}

func (p *fakePool) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults {
	p.record("BATCH", nil)
	return nil
}

func (p *fakePool) CopyFrom(_ context.Context, table pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	p.record("COPY "+table.Sanitize(), nil)
	return 0, nil
}

func (p *fakePool) Begin(context.Context) (pgx.Tx, error) {
	return p.BeginTx(context.Background(), pgx.TxOptions{})
}

type fakeRow struct {
	val string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if p, ok := dest[0].(*string); ok {
		*p = r.val
	}
	return nil
}
