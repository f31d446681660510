// Package executor runs compiled statements against a database handle.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/satishbabariya/sqlwrap/query/cache"
	"github.com/satishbabariya/sqlwrap/query/sqlgen"
)

// Interceptor wraps the execution of a single statement. It must call run
// exactly once and return its error, possibly decorated.
type Interceptor func(ctx context.Context, query string, args []interface{}, run func() error) error

// Executor compiles structured statements and runs them on a Querier.
type Executor struct {
	conn      Querier
	dialect   sqlgen.Dialect
	compiler  *sqlgen.Compiler
	stmts     *cache.StatementCache
	intercept Interceptor
}

// Option configures an Executor.
type Option func(*Executor)

// WithStatementCache reuses prepared INSERT statements from stmts.
func WithStatementCache(stmts *cache.StatementCache) Option {
	return func(e *Executor) {
		e.stmts = stmts
	}
}

// WithInterceptor wraps every statement execution with fn.
func WithInterceptor(fn Interceptor) Option {
	return func(e *Executor) {
		e.intercept = fn
	}
}

// New creates an Executor for conn speaking dialect.
func New(conn Querier, dialect sqlgen.Dialect, opts ...Option) *Executor {
	e := &Executor{
		conn:     conn,
		dialect:  dialect,
		compiler: dialect.Compiler(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// On returns a copy of the executor that runs statements on conn.
func (e *Executor) On(conn Querier) *Executor {
	cp := *e
	cp.conn = conn
	return &cp
}

// Conn returns the handle statements run on.
func (e *Executor) Conn() Querier {
	return e.conn
}

// Dialect returns the SQL dialect.
func (e *Executor) Dialect() sqlgen.Dialect {
	return e.dialect
}

// Compiler returns the statement compiler.
func (e *Executor) Compiler() *sqlgen.Compiler {
	return e.compiler
}

func (e *Executor) run(ctx context.Context, query string, args []interface{}, fn func() error) error {
	if e.intercept == nil {
		return fn()
	}
	return e.intercept(ctx, query, args, fn)
}

// Prepare prepares query, rebinding placeholders for the dialect. The
// caller owns the returned statement.
func (e *Executor) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	query = e.dialect.Rebind(query)
	stmt, err := e.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, newQueryError("prepare", query, nil, err)
	}
	return stmt, nil
}

// Exec runs a statement that returns no rows. stmt is either SQL text with
// ? placeholders or a prepared *sql.Stmt.
func (e *Executor) Exec(ctx context.Context, stmt interface{}, args ...interface{}) (sql.Result, error) {
	var (
		res sql.Result
		err error
	)

	switch s := stmt.(type) {
	case string:
		query := e.dialect.Rebind(s)
		err = e.run(ctx, query, args, func() error {
			res, err = e.conn.ExecContext(ctx, query, args...)
			return err
		})
		return res, newQueryError("exec", query, args, err)

	case *sql.Stmt:
		if s == nil {
			return nil, fmt.Errorf("%w: nil statement", sqlgen.ErrInvalidArgument)
		}
		s = e.bind(ctx, s)
		err = e.run(ctx, "", args, func() error {
			res, err = s.ExecContext(ctx, args...)
			return err
		})
		return res, newQueryError("exec", "", args, err)
	}

	return nil, fmt.Errorf("%w: statement must be a string or *sql.Stmt, got %T", sqlgen.ErrInvalidArgument, stmt)
}

// Query runs a statement that returns rows. stmt is either SQL text with
// ? placeholders or a prepared *sql.Stmt.
func (e *Executor) Query(ctx context.Context, stmt interface{}, args ...interface{}) (*sql.Rows, error) {
	var (
		rows *sql.Rows
		err  error
	)

	switch s := stmt.(type) {
	case string:
		query := e.dialect.Rebind(s)
		err = e.run(ctx, query, args, func() error {
			rows, err = e.conn.QueryContext(ctx, query, args...)
			return err
		})
		return rows, newQueryError("query", query, args, err)

	case *sql.Stmt:
		if s == nil {
			return nil, fmt.Errorf("%w: nil statement", sqlgen.ErrInvalidArgument)
		}
		s = e.bind(ctx, s)
		err = e.run(ctx, "", args, func() error {
			rows, err = s.QueryContext(ctx, args...)
			return err
		})
		return rows, newQueryError("query", "", args, err)
	}

	return nil, fmt.Errorf("%w: statement must be a string or *sql.Stmt, got %T", sqlgen.ErrInvalidArgument, stmt)
}

// bind moves a pool statement into the current transaction, if any.
func (e *Executor) bind(ctx context.Context, stmt *sql.Stmt) *sql.Stmt {
	if tx, ok := e.conn.(stmtBinder); ok {
		return tx.StmtContext(ctx, stmt)
	}
	return stmt
}

// Update runs an UPDATE and returns the number of affected rows.
func (e *Executor) Update(ctx context.Context, table string, values sqlgen.Row, filter sqlgen.Filter) (int64, error) {
	q, err := e.compiler.Update(table, values, filter)
	if err != nil {
		return 0, err
	}
	return e.affected(ctx, "update", q)
}

// Delete runs a DELETE and returns the number of affected rows.
func (e *Executor) Delete(ctx context.Context, table string, filter sqlgen.Filter) (int64, error) {
	q, err := e.compiler.Delete(table, filter)
	if err != nil {
		return 0, err
	}
	return e.affected(ctx, "delete", q)
}

// Select runs a SELECT. The caller must close the returned rows.
func (e *Executor) Select(ctx context.Context, columns []string, tables sqlgen.Tables, filter sqlgen.Filter, orderBy []string) (*sql.Rows, error) {
	q, err := e.compiler.Select(columns, tables, filter, orderBy)
	if err != nil {
		return nil, err
	}
	return e.Query(ctx, q.SQL, q.Args...)
}

func (e *Executor) affected(ctx context.Context, op string, q *sqlgen.Query) (int64, error) {
	res, err := e.Exec(ctx, q.SQL, q.Args...)
	if err != nil {
		var qe *QueryError
		if errors.As(err, &qe) {
			qe.Operation = op
		}
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, newQueryError(op, q.SQL, q.Args, err)
	}
	return n, nil
}
