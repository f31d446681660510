package executor

import (
	"context"
	"database/sql"
)

// Querier runs statements. It is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Beginner is a Querier that can start a flat transaction. It is satisfied
// by *sql.DB and *sql.Conn.
type Beginner interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// stmtBinder rebinds a pool statement to a transaction (*sql.Tx).
type stmtBinder interface {
	StmtContext(ctx context.Context, stmt *sql.Stmt) *sql.Stmt
}

var (
	_ Beginner = (*sql.DB)(nil)
	_ Beginner = (*sql.Conn)(nil)
	_ Querier  = (*sql.Tx)(nil)
)
