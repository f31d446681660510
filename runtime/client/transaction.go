package client

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// flatTransactor is a transaction primitive without nesting.
type flatTransactor interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Exec(ctx context.Context, stmt string) error
}

// nestedTx maps nested begin/commit/rollback calls onto one flat
// transaction and SAVEPOINT LEVEL<n> savepoints.
type nestedTx struct {
	flat   flatTransactor
	depth  int
	logger *slog.Logger
}

func savepoint(depth int) string {
	return fmt.Sprintf("LEVEL%d", depth)
}

// Begin starts a transaction at depth 0 and a savepoint otherwise. The depth
// is unchanged when the statement fails.
func (t *nestedTx) Begin(ctx context.Context) error {
	var err error
	if t.depth == 0 {
		err = t.flat.Begin(ctx)
	} else {
		err = t.flat.Exec(ctx, "SAVEPOINT "+savepoint(t.depth))
	}
	if err != nil {
		return err
	}
	t.depth++
	t.logger.DebugContext(ctx, "transaction begin", "depth", t.depth)
	return nil
}

// Commit commits the transaction at depth 1 and releases the innermost
// savepoint otherwise.
func (t *nestedTx) Commit(ctx context.Context) error {
	if t.depth == 0 {
		return fmt.Errorf("commit: %w", ErrNoTransaction)
	}
	t.depth--
	t.logger.DebugContext(ctx, "transaction commit", "depth", t.depth)
	if t.depth == 0 {
		return t.flat.Commit(ctx)
	}
	return t.flat.Exec(ctx, "RELEASE SAVEPOINT "+savepoint(t.depth))
}

// Rollback rolls back the transaction at depth 1 and to the innermost
// savepoint otherwise.
func (t *nestedTx) Rollback(ctx context.Context) error {
	if t.depth == 0 {
		return fmt.Errorf("rollback: %w", ErrNoTransaction)
	}
	t.depth--
	t.logger.DebugContext(ctx, "transaction rollback", "depth", t.depth)
	if t.depth == 0 {
		return t.flat.Rollback(ctx)
	}
	return t.flat.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint(t.depth))
}

// sqlTransactor is the database/sql flat transaction of a Client.
type sqlTransactor struct {
	c    *Client
	opts *sql.TxOptions
}

func (s sqlTransactor) Begin(ctx context.Context) error {
	return s.c.executeWithMiddleware(ctx, "BEGIN", nil, func() error {
		tx, err := s.c.db.BeginTx(ctx, s.opts)
		if err != nil {
			return &QueryError{Operation: "begin", Query: "BEGIN", Cause: err}
		}
		s.c.sqlTx = tx
		return nil
	})
}

func (s sqlTransactor) Commit(ctx context.Context) error {
	tx := s.c.sqlTx
	s.c.sqlTx = nil
	return s.c.executeWithMiddleware(ctx, "COMMIT", nil, func() error {
		if err := tx.Commit(); err != nil {
			return &QueryError{Operation: "commit", Query: "COMMIT", Cause: err}
		}
		return nil
	})
}

func (s sqlTransactor) Rollback(ctx context.Context) error {
	tx := s.c.sqlTx
	s.c.sqlTx = nil
	return s.c.executeWithMiddleware(ctx, "ROLLBACK", nil, func() error {
		if err := tx.Rollback(); err != nil {
			return &QueryError{Operation: "rollback", Query: "ROLLBACK", Cause: err}
		}
		return nil
	})
}

func (s sqlTransactor) Exec(ctx context.Context, stmt string) error {
	_, err := s.c.executor().Exec(ctx, stmt)
	return err
}

// BeginTransaction starts a transaction, or a savepoint when one is
// already open.
func (c *Client) BeginTransaction(ctx context.Context) error {
	return c.tx.Begin(ctx)
}

// Commit commits the innermost transaction level.
func (c *Client) Commit(ctx context.Context) error {
	return c.tx.Commit(ctx)
}

// Rollback rolls back the innermost transaction level.
func (c *Client) Rollback(ctx context.Context) error {
	return c.tx.Rollback(ctx)
}

// Depth returns the number of open transaction levels.
func (c *Client) Depth() int {
	return c.tx.depth
}

// TransactionFunc is a function that runs within a transaction
type TransactionFunc func(c *Client) error

// Transaction runs fn inside a new transaction level. The level is rolled
// back if fn returns an error or panics and committed otherwise. Calls may
// be nested.
func (c *Client) Transaction(ctx context.Context, fn TransactionFunc) error {
	if err := c.BeginTransaction(ctx); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = c.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(c); err != nil {
		if rbErr := c.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	return c.Commit(ctx)
}
