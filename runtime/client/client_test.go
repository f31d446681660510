package client

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlwrap/query/sqlgen"
)

func newSQLiteClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	ctx := context.Background()
	c, err := Connect(ctx, Params{Driver: "sqlite"}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	_, err = c.Exec(ctx, `CREATE TABLE accounts (
		id INTEGER PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		balance INTEGER NOT NULL DEFAULT 0
	)`)
	require.NoError(t, err)
	return c
}

func countAccounts(t *testing.T, c *Client) int {
	t.Helper()
	rows, err := c.Query(context.Background(), "SELECT COUNT(*) FROM accounts")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	return n
}

func TestNewDetectsDriver(t *testing.T) {
	tests := []struct {
		driver string
		dsn    string
		want   string
		quoted string
	}{
		{"sqlite3", ":memory:", "sqlite", `"users"`},
		{"postgres", "host=localhost dbname=unused", "pgsql", `"users"`},
		{"mysql", "root@tcp(localhost:3306)/unused", "mysql", "`users`"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			db, err := sql.Open(tt.driver, tt.dsn)
			require.NoError(t, err)
			defer db.Close()

			c, err := New(db)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Driver().Name)

			q, err := c.Quote("users")
			require.NoError(t, err)
			assert.Equal(t, tt.quoted, q)
		})
	}
}

func TestQuoteMatchesLibpq(t *testing.T) {
	db, err := sql.Open("postgres", "host=localhost")
	require.NoError(t, err)
	defer db.Close()
	c, err := New(db)
	require.NoError(t, err)

	for _, name := range []string{"users", "created_at", "Order2"} {
		q, err := c.Quote(name)
		require.NoError(t, err)
		assert.Equal(t, pq.QuoteIdentifier(name), q)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = New(db, WithDriver("oracle"))
	assert.ErrorIs(t, err, ErrInvalidDriver)

	_, err = New(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Connect(context.Background(), Params{Driver: "db2"})
	assert.ErrorIs(t, err, ErrInvalidDriver)
}

func TestClientCompileHelpers(t *testing.T) {
	c := newSQLiteClient(t)

	stmt, err := c.BuildInsertStatement("t", []string{"id", "name"})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "t" ("id","name") VALUES (?,?)`, stmt)

	text, args, err := c.CompileFilter(sqlgen.Filter{
		sqlgen.Where("id", []int{1, 2}),
		sqlgen.OR,
		sqlgen.Where("email LIKE", "%@example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, `("id" IN (?,?) OR "email" LIKE ?)`, text)
	assert.Equal(t, []interface{}{1, 2, "%@example.com"}, args)

	from, err := c.CompileTables(sqlgen.From("accounts a").Join("LEFT JOIN").On("ledger l", sqlgen.Filter{sqlgen.Where("l.account_id", "a.id")}))
	require.NoError(t, err)
	assert.Equal(t, `"accounts" a LEFT JOIN "ledger" l ON ("l"."account_id" = "a"."id")`, from)

	_, err = c.Quote("count(*)")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestClientCRUD(t *testing.T) {
	ctx := context.Background()
	c := newSQLiteClient(t)

	n, err := c.Insert(ctx, "accounts", sqlgen.Maps{
		{"id": 1, "email": "a@example.com", "balance": 10},
		{"id": 2, "email": "b@example.com", "balance": 20},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = c.Update(ctx, "accounts", sqlgen.Row{{Column: "balance -=", Value: 5}}, sqlgen.Filter{sqlgen.Where("id", 2)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := c.Select(ctx, []string{"email", "balance"}, sqlgen.From("accounts"), nil, []string{"balance DESC"})
	require.NoError(t, err)
	var got []int
	for rows.Next() {
		var email string
		var balance int
		require.NoError(t, rows.Scan(&email, &balance))
		got = append(got, balance)
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, []int{15, 10}, got)

	n, err = c.Delete(ctx, "accounts", sqlgen.Filter{sqlgen.Where("balance <", 12)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, countAccounts(t, c))
}

func TestClientUpsert(t *testing.T) {
	ctx := context.Background()
	c := newSQLiteClient(t, WithStatementCache(8))

	_, err := c.Insert(ctx, "accounts", sqlgen.Map{"id": 1, "email": "a@example.com", "balance": 1})
	require.NoError(t, err)

	_, err = c.Insert(ctx, "accounts", sqlgen.Map{"id": 1, "email": "a@example.com", "balance": 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConstraintViolation)
	assert.True(t, IsConstraintViolation(err))

	var liteErr sqlite3.Error
	require.True(t, errors.As(err, &liteErr))
	assert.Equal(t, sqlite3.ErrConstraint, liteErr.Code)

	n, err := c.Insert(ctx, "accounts", sqlgen.Map{"id": 1, "email": "a@example.com", "balance": 2}, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := c.Query(ctx, "SELECT balance, email FROM accounts WHERE id = ?", 1)
	require.NoError(t, err)
	require.True(t, rows.Next())
	var balance int
	var email string
	require.NoError(t, rows.Scan(&balance, &email))
	require.NoError(t, rows.Close())
	assert.Equal(t, 2, balance)
	assert.Equal(t, "a@example.com", email)

	stats := c.Stats()
	require.NotNil(t, stats.Cache)
	assert.Equal(t, int64(1), stats.Cache.Misses)
	assert.Equal(t, int64(2), stats.Cache.Hits)
}

func TestClientStatementCacheInsideTransaction(t *testing.T) {
	c := newSQLiteClient(t, WithStatementCache(4))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.BeginTransaction(ctx))
	n, err := c.Insert(ctx, "accounts", sqlgen.Maps{
		{"id": 1, "email": "a@example.com"},
		{"id": 2, "email": "b@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, c.BeginTransaction(ctx))
	_, err = c.Insert(ctx, "accounts", sqlgen.Map{"id": 3, "email": "c@example.com"})
	require.NoError(t, err)
	require.NoError(t, c.Rollback(ctx))
	require.NoError(t, c.Commit(ctx))
	assert.Equal(t, 2, countAccounts(t, c))

	// Outside the transaction the statement is prepared once and reused.
	_, err = c.Insert(ctx, "accounts", sqlgen.Map{"id": 4, "email": "d@example.com"})
	require.NoError(t, err)
	require.NoError(t, c.BeginTransaction(ctx))
	_, err = c.Insert(ctx, "accounts", sqlgen.Map{"id": 5, "email": "e@example.com"})
	require.NoError(t, err)
	require.NoError(t, c.Commit(ctx))

	stats := c.Stats()
	require.NotNil(t, stats.Cache)
	assert.Equal(t, int64(1), stats.Cache.Misses)
	assert.Equal(t, int64(1), stats.Cache.Hits)
	assert.Equal(t, 4, countAccounts(t, c))
}

func TestClientNestedRollback(t *testing.T) {
	ctx := context.Background()
	c := newSQLiteClient(t)

	require.NoError(t, c.BeginTransaction(ctx))
	assert.NotNil(t, c.Tx())
	_, err := c.Insert(ctx, "accounts", sqlgen.Map{"id": 1, "email": "outer@example.com"})
	require.NoError(t, err)

	require.NoError(t, c.BeginTransaction(ctx))
	assert.Equal(t, 2, c.Depth())
	_, err = c.Insert(ctx, "accounts", sqlgen.Map{"id": 2, "email": "inner@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, countAccounts(t, c))

	require.NoError(t, c.Rollback(ctx))
	assert.Equal(t, 1, countAccounts(t, c))

	require.NoError(t, c.Commit(ctx))
	assert.Equal(t, 0, c.Depth())
	assert.Nil(t, c.Tx())
	assert.Equal(t, 1, countAccounts(t, c))

	assert.ErrorIs(t, c.Commit(ctx), ErrNoTransaction)
	assert.ErrorIs(t, c.Rollback(ctx), ErrNoTransaction)
}

func TestClientTransactionFunc(t *testing.T) {
	ctx := context.Background()
	c := newSQLiteClient(t)
	errAbort := errors.New("abort")

	err := c.Transaction(ctx, func(c *Client) error {
		if _, err := c.Insert(ctx, "accounts", sqlgen.Map{"id": 1, "email": "kept@example.com"}); err != nil {
			return err
		}
		inner := c.Transaction(ctx, func(c *Client) error {
			if _, err := c.Insert(ctx, "accounts", sqlgen.Map{"id": 2, "email": "dropped@example.com"}); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, inner, errAbort)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Depth())
	assert.Equal(t, 1, countAccounts(t, c))

	assert.Panics(t, func() {
		_ = c.Transaction(ctx, func(c *Client) error {
			panic("boom")
		})
	})
	assert.Equal(t, 0, c.Depth())
}

func TestClientMiddlewareAndStats(t *testing.T) {
	ctx := context.Background()
	var queries []string
	var failed []string
	c := newSQLiteClient(t,
		WithMiddleware(
			TimingMiddleware(func(query string, d time.Duration) { queries = append(queries, query) }),
			ErrorMiddleware(func(query string, err error) { failed = append(failed, query) }),
		),
	)
	queries = nil

	require.NoError(t, c.Transaction(ctx, func(c *Client) error {
		return c.Transaction(ctx, func(c *Client) error {
			_, err := c.Delete(ctx, "accounts", sqlgen.Filter{sqlgen.Where("id", 1)})
			return err
		})
	}))
	_, err := c.Exec(ctx, "DELETE FROM missing")
	require.Error(t, err)

	assert.Equal(t, []string{
		"BEGIN",
		"SAVEPOINT LEVEL1",
		`DELETE FROM "accounts" WHERE ("id" = ?)`,
		"RELEASE SAVEPOINT LEVEL1",
		"COMMIT",
		"DELETE FROM missing",
	}, queries)
	assert.Equal(t, []string{"DELETE FROM missing"}, failed)

	kinds := map[string]int64{}
	var errs int64
	for _, s := range c.Stats().Statements {
		kinds[s.Kind] = s.Count
		errs += s.Errors
	}
	assert.Equal(t, int64(1), kinds["BEGIN"])
	assert.Equal(t, int64(1), kinds["SAVEPOINT"])
	assert.Equal(t, int64(1), kinds["RELEASE"])
	assert.Equal(t, int64(1), kinds["COMMIT"])
	assert.Equal(t, int64(1), errs)
}

func TestClientQueryRejectsBadStatement(t *testing.T) {
	c := newSQLiteClient(t)

	_, err := c.Query(context.Background(), 3.14)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = c.Exec(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestClientServerVersion(t *testing.T) {
	c := newSQLiteClient(t)

	v, err := c.ServerVersion(context.Background())
	require.NoError(t, err)
	ok, err := c.Driver().SupportsSavepoints(v)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClientCloseRollsBack(t *testing.T) {
	ctx := context.Background()
	c, err := Connect(ctx, Params{Driver: "sqlite"})
	require.NoError(t, err)

	require.NoError(t, c.BeginTransaction(ctx))
	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Depth())
	assert.Error(t, c.DB().PingContext(ctx))
}
