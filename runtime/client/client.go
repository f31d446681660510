// Package client provides the sqlwrap database client: structured
// statements, nested transactions and connection construction over
// database/sql.
package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/hashicorp/go-version"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/satishbabariya/sqlwrap/internal/debug"
	"github.com/satishbabariya/sqlwrap/query/cache"
	"github.com/satishbabariya/sqlwrap/query/executor"
	"github.com/satishbabariya/sqlwrap/query/sqlgen"
	"github.com/satishbabariya/sqlwrap/telemetry"
)

// Client runs structured statements against a database. Statements go to
// the open transaction while Depth() > 0 and to the pool otherwise.
//
// A Client is not safe for concurrent use.
type Client struct {
	db          *sql.DB
	ownsDB      bool
	driver      DriverConfig
	base        *executor.Executor
	stmts       *cache.StatementCache
	stats       *telemetry.Collector
	middlewares []Middleware
	logger      *slog.Logger
	tx          nestedTx
	sqlTx       *sql.Tx
}

type options struct {
	logger          *slog.Logger
	driver          string
	registry        *Registry
	cacheSize       int
	middlewares     []Middleware
	txOptions       *sql.TxOptions
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger for statements and transaction changes.
// Defaults to the process debug logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDriver names the driver instead of detecting it from the handle.
func WithDriver(name string) Option {
	return func(o *options) {
		o.driver = name
	}
}

// WithRegistry replaces the built-in driver registry.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithStatementCache keeps up to size prepared INSERT statements open.
func WithStatementCache(size int) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}

// WithMiddleware appends middlewares to the statement chain.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, middlewares...)
	}
}

// WithTxOptions sets the options of the outermost transaction.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(o *options) {
		o.txOptions = opts
	}
}

// WithMaxOpenConns limits the pool size.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		o.maxOpenConns = n
	}
}

// WithMaxIdleConns limits the idle connections kept by the pool.
func WithMaxIdleConns(n int) Option {
	return func(o *options) {
		o.maxIdleConns = n
	}
}

// WithConnMaxLifetime limits how long a pooled connection is reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *options) {
		o.connMaxLifetime = d
	}
}

func buildOptions(opts []Option) *options {
	o := &options{registry: DefaultRegistry()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = debug.Logger()
	}
	return o
}

// New wraps an open database handle. The driver is detected from
// db.Driver() unless WithDriver is given. The caller keeps ownership of db.
func New(db *sql.DB, opts ...Option) (*Client, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil database handle", ErrInvalidArgument)
	}
	return newClient(db, false, buildOptions(opts))
}

func newClient(db *sql.DB, owns bool, o *options) (*Client, error) {
	name := o.driver
	if name == "" {
		name = detectDriver(db)
	}
	cfg, err := o.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	if o.maxOpenConns > 0 {
		db.SetMaxOpenConns(o.maxOpenConns)
	}
	if o.maxIdleConns > 0 {
		db.SetMaxIdleConns(o.maxIdleConns)
	}
	if o.connMaxLifetime > 0 {
		db.SetConnMaxLifetime(o.connMaxLifetime)
	}

	c := &Client{
		db:     db,
		ownsDB: owns,
		driver: cfg,
		stats:  telemetry.NewCollector(),
		logger: o.logger.With("driver", cfg.Name),
	}
	c.middlewares = append([]Middleware{LoggingMiddleware(c.logger), StatsMiddleware(c.stats)}, o.middlewares...)
	c.tx = nestedTx{flat: sqlTransactor{c: c, opts: o.txOptions}, logger: c.logger}

	execOpts := []executor.Option{executor.WithInterceptor(c.intercept)}
	if o.cacheSize > 0 {
		c.stmts = cache.NewStatementCache(db, o.cacheSize)
		execOpts = append(execOpts, executor.WithStatementCache(c.stmts))
	}
	c.base = executor.New(db, cfg.Dialect, execOpts...)

	return c, nil
}

// detectDriver names the registry entry for the handle's driver type.
func detectDriver(db *sql.DB) string {
	switch db.Driver().(type) {
	case *mysql.MySQLDriver:
		return "mysql"
	case *pq.Driver:
		return "pgsql"
	case *sqlite3.SQLiteDriver:
		return "sqlite"
	}
	return fmt.Sprintf("%T", db.Driver())
}

func (c *Client) intercept(ctx context.Context, query string, args []interface{}, run func() error) error {
	return c.executeWithMiddleware(ctx, query, args, run)
}

// executor returns the executor bound to the open transaction, if any.
func (c *Client) executor() *executor.Executor {
	if c.sqlTx != nil {
		return c.base.On(c.sqlTx)
	}
	return c.base
}

// Query runs a statement returning rows. stmt is SQL text with ?
// placeholders or a *sql.Stmt. The caller must close the rows.
func (c *Client) Query(ctx context.Context, stmt interface{}, args ...interface{}) (*sql.Rows, error) {
	return c.executor().Query(ctx, stmt, args...)
}

// Exec runs a statement returning no rows. stmt is SQL text with ?
// placeholders or a *sql.Stmt.
func (c *Client) Exec(ctx context.Context, stmt interface{}, args ...interface{}) (sql.Result, error) {
	return c.executor().Exec(ctx, stmt, args...)
}

// Prepare prepares query on the current handle. The caller must close the
// statement; statements prepared inside a transaction die with it.
func (c *Client) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	return c.executor().Prepare(ctx, query)
}

// Select runs SELECT columns FROM tables [WHERE filter] [ORDER BY orderBy].
// No columns selects *.
func (c *Client) Select(ctx context.Context, columns []string, tables sqlgen.Tables, filter sqlgen.Filter, orderBy []string) (*sql.Rows, error) {
	return c.executor().Select(ctx, columns, tables, filter, orderBy)
}

// Insert writes values into table and returns the affected-row count. When
// upsertKeys are given, rows colliding on a unique key are updated instead.
func (c *Client) Insert(ctx context.Context, table string, values sqlgen.Values, upsertKeys ...string) (int64, error) {
	return c.executor().Insert(ctx, table, values, upsertKeys...)
}

// Update sets values on the rows of table matching filter.
func (c *Client) Update(ctx context.Context, table string, values sqlgen.Row, filter sqlgen.Filter) (int64, error) {
	return c.executor().Update(ctx, table, values, filter)
}

// Delete removes the rows of table matching filter.
func (c *Client) Delete(ctx context.Context, table string, filter sqlgen.Filter) (int64, error) {
	return c.executor().Delete(ctx, table, filter)
}

// BuildInsertStatement returns the INSERT text for columns with ?
// placeholders.
func (c *Client) BuildInsertStatement(table string, columns []string) (string, error) {
	return c.base.Compiler().InsertStatement(table, columns)
}

// CompileFilter returns the WHERE text of filter and its arguments.
func (c *Client) CompileFilter(filter sqlgen.Filter) (string, []interface{}, error) {
	var args []interface{}
	text, err := c.base.Compiler().CompileFilter(filter, &args)
	if err != nil {
		return "", nil, err
	}
	return text, args, nil
}

// CompileTables returns the FROM text of tables.
func (c *Client) CompileTables(tables sqlgen.Tables) (string, error) {
	return c.base.Compiler().CompileTables(tables)
}

// Quote quotes an identifier for the client's dialect.
func (c *Client) Quote(identifier string) (string, error) {
	return c.base.Compiler().Quote(identifier)
}

// Driver returns the driver configuration in use.
func (c *Client) Driver() DriverConfig {
	return c.driver
}

// Dialect returns the SQL dialect in use.
func (c *Client) Dialect() sqlgen.Dialect {
	return c.driver.Dialect
}

// DB returns the underlying pool for operations the client does not model.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Tx returns the open transaction, or nil.
func (c *Client) Tx() *sql.Tx {
	return c.sqlTx
}

// Stats summarises the statements run by the client.
type Stats struct {
	Statements []telemetry.KindStats `json:"statements" yaml:"statements"`
	Cache      *cache.Stats          `json:"cache,omitempty" yaml:"cache,omitempty"`
	Pool       sql.DBStats           `json:"-" yaml:"-"`
	Depth      int                   `json:"depth" yaml:"depth"`
}

// Stats returns a snapshot of the client's statement statistics.
func (c *Client) Stats() Stats {
	s := Stats{
		Statements: c.stats.Snapshot(),
		Pool:       c.db.Stats(),
		Depth:      c.tx.depth,
	}
	if c.stmts != nil {
		cs := c.stmts.GetStats()
		s.Cache = &cs
	}
	return s
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// ServerVersion queries the server version.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	var v string
	err := c.executeWithMiddleware(ctx, c.driver.VersionQuery, nil, func() error {
		return c.db.QueryRowContext(ctx, c.driver.VersionQuery).Scan(&v)
	})
	if err != nil {
		return "", &QueryError{Operation: "version", Query: c.driver.VersionQuery, Cause: err}
	}
	return v, nil
}

// SupportsSavepoints reports whether raw, a server version string, is at
// least the driver's minimum version for nested transactions.
func (d DriverConfig) SupportsSavepoints(raw string) (bool, error) {
	// Vendor builds append text such as "(Debian 16.2-1)" or "-MariaDB".
	if i := strings.IndexAny(raw, " ("); i > 0 {
		raw = raw[:i]
	}
	got, err := version.NewVersion(raw)
	if err != nil {
		return false, fmt.Errorf("parse server version %q: %w", raw, err)
	}
	minimum := version.Must(version.NewVersion(d.MinSavepointVersion))
	return got.Core().GreaterThanOrEqual(minimum), nil
}

// Close rolls back any open transaction, closes cached statements and, for
// clients created by Connect, the pool.
func (c *Client) Close() error {
	var errs []error
	if c.sqlTx != nil {
		if err := c.sqlTx.Rollback(); err != nil {
			errs = append(errs, err)
		}
		c.sqlTx = nil
		c.tx.depth = 0
	}
	if c.stmts != nil {
		if err := c.stmts.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.ownsDB {
		if err := c.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
