package client

import (
	"context"
	"database/sql"
	"fmt"
)

// Connect opens a pool for p and returns a client owning it. Empty fields of
// p take the driver's defaults, then the shared defaults. Private in-memory
// SQLite databases are pinned to a single connection.
func Connect(ctx context.Context, p Params, opts ...Option) (*Client, error) {
	o := buildOptions(opts)

	name := p.Driver
	if name == "" {
		name = o.driver
	}
	cfg, err := o.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	o.driver = cfg.Name

	dsn := cfg.DSN(p)
	db, err := sql.Open(cfg.SQLDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Name, err)
	}
	if cfg.Name == "sqlite" && isMemoryDSN(dsn) {
		db.SetMaxOpenConns(1)
		o.maxOpenConns = 0
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", cfg.Name, err)
	}

	c, err := newClient(db, true, o)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	c.logger.DebugContext(ctx, "connected", "dbname", p.merge(cfg.Defaults).DBName)
	return c, nil
}
