package executor

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/satishbabariya/sqlwrap/query/sqlgen"
)

// Insert writes every row of values into table and returns the summed
// affected-row count. All rows are bound against the first row's columns.
//
// When upsertKeys is given and a row fails with a unique or primary key
// violation, the row is rewritten as an UPDATE of its remaining columns
// filtered by the key columns. A key missing from the row or holding nil
// leaves the original error in place. On failure the count of rows written
// so far is returned with the error.
func (e *Executor) Insert(ctx context.Context, table string, values sqlgen.Values, upsertKeys ...string) (int64, error) {
	rows := sqlgen.RowsOf(values)
	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: nothing to insert into %q", sqlgen.ErrEmptyValues, table)
	}

	columns := rows[0].Columns()
	query, err := e.compiler.InsertStatement(table, columns)
	if err != nil {
		return 0, err
	}
	query = e.dialect.Rebind(query)

	stmt, release, err := e.prepareInsert(ctx, query)
	if err != nil {
		return 0, err
	}
	defer release()

	var total int64
	for i, row := range rows {
		args, err := bindRow(row, columns)
		if err != nil {
			return total, fmt.Errorf("row %d: %w", i, err)
		}

		var res sql.Result
		err = e.run(ctx, query, args, func() error {
			res, err = stmt.ExecContext(ctx, args...)
			return err
		})
		if err != nil {
			if len(upsertKeys) == 0 || !IsConstraintViolation(err) {
				return total, newQueryError("insert", query, args, err)
			}
			n, uerr := e.upsert(ctx, table, row, upsertKeys, newQueryError("insert", query, args, err))
			if uerr != nil {
				return total, uerr
			}
			total += n
			continue
		}

		n, err := res.RowsAffected()
		if err != nil {
			return total, newQueryError("insert", query, args, err)
		}
		total += n
	}

	return total, nil
}

// prepareInsert returns a statement for query usable on the executor's
// handle and a function releasing it.
//
// Inside a transaction the cache is only consulted: preparing a missing
// statement on the pool would wait for a connection, and the pool may have
// none left while the transaction holds one.
func (e *Executor) prepareInsert(ctx context.Context, query string) (*sql.Stmt, func(), error) {
	tx, inTx := e.conn.(stmtBinder)

	if e.stmts != nil && inTx {
		if stmt, ok := e.stmts.Lookup(query); ok {
			bound := tx.StmtContext(ctx, stmt)
			return bound, func() { _ = bound.Close() }, nil
		}
	}

	if e.stmts != nil && !inTx {
		stmt, err := e.stmts.Prepare(ctx, query)
		if err != nil {
			return nil, nil, newQueryError("prepare", query, nil, err)
		}
		return stmt, func() {}, nil
	}

	stmt, err := e.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, nil, newQueryError("prepare", query, nil, err)
	}
	return stmt, func() { _ = stmt.Close() }, nil
}

// upsert turns a row that collided on its keys into an UPDATE. failed, the
// error of the INSERT, is returned unchanged when the keys cannot identify
// the row.
func (e *Executor) upsert(ctx context.Context, table string, row sqlgen.Row, keys []string, failed error) (int64, error) {
	filter := make(sqlgen.Filter, 0, len(keys))
	isKey := make(map[string]bool, len(keys))
	for _, key := range keys {
		v, ok := lookupColumn(row, key)
		if !ok || v == nil {
			return 0, failed
		}
		filter = append(filter, sqlgen.Where(key, v))
		isKey[key] = true
	}

	set := make(sqlgen.Row, 0, len(row))
	for _, f := range row {
		name := sqlgen.ColumnName(f.Column)
		if isKey[name] {
			continue
		}
		set = set.Set(name, f.Value)
	}
	if len(set) == 0 {
		return 0, nil
	}

	q, err := e.compiler.Update(table, set, filter)
	if err != nil {
		return 0, err
	}
	return e.affected(ctx, "upsert", q)
}

// bindRow orders a row's values by columns.
func bindRow(row sqlgen.Row, columns []string) ([]interface{}, error) {
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		v, ok := row.Lookup(col)
		if !ok {
			return nil, fmt.Errorf("%w: missing value for column %q", sqlgen.ErrInvalidArgument, col)
		}
		args[i] = v
	}
	return args, nil
}

// lookupColumn finds a value by its bare column name, ignoring an
// assignment decoration on the stored key.
func lookupColumn(row sqlgen.Row, column string) (interface{}, bool) {
	for _, f := range row {
		if sqlgen.ColumnName(f.Column) == column {
			return f.Value, true
		}
	}
	return nil, false
}
