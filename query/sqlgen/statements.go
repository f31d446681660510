package sqlgen

import (
	"fmt"
	"strings"
)

// Query represents a SQL query with arguments
type Query struct {
	SQL  string
	Args []interface{}
}

// InsertStatement builds an INSERT with one placeholder per column.
// Assignment decorations such as "+=" are stripped from column keys; any
// other suffix fails with ErrInvalidIdentifier.
func (c *Compiler) InsertStatement(table string, columns []string) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("%w: no columns to insert into %q", ErrEmptyValues, table)
	}

	quotedTable, err := c.quoter.Quote(table)
	if err != nil {
		return "", err
	}

	quotedCols := make([]string, len(columns))
	for i, col := range columns {
		if quotedCols[i], err = c.quoter.QuoteColumn(ColumnName(col)); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quotedTable,
		strings.Join(quotedCols, ","),
		placeholders(len(columns)),
	), nil
}

// Update builds an UPDATE. A column key may end with "+=" or "-=" to
// increment or decrement the stored value. SET arguments precede filter
// arguments.
func (c *Compiler) Update(table string, values Row, filter Filter) (*Query, error) {
	if len(values) == 0 {
		return nil, ErrEmptyValues
	}
	if len(filter) == 0 {
		return nil, ErrEmptyFilter
	}

	quotedTable, err := c.quoter.Quote(table)
	if err != nil {
		return nil, err
	}

	args := make([]interface{}, 0, len(values))
	setParts := make([]string, len(values))
	for i, field := range values {
		name, op := SplitOperator(field.Column)
		col, err := c.quoter.QuoteColumn(name)
		if err != nil {
			return nil, err
		}
		if !isScalar(field.Value) {
			return nil, fmt.Errorf("%w: value of %q has unsupported type %T", ErrInvalidArgument, name, field.Value)
		}

		switch op {
		case "=":
			setParts[i] = col + " = ?"
		case "+=":
			setParts[i] = col + " = " + col + " + ?"
		case "-=":
			setParts[i] = col + " = " + col + " - ?"
		default:
			return nil, fmt.Errorf("%w: unsupported assignment %q on %q", ErrInvalidArgument, op, name)
		}
		args = append(args, field.Value)
	}

	where, err := c.CompileFilter(filter, &args)
	if err != nil {
		return nil, err
	}

	return &Query{
		SQL:  fmt.Sprintf("UPDATE %s SET %s WHERE %s", quotedTable, strings.Join(setParts, ", "), where),
		Args: args,
	}, nil
}

// Delete builds a DELETE. An empty filter is rejected so that a table is
// never emptied by accident.
func (c *Compiler) Delete(table string, filter Filter) (*Query, error) {
	if len(filter) == 0 {
		return nil, ErrEmptyFilter
	}

	quotedTable, err := c.quoter.Quote(table)
	if err != nil {
		return nil, err
	}

	var args []interface{}
	where, err := c.CompileFilter(filter, &args)
	if err != nil {
		return nil, err
	}

	return &Query{
		SQL:  fmt.Sprintf("DELETE FROM %s WHERE %s", quotedTable, where),
		Args: args,
	}, nil
}

// Select builds a SELECT. An empty column list selects *; WHERE and
// ORDER BY are omitted when filter or orderBy is empty.
func (c *Compiler) Select(columns []string, tables Tables, filter Filter, orderBy []string) (*Query, error) {
	cols := "*"
	if len(columns) > 0 {
		quoted, err := c.quoter.QuoteAll(columns)
		if err != nil {
			return nil, err
		}
		cols = strings.Join(quoted, ", ")
	}

	from, err := c.CompileTables(tables)
	if err != nil {
		return nil, err
	}

	parts := []string{"SELECT " + cols, "FROM " + from}
	var args []interface{}

	if len(filter) > 0 {
		where, err := c.CompileFilter(filter, &args)
		if err != nil {
			return nil, err
		}
		parts = append(parts, "WHERE "+where)
	}

	if len(orderBy) > 0 {
		order, err := c.quoter.QuoteAll(orderBy)
		if err != nil {
			return nil, err
		}
		parts = append(parts, "ORDER BY "+strings.Join(order, ", "))
	}

	return &Query{
		SQL:  strings.Join(parts, " "),
		Args: args,
	}, nil
}
