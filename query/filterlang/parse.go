package filterlang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/satishbabariya/sqlwrap/query/sqlgen"
)

// ParseFilter parses a filter expression.
func ParseFilter(src string) (sqlgen.Filter, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}

	ast, err := filterParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sqlgen.ErrInvalidFilter, err)
	}
	return ast.filter()
}

// ParseAssignments parses a comma separated list of column assignments.
// "+=" and "-=" are kept as column suffixes for UPDATE.
func ParseAssignments(src string) (sqlgen.Row, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}

	ast, err := assignmentsParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sqlgen.ErrInvalidArgument, err)
	}

	row := make(sqlgen.Row, 0, len(ast.Items))
	for _, item := range ast.Items {
		v, err := item.Value.value()
		if err != nil {
			return nil, err
		}
		column := item.Column
		if item.Op != "=" {
			column += " " + item.Op
		}
		row = row.Set(column, v)
	}
	return row, nil
}

// ParseTables parses a base table followed by joins.
func ParseTables(src string) (sqlgen.Tables, error) {
	ast, err := tablesParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sqlgen.ErrInvalidTable, err)
	}

	tables := sqlgen.From(ast.Base.String())
	for _, j := range ast.Joins {
		tables = tables.Join(strings.ToUpper(strings.Join(j.Kind, " ")))

		var on sqlgen.Filter
		if j.On != nil {
			if on, err = j.On.filter(); err != nil {
				return nil, err
			}
		}
		tables = tables.On(j.Table.String(), on)
	}
	return tables, nil
}

func (t *tableRef) String() string {
	if t.Alias == "" {
		return t.Name
	}
	return t.Name + " " + t.Alias
}

func (e *exprNode) filter() (sqlgen.Filter, error) {
	head, err := e.Head.entry()
	if err != nil {
		return nil, err
	}

	f := sqlgen.Filter{head}
	for _, t := range e.Tail {
		entry, err := t.Term.entry()
		if err != nil {
			return nil, err
		}
		if logic := sqlgen.Logic(strings.ToUpper(t.Logic)); logic == sqlgen.OR {
			f = append(f, logic)
		}
		f = append(f, entry)
	}
	return f, nil
}

func (t *termNode) entry() (sqlgen.Entry, error) {
	if t.Group != nil {
		f, err := t.Group.filter()
		if err != nil {
			return nil, err
		}
		return sqlgen.Group(f), nil
	}
	return t.Cond.condition()
}

func (c *condNode) condition() (sqlgen.Condition, error) {
	op := strings.ToUpper(c.Op)
	if c.Not {
		if op != "LIKE" && op != "IN" {
			return sqlgen.Condition{}, fmt.Errorf("%w: NOT %s on %q", sqlgen.ErrInvalidFilter, op, c.Column)
		}
		op = "NOT " + op
	}

	var value interface{}
	switch {
	case c.Value.List != nil:
		list := make([]interface{}, len(c.Value.List))
		for i, s := range c.Value.List {
			v, err := s.value()
			if err != nil {
				return sqlgen.Condition{}, err
			}
			list[i] = v
		}
		value = list
	case c.Value.Scalar != nil:
		v, err := c.Value.Scalar.value()
		if err != nil {
			return sqlgen.Condition{}, err
		}
		value = v
	default:
		value = sqlgen.Ident(c.Value.Column)
	}

	return sqlgen.Condition{Field: c.Column, Operator: op, Value: value}, nil
}

func (s *scalarNode) value() (interface{}, error) {
	switch {
	case s.String != nil:
		return unquote(*s.String)
	case s.Number != nil:
		if n, err := strconv.ParseInt(*s.Number, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(*s.Number, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", sqlgen.ErrInvalidArgument, *s.Number)
		}
		return f, nil
	case s.Bool != nil:
		return strings.EqualFold(*s.Bool, "TRUE"), nil
	}
	return nil, nil
}

func unquote(s string) (string, error) {
	if strings.HasPrefix(s, "'") {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), nil
	}
	out, err := strconv.Unquote(s)
	if err != nil {
		return "", fmt.Errorf("%w: bad string literal %s", sqlgen.ErrInvalidArgument, s)
	}
	return out, nil
}
