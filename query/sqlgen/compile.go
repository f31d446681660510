package sqlgen

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Compiler turns filters, tables and statement inputs into SQL text
// with ? placeholders and an ordered argument list.
type Compiler struct {
	quoter Quoter
}

// NewCompiler creates a Compiler using quoter for identifiers.
func NewCompiler(quoter Quoter) *Compiler {
	return &Compiler{quoter: quoter}
}

// Quote quotes an identifier.
func (c *Compiler) Quote(identifier string) (string, error) {
	return c.quoter.Quote(identifier)
}

var filterOperators = map[string]bool{
	"=":        true,
	"<>":       true,
	"!=":       true,
	">":        true,
	"<":        true,
	">=":       true,
	"<=":       true,
	"LIKE":     true,
	"NOT LIKE": true,
	"IN":       true,
	"NOT IN":   true,
}

// CompileFilter compiles f into a parenthesized expression and appends the
// bound values to args in placeholder order.
func (c *Compiler) CompileFilter(f Filter, args *[]interface{}) (string, error) {
	if args == nil {
		args = new([]interface{})
	}
	return c.compileFilter(f, args, false)
}

func (c *Compiler) compileFilter(f Filter, args *[]interface{}, columnsOnly bool) (string, error) {
	var b strings.Builder
	b.WriteByte('(')

	// Empty until the first entry is emitted.
	var pending Logic
	for i, entry := range f {
		switch e := entry.(type) {
		case Logic:
			if pending == "" {
				return "", fmt.Errorf("%w: filter must not start with operator %q", ErrInvalidFilter, string(e))
			}
			op := Logic(strings.ToUpper(strings.TrimSpace(string(e))))
			if op != AND && op != OR {
				return "", fmt.Errorf("%w: unknown boolean operator %q", ErrInvalidFilter, string(e))
			}
			pending = op
			continue

		case Condition:
			if pending != "" {
				b.WriteString(" " + string(pending) + " ")
			}
			expr, err := c.compileCondition(e, args, columnsOnly)
			if err != nil {
				return "", err
			}
			b.WriteString(expr)

		case Group:
			if len(e) == 0 {
				return "", fmt.Errorf("%w: entry %d is an empty group", ErrInvalidFilter, i)
			}
			if pending != "" {
				b.WriteString(" " + string(pending) + " ")
			}
			expr, err := c.compileFilter(Filter(e), args, columnsOnly)
			if err != nil {
				return "", err
			}
			b.WriteString(expr)

		default:
			return "", fmt.Errorf("%w: entry %d has unsupported type %T", ErrInvalidFilter, i, entry)
		}

		pending = AND
	}

	b.WriteByte(')')
	return b.String(), nil
}

func (c *Compiler) compileCondition(cond Condition, args *[]interface{}, columnsOnly bool) (string, error) {
	column, err := c.quoter.QuoteColumn(cond.Field)
	if err != nil {
		return "", err
	}

	op := strings.ToUpper(strings.TrimSpace(cond.Operator))
	if op == "" {
		op = "="
	}
	if !filterOperators[op] {
		return "", fmt.Errorf("%w: unsupported operator %q on %q", ErrInvalidFilter, cond.Operator, cond.Field)
	}

	if columnsOnly {
		if s, ok := cond.Value.(string); ok {
			cond.Value = Ident(s)
		}
		if _, ok := cond.Value.(Ident); !ok {
			return "", fmt.Errorf("%w: join predicate on %q must compare columns, got %T", ErrInvalidTable, cond.Field, cond.Value)
		}
	}

	switch v := cond.Value.(type) {
	case Ident:
		if op == "IN" || op == "NOT IN" {
			return "", fmt.Errorf("%w: %s needs a list of values on %q", ErrInvalidFilter, op, cond.Field)
		}
		ref, err := c.quoter.QuoteColumn(string(v))
		if err != nil {
			return "", err
		}
		return column + " " + op + " " + ref, nil
	case Filter, Group:
		return "", fmt.Errorf("%w: nested filter used as value of %q", ErrInvalidFilter, cond.Field)
	}

	if list, ok := sequence(cond.Value); ok {
		if len(list) == 0 {
			return "", fmt.Errorf("%w: empty value list for %q", ErrInvalidFilter, cond.Field)
		}
		switch op {
		case "=", "IN":
			op = "IN"
		case "<>", "!=", "NOT IN":
			op = "NOT IN"
		default:
			return "", fmt.Errorf("%w: operator %s cannot take a list on %q", ErrInvalidFilter, op, cond.Field)
		}
		for _, item := range list {
			if !isScalar(item) {
				return "", fmt.Errorf("%w: list for %q contains %T", ErrInvalidFilter, cond.Field, item)
			}
		}
		*args = append(*args, list...)
		return column + " " + op + " (" + placeholders(len(list)) + ")", nil
	}

	if !isScalar(cond.Value) {
		return "", fmt.Errorf("%w: value of %q has unsupported type %T", ErrInvalidFilter, cond.Field, cond.Value)
	}
	if op == "IN" || op == "NOT IN" {
		return "", fmt.Errorf("%w: %s needs a list of values on %q", ErrInvalidFilter, op, cond.Field)
	}

	*args = append(*args, cond.Value)
	return column + " " + op + " ?", nil
}

// placeholders returns n comma separated question marks.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

var (
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	timeType   = reflect.TypeOf(time.Time{})
)

// sequence reports whether v is a list of values and returns its elements.
// Byte slices and arrays, named ones included, are scalars.
func sequence(v interface{}) ([]interface{}, bool) {
	switch list := v.(type) {
	case nil:
		return nil, false
	case []interface{}:
		return list, true
	}

	rv := reflect.ValueOf(v)
	if rv.Type().Implements(valuerType) {
		return nil, false
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}

	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// isScalar reports whether v can be bound to a single placeholder.
func isScalar(v interface{}) bool {
	if v == nil {
		return true
	}
	if _, ok := v.(driver.Valuer); ok {
		return true
	}

	rv := reflect.ValueOf(v)
	if rv.Type() == timeType {
		return true
	}

	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	case reflect.Slice, reflect.Array:
		return rv.Type().Elem().Kind() == reflect.Uint8
	case reflect.Ptr:
		if rv.IsNil() {
			return true
		}
		return isScalar(rv.Elem().Interface())
	}
	return false
}
