package sqlgen

import (
	"sort"
	"strings"
)

// Filter is an ordered filter compiled into a parenthesized
// boolean expression. Entries are joined with AND unless a Logic entry
// precedes them.
//
//	Filter{
//		Where("id", 1),
//		Group{Where("author", "joe"), OR, Group{Where("author", "suzy")}},
//	}
//
// compiles to
//
//	("id" = ? AND ("author" = ? OR ("author" = ?)))
type Filter []Entry

// Entry is one element of a Filter: a Condition, a Logic token or a Group.
type Entry interface {
	filterEntry()
}

// Condition compares a column with a value.
type Condition struct {
	Field    string
	Operator string // "=", "<>", "!=", ">", "<", ">=", "<=", "LIKE", "NOT LIKE", "IN", "NOT IN"
	Value    interface{}
}

// Logic changes the conjunction applied to the next entry.
type Logic string

// Boolean operator tokens.
const (
	AND Logic = "AND"
	OR  Logic = "OR"
)

// Group is a nested filter, compiled in its own parentheses.
type Group Filter

// Ident is a column reference used as a comparison value. It is quoted
// instead of being bound as an argument.
type Ident string

func (Condition) filterEntry() {}
func (Logic) filterEntry()     {}
func (Group) filterEntry()     {}

// Where builds a Condition from a key of the form "column [operator]".
// The operator defaults to "=".
func Where(key string, value interface{}) Condition {
	field, op := SplitOperator(key)
	return Condition{Field: field, Operator: op, Value: value}
}

// SplitOperator separates a trailing operator token from a column key.
//
//	"id"         -> "id", "="
//	"created >=" -> "created", ">="
//	"name not like" -> "name", "NOT LIKE"
func SplitOperator(key string) (string, string) {
	key = strings.TrimSpace(key)
	i := strings.IndexAny(key, " \t")
	if i < 0 {
		return key, "="
	}
	op := strings.Join(strings.Fields(key[i:]), " ")
	return key[:i], strings.ToUpper(op)
}

// ColumnName strips an assignment decoration ("=", "+=" or "-=") from a
// column key. Any other suffix is kept so that quoting rejects the key.
func ColumnName(key string) string {
	name, op := SplitOperator(key)
	switch op {
	case "=", "+=", "-=":
		return name
	}
	return strings.TrimSpace(key)
}

// Row is an ordered list of column/value pairs.
type Row []Field

// Field is one column/value pair of a Row. The column may carry an operator
// suffix such as "+=" in an UPDATE.
type Field struct {
	Column string
	Value  interface{}
}

// Set returns a Row with the pair appended.
func (r Row) Set(column string, value interface{}) Row {
	return append(r, Field{Column: column, Value: value})
}

// Columns returns the column keys in order.
func (r Row) Columns() []string {
	cols := make([]string, len(r))
	for i, f := range r {
		cols[i] = f.Column
	}
	return cols
}

// Lookup returns the value stored for column.
func (r Row) Lookup(column string) (interface{}, bool) {
	for _, f := range r {
		if f.Column == column {
			return f.Value, true
		}
	}
	return nil, false
}

// FromMap converts a map into a Row ordered by column name.
func FromMap(m map[string]interface{}) Row {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := make(Row, 0, len(keys))
	for _, k := range keys {
		row = append(row, Field{Column: k, Value: m[k]})
	}
	return row
}

// Values is the data of an INSERT: a single row or a list of rows.
type Values interface {
	rows() []Row
}

// Rows is a bulk insert value set.
type Rows []Row

// Map is a single row given as a map.
type Map map[string]interface{}

// Maps is a bulk insert value set given as maps.
type Maps []map[string]interface{}

func (r Row) rows() []Row {
	if len(r) == 0 {
		return nil
	}
	return []Row{r}
}

func (r Rows) rows() []Row {
	out := make([]Row, 0, len(r))
	for _, row := range r {
		if len(row) > 0 {
			out = append(out, row)
		}
	}
	return out
}

func (m Map) rows() []Row {
	if len(m) == 0 {
		return nil
	}
	return []Row{FromMap(m)}
}

func (m Maps) rows() []Row {
	out := make([]Row, 0, len(m))
	for _, row := range m {
		if len(row) > 0 {
			out = append(out, FromMap(row))
		}
	}
	return out
}

// RowsOf normalizes a value set into a list of rows. Empty rows are dropped.
func RowsOf(v Values) []Row {
	if v == nil {
		return nil
	}
	return v.rows()
}
